package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"autoportal/pkg/profile"
	"autoportal/pkg/repair"
	"autoportal/pkg/role"
	"autoportal/pkg/user"
	"autoportal/pkg/validate"
)

// AdminHandler serves the back-office. Every route it owns is mounted behind
// an admin-only guard.
type AdminHandler struct {
	Users     user.ServiceInterface
	Profiles  profile.Repository
	Repairs   repair.ServiceInterface
	Validator *validate.Validator
	Logger    *slog.Logger
}

func NewAdminHandler(users user.ServiceInterface, profiles profile.Repository, repairs repair.ServiceInterface, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		Users:     users,
		Profiles:  profiles,
		Repairs:   repairs,
		Validator: validate.New(),
		Logger:    logger,
	}
}

func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req user.CreateForm
	if ok := decodeAndValidate(w, r, h.Validator, h.Logger, &req); !ok {
		return
	}
	if req.Role != nil && !req.Role.Valid() {
		writeError(w, http.StatusUnprocessableEntity, typeError, "invalid role")
		return
	}

	u, err := h.Users.CreateUser(r.Context(), req)
	switch {
	case errors.Is(err, user.ErrExists), errors.Is(err, user.ErrUsernameTaken):
		writeError(w, http.StatusConflict, typeError, err.Error())
		return
	case errors.Is(err, user.ErrInvalidRole):
		writeError(w, http.StatusUnprocessableEntity, typeError, err.Error())
		return
	case err != nil:
		h.Logger.Error("admin create user", "error", err)
		writeError(w, http.StatusInternalServerError, typeError, "internal error")
		return
	}

	resp := map[string]any{
		"message": "User created successfully",
		"userId":  u.ID,
	}
	if req.Vehicle != nil {
		// The account stays even when its first vehicle cannot be stored.
		v, err := h.Repairs.AddVehicle(r.Context(), u.ID, *req.Vehicle)
		if err != nil {
			h.Logger.Error("admin create user vehicle", "user", u.ID, "error", err)
			resp["message"] = "User created, but the vehicle could not be saved"
		} else {
			resp["vehicleId"] = v.ID
		}
	}

	if ok := WriteResp(w, h.Logger, resp, http.StatusCreated); ok {
		h.Logger.Info("admin created user", "user", u.ID)
	}
}

func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)[muxVarID]

	var req user.UpdateForm
	if ok := decodeAndValidate(w, r, h.Validator, h.Logger, &req); !ok {
		return
	}
	if req.Role != nil && !req.Role.Valid() {
		writeError(w, http.StatusUnprocessableEntity, typeError, "invalid role")
		return
	}

	changed, err := h.Users.UpdateUser(r.Context(), id, req)
	switch {
	case errors.Is(err, user.ErrNotFound), errors.Is(err, profile.ErrNotFound):
		writeError(w, http.StatusNotFound, typeError, "user not found")
		return
	case err != nil:
		h.Logger.Error("admin update user", "user", id, "error", err)
		writeError(w, http.StatusInternalServerError, typeError, "internal error")
		return
	case !changed:
		writeJSON(w, h.Logger, map[string]string{"message": "No update data provided"})
		return
	}

	if ok := writeJSON(w, h.Logger, map[string]string{"message": "User updated successfully"}); ok {
		h.Logger.Info("admin updated user", "user", id)
	}
}

func (h *AdminHandler) AuthStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)[muxVarID]

	confirmed, err := h.Users.AuthStatus(r.Context(), id)
	switch {
	case errors.Is(err, user.ErrNotFound):
		writeError(w, http.StatusNotFound, typeError, "user not found")
		return
	case err != nil:
		h.Logger.Error("auth status", "user", id, "error", err)
		writeError(w, http.StatusInternalServerError, typeError, "internal error")
		return
	}

	writeJSON(w, h.Logger, map[string]bool{"emailConfirmed": confirmed})
}

func (h *AdminHandler) Clients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.Profiles.List(r.Context(), role.Client)
	if err != nil {
		h.Logger.Error("list clients", "error", err)
		writeError(w, http.StatusInternalServerError, typeError, "internal error")
		return
	}
	writeJSON(w, h.Logger, clients)
}

func (h *AdminHandler) ClientDetails(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)[muxVarID]

	d, err := h.Repairs.ClientDetails(r.Context(), id)
	switch {
	case errors.Is(err, repair.ErrClientNotFound):
		writeError(w, http.StatusNotFound, typeError, err.Error())
		return
	case err != nil:
		h.Logger.Error("client details", "client", id, "error", err)
		writeError(w, http.StatusInternalServerError, typeError, "internal error")
		return
	}
	writeJSON(w, h.Logger, d)
}

func (h *AdminHandler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)[muxVarID]

	var req profile.ClientForm
	if ok := decodeAndValidate(w, r, h.Validator, h.Logger, &req); !ok {
		return
	}

	p, err := h.Users.UpdateClient(r.Context(), id, req)
	switch {
	case errors.Is(err, profile.ErrNotFound):
		writeError(w, http.StatusNotFound, typeError, "client not found")
		return
	case errors.Is(err, user.ErrInvalidRole):
		writeError(w, http.StatusUnprocessableEntity, typeError, err.Error())
		return
	case err != nil:
		h.Logger.Error("update client", "client", id, "error", err)
		writeError(w, http.StatusInternalServerError, typeError, "internal error")
		return
	}

	if ok := writeJSON(w, h.Logger, p); ok {
		h.Logger.Info("client updated", "client", id)
	}
}

func (h *AdminHandler) ListRepairs(w http.ResponseWriter, r *http.Request) {
	repairs, err := h.Repairs.All(r.Context())
	if err != nil {
		h.Logger.Error("list repairs", "error", err)
		writeError(w, http.StatusInternalServerError, typeError, "internal error")
		return
	}
	writeJSON(w, h.Logger, repairs)
}

func (h *AdminHandler) CreateRepair(w http.ResponseWriter, r *http.Request) {
	var req repair.RepairForm
	if ok := decodeAndValidate(w, r, h.Validator, h.Logger, &req); !ok {
		return
	}

	rep, err := h.Repairs.Create(r.Context(), req)
	switch {
	case repair.IsNotFound(err):
		writeError(w, http.StatusNotFound, typeError, err.Error())
		return
	case errors.Is(err, repair.ErrVehicleMismatch), errors.Is(err, repair.ErrInvalidStatus), errors.Is(err, repair.ErrInvalidID):
		writeError(w, http.StatusUnprocessableEntity, typeError, err.Error())
		return
	case err != nil:
		h.Logger.Error("create repair", "error", err)
		writeError(w, http.StatusInternalServerError, typeError, "internal error")
		return
	}

	if ok := writeJSONStatus(w, h.Logger, http.StatusCreated, rep); ok {
		h.Logger.Info("repair created", "repair", rep.ID, "client", rep.ClientID)
	}
}

func (h *AdminHandler) UpdateRepairStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)[muxVarID]

	var req repair.StatusForm
	if ok := decodeAndValidate(w, r, h.Validator, h.Logger, &req); !ok {
		return
	}

	rep, err := h.Repairs.UpdateStatus(r.Context(), id, req.Status)
	switch {
	case errors.Is(err, repair.ErrInvalidID):
		writeError(w, http.StatusBadRequest, typeMessage, "invalid repair id")
		return
	case errors.Is(err, repair.ErrNotFound):
		writeError(w, http.StatusNotFound, typeError, err.Error())
		return
	case errors.Is(err, repair.ErrInvalidStatus):
		writeError(w, http.StatusUnprocessableEntity, typeError, err.Error())
		return
	case err != nil:
		h.Logger.Error("update repair status", "repair", id, "error", err)
		writeError(w, http.StatusInternalServerError, typeError, "internal error")
		return
	}

	if ok := writeJSON(w, h.Logger, rep); ok {
		h.Logger.Info("repair status updated", "repair", id, "status", rep.Status)
	}
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Repairs.Stats(r.Context())
	if err != nil {
		h.Logger.Error("stats", "error", err)
		writeError(w, http.StatusInternalServerError, typeError, "internal error")
		return
	}
	writeJSON(w, h.Logger, stats)
}
