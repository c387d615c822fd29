package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"autoportal/pkg/repair"
	"autoportal/pkg/validate"
)

type DashboardHandler struct {
	Service   repair.ServiceInterface
	Validator *validate.Validator
	Logger    *slog.Logger
}

func NewDashboardHandler(service repair.ServiceInterface, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		Service:   service,
		Validator: validate.New(),
		Logger:    logger,
	}
}

func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	c, ok := getClaimsFromContext(w, r)
	if !ok {
		return
	}

	d, err := h.Service.Dashboard(r.Context(), c.User.ID)
	if err != nil {
		h.Logger.Error("dashboard", "user", c.User.ID, "error", err)
		writeError(w, http.StatusInternalServerError, typeError, "internal error")
		return
	}
	writeJSON(w, h.Logger, d)
}

func (h *DashboardHandler) AddVehicle(w http.ResponseWriter, r *http.Request) {
	c, ok := getClaimsFromContext(w, r)
	if !ok {
		return
	}

	var req repair.VehicleForm
	if ok := decodeAndValidate(w, r, h.Validator, h.Logger, &req); !ok {
		return
	}

	v, err := h.Service.AddVehicle(r.Context(), c.User.ID, req)
	if err != nil {
		h.Logger.Error("add vehicle", "user", c.User.ID, "error", err)
		writeError(w, http.StatusInternalServerError, typeError, "internal error")
		return
	}

	writeJSONStatus(w, h.Logger, http.StatusCreated, v)
}

func (h *DashboardHandler) UpdateVehicle(w http.ResponseWriter, r *http.Request) {
	c, ok := getClaimsFromContext(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)[muxVarID]

	var req repair.VehicleForm
	if ok := decodeAndValidate(w, r, h.Validator, h.Logger, &req); !ok {
		return
	}

	v, err := h.Service.UpdateVehicle(r.Context(), c.User.ID, id, req)
	switch {
	case errors.Is(err, repair.ErrInvalidID):
		writeError(w, http.StatusBadRequest, typeMessage, "invalid vehicle id")
		return
	case errors.Is(err, repair.ErrVehicleNotFound):
		writeError(w, http.StatusNotFound, typeError, err.Error())
		return
	case err != nil:
		h.Logger.Error("update vehicle", "user", c.User.ID, "vehicle", id, "error", err)
		writeError(w, http.StatusInternalServerError, typeError, "internal error")
		return
	}
	writeJSON(w, h.Logger, v)
}

func (h *DashboardHandler) VehicleRepairs(w http.ResponseWriter, r *http.Request) {
	c, ok := getClaimsFromContext(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)[muxVarID]

	repairs, err := h.Service.VehicleRepairs(r.Context(), c.User.ID, id)
	switch {
	case errors.Is(err, repair.ErrInvalidID):
		writeError(w, http.StatusBadRequest, typeMessage, "invalid vehicle id")
		return
	case errors.Is(err, repair.ErrVehicleNotFound):
		writeError(w, http.StatusNotFound, typeError, err.Error())
		return
	case err != nil:
		h.Logger.Error("vehicle repairs", "user", c.User.ID, "vehicle", id, "error", err)
		writeError(w, http.StatusInternalServerError, typeError, "internal error")
		return
	}
	writeJSON(w, h.Logger, repairs)
}
