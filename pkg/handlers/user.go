package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"autoportal/pkg/claims"
	"autoportal/pkg/guard"
	"autoportal/pkg/profile"
	"autoportal/pkg/resolver"
	"autoportal/pkg/role"
	"autoportal/pkg/user"
	"autoportal/pkg/validate"
)

type Handler struct {
	Service   user.ServiceInterface
	Roles     resolver.RoleSource
	Validator *validate.Validator
	Logger    *slog.Logger

	Secret   []byte
	TokenTTL time.Duration
	Now      func() time.Time
}

func NewUserHandler(service user.ServiceInterface, roles resolver.RoleSource, secret []byte, logger *slog.Logger) *Handler {
	return &Handler{
		Service:   service,
		Roles:     roles,
		Validator: validate.New(),
		Logger:    logger,
		Secret:    secret,
		TokenTTL:  claims.DefaultTTL,
		Now:       time.Now,
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req user.RegisterForm
	if ok := decodeAndValidate(w, r, h.Validator, h.Logger, &req); !ok {
		return
	}

	u, sessionID, err := h.Service.Register(r.Context(), req)
	if err != nil {
		var param, value string
		switch {
		case errors.Is(err, user.ErrExists):
			param, value = "email", req.Email
		case errors.Is(err, user.ErrUsernameTaken):
			param, value = "username", req.Username
		default:
			h.Logger.Error("register", "error", err.Error())
			writeError(w, http.StatusInternalServerError, typeError, "internal error")
			return
		}
		WriteResp(w, h.Logger, map[string]any{
			"errors": []validate.FieldError{
				{
					Location: "body",
					Param:    param,
					Value:    value,
					Msg:      "already exists",
				},
			},
		}, http.StatusUnprocessableEntity)
		return
	}

	if sessionID == "" {
		if ok := WriteResp(w, h.Logger, map[string]any{
			"message": "registered, awaiting email confirmation",
			"userId":  u.ID,
		}, http.StatusCreated); ok {
			h.Logger.Info("register", "user", u.ID, "confirmed", false)
		}
		return
	}

	h.GenerateToken(w, u.ID, u.Email, sessionID, "register")
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req user.LoginForm
	if ok := decodeAndValidate(w, r, h.Validator, h.Logger, &req); !ok {
		return
	}

	u, sessionID, err := h.Service.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		status, msg := http.StatusUnauthorized, "invalid password"
		switch {
		case errors.Is(err, user.ErrNotFound):
			msg = "user not found"
		case errors.Is(err, user.ErrEmailNotConfirmed):
			status, msg = http.StatusForbidden, "email not confirmed"
		case !errors.Is(err, user.ErrInvalidCredentials):
			h.Logger.Error("login", "error", err)
			status, msg = http.StatusInternalServerError, "internal error"
		}
		if ok := WriteResp(w, h.Logger, map[string]any{"message": msg}, status); ok {
			h.Logger.Info("login rejected", "login", req.Login, "reason", msg)
		}
		return
	}

	h.GenerateToken(w, u.ID, u.Email, sessionID, "login")
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	c, ok := getClaimsFromContext(w, r)
	if !ok {
		return
	}

	if err := h.Service.Logout(r.Context(), c.User.ID, c.SessionID()); err != nil {
		h.Logger.Error("logout", "user", c.User.ID, "error", err)
		writeError(w, http.StatusInternalServerError, typeError, "internal error")
		return
	}

	if ok := writeJSON(w, h.Logger, map[string]string{"message": "success"}); ok {
		h.Logger.Info("logout", "user", c.User.ID)
	}
}

// Refresh rotates the caller's session and returns a token for the new one.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	c, ok := getClaimsFromContext(w, r)
	if !ok {
		return
	}

	sessionID, err := h.Service.Refresh(r.Context(), c.User.ID, c.SessionID())
	if err != nil {
		h.Logger.Error("refresh", "user", c.User.ID, "error", err)
		writeError(w, http.StatusInternalServerError, typeError, "internal error")
		return
	}

	h.GenerateToken(w, c.User.ID, c.User.Email, sessionID, "refresh")
}

func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	c, ok := getClaimsFromContext(w, r)
	if !ok {
		return
	}

	writeJSON(w, h.Logger, map[string]any{
		"userId":    c.User.ID,
		"email":     c.User.Email,
		"expiresAt": c.ExpiresAt,
	})
}

func (h *Handler) ResolveUsername(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username" validate:"required"`
	}
	if ok := decodeAndValidate(w, r, h.Validator, h.Logger, &req); !ok {
		return
	}

	email, err := h.Service.ResolveUsername(r.Context(), req.Username)
	switch {
	case errors.Is(err, user.ErrUnknownUsername):
		writeError(w, http.StatusNotFound, typeError, "Invalid username")
		return
	case errors.Is(err, user.ErrNoEmail):
		writeError(w, http.StatusNotFound, typeError, "Could not retrieve email for user")
		return
	case err != nil:
		h.Logger.Error("resolve username", "error", err)
		writeError(w, http.StatusInternalServerError, typeError, "internal error")
		return
	}

	writeJSON(w, h.Logger, map[string]string{"email": email})
}

// ProfileRole returns the role on a profile. Callers may read their own row;
// admins may read any.
func (h *Handler) ProfileRole(w http.ResponseWriter, r *http.Request) {
	c, ok := getClaimsFromContext(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)[muxVarID]
	if id != c.User.ID && guard.RoleFromContext(r.Context()) != role.Admin {
		writeError(w, http.StatusForbidden, typeMessage, "forbidden")
		return
	}

	rl, err := h.Roles.RoleForUser(r.Context(), id)
	if err != nil {
		h.Logger.Error("profile role", "user", id, "error", err)
		writeError(w, http.StatusBadGateway, typeError, "role lookup failed")
		return
	}

	writeJSON(w, h.Logger, map[string]any{"id": id, "role": rl})
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	c, ok := getClaimsFromContext(w, r)
	if !ok {
		return
	}

	p, err := h.Service.Profile(r.Context(), c.User.ID)
	switch {
	case errors.Is(err, profile.ErrNotFound):
		writeError(w, http.StatusNotFound, typeError, err.Error())
		return
	case err != nil:
		h.Logger.Error("profile", "user", c.User.ID, "error", err)
		writeError(w, http.StatusInternalServerError, typeError, "internal error")
		return
	}
	writeJSON(w, h.Logger, p)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	c, ok := getClaimsFromContext(w, r)
	if !ok {
		return
	}

	var req profile.DetailsForm
	if ok := decodeAndValidate(w, r, h.Validator, h.Logger, &req); !ok {
		return
	}

	p, err := h.Service.UpdateProfile(r.Context(), c.User.ID, req)
	switch {
	case errors.Is(err, profile.ErrNotFound):
		writeError(w, http.StatusNotFound, typeError, err.Error())
		return
	case err != nil:
		h.Logger.Error("update profile", "user", c.User.ID, "error", err)
		writeError(w, http.StatusInternalServerError, typeError, "internal error")
		return
	}

	if ok := writeJSON(w, h.Logger, p); ok {
		h.Logger.Info("profile updated", "user", c.User.ID)
	}
}

func (h *Handler) GenerateToken(w http.ResponseWriter, userID, email, sessionID, action string) {
	c := claims.New(userID, email, sessionID, h.Now(), h.TokenTTL)
	tokenString, err := claims.Sign(c, h.Secret)
	if err != nil {
		h.Logger.Error("token signing", "error", err)
		writeError(w, http.StatusInternalServerError, typeError, "internal error")
		return
	}

	if ok := WriteResp(w, h.Logger, map[string]any{
		"token":     tokenString,
		"userId":    userID,
		"expiresAt": c.ExpiresAt,
	}, http.StatusOK); ok {
		h.Logger.Info(action, "user", userID)
	}
}
