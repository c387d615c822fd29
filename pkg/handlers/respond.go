package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"autoportal/pkg/claims"
	"autoportal/pkg/respond"
	"autoportal/pkg/validate"
)

const (
	typeError   string = "error"
	typeMessage string = "message"
	muxVarID    string = "id"
)

func DecodeJSONBody(w http.ResponseWriter, r *http.Request, req any) bool {
	if r.Header.Get("Content-Type") != "application/json" {
		writeError(w, http.StatusBadRequest, typeError, "invalid Content-Type")
		return false
	}

	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, typeError, "bad json")
		return false
	}

	return true
}

// decodeAndValidate decodes the body into req and checks its tags. On failure
// the response is already written.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validate.Validator, logger *slog.Logger, req any) bool {
	if ok := DecodeJSONBody(w, r, req); !ok {
		return false
	}
	if err := v.Struct(req); err != nil {
		var verr *validate.Error
		if errors.As(err, &verr) {
			WriteResp(w, logger, map[string]any{"errors": verr.Fields}, http.StatusUnprocessableEntity)
			return false
		}
		logger.Error("validation", "error", err)
		writeError(w, http.StatusInternalServerError, typeError, "internal error")
		return false
	}
	return true
}

func WriteResp(w http.ResponseWriter, logger *slog.Logger, body map[string]any, status int) bool {
	return respond.JSON(w, logger, status, body)
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, data any) bool {
	return respond.JSON(w, logger, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, logger *slog.Logger, status int, data any) bool {
	return respond.JSON(w, logger, status, data)
}

func getClaimsFromContext(w http.ResponseWriter, r *http.Request) (*claims.Claims, bool) {
	c, ok := claims.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, typeMessage, "unauthorized")
		return nil, false
	}
	return c, true
}

func writeError(w http.ResponseWriter, status int, field, msg string) {
	respond.Error(w, nil, status, field, msg)
}
