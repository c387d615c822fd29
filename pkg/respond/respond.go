// Package respond writes the API's JSON responses.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// JSON writes data with status. It reports whether the body reached the client.
func JSON(w http.ResponseWriter, logger *slog.Logger, status int, data any) bool {
	logger = orDefault(logger)

	resp, err := json.Marshal(data)
	if err != nil {
		logger.Error("failed to serialize JSON response", "error", err)
		Error(w, logger, http.StatusInternalServerError, "error", "failed json marshal")
		return false
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if _, err := w.Write(resp); err != nil {
		logger.Error("failed to write response to client", "error", err)
		return false
	}
	return true
}

// Error writes {field: msg}.
func Error(w http.ResponseWriter, logger *slog.Logger, status int, field, msg string) bool {
	return JSON(w, logger, status, map[string]string{field: msg})
}

// Redirect tells an API client where to go instead. The target is sent both
// as the Location header and as the "redirect" field of the body.
func Redirect(w http.ResponseWriter, logger *slog.Logger, status int, msg, location string) bool {
	body := map[string]string{"message": msg}
	if location != "" {
		w.Header().Set("Location", location)
		body["redirect"] = location
	}
	return JSON(w, logger, status, body)
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
