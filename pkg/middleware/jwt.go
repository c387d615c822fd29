package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"autoportal/pkg/claims"
	"autoportal/pkg/session"
)

// Session attaches the caller's claims to the request context when the
// bearer token verifies and its server-side session is still live. Requests
// without a usable token pass through unchanged; admission is decided by the
// route guard.
func Session(secret []byte, sessions session.Repository, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearer(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			c, err := claims.Parse(token, secret)
			if err != nil {
				logger.Debug("rejected token", "path", r.URL.Path, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			ok, err = sessions.IsValid(r.Context(), c.SessionID())
			if err != nil {
				logger.Error("session lookup", "user", c.User.ID, "error", err)
			}
			if err != nil || !ok {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(claims.WithClaims(r.Context(), c)))
		})
	}
}

// SessionFromRequest reports the session established by Session, or nil.
func SessionFromRequest(r *http.Request) *session.Session {
	c, ok := claims.FromContext(r.Context())
	if !ok {
		return nil
	}
	token, _ := bearer(r)
	return &session.Session{UserID: c.User.ID, AccessToken: token}
}

func bearer(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	token := strings.TrimPrefix(auth, "Bearer ")
	return token, token != ""
}
