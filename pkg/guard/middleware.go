package guard

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"autoportal/pkg/resolver"
	"autoportal/pkg/respond"
	"autoportal/pkg/role"
	"autoportal/pkg/session"
)

type stateContextKey struct{}

// lazyState resolves the caller's role at most once per request, and only
// when something asks for it.
type lazyState struct {
	once  sync.Once
	load  func() resolver.State
	state resolver.State
}

func (l *lazyState) get() resolver.State {
	l.once.Do(func() { l.state = l.load() })
	return l.state
}

// StateFromContext returns the role state for the request's caller,
// resolving it on first use.
func StateFromContext(ctx context.Context) (resolver.State, bool) {
	l, ok := ctx.Value(stateContextKey{}).(*lazyState)
	if !ok {
		return resolver.State{}, false
	}
	return l.get(), true
}

// RoleFromContext returns the caller's role, role.None when unknown.
func RoleFromContext(ctx context.Context) role.Role {
	st, _ := StateFromContext(ctx)
	return st.Role
}

// SessionFunc extracts the authenticated session from a request, nil if none.
type SessionFunc func(*http.Request) *session.Session

// Middleware enforces rule on every request. Server-side resolution is
// synchronous, so Defer never reaches the client. Rules without an allow-list
// do not look the role up; handlers that need it get it from RoleFromContext.
func Middleware(g *Guard, rule Rule, sessionOf SessionFunc, roles resolver.RoleSource, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := sessionOf(r)
			ctx := r.Context()

			lazy := &lazyState{load: func() resolver.State {
				if !s.Valid() {
					return resolver.State{}
				}
				st := resolver.Lookup(ctx, roles, s.UserID)
				if st.Err != nil {
					logger.Warn("role lookup failed", "user", s.UserID, "error", st.Err)
				}
				return st
			}}

			st := resolver.State{}
			if rule.AllowedRoles != nil {
				st = lazy.get()
			}

			d := g.Decide(s, st, rule)
			switch d.Kind {
			case Render:
				next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, stateContextKey{}, lazy)))
			case RedirectToLogin:
				respond.Redirect(w, logger, http.StatusUnauthorized, "unauthorized", d.Path)
			case RedirectToFallback:
				logger.Debug("access denied", "user", s.UserID, "path", r.URL.Path, "redirect", d.Path)
				respond.Redirect(w, logger, http.StatusForbidden, "forbidden", d.Path)
			default:
				respond.Redirect(w, logger, http.StatusServiceUnavailable, "loading", "")
			}
		})
	}
}
