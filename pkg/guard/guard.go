// Package guard decides whether a protected view may be shown for the
// current session and resolved role.
package guard

import (
	"autoportal/pkg/resolver"
	"autoportal/pkg/role"
	"autoportal/pkg/session"
)

type Kind int

const (
	// Defer means the role is still being resolved: show a loading
	// indicator, neither the view nor a redirect.
	Defer Kind = iota
	Render
	RedirectToLogin
	RedirectToFallback
)

func (k Kind) String() string {
	switch k {
	case Defer:
		return "defer"
	case Render:
		return "render"
	case RedirectToLogin:
		return "redirect_to_login"
	case RedirectToFallback:
		return "redirect_to_fallback"
	default:
		return "unknown"
	}
}

type Decision struct {
	Kind Kind   `json:"kind"`
	Path string `json:"path,omitempty"`
}

func (d Decision) Redirect() bool {
	return d.Kind == RedirectToLogin || d.Kind == RedirectToFallback
}

// Rule is the per-route configuration. A nil AllowedRoles admits any
// authenticated user. An empty Fallback means the login path.
type Rule struct {
	AllowedRoles []role.Role
	Fallback     string
}

// Paths names the public home surface, the login view and the dashboard every
// authenticated user may reach.
type Paths struct {
	Home      string
	Login     string
	Dashboard string
}

func DefaultPaths() Paths {
	return Paths{Home: "/", Login: "/login", Dashboard: "/dashboard"}
}

type Guard struct {
	paths Paths
}

func New(paths Paths) *Guard {
	def := DefaultPaths()
	if paths.Home == "" {
		paths.Home = def.Home
	}
	if paths.Login == "" {
		paths.Login = def.Login
	}
	if paths.Dashboard == "" {
		paths.Dashboard = def.Dashboard
	}
	return &Guard{paths: paths}
}

func (g *Guard) Paths() Paths {
	return g.paths
}

// Decide is a pure function of its inputs.
func (g *Guard) Decide(s *session.Session, st resolver.State, rule Rule) Decision {
	if st.Loading {
		return Decision{Kind: Defer}
	}

	if !s.Valid() {
		return Decision{Kind: RedirectToLogin, Path: g.paths.Login}
	}

	if rule.AllowedRoles == nil {
		return Decision{Kind: Render}
	}

	r := st.Role
	if !st.For(s) {
		r = role.None
	}
	if r.In(rule.AllowedRoles) {
		return Decision{Kind: Render}
	}

	fallback := rule.Fallback
	if fallback == "" {
		fallback = g.paths.Login
	}
	// A signed-in user who lacks the role already has a home of their own;
	// never bounce them to the public site.
	if fallback == g.paths.Home {
		fallback = g.paths.Dashboard
	}
	return Decision{Kind: RedirectToFallback, Path: fallback}
}
