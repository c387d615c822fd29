package guard_test

import (
	"errors"
	"testing"

	"autoportal/pkg/guard"
	"autoportal/pkg/resolver"
	"autoportal/pkg/role"
	"autoportal/pkg/session"

	"github.com/stretchr/testify/assert"
)

var (
	g     = guard.New(guard.Paths{})
	alice = &session.Session{UserID: "alice", AccessToken: "ta"}

	anyRole []role.Role
	admins  = []role.Role{role.Admin}
	both    = []role.Role{role.Client, role.Admin}
)

func resolve(r role.Role) resolver.State {
	return resolver.State{UserID: "alice", Role: r}
}

func TestDecide_NoSessionRedirectsToLogin(t *testing.T) {
	for _, allowed := range [][]role.Role{anyRole, admins, both} {
		d := g.Decide(nil, resolver.State{}, guard.Rule{AllowedRoles: allowed, Fallback: "/"})
		assert.Equal(t, guard.Decision{Kind: guard.RedirectToLogin, Path: "/login"}, d)
	}
}

func TestDecide_CustomLoginPath(t *testing.T) {
	cg := guard.New(guard.Paths{Login: "/signin"})
	d := cg.Decide(nil, resolver.State{}, guard.Rule{})
	assert.Equal(t, guard.Decision{Kind: guard.RedirectToLogin, Path: "/signin"}, d)
}

func TestDecide_NoAllowedRolesRendersForAnyRole(t *testing.T) {
	for _, r := range []role.Role{role.None, role.Client, role.Admin} {
		d := g.Decide(alice, resolve(r), guard.Rule{})
		assert.Equal(t, guard.Render, d.Kind, r.String())
	}
}

func TestDecide_ClientOnAdminRouteGoesToDashboard(t *testing.T) {
	d := g.Decide(alice, resolve(role.Client), guard.Rule{AllowedRoles: admins, Fallback: "/"})
	assert.Equal(t, guard.Decision{Kind: guard.RedirectToFallback, Path: "/dashboard"}, d)

	d = g.Decide(alice, resolve(role.None), guard.Rule{AllowedRoles: admins, Fallback: "/"})
	assert.Equal(t, guard.Decision{Kind: guard.RedirectToFallback, Path: "/dashboard"}, d)
}

func TestDecide_DeniedUsesConfiguredFallback(t *testing.T) {
	d := g.Decide(alice, resolve(role.Client), guard.Rule{AllowedRoles: admins, Fallback: "/services"})
	assert.Equal(t, guard.Decision{Kind: guard.RedirectToFallback, Path: "/services"}, d)

	d = g.Decide(alice, resolve(role.None), guard.Rule{AllowedRoles: both})
	assert.Equal(t, guard.Decision{Kind: guard.RedirectToFallback, Path: "/login"}, d)
}

func TestDecide_AllowedRoleRenders(t *testing.T) {
	d := g.Decide(alice, resolve(role.Admin), guard.Rule{AllowedRoles: both})
	assert.Equal(t, guard.Render, d.Kind)

	d = g.Decide(alice, resolve(role.Admin), guard.Rule{AllowedRoles: admins, Fallback: "/"})
	assert.Equal(t, guard.Render, d.Kind)
}

func TestDecide_Idempotent(t *testing.T) {
	st := resolve(role.Client)
	rule := guard.Rule{AllowedRoles: admins, Fallback: "/"}

	first := g.Decide(alice, st, rule)
	second := g.Decide(alice, st, rule)
	assert.Equal(t, first, second)
}

func TestDecide_TransportError(t *testing.T) {
	st := resolver.State{UserID: "alice", Role: role.None, Err: errors.New("fetch failed")}

	d := g.Decide(alice, st, guard.Rule{})
	assert.Equal(t, guard.Render, d.Kind)

	d = g.Decide(alice, st, guard.Rule{AllowedRoles: admins, Fallback: "/admin-denied"})
	assert.Equal(t, guard.Decision{Kind: guard.RedirectToFallback, Path: "/admin-denied"}, d)
}

func TestDecide_LoadingDefers(t *testing.T) {
	loading := resolver.State{UserID: "alice", Loading: true}

	for _, rule := range []guard.Rule{{}, {AllowedRoles: admins, Fallback: "/"}} {
		d := g.Decide(alice, loading, rule)
		assert.Equal(t, guard.Defer, d.Kind)
		assert.False(t, d.Redirect())
		assert.Empty(t, d.Path)
	}
}

func TestDecide_RoleOfAnotherUserIsIgnored(t *testing.T) {
	bob := &session.Session{UserID: "bob", AccessToken: "tb"}

	d := g.Decide(bob, resolve(role.Admin), guard.Rule{AllowedRoles: admins, Fallback: "/"})
	assert.Equal(t, guard.Decision{Kind: guard.RedirectToFallback, Path: "/dashboard"}, d)
}
