package routeguard

import (
	"testing"

	"buildbid/internal/domain/accesscontrol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestGuard(t *testing.T, breakGlass ...string) *Guard {
	t.Helper()
	eval := accesscontrol.NewEvaluator(nil, accesscontrol.Config{BreakGlassIDs: breakGlass}, zap.NewNop().Sugar())
	return New(eval, "/login", "/forbidden", "/home")
}

func TestGuardEvaluate(t *testing.T) {
	consoleScreen := ScreenPolicy{RequireAdminConsole: true}

	t.Run("never redirects while loading, whatever the role", func(t *testing.T) {
		guard := newTestGuard(t)

		for _, role := range []accesscontrol.RoleCode{"", accesscontrol.RoleSuper, accesscontrol.RoleViewer, "garbage"} {
			res := guard.Evaluate(Snapshot{Loading: true, RoleCode: role}, consoleScreen)
			assert.Equal(t, StateLoading, res.State)
			assert.Empty(t, res.Redirect)
		}
	})

	t.Run("unauthenticated redirects to sign-in", func(t *testing.T) {
		guard := newTestGuard(t)

		res := guard.Evaluate(Snapshot{}, consoleScreen)
		assert.Equal(t, StateUnauthenticated, res.State)
		assert.Equal(t, "/login", res.Redirect)
	})

	t.Run("identity without role holds instead of denying", func(t *testing.T) {
		// The role can arrive after the base profile; denying here would
		// bounce a legitimate admin mid-load.
		guard := newTestGuard(t)

		res := guard.Evaluate(Snapshot{Authenticated: true}, consoleScreen)
		assert.Equal(t, StateEvaluating, res.State)
		assert.Empty(t, res.Redirect)
	})

	t.Run("console roles render console screens", func(t *testing.T) {
		guard := newTestGuard(t)

		for _, role := range []accesscontrol.RoleCode{
			accesscontrol.RoleSuper,
			accesscontrol.RoleAdmin,
			accesscontrol.RoleFinance,
			accesscontrol.RoleAppAdmin,
		} {
			res := guard.Evaluate(Snapshot{Authenticated: true, RoleCode: role}, consoleScreen)
			assert.Equal(t, StateAllowed, res.State, "role %s", role)
		}
	})

	t.Run("app-only role on a console screen goes to the forbidden page", func(t *testing.T) {
		guard := newTestGuard(t)

		res := guard.Evaluate(
			Snapshot{Authenticated: true, RoleCode: accesscontrol.RoleGeneralContractor},
			consoleScreen,
		)
		assert.Equal(t, StateDeniedRedirect, res.State)
		assert.Equal(t, "/forbidden", res.Redirect)
	})

	t.Run("role-set deny goes to the landing page, not the forbidden page", func(t *testing.T) {
		guard := newTestGuard(t)

		// moderator does not dominate admin.
		res := guard.Evaluate(
			Snapshot{Authenticated: true, RoleCode: accesscontrol.RoleModerator},
			ScreenPolicy{AllowedRoles: []accesscontrol.RoleCode{accesscontrol.RoleAdmin}},
		)
		assert.Equal(t, StateDeniedRedirect, res.State)
		assert.Equal(t, "/home", res.Redirect)
	})

	t.Run("hierarchy grants role-set screens", func(t *testing.T) {
		guard := newTestGuard(t)

		res := guard.Evaluate(
			Snapshot{Authenticated: true, RoleCode: accesscontrol.RoleAdmin},
			ScreenPolicy{AllowedRoles: []accesscontrol.RoleCode{accesscontrol.RoleModerator}},
		)
		assert.Equal(t, StateAllowed, res.State)
	})

	t.Run("permission-gated screen uses the static model", func(t *testing.T) {
		guard := newTestGuard(t)

		allowed := guard.Evaluate(
			Snapshot{Authenticated: true, RoleCode: accesscontrol.RoleSubcontractor},
			ScreenPolicy{Permission: accesscontrol.PermBidsSubmit},
		)
		assert.Equal(t, StateAllowed, allowed.State)

		denied := guard.Evaluate(
			Snapshot{Authenticated: true, RoleCode: accesscontrol.RoleViewer},
			ScreenPolicy{Permission: accesscontrol.PermBidsSubmit},
		)
		assert.Equal(t, StateDeniedRedirect, denied.State)
		assert.Equal(t, "/home", denied.Redirect)
	})

	t.Run("screen without requirements renders for any resolved role", func(t *testing.T) {
		guard := newTestGuard(t)

		res := guard.Evaluate(
			Snapshot{Authenticated: true, RoleCode: accesscontrol.RoleViewer},
			ScreenPolicy{},
		)
		assert.Equal(t, StateAllowed, res.State)
	})

	t.Run("break-glass role marker passes console screens", func(t *testing.T) {
		guard := newTestGuard(t, string(accesscontrol.RoleProjectManager))

		res := guard.Evaluate(
			Snapshot{Authenticated: true, RoleCode: accesscontrol.RoleProjectManager},
			ScreenPolicy{AllowedRoles: []accesscontrol.RoleCode{accesscontrol.RoleAdmin}},
		)
		assert.Equal(t, StateAllowed, res.State)
	})

	t.Run("idempotent per snapshot", func(t *testing.T) {
		guard := newTestGuard(t)

		snap := Snapshot{Authenticated: true, RoleCode: accesscontrol.RoleModerator}
		first := guard.Evaluate(snap, consoleScreen)
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, guard.Evaluate(snap, consoleScreen))
		}
	})
}

func TestGuardStateString(t *testing.T) {
	require.Equal(t, "loading", StateLoading.String())
	require.Equal(t, "unauthenticated", StateUnauthenticated.String())
	require.Equal(t, "evaluating", StateEvaluating.String())
	require.Equal(t, "allowed", StateAllowed.String())
	require.Equal(t, "denied_redirect", StateDeniedRedirect.String())
}
