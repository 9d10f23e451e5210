package accesscontrol

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSource struct {
	granted map[cacheKey]bool
	err     error
	calls   int
}

func (s *stubSource) HasPermission(ctx context.Context, role RoleCode, perm PermissionCode) (bool, error) {
	s.calls++
	if s.err != nil {
		return false, s.err
	}
	return s.granted[cacheKey{role, perm}], nil
}

// slowSource blocks until the lookup context expires.
type slowSource struct {
	calls int
}

func (s *slowSource) HasPermission(ctx context.Context, role RoleCode, perm PermissionCode) (bool, error) {
	s.calls++
	<-ctx.Done()
	return false, ctx.Err()
}

func newTestEvaluator(t *testing.T, source PermissionSource, cfg Config) *Evaluator {
	t.Helper()
	return NewEvaluator(source, cfg, zap.NewNop().Sugar())
}

func TestCheckPermission(t *testing.T) {
	ctx := context.Background()

	t.Run("break-glass id allows everything regardless of account type", func(t *testing.T) {
		eval := newTestEvaluator(t, nil, Config{BreakGlassIDs: []string{"42"}})

		for _, acct := range []AccountType{AccountTypeAdmin, AccountTypeApp, ""} {
			id := Identity{UserID: 42, RoleCode: RoleViewer, AccountType: acct}
			assert.Equal(t, DecisionAllow, eval.CheckPermission(ctx, id, PermPaymentsRefund))
		}
	})

	t.Run("break-glass role marker allows everything", func(t *testing.T) {
		eval := newTestEvaluator(t, nil, Config{BreakGlassIDs: []string{string(RoleFinance)}})

		// Without the marker this identity would hit the app-account
		// rejection.
		id := Identity{UserID: 7, RoleCode: RoleFinance, AccountType: AccountTypeApp}
		assert.Equal(t, DecisionAllow, eval.CheckPermission(ctx, id, PermUsersEdit))
	})

	t.Run("super allows every permission", func(t *testing.T) {
		eval := newTestEvaluator(t, nil, Config{})

		for perm := range knownPermissions {
			id := Identity{UserID: 1, RoleCode: RoleSuper, AccountType: AccountTypeAdmin}
			assert.Equal(t, DecisionAllow, eval.CheckPermission(ctx, id, perm))
		}
	})

	t.Run("super on an app account still allows (god-mode bypass)", func(t *testing.T) {
		eval := newTestEvaluator(t, nil, Config{})

		id := Identity{UserID: 1, RoleCode: RoleSuper, AccountType: AccountTypeApp}
		assert.Equal(t, DecisionAllow, eval.CheckPermission(ctx, id, PermReportsView))
	})

	t.Run("app_admin alias allows regardless of account type", func(t *testing.T) {
		eval := newTestEvaluator(t, nil, Config{})

		for _, acct := range []AccountType{AccountTypeAdmin, AccountTypeApp} {
			id := Identity{UserID: 3, RoleCode: RoleAppAdmin, AccountType: acct}
			for perm := range knownPermissions {
				assert.Equal(t, DecisionAllow, eval.CheckPermission(ctx, id, perm))
			}
		}
	})

	t.Run("app account with a console role is refused every permission", func(t *testing.T) {
		eval := newTestEvaluator(t, nil, Config{})

		for _, role := range []RoleCode{RoleAdmin, RoleFinance, RoleSupport, RoleModerator} {
			id := Identity{UserID: 5, RoleCode: role, AccountType: AccountTypeApp}
			for perm := range knownPermissions {
				assert.Equal(t, DecisionDenyForbidden, eval.CheckPermission(ctx, id, perm))
			}
		}
	})

	t.Run("console role on an admin account gets blanket permission", func(t *testing.T) {
		eval := newTestEvaluator(t, nil, Config{})

		id := Identity{UserID: 6, RoleCode: RoleFinance, AccountType: AccountTypeAdmin}
		assert.Equal(t, DecisionAllow, eval.CheckPermission(ctx, id, PermPaymentsRefund))
	})

	t.Run("app-surface role is checked against its granted set", func(t *testing.T) {
		eval := newTestEvaluator(t, nil, Config{})

		id := Identity{UserID: 8, RoleCode: RoleSubcontractor, AccountType: AccountTypeApp}
		assert.Equal(t, DecisionAllow, eval.CheckPermission(ctx, id, PermBidsSubmit))
		assert.Equal(t, DecisionDenyForbidden, eval.CheckPermission(ctx, id, PermPaymentsRefund))
	})

	t.Run("unknown role fails closed", func(t *testing.T) {
		eval := newTestEvaluator(t, nil, Config{})

		id := Identity{UserID: 9, RoleCode: "intruder", AccountType: AccountTypeApp}
		assert.Equal(t, DecisionDenyForbidden, eval.CheckPermission(ctx, id, PermJobsView))
	})

	t.Run("no resolvable role on an admin account is unauthenticated", func(t *testing.T) {
		eval := newTestEvaluator(t, nil, Config{})

		id := Identity{UserID: 10, AccountType: AccountTypeAdmin}
		assert.Equal(t, DecisionDenyUnauthenticated, eval.CheckPermission(ctx, id, PermJobsView))
	})

	t.Run("idempotent for identical inputs", func(t *testing.T) {
		eval := newTestEvaluator(t, nil, Config{})

		id := Identity{UserID: 11, RoleCode: RoleViewer, AccountType: AccountTypeApp}
		first := eval.CheckPermission(ctx, id, PermBidsView)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, eval.CheckPermission(ctx, id, PermBidsView))
		}
	})
}

func TestCheckPermissionBackingStore(t *testing.T) {
	ctx := context.Background()

	t.Run("store answer wins and is cached", func(t *testing.T) {
		source := &stubSource{granted: map[cacheKey]bool{
			{RoleViewer, PermJobsView}: true,
		}}
		eval := newTestEvaluator(t, source, Config{FailOpenOnTimeout: true})

		id := Identity{UserID: 1, RoleCode: RoleViewer, AccountType: AccountTypeApp}
		assert.Equal(t, DecisionAllow, eval.CheckPermission(ctx, id, PermJobsView))
		assert.Equal(t, DecisionAllow, eval.CheckPermission(ctx, id, PermJobsView))
		assert.Equal(t, 1, source.calls, "second call should be served from cache")
	})

	t.Run("store deny is cached too", func(t *testing.T) {
		source := &stubSource{granted: map[cacheKey]bool{}}
		eval := newTestEvaluator(t, source, Config{FailOpenOnTimeout: true})

		id := Identity{UserID: 1, RoleCode: RoleViewer, AccountType: AccountTypeApp}
		assert.Equal(t, DecisionDenyForbidden, eval.CheckPermission(ctx, id, PermUsersEdit))
		assert.Equal(t, DecisionDenyForbidden, eval.CheckPermission(ctx, id, PermUsersEdit))
		assert.Equal(t, 1, source.calls)
	})

	t.Run("timeout fails open, caches the allow", func(t *testing.T) {
		source := &slowSource{}
		eval := newTestEvaluator(t, source, Config{
			FailOpenOnTimeout: true,
			LookupTimeout:     10 * time.Millisecond,
		})

		id := Identity{UserID: 1, RoleCode: RoleViewer, AccountType: AccountTypeApp}
		assert.Equal(t, DecisionAllow, eval.CheckPermission(ctx, id, PermJobsView))

		// Cached: the slow source is not consulted again.
		assert.Equal(t, DecisionAllow, eval.CheckPermission(ctx, id, PermJobsView))
		assert.Equal(t, 1, source.calls)
		assert.Equal(t, 1, eval.CacheSize())
	})

	t.Run("error fails open when configured", func(t *testing.T) {
		source := &stubSource{err: errors.New("connection refused")}
		eval := newTestEvaluator(t, source, Config{FailOpenOnTimeout: true})

		id := Identity{UserID: 1, RoleCode: RoleTradeSpecialist, AccountType: AccountTypeApp}
		assert.Equal(t, DecisionAllow, eval.CheckPermission(ctx, id, PermPaymentsRefund))
	})

	t.Run("fail-closed mode denies on error and does not cache", func(t *testing.T) {
		source := &stubSource{err: errors.New("connection refused")}
		eval := newTestEvaluator(t, source, Config{FailOpenOnTimeout: false})

		id := Identity{UserID: 1, RoleCode: RoleViewer, AccountType: AccountTypeApp}
		assert.Equal(t, DecisionDenyForbidden, eval.CheckPermission(ctx, id, PermJobsView))
		assert.Equal(t, 0, eval.CacheSize())

		// The store recovering must be able to flip the answer.
		source.err = nil
		source.granted = map[cacheKey]bool{{RoleViewer, PermJobsView}: true}
		assert.Equal(t, DecisionAllow, eval.CheckPermission(ctx, id, PermJobsView))
	})

	t.Run("console roles never touch the store", func(t *testing.T) {
		source := &stubSource{err: errors.New("must not be called")}
		eval := newTestEvaluator(t, source, Config{FailOpenOnTimeout: false})

		id := Identity{UserID: 1, RoleCode: RoleSupport, AccountType: AccountTypeAdmin}
		assert.Equal(t, DecisionAllow, eval.CheckPermission(ctx, id, PermUsersView))
		assert.Equal(t, 0, source.calls)
	})
}

func TestCheckRoleMembership(t *testing.T) {
	eval := newTestEvaluator(t, nil, Config{BreakGlassIDs: []string{"99"}})

	t.Run("direct membership", func(t *testing.T) {
		id := Identity{UserID: 1, RoleCode: RoleFinance, AccountType: AccountTypeAdmin}
		assert.Equal(t, DecisionAllow, eval.CheckRoleMembership(id, RoleFinance))
	})

	t.Run("super always passes", func(t *testing.T) {
		id := Identity{UserID: 1, RoleCode: RoleSuper, AccountType: AccountTypeAdmin}
		assert.Equal(t, DecisionAllow, eval.CheckRoleMembership(id, RoleModerator))

		// Even from an app account.
		onApp := Identity{UserID: 1, RoleCode: RoleSuper, AccountType: AccountTypeApp}
		assert.Equal(t, DecisionAllow, eval.CheckRoleMembership(onApp, RoleSupport))
	})

	t.Run("console role on an app account does not count", func(t *testing.T) {
		id := Identity{UserID: 1, RoleCode: RoleFinance, AccountType: AccountTypeApp}
		assert.Equal(t, DecisionDenyForbidden, eval.CheckRoleMembership(id, RoleFinance))
	})

	t.Run("break-glass passes", func(t *testing.T) {
		id := Identity{UserID: 99, RoleCode: RoleViewer, AccountType: AccountTypeApp}
		assert.Equal(t, DecisionAllow, eval.CheckRoleMembership(id, RoleAdmin))
	})

	t.Run("domination grants membership", func(t *testing.T) {
		// admin dominates moderator, so an admin may enter a
		// moderator-gated region.
		id := Identity{UserID: 1, RoleCode: RoleAdmin, AccountType: AccountTypeAdmin}
		assert.Equal(t, DecisionAllow, eval.CheckRoleMembership(id, RoleModerator))

		gc := Identity{UserID: 2, RoleCode: RoleGeneralContractor, AccountType: AccountTypeApp}
		assert.Equal(t, DecisionAllow, eval.CheckRoleMembership(gc, RoleViewer))
	})

	t.Run("domination is not symmetric", func(t *testing.T) {
		// moderator does not dominate admin.
		id := Identity{UserID: 1, RoleCode: RoleModerator, AccountType: AccountTypeAdmin}
		assert.Equal(t, DecisionDenyForbidden, eval.CheckRoleMembership(id, RoleAdmin))
	})

	t.Run("no role is unauthenticated", func(t *testing.T) {
		id := Identity{UserID: 1, AccountType: AccountTypeAdmin}
		assert.Equal(t, DecisionDenyUnauthenticated, eval.CheckRoleMembership(id, RoleAdmin))
	})
}

func TestDecisionString(t *testing.T) {
	require.Equal(t, "allow", DecisionAllow.String())
	require.Equal(t, "deny_forbidden", DecisionDenyForbidden.String())
	require.Equal(t, "deny_unauthenticated", DecisionDenyUnauthenticated.String())
	require.True(t, DecisionAllow.Allowed())
	require.False(t, DecisionDenyForbidden.Allowed())
}
