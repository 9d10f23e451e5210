// Package routeguard is the client-side half of the gating layer: it decides,
// per navigation, whether the signed-in user may see a screen, mirroring the
// server evaluator so the UI never renders what the API would reject. The
// server stays authoritative; this only works on locally-known role state.
package routeguard

import (
	"context"

	"buildbid/internal/domain/accesscontrol"
)

// State is the guard's position for one navigation.
type State int

const (
	// StateLoading: identity resolution is still in flight. Render a
	// neutral loading view; never redirect yet, or the user flickers
	// through the sign-in page before their role is known.
	StateLoading State = iota

	// StateUnauthenticated: no identity. Redirect to sign-in.
	StateUnauthenticated

	// StateEvaluating: identity present but the role has not arrived.
	// Roles can land after the base profile, so hold instead of denying.
	StateEvaluating

	// StateAllowed: render the guarded content unchanged.
	StateAllowed

	// StateDeniedRedirect: navigate away per Result.Redirect.
	StateDeniedRedirect
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateEvaluating:
		return "evaluating"
	case StateAllowed:
		return "allowed"
	case StateDeniedRedirect:
		return "denied_redirect"
	}
	return "unknown"
}

// Snapshot is the reactive identity the guard observes: whatever the session
// store currently knows about the signed-in user.
type Snapshot struct {
	Authenticated bool
	Loading       bool
	RoleCode      accesscontrol.RoleCode
}

// ScreenPolicy declares what a protected screen requires.
type ScreenPolicy struct {
	// AllowedRoles gates by role-set membership (hierarchy-aware). Empty
	// means any resolved role passes, subject to the other fields.
	AllowedRoles []accesscontrol.RoleCode

	// RequireAdminConsole marks a console screen. App-only roles reaching
	// one are sent to the forbidden page with role-specific guidance
	// rather than bounced to the landing page.
	RequireAdminConsole bool

	// Permission optionally gates by a fine-grained capability instead of
	// a role set.
	Permission accesscontrol.PermissionCode
}

// Result is the guard's decision. Evaluation is synchronous, idempotent and
// side-effect-free; the caller performs the navigation.
type Result struct {
	State    State
	Redirect string
}

// Guard evaluates screen policies against identity snapshots. Construct one
// per client shell with the app's route paths.
type Guard struct {
	eval *accesscontrol.Evaluator

	SignInPath    string
	ForbiddenPath string
	LandingPath   string
}

// New builds a guard around the shared evaluator. The evaluator should be
// built without a PermissionSource on the client: the guard must never block
// on network I/O, so only the static model and cached role state answer.
func New(eval *accesscontrol.Evaluator, signIn, forbidden, landing string) *Guard {
	return &Guard{
		eval:          eval,
		SignInPath:    signIn,
		ForbiddenPath: forbidden,
		LandingPath:   landing,
	}
}

// Evaluate runs the state machine for one (snapshot, policy) pair. Callers
// re-run it on every change to identity, loading flag or route; superseded
// evaluations are simply replaced by the next one.
func (g *Guard) Evaluate(snap Snapshot, policy ScreenPolicy) Result {
	if snap.Loading {
		return Result{State: StateLoading}
	}

	if !snap.Authenticated {
		return Result{State: StateUnauthenticated, Redirect: g.SignInPath}
	}

	if snap.RoleCode == "" {
		return Result{State: StateEvaluating}
	}

	if policy.RequireAdminConsole && accesscontrol.IsAppOnlyRole(snap.RoleCode) {
		return Result{State: StateDeniedRedirect, Redirect: g.ForbiddenPath}
	}

	decision := g.decide(snap, policy)
	switch decision {
	case accesscontrol.DecisionAllow:
		return Result{State: StateAllowed}
	case accesscontrol.DecisionDenyUnauthenticated:
		return Result{State: StateUnauthenticated, Redirect: g.SignInPath}
	default:
		// Legitimate users land here by hitting the wrong section; send
		// them somewhere useful instead of a dead-end error page.
		return Result{State: StateDeniedRedirect, Redirect: g.LandingPath}
	}
}

func (g *Guard) decide(snap Snapshot, policy ScreenPolicy) accesscontrol.Decision {
	id := identityFor(snap.RoleCode)

	if policy.Permission != "" {
		// The client evaluator has no PermissionSource, so this never
		// touches the network; background context is fine.
		return g.eval.CheckPermission(context.Background(), id, policy.Permission)
	}

	allowed := policy.AllowedRoles
	if len(allowed) == 0 {
		if policy.RequireAdminConsole {
			allowed = []accesscontrol.RoleCode{
				accesscontrol.RoleSuper,
				accesscontrol.RoleAdmin,
				accesscontrol.RoleFinance,
				accesscontrol.RoleSupport,
				accesscontrol.RoleModerator,
				accesscontrol.RoleAppAdmin,
			}
		} else {
			return accesscontrol.DecisionAllow
		}
	}

	return g.eval.CheckRoleMembership(id, allowed...)
}

// identityFor derives the account type the way the client knows it: console
// roles imply a console account, everything else is an app account. The
// server re-derives this from the profile row, which stays authoritative.
func identityFor(role accesscontrol.RoleCode) accesscontrol.Identity {
	acct := accesscontrol.AccountTypeApp
	if role == accesscontrol.RoleSuper || accesscontrol.IsConsoleRole(role) {
		acct = accesscontrol.AccountTypeAdmin
	}
	return accesscontrol.Identity{RoleCode: role, AccountType: acct}
}
