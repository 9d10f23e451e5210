package accesscontrol

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PermissionSource answers (role, permission) -> granted against the
// external permission store. Implemented by the pgx Repository; nil disables
// backing-store lookups and the static model answers directly, which is how
// the client route guard runs (synchronous, no I/O).
type PermissionSource interface {
	HasPermission(ctx context.Context, role RoleCode, perm PermissionCode) (bool, error)
}

// Config carries the operator-tunable parts of the evaluator.
type Config struct {
	// BreakGlassIDs is the god-mode allow-list: account IDs or role codes
	// that bypass every check unconditionally. Keep it small; every use is
	// logged with an audit id.
	BreakGlassIDs []string

	// FailOpenOnTimeout keeps the availability-over-strictness policy: a
	// failed or timed-out backing-store lookup resolves to Allow with a
	// warning instead of a deny or a 5xx. Set false for fail-closed
	// deployments.
	FailOpenOnTimeout bool

	// LookupTimeout bounds a single backing-store lookup. Zero means the
	// default 5s budget.
	LookupTimeout time.Duration
}

const defaultLookupTimeout = 5 * time.Second

// Evaluator is the single source of truth for "is this caller allowed",
// shared by the server middleware and the client route guard. Pure apart
// from the advisory cache: identical inputs yield identical decisions.
type Evaluator struct {
	source     PermissionSource
	cache      *decisionCache
	breakGlass map[string]bool
	failOpen   bool
	timeout    time.Duration
	logger     *zap.SugaredLogger
}

func NewEvaluator(source PermissionSource, cfg Config, logger *zap.SugaredLogger) *Evaluator {
	bg := make(map[string]bool, len(cfg.BreakGlassIDs))
	for _, id := range cfg.BreakGlassIDs {
		if id != "" {
			bg[id] = true
		}
	}

	timeout := cfg.LookupTimeout
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}

	return &Evaluator{
		source:     source,
		cache:      newDecisionCache(),
		breakGlass: bg,
		failOpen:   cfg.FailOpenOnTimeout,
		timeout:    timeout,
		logger:     logger,
	}
}

// isBreakGlass matches the identity against the allow-list by account id or
// role code. Consulted before every other rule so a misconfigured permission
// table can never lock out the break-glass operator accounts.
func (e *Evaluator) isBreakGlass(id Identity) bool {
	if len(e.breakGlass) == 0 {
		return false
	}
	if id.UserID != 0 && e.breakGlass[strconv.FormatInt(id.UserID, 10)] {
		return true
	}
	return id.RoleCode != "" && e.breakGlass[string(id.RoleCode)]
}

func (e *Evaluator) auditBypass(id Identity, requirement string) {
	e.logger.Infow("break-glass bypass",
		"audit_id", uuid.NewString(),
		"user_id", id.UserID,
		"role_code", id.RoleCode,
		"requirement", requirement,
	)
}

// CheckPermission evaluates a fine-grained capability requirement.
//
// Order matters and is part of the contract:
//  1. break-glass allow-list, unconditionally first
//  2. super role: full bypass
//  3. app_admin alias: full bypass, regardless of account type
//  4. console roles below super get blanket permission, but only on an
//     admin_user account; an app_user account presenting a console role is
//     refused every permission
//  5. no resolvable role at all is unauthenticated, not forbidden
//  6. app-surface roles are checked against their granted permission set
func (e *Evaluator) CheckPermission(ctx context.Context, id Identity, perm PermissionCode) Decision {
	if e.isBreakGlass(id) {
		e.auditBypass(id, string(perm))
		return DecisionAllow
	}

	if id.RoleCode == RoleSuper {
		return DecisionAllow
	}

	if id.RoleCode == RoleAppAdmin {
		return DecisionAllow
	}

	if IsConsoleRole(id.RoleCode) {
		if id.AccountType == AccountTypeAdmin {
			return DecisionAllow
		}
		return DecisionDenyForbidden
	}

	if id.RoleCode == "" {
		return DecisionDenyUnauthenticated
	}

	return e.lookupPermission(ctx, id.RoleCode, perm)
}

// lookupPermission resolves an app-surface role's capability: advisory cache
// first, then the backing store under the lookup budget, then the fail-open
// policy. Without a configured source the static model answers.
func (e *Evaluator) lookupPermission(ctx context.Context, role RoleCode, perm PermissionCode) Decision {
	if granted, ok := e.cache.get(role, perm); ok {
		return boolDecision(granted)
	}

	if e.source == nil {
		return boolDecision(roleHasPermission(role, perm))
	}

	lookupCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	granted, err := e.source.HasPermission(lookupCtx, role, perm)
	if err != nil {
		if !e.failOpen {
			e.logger.Warnw("permission lookup failed, failing closed",
				"role_code", role, "permission", perm, "error", err)
			return DecisionDenyForbidden
		}
		// Deliberate fail-open: a store outage must not take the platform
		// down with it. The Allow is cached so a flapping store does not
		// log a warning per request.
		e.logger.Warnw("permission lookup failed, failing open",
			"role_code", role, "permission", perm, "error", err)
		e.cache.set(role, perm, true)
		return DecisionAllow
	}

	e.cache.set(role, perm, granted)
	return boolDecision(granted)
}

// CheckRoleMembership evaluates a role-set requirement: the caller's role
// must be one of allowed, or must dominate one of allowed per the hierarchy
// table. Break-glass and super shortcuts apply as in CheckPermission.
func (e *Evaluator) CheckRoleMembership(id Identity, allowed ...RoleCode) Decision {
	if e.isBreakGlass(id) {
		e.auditBypass(id, roleList(allowed))
		return DecisionAllow
	}

	if id.RoleCode == RoleSuper {
		return DecisionAllow
	}

	if id.RoleCode == "" {
		return DecisionDenyUnauthenticated
	}

	// A console role only counts when exercised from a console account.
	if IsConsoleRole(id.RoleCode) && id.AccountType != AccountTypeAdmin {
		return DecisionDenyForbidden
	}

	for _, want := range allowed {
		for _, actsAs := range DominatedRoles(id.RoleCode) {
			if actsAs == want {
				return DecisionAllow
			}
		}
	}

	return DecisionDenyForbidden
}

// CacheSize reports the number of advisory cache entries, for expvar.
func (e *Evaluator) CacheSize() int { return e.cache.len() }

func boolDecision(granted bool) Decision {
	if granted {
		return DecisionAllow
	}
	return DecisionDenyForbidden
}

func roleList(roles []RoleCode) string {
	out := ""
	for i, r := range roles {
		if i > 0 {
			out += ","
		}
		out += string(r)
	}
	return out
}
