package accesscontrol

import "fmt"

// The role model is static, typed configuration rather than runtime data:
// both tables are fully enumerated here and audited by ValidateModel at
// startup, so a typo'd role code fails boot instead of silently resolving to
// an empty permission set at request time.

// rolePermissions grants fine-grained capabilities to app-surface roles.
// Console roles (admin and below) get blanket permission at the evaluator
// layer and intentionally have no entry here; see CheckPermission.
var rolePermissions = map[RoleCode][]PermissionCode{
	RoleProjectManager: {
		PermJobsView, PermJobsCreate, PermJobsEdit,
		PermBidsView,
		PermProjectsView, PermProjectsManage,
		PermPaymentsView,
		PermUsersView,
		PermReportsView,
	},
	RoleGeneralContractor: {
		PermJobsView, PermJobsCreate, PermJobsEdit,
		PermBidsView, PermBidsSubmit, PermBidsWithdraw,
		PermProjectsView,
		PermPaymentsView,
	},
	RoleSubcontractor: {
		PermJobsView,
		PermBidsView, PermBidsSubmit, PermBidsWithdraw,
		PermProjectsView,
	},
	RoleTradeSpecialist: {
		PermJobsView,
		PermBidsView, PermBidsSubmit,
	},
	RoleViewer: {
		PermJobsView,
		PermBidsView,
		PermProjectsView,
	},
}

// roleHierarchy lists the roles each role's holder may also act as, beyond
// itself. This drives role-set membership checks and is deliberately a
// separate table from rolePermissions; ValidateModel keeps the two honest.
var roleHierarchy = map[RoleCode][]RoleCode{
	RoleSuper:             {RoleAdmin, RoleFinance, RoleSupport, RoleModerator},
	RoleAdmin:             {RoleSupport, RoleModerator},
	RoleGeneralContractor: {RoleSubcontractor, RoleViewer},
	RoleProjectManager:    {RoleViewer},
}

var consoleRoles = map[RoleCode]bool{
	RoleAdmin:     true,
	RoleFinance:   true,
	RoleSupport:   true,
	RoleModerator: true,
}

var appOnlyRoles = map[RoleCode]bool{
	RoleProjectManager:    true,
	RoleGeneralContractor: true,
	RoleSubcontractor:     true,
	RoleTradeSpecialist:   true,
	RoleViewer:            true,
}

var knownRoles = map[RoleCode]bool{
	RoleSuper:             true,
	RoleAdmin:             true,
	RoleFinance:           true,
	RoleSupport:           true,
	RoleModerator:         true,
	RoleAppAdmin:          true,
	RoleProjectManager:    true,
	RoleGeneralContractor: true,
	RoleSubcontractor:     true,
	RoleTradeSpecialist:   true,
	RoleViewer:            true,
}

var knownPermissions = map[PermissionCode]bool{
	PermJobsView:       true,
	PermJobsCreate:     true,
	PermJobsEdit:       true,
	PermBidsView:       true,
	PermBidsSubmit:     true,
	PermBidsWithdraw:   true,
	PermProjectsView:   true,
	PermProjectsManage: true,
	PermPaymentsView:   true,
	PermPaymentsRefund: true,
	PermUsersView:      true,
	PermUsersEdit:      true,
	PermReportsView:    true,
}

// KnownRole reports whether code is part of the static role model.
func KnownRole(code RoleCode) bool { return knownRoles[code] }

// IsConsoleRole reports whether code is an admin-console role below super.
func IsConsoleRole(code RoleCode) bool { return consoleRoles[code] }

// IsAppOnlyRole reports whether code exists only on the application surface.
// The route guard sends these to the forbidden page when they hit a console
// screen, instead of the generic landing-page redirect.
func IsAppOnlyRole(code RoleCode) bool { return appOnlyRoles[code] }

// PermissionsFor returns the granted permission set for a role. Total and
// fail-closed: an unknown role yields an empty set.
func PermissionsFor(role RoleCode) []PermissionCode {
	perms := rolePermissions[role]
	out := make([]PermissionCode, len(perms))
	copy(out, perms)
	return out
}

// DominatedRoles returns the roles a holder of role may act as, including
// role itself.
func DominatedRoles(role RoleCode) []RoleCode {
	out := []RoleCode{role}
	out = append(out, roleHierarchy[role]...)
	return out
}

func roleHasPermission(role RoleCode, perm PermissionCode) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// ValidateModel audits the static tables. Called once at startup; an error
// here is a programming mistake and should abort boot.
//
// Beyond unknown codes, it enforces that a role dominating another also
// holds at least that role's permission set, so the hierarchy table and the
// permission table cannot drift apart silently.
func ValidateModel() error {
	for role, perms := range rolePermissions {
		if !knownRoles[role] {
			return fmt.Errorf("permission table references unknown role %q", role)
		}
		for _, p := range perms {
			if !knownPermissions[p] {
				return fmt.Errorf("role %q grants unknown permission %q", role, p)
			}
		}
	}

	for role, dominated := range roleHierarchy {
		if !knownRoles[role] {
			return fmt.Errorf("hierarchy table references unknown role %q", role)
		}
		// Console roles have no fine-grained entries, so the subset check
		// only bites for app-surface dominators.
		_, fineGrained := rolePermissions[role]
		for _, d := range dominated {
			if !knownRoles[d] {
				return fmt.Errorf("role %q dominates unknown role %q", role, d)
			}
			if !fineGrained {
				continue
			}
			for _, p := range rolePermissions[d] {
				if !roleHasPermission(role, p) {
					return fmt.Errorf("role %q dominates %q but lacks its permission %q", role, d, p)
				}
			}
		}
	}

	return nil
}
