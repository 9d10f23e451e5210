package accesscontrol

import "time"

// RoleCode identifies a role. The set is fixed at build time; role rows in
// the database carry one of these codes in their name column.
type RoleCode string

const (
	// Console roles.
	RoleSuper     RoleCode = "super"
	RoleAdmin     RoleCode = "admin"
	RoleFinance   RoleCode = "finance"
	RoleSupport   RoleCode = "support"
	RoleModerator RoleCode = "moderator"

	// RoleAppAdmin is the mobile-app admin alias. It is treated like a
	// console admin for permission checks regardless of account type.
	RoleAppAdmin RoleCode = "app_admin"

	// App-surface roles.
	RoleProjectManager    RoleCode = "project_manager"
	RoleGeneralContractor RoleCode = "general_contractor"
	RoleSubcontractor     RoleCode = "subcontractor"
	RoleTradeSpecialist   RoleCode = "trade_specialist"
	RoleViewer            RoleCode = "viewer"
)

// AccountType classifies an identity as belonging to the admin console or
// the end-user application. An app_user account must never end up with
// console permissions, whatever role code it carries.
type AccountType string

const (
	AccountTypeAdmin AccountType = "admin_user"
	AccountTypeApp   AccountType = "app_user"
)

// PermissionCode is a discrete capability checked against a role's granted
// set, e.g. "bids.submit".
type PermissionCode string

const (
	PermJobsView       PermissionCode = "jobs.view"
	PermJobsCreate     PermissionCode = "jobs.create"
	PermJobsEdit       PermissionCode = "jobs.edit"
	PermBidsView       PermissionCode = "bids.view"
	PermBidsSubmit     PermissionCode = "bids.submit"
	PermBidsWithdraw   PermissionCode = "bids.withdraw"
	PermProjectsView   PermissionCode = "projects.view"
	PermProjectsManage PermissionCode = "projects.manage"
	PermPaymentsView   PermissionCode = "payments.view"
	PermPaymentsRefund PermissionCode = "payments.refund"
	PermUsersView      PermissionCode = "users.view"
	PermUsersEdit      PermissionCode = "users.edit"
	PermReportsView    PermissionCode = "reports.view"
)

// Decision is the outcome of an authorization check. Computed fresh per
// request or navigation; never persisted.
type Decision int

const (
	DecisionDenyUnauthenticated Decision = iota
	DecisionDenyForbidden
	DecisionAllow
)

func (d Decision) Allowed() bool { return d == DecisionAllow }

func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionDenyForbidden:
		return "deny_forbidden"
	case DecisionDenyUnauthenticated:
		return "deny_unauthenticated"
	}
	return "unknown"
}

// Identity is the already-authenticated caller the evaluator decides about.
// It is produced by the auth middleware (token validation + profile lookup)
// before any authorization check runs.
type Identity struct {
	UserID      int64       `json:"user_id"`
	RoleID      int64       `json:"role_id,omitempty"`
	RoleCode    RoleCode    `json:"role_code"`
	AccountType AccountType `json:"account_type"`
}

// Role mirrors a row of the roles table, used by the superadmin endpoints.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UserRole links a user to a role row.
type UserRole struct {
	UserID     int64     `json:"user_id"`
	RoleID     int64     `json:"role_id"`
	AssignedAt time.Time `json:"assigned_at"`
}
