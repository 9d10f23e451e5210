package main

import (
	"net/http"

	"buildbid/internal/domain/accesscontrol"
)

type roleModelEntry struct {
	RoleCode       accesscontrol.RoleCode         `json:"role_code"`
	ConsoleRole    bool                           `json:"console_role"`
	AppOnly        bool                           `json:"app_only"`
	Permissions    []accesscontrol.PermissionCode `json:"permissions"`
	DominatedRoles []accesscontrol.RoleCode       `json:"dominated_roles"`
}

var modelRoles = []accesscontrol.RoleCode{
	accesscontrol.RoleSuper,
	accesscontrol.RoleAdmin,
	accesscontrol.RoleFinance,
	accesscontrol.RoleSupport,
	accesscontrol.RoleModerator,
	accesscontrol.RoleAppAdmin,
	accesscontrol.RoleProjectManager,
	accesscontrol.RoleGeneralContractor,
	accesscontrol.RoleSubcontractor,
	accesscontrol.RoleTradeSpecialist,
	accesscontrol.RoleViewer,
}

// AdminListAccessRoles godoc
//
//	@Summary		List the role model
//	@Description	Returns every role code with its granted permissions and dominated roles, as compiled into this build.
//	@Tags			admin-access
//	@Produce		json
//	@Success		200	{array}		roleModelEntry
//	@Failure		403	{object}	error	"Forbidden"
//	@Security		ApiKeyAuth
//	@Router			/admin/access/roles [get]
func (app *application) adminListAccessRolesHandler(w http.ResponseWriter, r *http.Request) {
	out := make([]roleModelEntry, 0, len(modelRoles))
	for _, role := range modelRoles {
		out = append(out, roleModelEntry{
			RoleCode:       role,
			ConsoleRole:    role == accesscontrol.RoleSuper || accesscontrol.IsConsoleRole(role),
			AppOnly:        accesscontrol.IsAppOnlyRole(role),
			Permissions:    accesscontrol.PermissionsFor(role),
			DominatedRoles: accesscontrol.DominatedRoles(role),
		})
	}

	app.jsonResponse(w, http.StatusOK, out)
}

type checkAccessRequest struct {
	RoleCode    string `json:"role_code" validate:"required,rolecode"`
	AccountType string `json:"account_type" validate:"required,accounttype"`
	Permission  string `json:"permission" validate:"required"`
}

type checkAccessResponse struct {
	Decision string `json:"decision"`
	Allowed  bool   `json:"allowed"`
}

// AdminCheckAccess godoc
//
//	@Summary		Dry-run an authorization decision
//	@Description	Evaluates (role, account type, permission) exactly as the middleware would, so support staff can answer "why can't this user see X".
//	@Tags			admin-access
//	@Accept			json
//	@Produce		json
//	@Param			body	body		checkAccessRequest	true	"Check payload"
//	@Success		200		{object}	checkAccessResponse
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		403		{object}	error	"Forbidden"
//	@Security		ApiKeyAuth
//	@Router			/admin/access/check [post]
func (app *application) adminCheckAccessHandler(w http.ResponseWriter, r *http.Request) {
	var in checkAccessRequest
	if err := readJSON(w, r, &in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	// Dry-run identity: no user id, so break-glass id matching never
	// fires here, only role markers.
	id := accesscontrol.Identity{
		RoleCode:    accesscontrol.RoleCode(in.RoleCode),
		AccountType: accesscontrol.AccountType(in.AccountType),
	}

	decision := app.evaluator.CheckPermission(r.Context(), id, accesscontrol.PermissionCode(in.Permission))

	app.jsonResponse(w, http.StatusOK, checkAccessResponse{
		Decision: decision.String(),
		Allowed:  decision.Allowed(),
	})
}
