package accesscontrol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateModel(t *testing.T) {
	require.NoError(t, ValidateModel())
}

func TestPermissionsFor(t *testing.T) {
	t.Run("unknown role yields empty set", func(t *testing.T) {
		assert.Empty(t, PermissionsFor("no_such_role"))
	})

	t.Run("console roles have no fine-grained entries", func(t *testing.T) {
		for _, role := range []RoleCode{RoleSuper, RoleAdmin, RoleFinance, RoleSupport, RoleModerator, RoleAppAdmin} {
			assert.Empty(t, PermissionsFor(role), "role %s", role)
		}
	})

	t.Run("returns a copy", func(t *testing.T) {
		perms := PermissionsFor(RoleViewer)
		require.NotEmpty(t, perms)
		perms[0] = "tampered"
		assert.NotContains(t, PermissionsFor(RoleViewer), PermissionCode("tampered"))
	})
}

func TestDominatedRoles(t *testing.T) {
	t.Run("includes self", func(t *testing.T) {
		for role := range knownRoles {
			assert.Contains(t, DominatedRoles(role), role)
		}
	})

	t.Run("super dominates the console roles", func(t *testing.T) {
		dominated := DominatedRoles(RoleSuper)
		for _, role := range []RoleCode{RoleAdmin, RoleFinance, RoleSupport, RoleModerator} {
			assert.Contains(t, dominated, role)
		}
	})

	t.Run("leaf role dominates only itself", func(t *testing.T) {
		assert.Equal(t, []RoleCode{RoleViewer}, DominatedRoles(RoleViewer))
	})
}

func TestHierarchyPermissionConsistency(t *testing.T) {
	// Every app-surface dominator must carry at least its dominated roles'
	// permissions; ValidateModel enforces this at boot, this pins it for
	// table edits.
	for role, dominated := range roleHierarchy {
		if _, fineGrained := rolePermissions[role]; !fineGrained {
			continue
		}
		for _, d := range dominated {
			for _, p := range rolePermissions[d] {
				assert.True(t, roleHasPermission(role, p),
					"role %s dominates %s but lacks %s", role, d, p)
			}
		}
	}
}

func TestRoleClassifiers(t *testing.T) {
	assert.True(t, KnownRole(RoleAppAdmin))
	assert.False(t, KnownRole("owner"))

	assert.True(t, IsConsoleRole(RoleModerator))
	assert.False(t, IsConsoleRole(RoleSuper), "super is above the console tier")
	assert.False(t, IsConsoleRole(RoleGeneralContractor))

	assert.True(t, IsAppOnlyRole(RoleTradeSpecialist))
	assert.False(t, IsAppOnlyRole(RoleAppAdmin))
}
