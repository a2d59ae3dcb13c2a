package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"drravalement/site/internal/models"
)

func userWithRole(role models.UserRole) *models.User {
	return &models.User{ID: "u1", Email: "u1@example.com", Role: role, Status: models.UserStatusActive}
}

func TestUnknownRoleGrantsNothing(t *testing.T) {
	for _, role := range []models.UserRole{"owner", "", "Admin", "superadmin"} {
		assert.Empty(t, DefaultTable().Permissions(role), "role %q", role)

		for _, known := range []models.UserRole{models.UserRoleAdmin, models.UserRoleEditor, models.UserRoleViewer, role} {
			assert.False(t, HasRole(userWithRole(known), role), "user %q asking for %q", known, role)
		}
	}
}

func TestUsersDeleteOnlyForAdmin(t *testing.T) {
	assert.True(t, HasPermission(userWithRole(models.UserRoleAdmin), UsersDelete))
	assert.False(t, HasPermission(userWithRole(models.UserRoleEditor), UsersDelete))
	assert.False(t, HasPermission(userWithRole(models.UserRoleViewer), UsersDelete))
}

func TestNilUserHasNoAccess(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.False(t, HasRole(nil, models.UserRoleAdmin))
		assert.False(t, HasPermission(nil, CMSRead))
	})
}

func TestHasRoleWithSet(t *testing.T) {
	editor := userWithRole(models.UserRoleEditor)
	assert.True(t, HasRole(editor, models.UserRoleAdmin, models.UserRoleEditor))
	assert.False(t, HasRole(editor, models.UserRoleAdmin, models.UserRoleViewer))
	assert.False(t, HasRole(editor))
}

func TestPermissionMatchIsExact(t *testing.T) {
	admin := userWithRole(models.UserRoleAdmin)
	for _, perm := range []Permission{"users", "users.*", "*", "USERS.READ", "users.read ", "cms.publish"} {
		assert.False(t, HasPermission(admin, perm), "permission %q", perm)
	}
}

func TestDefaultTable(t *testing.T) {
	tests := []struct {
		role    models.UserRole
		granted []Permission
		denied  []Permission
	}{
		{
			role:    models.UserRoleAdmin,
			granted: []Permission{UsersRead, UsersWrite, ConfigWrite, BookingsDelete, ProjectsDelete, QuotesDelete, CMSDelete, AnalyticsRead},
		},
		{
			role:    models.UserRoleEditor,
			granted: []Permission{ConfigRead, ConfigWrite, BookingsWrite, ProjectsWrite, QuotesWrite, CMSRead, CMSWrite},
			denied:  []Permission{UsersRead, UsersWrite, CMSDelete, QuotesDelete, AnalyticsRead},
		},
		{
			role:    models.UserRoleViewer,
			granted: []Permission{ConfigRead, BookingsRead, ProjectsRead, QuotesRead, CMSRead, AnalyticsRead},
			denied:  []Permission{ConfigWrite, CMSWrite, UsersRead},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			u := userWithRole(tt.role)
			for _, p := range tt.granted {
				assert.True(t, HasPermission(u, p), "expected %s", p)
			}
			for _, p := range tt.denied {
				assert.False(t, HasPermission(u, p), "unexpected %s", p)
			}
		})
	}

	assert.Len(t, DefaultTable().Permissions(models.UserRoleAdmin), 18)
	assert.Len(t, DefaultTable().Permissions(models.UserRoleEditor), 10)
	assert.Len(t, DefaultTable().Permissions(models.UserRoleViewer), 6)
}

type tableFunc func(models.UserRole) PermissionSet

func (f tableFunc) Permissions(role models.UserRole) PermissionSet { return f(role) }

func TestAuthorizerUsesInjectedTable(t *testing.T) {
	a := New(tableFunc(func(role models.UserRole) PermissionSet {
		if role == models.UserRoleViewer {
			return newSet(UsersRead)
		}
		return PermissionSet{}
	}))

	assert.True(t, a.HasPermission(userWithRole(models.UserRoleViewer), UsersRead))
	assert.False(t, a.HasPermission(userWithRole(models.UserRoleAdmin), UsersRead))
}

func TestSortedPermissions(t *testing.T) {
	got := DefaultTable().Permissions(models.UserRoleViewer).Sorted()
	assert.Equal(t, []Permission{AnalyticsRead, BookingsRead, CMSRead, ConfigRead, ProjectsRead, QuotesRead}, got)
}
