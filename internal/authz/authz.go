// Package authz holds the role to permission table and the authorization
// predicates consulted by every protected route.
package authz

import (
	"sort"

	"drravalement/site/internal/models"
)

// Permission is a capability of the form "<resource>.<action>".
type Permission string

const (
	UsersRead   Permission = "users.read"
	UsersWrite  Permission = "users.write"
	UsersDelete Permission = "users.delete"

	ConfigRead  Permission = "config.read"
	ConfigWrite Permission = "config.write"

	BookingsRead   Permission = "bookings.read"
	BookingsWrite  Permission = "bookings.write"
	BookingsDelete Permission = "bookings.delete"

	ProjectsRead   Permission = "projects.read"
	ProjectsWrite  Permission = "projects.write"
	ProjectsDelete Permission = "projects.delete"

	QuotesRead   Permission = "quotes.read"
	QuotesWrite  Permission = "quotes.write"
	QuotesDelete Permission = "quotes.delete"

	CMSRead   Permission = "cms.read"
	CMSWrite  Permission = "cms.write"
	CMSDelete Permission = "cms.delete"

	AnalyticsRead Permission = "analytics.read"
)

// PermissionSet is an immutable set of permissions.
type PermissionSet map[Permission]struct{}

func newSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Sorted returns the permissions in lexical order.
func (s PermissionSet) Sorted() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Table maps a role to the permissions it grants. Implementations must
// return an empty set for roles they do not know.
type Table interface {
	Permissions(role models.UserRole) PermissionSet
}

type staticTable map[models.UserRole]PermissionSet

func (t staticTable) Permissions(role models.UserRole) PermissionSet {
	if set, ok := t[role]; ok {
		return set
	}
	return PermissionSet{}
}

var defaultTable = staticTable{
	models.UserRoleAdmin: newSet(
		UsersRead, UsersWrite, UsersDelete,
		ConfigRead, ConfigWrite,
		BookingsRead, BookingsWrite, BookingsDelete,
		ProjectsRead, ProjectsWrite, ProjectsDelete,
		QuotesRead, QuotesWrite, QuotesDelete,
		CMSRead, CMSWrite, CMSDelete,
		AnalyticsRead,
	),
	models.UserRoleEditor: newSet(
		ConfigRead, ConfigWrite,
		BookingsRead, BookingsWrite,
		ProjectsRead, ProjectsWrite,
		QuotesRead, QuotesWrite,
		CMSRead, CMSWrite,
	),
	models.UserRoleViewer: newSet(
		ConfigRead,
		BookingsRead,
		ProjectsRead,
		QuotesRead,
		CMSRead,
		AnalyticsRead,
	),
}

// DefaultTable returns the built-in role table.
func DefaultTable() Table {
	return defaultTable
}

// Authorizer answers role and permission questions against a Table.
// The zero value uses the default table.
type Authorizer struct {
	table Table
}

func New(table Table) Authorizer {
	return Authorizer{table: table}
}

func (a Authorizer) tbl() Table {
	if a.table == nil {
		return defaultTable
	}
	return a.table
}

// HasRole reports whether user holds one of roles. A nil user holds none.
func (a Authorizer) HasRole(user *models.User, roles ...models.UserRole) bool {
	if user == nil {
		return false
	}
	for _, role := range roles {
		if role.Valid() && user.Role == role {
			return true
		}
	}
	return false
}

// HasPermission reports whether the user's role grants perm exactly.
func (a Authorizer) HasPermission(user *models.User, perm Permission) bool {
	if user == nil {
		return false
	}
	return a.tbl().Permissions(user.Role).Has(perm)
}

func (a Authorizer) Permissions(role models.UserRole) PermissionSet {
	return a.tbl().Permissions(role)
}

func HasRole(user *models.User, roles ...models.UserRole) bool {
	return Authorizer{}.HasRole(user, roles...)
}

func HasPermission(user *models.User, perm Permission) bool {
	return Authorizer{}.HasPermission(user, perm)
}
