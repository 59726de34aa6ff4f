// Package domain contains the core types shared across modules.
package domain

// Role is the access level of an authenticated user.
type Role string

// Roles.
const (
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

var roleLevels = map[Role]int{
	RoleSeller: 1,
	RoleAdmin:  2,
}

// HasPermission reports whether r grants at least the access of required.
func (r Role) HasPermission(required Role) bool {
	have, ok := roleLevels[r]
	if !ok {
		return false
	}
	return have >= roleLevels[required]
}
