package models

// UserRole identifies a dashboard principal's access level.
type UserRole string

const (
	// RoleAdmin can manage risk configuration, deny lists and zones.
	RoleAdmin UserRole = "admin"

	// RoleAnalyst can read assessments and subscribe to the alert feed.
	RoleAnalyst UserRole = "analyst"

	// RoleService is used by internal services calling each other.
	RoleService UserRole = "service"
)

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleAnalyst, RoleService:
		return true
	}
	return false
}
