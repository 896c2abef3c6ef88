package auth

// Role represents a user role for role-based access control
type Role string

const (
	// RoleEditor may change provider settings
	RoleEditor Role = "editor"

	// RoleViewer has read-only access to provider settings
	RoleViewer Role = "viewer"
)

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the role is a valid role
func (r Role) IsValid() bool {
	switch r {
	case RoleEditor, RoleViewer:
		return true
	default:
		return false
	}
}

// HasPermission checks if a role has permission for a required role.
// Editors can do everything viewers can.
func (r Role) HasPermission(required Role) bool {
	if r == RoleEditor {
		return true
	}
	return r == required
}
