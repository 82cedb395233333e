package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleGuardian   = "guardian"
	RoleStudent    = "student"
	RoleTeacher    = "teacher"
	RoleStaff      = "staff"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
	RoleVerifier   = "verifier" // hidden role, internal verification signing
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

func IsHiddenRole(role string) bool { return role == RoleVerifier }

// IsElevated reports whether the role carries administrative capability over a
// tenant. Elevated roles may sign any document and perform cancel/close.
func IsElevated(role string) bool {
	switch role {
	case RoleAdmin, RoleSuperAdmin, RoleVerifier:
		return true
	default:
		return false
	}
}

// IsSignableRole reports whether a role may appear in a document's role
// targeting rule. Administrative roles are excluded; documents target the
// people who attend or care for the school, not its operators.
func IsSignableRole(role string) bool {
	switch role {
	case RoleGuardian, RoleStudent, RoleTeacher, RoleStaff:
		return true
	default:
		return false
	}
}
