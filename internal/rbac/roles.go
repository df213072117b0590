package rbac

import "strings"

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleVerifier    = "verifier"
	RoleVendor      = "vendor"
	RoleViewer      = "viewer"
	RoleAdmin       = "admin"
	RoleSuperAdmin  = "super_admin"
	RoleOpsOperator = "ops_operator" // hidden role
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

func IsHiddenRole(role string) bool { return role == RoleOpsOperator }

// IsStaff reports whether the role belongs to inspection office staff.
func IsStaff(role string) bool {
	switch role {
	case RoleVerifier, RoleViewer, RoleAdmin, RoleSuperAdmin, RoleOpsOperator:
		return true
	default:
		return false
	}
}

// CanActOnOffice reports whether a caller based at userOffice may change a call owned by callOffice.
// Verifiers are limited to their own office, compared case-insensitively; admins act on every office.
func CanActOnOffice(role, userOffice, callOffice string) bool {
	switch role {
	case RoleAdmin, RoleSuperAdmin:
		return true
	case RoleVerifier:
		return userOffice != "" && strings.EqualFold(userOffice, strings.TrimSpace(callOffice))
	default:
		return false
	}
}
