package entitlement

import "strings"

// Canonical role names. Every raw role string seen anywhere in the platform
// maps onto exactly one of these.
const (
	RoleBusinessOwner = "Business Owner"
	RoleStoreManager  = "Store Manager"
	RoleSalesStaff    = "Sales Staff"
)

// canonicalRoles is the one source of truth for role-string normalization.
// Raw strings are matched lower-cased; anything absent from the table is
// Sales Staff.
var canonicalRoles = map[string]string{
	"admin":          RoleBusinessOwner,
	"superadmin":     RoleBusinessOwner,
	"tenant_admin":   RoleBusinessOwner,
	"owner":          RoleBusinessOwner,
	"business owner": RoleBusinessOwner,
	"business_owner": RoleBusinessOwner,
	"manager":        RoleStoreManager,
	"store-manager":  RoleStoreManager,
	"store_manager":  RoleStoreManager,
	"store manager":  RoleStoreManager,
}

// CanonicalRole maps a raw role string onto its canonical form.
func CanonicalRole(raw string) string {
	if canonical, ok := canonicalRoles[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return canonical
	}
	return RoleSalesStaff
}

// CheckRoleAccess evaluates role membership for an action restricted to
// requiredRoles. When a canAccess predicate is supplied it is authoritative;
// otherwise membership is tested against both the canonical and the raw form
// of the actor's role, case-insensitively, either matching being sufficient.
func CheckRoleAccess(requiredRoles []string, userRole string, canAccess func([]string) bool) AccessVerdict {
	if strings.TrimSpace(userRole) == "" {
		return Deny(NewError(ErrRoleNotAssigned, nil))
	}

	requiredRole := strings.Join(requiredRoles, ", ")

	if canAccess != nil {
		if !canAccess(requiredRoles) {
			return Deny(NewError(ErrInsufficientRole, &ErrorContext{RequiredRole: requiredRole}))
		}
		return Allow()
	}

	canonical := CanonicalRole(userRole)
	for _, required := range requiredRoles {
		if strings.EqualFold(required, canonical) || strings.EqualFold(required, userRole) {
			return Allow()
		}
	}

	return Deny(NewError(ErrInsufficientRole, &ErrorContext{RequiredRole: requiredRole}))
}
