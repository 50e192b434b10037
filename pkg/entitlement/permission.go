package entitlement

import "fmt"

// CheckPermissionAccess evaluates a fine-grained resource/action permission.
// A missing predicate denies (fail-closed), the opposite policy from the
// subscription resolver.
func CheckPermissionAccess(resource, action string, hasPermission func(resource, action string) bool) AccessVerdict {
	if hasPermission == nil {
		return Deny(NewError(ErrMissingPermission, nil))
	}

	if !hasPermission(resource, action) {
		return Deny(NewError(ErrMissingPermission, &ErrorContext{
			RequiredPermission: fmt.Sprintf("%s on %s", action, resource),
		}))
	}

	return Allow()
}
