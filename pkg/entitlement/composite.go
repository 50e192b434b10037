package entitlement

// AccessRequest describes one comprehensive access check. Every axis is
// opt-in: absent inputs skip that axis entirely, so call sites compose only
// the checks relevant to one protected action.
type AccessRequest struct {
	// Authenticated gates the authentication axis. nil skips the axis; a
	// pointer to false denies immediately.
	Authenticated *bool

	// Feature axis: runs when both Feature and HasFeature are supplied.
	Feature      string
	HasFeature   func(feature string) bool
	FeatureLimit func(feature string) int64
	CurrentUsage *int64

	// Role axis: runs when RequiredRoles is non-empty.
	RequiredRoles []string
	UserRole      string
	CanAccess     func(requiredRoles []string) bool

	// Permission axis: runs when Resource, Action and HasPermission are all
	// supplied.
	Resource      string
	Action        string
	HasPermission func(resource, action string) bool
}

// CheckAuthentication gates on authentication state alone.
func CheckAuthentication(isAuthenticated bool) AccessVerdict {
	if !isAuthenticated {
		return Deny(NewError(ErrAuthenticationRequired, nil))
	}
	return Allow()
}

// CheckComprehensiveAccess orchestrates the individual checkers in fixed
// order (authentication, feature, role, permission), stopping at the first
// denial. Axes whose inputs are absent do not affect the outcome and are
// never evaluated.
func CheckComprehensiveAccess(req AccessRequest) AccessVerdict {
	if req.Authenticated != nil {
		if verdict := CheckAuthentication(*req.Authenticated); !verdict.Allowed {
			return verdict
		}
	}

	if req.Feature != "" && req.HasFeature != nil {
		if verdict := CheckFeatureAccess(req.Feature, req.HasFeature, req.FeatureLimit, req.CurrentUsage); !verdict.Allowed {
			return verdict
		}
	}

	if len(req.RequiredRoles) > 0 {
		if verdict := CheckRoleAccess(req.RequiredRoles, req.UserRole, req.CanAccess); !verdict.Allowed {
			return verdict
		}
	}

	if req.Resource != "" && req.Action != "" && req.HasPermission != nil {
		if verdict := CheckPermissionAccess(req.Resource, req.Action, req.HasPermission); !verdict.Allowed {
			return verdict
		}
	}

	return Allow()
}
