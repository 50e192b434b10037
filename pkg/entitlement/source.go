package entitlement

// Source provides entitlement data from any backing store. Implementations
// adapt the external feature-flag and permission stores once, so call sites
// inject a single capability object instead of threading raw callbacks into
// every check.
type Source interface {
	// HasFeature reports whether the feature is available on the current plan.
	HasFeature(feature string) bool

	// FeatureLimit returns the usage ceiling for the feature and whether a
	// ceiling exists.
	FeatureLimit(feature string) (int64, bool)

	// HasPermission reports whether the actor may perform action on resource.
	HasPermission(resource, action string) bool
}

// Authorizer adapts a Source into the per-call predicates consumed by the
// checkers. It is the canonical entry point for call sites that hold a
// configured Source.
type Authorizer struct {
	source Source
}

// NewAuthorizer creates a new authorizer over the given source.
func NewAuthorizer(source Source) *Authorizer {
	return &Authorizer{source: source}
}

// CheckFeature evaluates feature availability and, when usage is supplied,
// the plan ceiling, against the source.
func (a *Authorizer) CheckFeature(feature string, currentUsage *int64) AccessVerdict {
	if a == nil || a.source == nil {
		return Deny(NewError(ErrFeatureNotAvailable, &ErrorContext{FeatureName: feature}))
	}

	getLimit := func(f string) int64 {
		limit, _ := a.source.FeatureLimit(f)
		return limit
	}

	usage := currentUsage
	if usage != nil {
		if _, ok := a.source.FeatureLimit(feature); !ok {
			// No ceiling on this plan; skip the limit check.
			usage = nil
		}
	}

	return CheckFeatureAccess(feature, a.source.HasFeature, getLimit, usage)
}

// CheckPermission evaluates a resource/action permission against the source.
func (a *Authorizer) CheckPermission(resource, action string) AccessVerdict {
	if a == nil || a.source == nil {
		// No source behaves like a missing predicate: fail closed.
		return CheckPermissionAccess(resource, action, nil)
	}
	return CheckPermissionAccess(resource, action, a.source.HasPermission)
}

// Check runs a comprehensive access check, filling any absent predicates on
// the request from the source.
func (a *Authorizer) Check(req AccessRequest) AccessVerdict {
	if a != nil && a.source != nil {
		if req.Feature != "" && req.HasFeature == nil {
			req.HasFeature = a.source.HasFeature
			if req.FeatureLimit == nil {
				req.FeatureLimit = func(f string) int64 {
					limit, _ := a.source.FeatureLimit(f)
					return limit
				}
			}
		}
		if req.Resource != "" && req.Action != "" && req.HasPermission == nil {
			req.HasPermission = a.source.HasPermission
		}
	}
	return CheckComprehensiveAccess(req)
}
