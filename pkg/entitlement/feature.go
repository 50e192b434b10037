package entitlement

// CheckFeatureAccess evaluates feature availability and, when usage data is
// supplied, the plan's usage ceiling. Unavailability takes precedence over
// any limit check. The limit check runs only when both getLimit and
// currentUsage are supplied.
func CheckFeatureAccess(feature string, hasFeature func(string) bool, getLimit func(string) int64, currentUsage *int64) AccessVerdict {
	if hasFeature == nil || !hasFeature(feature) {
		return Deny(NewError(ErrFeatureNotAvailable, &ErrorContext{FeatureName: feature}))
	}

	if getLimit != nil && currentUsage != nil {
		limit := getLimit(feature)
		if *currentUsage >= limit {
			return Deny(NewError(ErrFeatureLimitExceeded, &ErrorContext{
				FeatureName:  feature,
				CurrentLimit: currentUsage,
				PlanLimit:    &limit,
			}))
		}
	}

	return Allow()
}
