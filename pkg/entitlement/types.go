package entitlement

import "time"

// Actor is the authenticated user making a request, scoped to a tenant.
type Actor struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	TenantID string `json:"tenant_id"`
}

// SubscriptionStatus represents the subscription lifecycle state as reported
// by the billing provider.
type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusTrial     SubscriptionStatus = "trial"
	StatusTrialing  SubscriptionStatus = "trialing"
	StatusPending   SubscriptionStatus = "pending"
	StatusCancelled SubscriptionStatus = "cancelled"
	StatusExpired   SubscriptionStatus = "expired"
)

// SubscriptionRecord is a tenant's subscription as fetched from the billing
// provider. A nil record means the tenant is unrestricted.
type SubscriptionRecord struct {
	Status           SubscriptionStatus `json:"status"`
	TrialEnd         *time.Time         `json:"trial_end,omitempty"`
	CurrentPeriodEnd *time.Time         `json:"current_period_end,omitempty"`
	Plan             string             `json:"plan"`
}

// FeatureEntitlement describes a single feature grant on a plan.
type FeatureEntitlement struct {
	Feature   string `json:"feature"`
	Available bool   `json:"available"`
	Limit     *int64 `json:"limit,omitempty"`
}

// AccessVerdict is the outcome of a single check. Allowed is true exactly
// when Error is nil.
type AccessVerdict struct {
	Allowed bool              `json:"allowed"`
	Error   *EntitlementError `json:"error,omitempty"`
}

// Allow returns an allowing verdict.
func Allow() AccessVerdict {
	return AccessVerdict{Allowed: true}
}

// Deny returns a denying verdict carrying the given error.
func Deny(err *EntitlementError) AccessVerdict {
	return AccessVerdict{Allowed: false, Error: err}
}
