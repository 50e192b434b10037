package entitlement

import (
	"strings"
	"time"
)

// NormalizeStatus lower-cases and trims a raw provider status so comparisons
// never depend on billing-provider casing quirks.
func NormalizeStatus(status SubscriptionStatus) SubscriptionStatus {
	return SubscriptionStatus(strings.ToLower(strings.TrimSpace(string(status))))
}

// ResolveAccess reports whether the subscription record grants access right
// now. See ResolveAccessAt for the decision rules.
func ResolveAccess(record *SubscriptionRecord) bool {
	return ResolveAccessAt(record, time.Now())
}

// ResolveAccessAt is the deterministic form of ResolveAccess, pure over its
// inputs and the supplied clock.
//
// Rules:
//   - nil record: allowed (unrestricted tenant).
//   - active: allowed.
//   - trial/trialing: allowed while TrialEnd is absent or in the future.
//   - pending: allowed (payment grace period).
//   - anything else: denied.
//
// Lookup failures are not handled here. The guard resolves those fail-open so
// a transient billing outage never surfaces as a user-facing denial.
func ResolveAccessAt(record *SubscriptionRecord, now time.Time) bool {
	if record == nil {
		return true
	}

	switch NormalizeStatus(record.Status) {
	case StatusActive, StatusPending:
		return true
	case StatusTrial, StatusTrialing:
		return record.TrialEnd == nil || record.TrialEnd.After(now)
	default:
		return false
	}
}

// OperationClass categorizes what operations are allowed in a given state.
type OperationClass string

const (
	OpFull     OperationClass = "full"     // All operations allowed
	OpDegraded OperationClass = "degraded" // Existing resources work, new ones blocked
	OpLocked   OperationClass = "locked"   // All operations blocked, contact support
)

// StateBehavior describes what is allowed in a specific subscription state.
type StateBehavior struct {
	// Status is the subscription status this behavior applies to.
	Status SubscriptionStatus

	// Operations describes what operations are allowed.
	Operations OperationClass

	// FeaturesAvailable indicates whether paid features are accessible.
	FeaturesAvailable bool

	// ShowWarning indicates whether the UI should show a warning banner.
	ShowWarning bool

	// Description is a human-readable description of the state behavior.
	Description string
}

// StateBehaviors maps each subscription status to its behavior rules.
var StateBehaviors = map[SubscriptionStatus]StateBehavior{
	StatusActive: {
		Status:            StatusActive,
		Operations:        OpFull,
		FeaturesAvailable: true,
		ShowWarning:       false,
		Description:       "Normal enforcement, all plan features active.",
	},
	StatusTrial: {
		Status:            StatusTrial,
		Operations:        OpFull,
		FeaturesAvailable: true,
		ShowWarning:       false,
		Description:       "Full capabilities with trial expiry timer.",
	},
	StatusTrialing: {
		Status:            StatusTrialing,
		Operations:        OpFull,
		FeaturesAvailable: true,
		ShowWarning:       false,
		Description:       "Full capabilities with trial expiry timer.",
	},
	StatusPending: {
		Status:            StatusPending,
		Operations:        OpFull,
		FeaturesAvailable: true,
		ShowWarning:       true,
		Description:       "Payment pending; features preserved during the grace period.",
	},
	StatusCancelled: {
		Status:            StatusCancelled,
		Operations:        OpDegraded,
		FeaturesAvailable: false,
		ShowWarning:       true,
		Description:       "Subscription cancelled; paid capabilities revoked.",
	},
	StatusExpired: {
		Status:            StatusExpired,
		Operations:        OpDegraded,
		FeaturesAvailable: false,
		ShowWarning:       true,
		Description:       "Fallback capabilities only; no data loss.",
	},
}

// GetBehavior returns the behavior rules for the given status.
// Returns expired behavior as default for unknown statuses.
func GetBehavior(status SubscriptionStatus) StateBehavior {
	if b, ok := StateBehaviors[NormalizeStatus(status)]; ok {
		return b
	}
	return StateBehaviors[StatusExpired]
}
