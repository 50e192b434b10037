// Package metrics exposes Prometheus instrumentation for the authorization
// core.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tradepost-hq/tradepost/pkg/entitlement"
)

var (
	// Access check metrics
	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradepost_authz_checks_total",
			Help: "Total number of access checks by outcome and error type",
		},
		[]string{"outcome", "error_type"},
	)

	DenialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradepost_authz_denials_total",
			Help: "Total number of denials by error type",
		},
		[]string{"error_type"},
	)

	// Subscription guard metrics
	GuardTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradepost_guard_transitions_total",
			Help: "Total number of access guard state transitions",
		},
		[]string{"state"},
	)

	SubscriptionFailOpenTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tradepost_subscription_fail_open_total",
			Help: "Total number of subscription lookups that failed and resolved fail-open",
		},
	)

	SubscriptionFetchSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tradepost_subscription_fetch_seconds",
			Help:    "Duration of subscription record fetches",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	UpgradePromptsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tradepost_upgrade_prompts_total",
			Help: "Total number of denials that surfaced an upgrade action",
		},
	)
)

// RecordVerdict records the outcome of one access check.
func RecordVerdict(verdict entitlement.AccessVerdict) {
	if verdict.Allowed {
		ChecksTotal.WithLabelValues("allow", "").Inc()
		return
	}

	errorType := string(entitlement.ErrUnknownPermission)
	if verdict.Error != nil {
		errorType = string(verdict.Error.Type)
	}

	ChecksTotal.WithLabelValues("deny", errorType).Inc()
	DenialsTotal.WithLabelValues(errorType).Inc()

	if entitlement.ShouldOfferUpgrade(verdict.Error) {
		UpgradePromptsTotal.Inc()
	}
}

// RecordGuardTransition records a guard state change.
func RecordGuardTransition(state string) {
	GuardTransitionsTotal.WithLabelValues(state).Inc()
}

// RecordSubscriptionFetch records one subscription fetch with its duration.
// Failed fetches also count toward the fail-open total.
func RecordSubscriptionFetch(duration time.Duration, failed bool) {
	SubscriptionFetchSeconds.Observe(duration.Seconds())
	if failed {
		SubscriptionFailOpenTotal.Inc()
	}
}
