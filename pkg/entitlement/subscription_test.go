package entitlement

import (
	"testing"
	"time"
)

func TestResolveAccessAt(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	tests := []struct {
		name   string
		record *SubscriptionRecord
		want   bool
	}{
		{
			name:   "nil_record_is_unrestricted",
			record: nil,
			want:   true,
		},
		{
			name:   "active_allows",
			record: &SubscriptionRecord{Status: StatusActive},
			want:   true,
		},
		{
			name:   "active_ignores_past_trial_end",
			record: &SubscriptionRecord{Status: StatusActive, TrialEnd: &past},
			want:   true,
		},
		{
			name:   "pending_allows_payment_grace",
			record: &SubscriptionRecord{Status: StatusPending},
			want:   true,
		},
		{
			name:   "pending_ignores_past_trial_end",
			record: &SubscriptionRecord{Status: StatusPending, TrialEnd: &past},
			want:   true,
		},
		{
			name:   "trial_without_end_allows",
			record: &SubscriptionRecord{Status: StatusTrial},
			want:   true,
		},
		{
			name:   "trial_with_future_end_allows",
			record: &SubscriptionRecord{Status: StatusTrial, TrialEnd: &future},
			want:   true,
		},
		{
			name:   "trial_with_past_end_denies",
			record: &SubscriptionRecord{Status: StatusTrial, TrialEnd: &past},
			want:   false,
		},
		{
			name:   "trialing_with_past_end_denies",
			record: &SubscriptionRecord{Status: StatusTrialing, TrialEnd: &past},
			want:   false,
		},
		{
			name:   "trialing_with_future_end_allows",
			record: &SubscriptionRecord{Status: StatusTrialing, TrialEnd: &future},
			want:   true,
		},
		{
			name:   "cancelled_denies",
			record: &SubscriptionRecord{Status: StatusCancelled},
			want:   false,
		},
		{
			name:   "expired_denies",
			record: &SubscriptionRecord{Status: StatusExpired},
			want:   false,
		},
		{
			name:   "unknown_status_denies",
			record: &SubscriptionRecord{Status: "paused"},
			want:   false,
		},
		{
			name:   "uppercase_provider_status_is_normalized",
			record: &SubscriptionRecord{Status: " ACTIVE "},
			want:   true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveAccessAt(tt.record, now)
			if got != tt.want {
				t.Errorf("ResolveAccessAt(%+v) = %v, want %v", tt.record, got, tt.want)
			}
		})
	}
}

func TestGetBehavior(t *testing.T) {
	if b := GetBehavior(StatusActive); b.Operations != OpFull || !b.FeaturesAvailable || b.ShowWarning {
		t.Errorf("active behavior = %+v, want full operations without warning", b)
	}

	if b := GetBehavior(StatusPending); !b.ShowWarning {
		t.Errorf("pending behavior = %+v, want warning banner", b)
	}

	if b := GetBehavior(StatusCancelled); b.Operations != OpDegraded || b.FeaturesAvailable {
		t.Errorf("cancelled behavior = %+v, want degraded without features", b)
	}

	// Unknown statuses fall back to the expired row.
	if b := GetBehavior("paused"); b.Status != StatusExpired {
		t.Errorf("unknown status behavior = %+v, want expired fallback", b)
	}
}
