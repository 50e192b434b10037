// Package billing provides subscription-record readers for the access guard.
//
// Two implementations exist: an HTTP client for the hosted billing service
// and a SQLite read model for self-hosted deployments. Both normalize raw
// provider statuses on the way out so the resolver never sees provider
// casing quirks.
package billing

import (
	"context"

	"github.com/tradepost-hq/tradepost/pkg/entitlement"
)

// Reader fetches the subscription record for a tenant. A nil record with a
// nil error means the tenant has no subscription row and is unrestricted.
type Reader interface {
	SubscriptionRecord(ctx context.Context, tenantID string) (*entitlement.SubscriptionRecord, error)
}

// ReaderFunc adapts a function to the Reader interface.
type ReaderFunc func(ctx context.Context, tenantID string) (*entitlement.SubscriptionRecord, error)

// SubscriptionRecord implements Reader.
func (f ReaderFunc) SubscriptionRecord(ctx context.Context, tenantID string) (*entitlement.SubscriptionRecord, error) {
	return f(ctx, tenantID)
}

func normalizeRecord(record *entitlement.SubscriptionRecord) *entitlement.SubscriptionRecord {
	if record == nil {
		return nil
	}
	record.Status = entitlement.NormalizeStatus(record.Status)
	return record
}
