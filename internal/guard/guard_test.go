package guard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepost-hq/tradepost/internal/billing"
	"github.com/tradepost-hq/tradepost/pkg/entitlement"
)

// countingReader counts lookups and serves a fixed record or error.
type countingReader struct {
	mu     sync.Mutex
	calls  int32
	record *entitlement.SubscriptionRecord
	err    error

	// block, when set, holds every lookup until released.
	block chan struct{}
}

func (r *countingReader) SubscriptionRecord(ctx context.Context, tenantID string) (*entitlement.SubscriptionRecord, error) {
	atomic.AddInt32(&r.calls, 1)
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.record, r.err
}

func (r *countingReader) callCount() int32 {
	return atomic.LoadInt32(&r.calls)
}

func testActor() *entitlement.Actor {
	return &entitlement.Actor{UserID: "user-1", Role: "Business Owner", TenantID: "acme"}
}

func TestGuard_NilActorStaysLoading(t *testing.T) {
	reader := &countingReader{}
	g := New(reader)

	snapshot := g.Evaluate(context.Background(), nil)
	assert.Equal(t, StateLoading, snapshot.State)
	assert.Nil(t, snapshot.Denial)
	assert.Equal(t, int32(0), reader.callCount())
}

func TestGuard_ActiveSubscriptionAllows(t *testing.T) {
	reader := &countingReader{record: &entitlement.SubscriptionRecord{Status: entitlement.StatusActive}}
	g := New(reader)

	snapshot := g.Evaluate(context.Background(), testActor())
	assert.Equal(t, StateAllowed, snapshot.State)
	assert.Nil(t, snapshot.Denial)
}

func TestGuard_ExpiredTrialDenies(t *testing.T) {
	yesterday := time.Now().Add(-24 * time.Hour)
	reader := &countingReader{record: &entitlement.SubscriptionRecord{
		Status:   entitlement.StatusTrialing,
		TrialEnd: &yesterday,
	}}
	g := New(reader)

	snapshot := g.Evaluate(context.Background(), testActor())
	require.Equal(t, StateDenied, snapshot.State)
	require.NotNil(t, snapshot.Denial)

	assert.Equal(t, entitlement.ErrTrialExpired, snapshot.Denial.Cause.Type)
	assert.True(t, strings.Contains(strings.ToLower(snapshot.Denial.Display), "trial"))

	require.NotNil(t, snapshot.Denial.Primary)
	assert.Equal(t, ActionCheckout, snapshot.Denial.Primary.Kind)
	assert.Equal(t, ActionSignOut, snapshot.Denial.Secondary.Kind)
}

func TestGuard_ExpiredSubscriptionDenies(t *testing.T) {
	reader := &countingReader{record: &entitlement.SubscriptionRecord{Status: entitlement.StatusExpired}}
	g := New(reader)

	snapshot := g.Evaluate(context.Background(), testActor())
	require.Equal(t, StateDenied, snapshot.State)
	require.NotNil(t, snapshot.Denial)
	assert.Equal(t, entitlement.ErrSubscriptionExpired, snapshot.Denial.Cause.Type)
}

func TestGuard_UnknownStatusDeniesAsSubscriptionRequired(t *testing.T) {
	reader := &countingReader{record: &entitlement.SubscriptionRecord{Status: "paused"}}
	g := New(reader)

	snapshot := g.Evaluate(context.Background(), testActor())
	require.Equal(t, StateDenied, snapshot.State)
	require.NotNil(t, snapshot.Denial)
	assert.Equal(t, entitlement.ErrSubscriptionRequired, snapshot.Denial.Cause.Type)
}

func TestGuard_FetchErrorFailsOpen(t *testing.T) {
	reader := &countingReader{err: errors.New("billing unreachable")}
	g := New(reader)

	snapshot := g.Evaluate(context.Background(), testActor())
	assert.Equal(t, StateAllowed, snapshot.State)
	assert.Nil(t, snapshot.Denial)

	// The failure is cached; the session does not retry on every evaluation.
	g.Evaluate(context.Background(), testActor())
	assert.Equal(t, int32(1), reader.callCount())
}

func TestGuard_FetchesOncePerSession(t *testing.T) {
	reader := &countingReader{record: &entitlement.SubscriptionRecord{Status: entitlement.StatusActive}}
	g := New(reader)
	actor := testActor()

	for i := 0; i < 5; i++ {
		snapshot := g.Evaluate(context.Background(), actor)
		assert.Equal(t, StateAllowed, snapshot.State)
	}
	assert.Equal(t, int32(1), reader.callCount())
}

func TestGuard_RefetchesWhenTenantChanges(t *testing.T) {
	reader := &countingReader{record: &entitlement.SubscriptionRecord{Status: entitlement.StatusActive}}
	g := New(reader)

	g.Evaluate(context.Background(), testActor())
	g.Evaluate(context.Background(), &entitlement.Actor{UserID: "user-1", TenantID: "other"})
	assert.Equal(t, int32(2), reader.callCount())
}

func TestGuard_ConcurrentEvaluationsShareOneFetch(t *testing.T) {
	block := make(chan struct{})
	reader := &countingReader{
		record: &entitlement.SubscriptionRecord{Status: entitlement.StatusActive},
		block:  block,
	}
	g := New(reader)
	actor := testActor()

	var wg sync.WaitGroup
	results := make([]Snapshot, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = g.Evaluate(context.Background(), actor)
		}(i)
	}

	// Give the goroutines a moment to pile onto the in-flight fetch.
	time.Sleep(50 * time.Millisecond)
	close(block)
	wg.Wait()

	for _, snapshot := range results {
		assert.Equal(t, StateAllowed, snapshot.State)
	}
	assert.Equal(t, int32(1), reader.callCount())
}

func TestGuard_TrialLapsesMidSession(t *testing.T) {
	trialEnd := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	reader := &countingReader{record: &entitlement.SubscriptionRecord{
		Status:   entitlement.StatusTrial,
		TrialEnd: &trialEnd,
	}}

	g := New(reader)
	current := trialEnd.Add(-time.Hour)
	g.now = func() time.Time { return current }

	snapshot := g.Evaluate(context.Background(), testActor())
	assert.Equal(t, StateAllowed, snapshot.State)

	current = trialEnd.Add(time.Hour)
	snapshot = g.Evaluate(context.Background(), testActor())
	require.Equal(t, StateDenied, snapshot.State)
	assert.Equal(t, entitlement.ErrTrialExpired, snapshot.Denial.Cause.Type)

	// Still one fetch; only the clock moved.
	assert.Equal(t, int32(1), reader.callCount())
}

func TestGuard_CancelledContextDiscardsResult(t *testing.T) {
	block := make(chan struct{})
	reader := &countingReader{
		record: &entitlement.SubscriptionRecord{Status: entitlement.StatusExpired},
		block:  block,
	}
	g := New(reader)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Snapshot, 1)
	go func() {
		done <- g.Evaluate(ctx, testActor())
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	snapshot := <-done

	// The fetch was abandoned; the machine is left mid-resolve rather than
	// committed to a verdict built from a cancelled lookup.
	assert.NotEqual(t, StateDenied, snapshot.State)
	close(block)
}

func TestGuard_CloseDiscardsInFlightResult(t *testing.T) {
	block := make(chan struct{})
	reader := &countingReader{
		record: &entitlement.SubscriptionRecord{Status: entitlement.StatusActive},
		block:  block,
	}
	g := New(reader)

	done := make(chan Snapshot, 1)
	go func() {
		done <- g.Evaluate(context.Background(), testActor())
	}()

	time.Sleep(20 * time.Millisecond)
	g.Close()
	close(block)

	snapshot := <-done
	assert.NotEqual(t, StateAllowed, snapshot.State)
}

func TestGuard_SignOutResetsToLoading(t *testing.T) {
	reader := &countingReader{record: &entitlement.SubscriptionRecord{Status: entitlement.StatusActive}}
	g := New(reader)

	g.Evaluate(context.Background(), testActor())
	g.SignOut()

	snapshot := g.Snapshot()
	assert.Equal(t, StateLoading, snapshot.State)
	assert.Nil(t, snapshot.Denial)

	// The next evaluation fetches again.
	g.Evaluate(context.Background(), testActor())
	assert.Equal(t, int32(2), reader.callCount())
}

func TestGuard_ReaderFuncAdapter(t *testing.T) {
	reader := billing.ReaderFunc(func(ctx context.Context, tenantID string) (*entitlement.SubscriptionRecord, error) {
		return &entitlement.SubscriptionRecord{Status: entitlement.StatusActive}, nil
	})
	g := New(reader)

	snapshot := g.Evaluate(context.Background(), testActor())
	assert.Equal(t, StateAllowed, snapshot.State)
}
