// Package guard implements the session-level access guard: the one component
// of the authorization core that performs I/O. It fetches the tenant's
// subscription record once per (actor, tenant) session, resolves it through
// the entitlement rules, and exposes a renderable snapshot.
package guard

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/tradepost-hq/tradepost/internal/billing"
	"github.com/tradepost-hq/tradepost/internal/metrics"
	"github.com/tradepost-hq/tradepost/pkg/entitlement"
)

// State is the guard's rendering state.
type State int

const (
	// StateLoading means the actor is not yet resolved; no checks run.
	StateLoading State = iota

	// StateResolving means the subscription fetch is in flight.
	StateResolving

	// StateAllowed means the protected subtree may render.
	StateAllowed

	// StateDenied means a blocking panel with the denial cause must render.
	StateDenied
)

// MarshalJSON renders the state as its string form.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateResolving:
		return "resolving"
	case StateAllowed:
		return "allowed"
	case StateDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// ActionKind identifies a remediation action on the denied panel.
type ActionKind string

const (
	ActionCheckout ActionKind = "checkout"
	ActionSignOut  ActionKind = "sign_out"
)

// Action is one remediation action offered on the denied panel.
type Action struct {
	Kind  ActionKind `json:"kind"`
	Label string     `json:"label"`
}

// Denial carries everything the presentation layer needs to render the
// blocking panel for a denied session.
type Denial struct {
	Cause    *entitlement.EntitlementError   `json:"cause"`
	Display  string                          `json:"display"`
	Behavior entitlement.StateBehavior       `json:"behavior"`
	Record   *entitlement.SubscriptionRecord `json:"record,omitempty"`

	// Primary is present only when the denial is upgradeable.
	Primary   *Action `json:"primary_action,omitempty"`
	Secondary Action  `json:"secondary_action"`
}

// Snapshot is the guard's current rendering state.
type Snapshot struct {
	State  State   `json:"state"`
	Denial *Denial `json:"denial,omitempty"`
}

// sessionKey identifies one guarded session.
type sessionKey struct {
	userID   string
	tenantID string
}

// Guard is the per-session state machine. It caches the subscription record
// for the current (actor, tenant) pair and re-fetches only when the pair
// changes. Safe for concurrent use.
type Guard struct {
	reader billing.Reader
	group  singleflight.Group

	mu      sync.Mutex
	key     *sessionKey
	record  *entitlement.SubscriptionRecord
	fetched bool
	state   State
	denial  *Denial
	closed  bool

	now func() time.Time
}

// New creates a guard over the given subscription reader.
func New(reader billing.Reader) *Guard {
	return &Guard{
		reader: reader,
		state:  StateLoading,
		now:    time.Now,
	}
}

// Evaluate advances the state machine for the given actor and returns the
// resulting snapshot. A nil actor keeps the guard in Loading. The fetch runs
// at most once per (actor, tenant) pair; concurrent evaluations for the same
// pair share one in-flight fetch. A fetch failure degrades to Allowed
// (fail-open) for the rest of the session; the next session re-attempts.
func (g *Guard) Evaluate(ctx context.Context, actor *entitlement.Actor) Snapshot {
	if actor == nil {
		return g.transitionLocked(StateLoading, nil)
	}

	key := sessionKey{userID: actor.UserID, tenantID: actor.TenantID}

	g.mu.Lock()
	if g.closed {
		snapshot := Snapshot{State: g.state, Denial: g.denial}
		g.mu.Unlock()
		return snapshot
	}
	if g.key != nil && *g.key == key && g.fetched {
		// Cached for this session; recompute the verdict against the clock
		// so a trial can lapse mid-session.
		snapshot := g.resolveLocked()
		g.mu.Unlock()
		return snapshot
	}
	g.key = &key
	g.record = nil
	g.fetched = false
	g.state = StateResolving
	g.denial = nil
	g.mu.Unlock()

	metrics.RecordGuardTransition(StateResolving.String())

	record, err := g.fetch(ctx, actor.TenantID, key)

	g.mu.Lock()
	defer g.mu.Unlock()

	// The guarding scope may have been torn down, or the actor may have
	// changed, while the fetch was in flight. Discard the result: no state
	// mutation after teardown.
	if g.closed || g.key == nil || *g.key != key {
		return Snapshot{State: g.state, Denial: g.denial}
	}
	if ctx.Err() != nil {
		return Snapshot{State: g.state, Denial: g.denial}
	}

	if err != nil {
		log.Warn().
			Err(err).
			Str("tenant_id", actor.TenantID).
			Str("user_id", actor.UserID).
			Msg("Subscription lookup failed; resolving fail-open")
		g.record = nil
	} else {
		g.record = record
	}
	g.fetched = true

	return g.resolveLocked()
}

// fetch performs the deduplicated subscription lookup.
func (g *Guard) fetch(ctx context.Context, tenantID string, key sessionKey) (*entitlement.SubscriptionRecord, error) {
	start := g.now()
	result, err, _ := g.group.Do(key.userID+"\x00"+key.tenantID, func() (interface{}, error) {
		return g.reader.SubscriptionRecord(ctx, tenantID)
	})
	metrics.RecordSubscriptionFetch(g.now().Sub(start), err != nil)

	if err != nil {
		return nil, err
	}
	record, _ := result.(*entitlement.SubscriptionRecord)
	return record, nil
}

// resolveLocked computes Allowed/Denied from the cached record. Caller holds g.mu.
func (g *Guard) resolveLocked() Snapshot {
	if entitlement.ResolveAccessAt(g.record, g.now()) {
		return g.setStateLocked(StateAllowed, nil)
	}
	return g.setStateLocked(StateDenied, denialFor(g.record))
}

func (g *Guard) setStateLocked(state State, denial *Denial) Snapshot {
	if g.state != state {
		metrics.RecordGuardTransition(state.String())
	}
	g.state = state
	g.denial = denial
	return Snapshot{State: state, Denial: denial}
}

func (g *Guard) transitionLocked(state State, denial *Denial) Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return Snapshot{State: g.state, Denial: g.denial}
	}
	return g.setStateLocked(state, denial)
}

// Snapshot returns the current rendering state without advancing the machine.
func (g *Guard) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Snapshot{State: g.state, Denial: g.denial}
}

// SignOut exits the guarded session: the cached record is dropped and the
// machine returns to Loading.
func (g *Guard) SignOut() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.key = nil
	g.record = nil
	g.fetched = false
	g.setStateLocked(StateLoading, nil)
}

// Close tears the guard down. In-flight fetch results are discarded.
func (g *Guard) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
}

// denialFor classifies why the subscription denies access and assembles the
// panel payload.
func denialFor(record *entitlement.SubscriptionRecord) *Denial {
	var cause *entitlement.EntitlementError

	status := entitlement.SubscriptionStatus("")
	if record != nil {
		status = entitlement.NormalizeStatus(record.Status)
	}

	switch status {
	case entitlement.StatusTrial, entitlement.StatusTrialing:
		cause = entitlement.NewError(entitlement.ErrTrialExpired, nil)
	case entitlement.StatusExpired, entitlement.StatusCancelled:
		cause = entitlement.NewError(entitlement.ErrSubscriptionExpired, nil)
	default:
		cause = entitlement.NewError(entitlement.ErrSubscriptionRequired, nil)
	}

	denial := &Denial{
		Cause:     cause,
		Display:   entitlement.FormatForDisplay(cause),
		Behavior:  entitlement.GetBehavior(status),
		Record:    record,
		Secondary: Action{Kind: ActionSignOut, Label: "Sign out"},
	}

	if entitlement.ShouldOfferUpgrade(cause) {
		denial.Primary = &Action{Kind: ActionCheckout, Label: "Upgrade now"}
	}

	return denial
}
