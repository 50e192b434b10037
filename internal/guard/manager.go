package guard

import (
	"context"
	"sync"

	"github.com/tradepost-hq/tradepost/internal/billing"
	"github.com/tradepost-hq/tradepost/pkg/entitlement"
)

// Manager holds one guard per active session so a multi-tenant host can serve
// many sessions concurrently. Guards are created on first evaluation and
// dropped on sign-out.
type Manager struct {
	reader billing.Reader

	mu     sync.Mutex
	guards map[sessionKey]*Guard
	closed bool
}

// NewManager creates a session guard manager over the given reader.
func NewManager(reader billing.Reader) *Manager {
	return &Manager{
		reader: reader,
		guards: make(map[sessionKey]*Guard),
	}
}

// Evaluate advances the guard for the actor's session and returns its
// snapshot. A nil actor yields a Loading snapshot without creating a session.
func (m *Manager) Evaluate(ctx context.Context, actor *entitlement.Actor) Snapshot {
	if actor == nil {
		return Snapshot{State: StateLoading}
	}
	return m.guardFor(actor).Evaluate(ctx, actor)
}

// SignOut ends the actor's session and drops its guard.
func (m *Manager) SignOut(actor *entitlement.Actor) {
	if actor == nil {
		return
	}
	key := sessionKey{userID: actor.UserID, tenantID: actor.TenantID}

	m.mu.Lock()
	g, ok := m.guards[key]
	delete(m.guards, key)
	m.mu.Unlock()

	if ok {
		g.SignOut()
		g.Close()
	}
}

// Close tears down every active guard.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for key, g := range m.guards {
		g.Close()
		delete(m.guards, key)
	}
}

func (m *Manager) guardFor(actor *entitlement.Actor) *Guard {
	key := sessionKey{userID: actor.UserID, tenantID: actor.TenantID}

	m.mu.Lock()
	defer m.mu.Unlock()

	if g, ok := m.guards[key]; ok {
		return g
	}
	g := New(m.reader)
	if !m.closed {
		m.guards[key] = g
	}
	return g
}
