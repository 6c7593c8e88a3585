package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/sigplace/internal/audit"
)

// Manager keeps sessions in memory and evicts idle ones.
type Manager struct {
	opts Options
	ttl  time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a manager. A ttl of zero disables eviction.
func NewManager(opts Options, ttl time.Duration) *Manager {
	return &Manager{
		opts:     opts,
		ttl:      ttl,
		sessions: make(map[string]*Session),
	}
}

// Create opens pdf as a new session.
func (m *Manager) Create(pdf []byte) (*Session, error) {
	s, err := newSession(uuid.New().String(), pdf, m.opts)
	if err != nil {
		return nil, fmt.Errorf("opening document: %w", err)
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	s.record(audit.Entry{
		Action:  audit.ActionSessionCreated,
		Summary: fmt.Sprintf("Opened %d-page document (%d bytes)", s.PageCount(), len(pdf)),
	})
	return s, nil
}

// Get returns the session with the given ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	s.touch()
	return s, nil
}

// Delete closes and forgets a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	s.Close()
	s.record(audit.Entry{Action: audit.ActionSessionDeleted, Summary: "Closed session"})
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// List returns a snapshot of the live sessions.
func (m *Manager) List() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// Evict closes every session idle since before now minus the TTL and
// returns how many were removed.
func (m *Manager) Evict(now time.Time) int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-m.ttl)

	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		if s.LastUsed().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Close()
		s.record(audit.Entry{
			ActorType: audit.ActorSystem,
			Action:    audit.ActionSessionEvicted,
			Summary:   fmt.Sprintf("Evicted after %s idle", m.ttl),
		})
	}
	return len(stale)
}

// Run evicts idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if m.ttl <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := m.Evict(now); n > 0 {
				log.Printf("session: evicted %d idle session(s)", n)
			}
		}
	}
}
