package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by GetByID for an unknown or expired entry.
var ErrNotFound = errors.New("audit entry not found")

// DefaultCapacity is the number of entries a Store keeps when none is given.
const DefaultCapacity = 1000

// DefaultLimit caps Query results when the filter sets no limit.
const DefaultLimit = 100

// Store holds the most recent audit entries. Once full, each new entry
// replaces the oldest.
type Store struct {
	mu       sync.RWMutex
	entries  []Entry
	next     int
	full     bool
	capacity int
}

// NewStore creates a Store keeping up to capacity entries.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{entries: make([]Entry, capacity), capacity: capacity}
}

// Log records a new audit entry. If entry.ID is empty a UUID is generated;
// a zero Timestamp is set to now.
func (s *Store) Log(ctx context.Context, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("logging audit entry: %w", err)
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[s.next] = entry
	s.next = (s.next + 1) % s.capacity
	if s.next == 0 {
		s.full = true
	}
	return nil
}

// Len returns the number of entries held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.full {
		return s.capacity
	}
	return s.next
}

// GetByID retrieves a single audit entry.
func (s *Store) GetByID(ctx context.Context, id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.newestFirst() {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
}

// QueryFilter controls which audit entries are returned by Query.
type QueryFilter struct {
	ActorType ActorType
	SessionID string
	OverlayID string
	Action    Action
	Since     *time.Time
	Until     *time.Time
	Limit     int
	Offset    int
}

func (f QueryFilter) matches(e Entry) bool {
	switch {
	case f.ActorType != "" && e.ActorType != f.ActorType:
		return false
	case f.SessionID != "" && e.SessionID != f.SessionID:
		return false
	case f.OverlayID != "" && e.OverlayID != f.OverlayID:
		return false
	case f.Action != "" && e.Action != f.Action:
		return false
	case f.Since != nil && e.Timestamp.Before(*f.Since):
		return false
	case f.Until != nil && e.Timestamp.After(*f.Until):
		return false
	}
	return true
}

// Query returns audit entries matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("querying audit entries: %w", err)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := []Entry{}
	skipped := 0
	for _, e := range s.newestFirst() {
		if !filter.matches(e) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		entries = append(entries, e)
		if len(entries) == limit {
			break
		}
	}
	return entries, nil
}

// DeleteSession removes every entry for a session and returns how many
// were dropped.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("deleting audit entries: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]Entry, 0, s.capacity)
	removed := 0
	for _, e := range s.oldestFirst() {
		if e.SessionID == sessionID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = make([]Entry, s.capacity)
	copy(s.entries, kept)
	s.next = len(kept) % s.capacity
	s.full = len(kept) == s.capacity
	return removed, nil
}

// oldestFirst returns the held entries in insertion order. Callers hold mu.
func (s *Store) oldestFirst() []Entry {
	if !s.full {
		return append([]Entry(nil), s.entries[:s.next]...)
	}
	out := make([]Entry, 0, s.capacity)
	out = append(out, s.entries[s.next:]...)
	return append(out, s.entries[:s.next]...)
}

// newestFirst returns the held entries in reverse insertion order. Callers
// hold mu.
func (s *Store) newestFirst() []Entry {
	out := s.oldestFirst()
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
