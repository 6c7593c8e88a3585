// Package overlay holds the authoritative set of signature overlays for one
// document. The store is the only owner of overlay geometry; everything it
// returns is a copy.
package overlay

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Store is an ordered collection of overlays. It is not safe for concurrent
// use; a session serializes access to it.
type Store struct {
	items     []Overlay
	pageCount int
	onRemove  []func(Overlay)
}

// NewStore creates a store for a document with pageCount pages. A pageCount
// of zero disables page validation.
func NewStore(pageCount int) *Store {
	return &Store{pageCount: pageCount}
}

// OnRemove registers fn to run after an overlay leaves the store, whether by
// Remove, RemoveByID or Reset.
func (s *Store) OnRemove(fn func(Overlay)) {
	s.onRemove = append(s.onRemove, fn)
}

// Add appends o and returns the stored copy. An empty ID is replaced by a
// UUID.
func (s *Store) Add(o Overlay) (Overlay, error) {
	if s.pageCount > 0 && (o.PageIndex < 0 || o.PageIndex >= s.pageCount) {
		return Overlay{}, fmt.Errorf("adding overlay on page %d of %d: %w", o.PageIndex, s.pageCount, ErrPageOutOfRange)
	}
	if err := checkGeometry(o.XPercent, o.YPercent, o.WidthPercent, o.HeightPercent); err != nil {
		return Overlay{}, err
	}
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	s.items = append(s.items, o)
	return o, nil
}

// Remove deletes the overlay at index.
func (s *Store) Remove(index int) (Overlay, error) {
	if index < 0 || index >= len(s.items) {
		return Overlay{}, fmt.Errorf("removing overlay %d: %w", index, ErrNotFound)
	}
	removed := s.items[index]
	s.items = append(s.items[:index:index], s.items[index+1:]...)
	s.notifyRemoved(removed)
	return removed, nil
}

// RemoveByID deletes the overlay with the given ID.
func (s *Store) RemoveByID(id string) (Overlay, error) {
	i := s.IndexOf(id)
	if i < 0 {
		return Overlay{}, fmt.Errorf("removing overlay %s: %w", id, ErrNotFound)
	}
	return s.Remove(i)
}

// Reset removes every overlay.
func (s *Store) Reset() {
	removed := s.items
	s.items = nil
	for _, o := range removed {
		s.notifyRemoved(o)
	}
}

// UpdateGeometry applies p to the overlay at index. It is the only way
// stored geometry changes after Add.
func (s *Store) UpdateGeometry(index int, p Patch) error {
	if index < 0 || index >= len(s.items) {
		return fmt.Errorf("updating overlay %d: %w", index, ErrNotFound)
	}
	o := s.items[index]
	if p.XPercent != nil {
		o.XPercent = *p.XPercent
	}
	if p.YPercent != nil {
		o.YPercent = *p.YPercent
	}
	if p.WidthPercent != nil {
		o.WidthPercent = *p.WidthPercent
	}
	if p.HeightPercent != nil {
		o.HeightPercent = *p.HeightPercent
	}
	if err := checkGeometry(o.XPercent, o.YPercent, o.WidthPercent, o.HeightPercent); err != nil {
		return err
	}
	s.items[index] = o
	return nil
}

// Get returns a copy of the overlay at index.
func (s *Store) Get(index int) (Overlay, bool) {
	if index < 0 || index >= len(s.items) {
		return Overlay{}, false
	}
	return s.items[index], true
}

// IndexOf returns the current index of the overlay with the given ID, or -1.
func (s *Store) IndexOf(id string) int {
	for i, o := range s.items {
		if o.ID == id {
			return i
		}
	}
	return -1
}

// ForPage returns the overlays on pageIndex in insertion order.
func (s *Store) ForPage(pageIndex int) []Overlay {
	var out []Overlay
	for _, o := range s.items {
		if o.PageIndex == pageIndex {
			out = append(out, o)
		}
	}
	return out
}

// All returns every overlay in insertion order.
func (s *Store) All() []Overlay {
	out := make([]Overlay, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of overlays.
func (s *Store) Len() int { return len(s.items) }

// PageCount returns the page count the store validates against.
func (s *Store) PageCount() int { return s.pageCount }

func (s *Store) notifyRemoved(o Overlay) {
	for _, fn := range s.onRemove {
		fn(o)
	}
}

// checkGeometry rejects values that cannot be projected. Positions and sizes
// have no upper bound; overlays may sit partly or fully off-page.
func checkGeometry(x, y, w, h float64) error {
	for _, v := range []float64{x, y, w, h} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite value %v: %w", v, ErrInvalidGeometry)
		}
	}
	if w < 0 || h < 0 {
		return fmt.Errorf("negative size %vx%v: %w", w, h, ErrInvalidGeometry)
	}
	return nil
}
