// Package tracker keeps the current pixel box of the page preview container.
// It is the single source of truth for raster dimensions: every drag, resize
// and render tick reads the box from here instead of caching it.
package tracker

import (
	"github.com/ziadkadry99/sigplace/internal/geometry"
)

// Box is the container's client-space bounding box in pixels.
type Box struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Size returns the box dimensions.
func (b Box) Size() geometry.Size {
	return geometry.Size{Width: b.Width, Height: b.Height}
}

// Relative converts a client-space point into container-relative pixels.
func (b Box) Relative(clientX, clientY float64) geometry.Point {
	return geometry.Point{X: clientX - b.Left, Y: clientY - b.Top}
}

// Source is anything that can report container boxes: a browser connection,
// a test driver, a fixed-size headless renderer. Start begins observation and
// must deliver every new box to sink until the returned stop function is
// called.
type Source interface {
	Current() Box
	Start(sink func(Box)) (stop func())
}

// Tracker holds the latest container box. It is not safe for concurrent use;
// callers serialize access the same way they serialize pointer events.
type Tracker struct {
	box       Box
	page      int
	observing bool
	stop      func()
	gen       int
}

// New returns a tracker with an unmeasured (zero) box on page 0.
func New() *Tracker {
	return &Tracker{}
}

// Dimensions returns the most recently observed box.
func (t *Tracker) Dimensions() Box { return t.box }

// Page returns the currently viewed page index.
func (t *Tracker) Page() int { return t.page }

// Observe starts observing src. The source's current box is recorded
// immediately. The returned release function stops observation; calling it
// more than once is harmless. Observing a new source releases the previous
// one, after which the earlier release function does nothing.
func (t *Tracker) Observe(src Source) (release func()) {
	if t.observing {
		t.unobserve()
	}
	t.gen++
	gen := t.gen
	t.observing = true
	t.box = src.Current()
	t.stop = src.Start(t.Resize)

	return func() {
		// A release from a replaced observation must not detach the current one.
		if gen != t.gen || !t.observing {
			return
		}
		t.unobserve()
	}
}

func (t *Tracker) unobserve() {
	if t.stop != nil {
		t.stop()
		t.stop = nil
	}
	t.observing = false
}

// Observing reports whether a source is currently attached.
func (t *Tracker) Observing() bool { return t.observing }

// Resize records a new box observation.
func (t *Tracker) Resize(b Box) { t.box = b }

// SetPage switches the viewed page and records b with it: the new page's
// raster can have a different aspect ratio inside an identical container.
func (t *Tracker) SetPage(page int, b Box) {
	t.page = page
	t.box = b
}

// Fixed is a Source with a constant box. Headless renderers and tests use it.
type Fixed Box

// Current implements Source.
func (f Fixed) Current() Box { return Box(f) }

// Start implements Source. A fixed box never changes.
func (f Fixed) Start(func(Box)) func() { return func() {} }

// Feed is a Source driven by explicit Push calls, for transports that
// receive box observations as messages (WebSocket clients).
type Feed struct {
	box  Box
	sink func(Box)
}

// NewFeed returns a feed whose initial box is b.
func NewFeed(b Box) *Feed { return &Feed{box: b} }

// Current implements Source.
func (f *Feed) Current() Box { return f.box }

// Start implements Source.
func (f *Feed) Start(sink func(Box)) func() {
	f.sink = sink
	return func() { f.sink = nil }
}

// Push records b and forwards it to the observer, if any.
func (f *Feed) Push(b Box) {
	f.box = b
	if f.sink != nil {
		f.sink(b)
	}
}
