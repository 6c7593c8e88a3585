// Package interaction implements the pointer-driven drag/resize state
// machine for signature overlays.
//
//	Idle --StartDrag--> Dragging --Move--> Dragging --release--> Idle
//	Idle --StartResize--> Resizing --Move--> Resizing --release--> Idle
//
// Every Move writes percentage geometry into the store immediately, so a
// release only ends the interaction; there is nothing to commit or roll back.
package interaction

import (
	"fmt"
	"log"
	"math"

	"github.com/ziadkadry99/sigplace/internal/geometry"
	"github.com/ziadkadry99/sigplace/internal/overlay"
	"github.com/ziadkadry99/sigplace/internal/tracker"
)

// Mode is the controller's state.
type Mode int

const (
	Idle Mode = iota
	Dragging
	Resizing
)

func (m Mode) String() string {
	switch m {
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	default:
		return "idle"
	}
}

// MarshalText lets Mode appear as a string in JSON messages.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*m = Idle
	case "dragging":
		*m = Dragging
	case "resizing":
		*m = Resizing
	default:
		return fmt.Errorf("unknown mode %q", b)
	}
	return nil
}

// DefaultMinSize is the smallest overlay, in raster pixels, a resize can
// produce.
var DefaultMinSize = geometry.Size{Width: 50, Height: 25}

// DefaultHandleSize is the side, in raster pixels, of the square resize
// handle at an overlay's bottom-right corner.
const DefaultHandleSize = 12.0

// Viewport supplies the live container box and the viewed page. It is
// re-read on every event.
type Viewport interface {
	Dimensions() tracker.Box
	Page() int
}

// State is the ephemeral interaction state.
type State struct {
	Mode          Mode           `json:"mode"`
	TargetID      string         `json:"target_id,omitempty"`
	OriginPointer geometry.Point `json:"origin_pointer"`
	OriginOverlay geometry.Point `json:"origin_overlay"`
	OriginSize    geometry.Size  `json:"origin_size"`
}

// Controller mutates overlay geometry in response to pointer events.
type Controller struct {
	store      *overlay.Store
	view       Viewport
	capture    *Capture
	minSize    geometry.Size
	handleSize float64
	state      State
	release    func()
	onChange   func(State)
}

// Option configures a Controller.
type Option func(*Controller)

// WithMinSize overrides DefaultMinSize.
func WithMinSize(s geometry.Size) Option {
	return func(c *Controller) { c.minSize = s }
}

// WithHandleSize overrides DefaultHandleSize.
func WithHandleSize(px float64) Option {
	return func(c *Controller) { c.handleSize = px }
}

// WithStateListener registers fn to run on every mode transition.
func WithStateListener(fn func(State)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// New creates an idle controller. If capture is nil the controller owns a
// private one.
func New(store *overlay.Store, view Viewport, capture *Capture, opts ...Option) *Controller {
	if capture == nil {
		capture = &Capture{}
	}
	c := &Controller{
		store:      store,
		view:       view,
		capture:    capture,
		minSize:    DefaultMinSize,
		handleSize: DefaultHandleSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	store.OnRemove(func(o overlay.Overlay) {
		if c.state.Mode != Idle && o.ID == c.state.TargetID {
			c.reset()
		}
	})
	return c
}

// State returns a copy of the current interaction state.
func (c *Controller) State() State { return c.state }

// MinSize returns the resize floor in pixels.
func (c *Controller) MinSize() geometry.Size { return c.minSize }

// StartDrag begins moving the overlay at index. It returns false, changing
// nothing, when another interaction is active, index is invalid or the
// container has not been measured yet.
func (c *Controller) StartDrag(ev Event, index int) bool {
	return c.start(Dragging, ev, index)
}

// StartResize begins resizing the overlay at index. It returns false,
// changing nothing, under the same conditions as StartDrag.
func (c *Controller) StartResize(ev Event, index int) bool {
	return c.start(Resizing, ev, index)
}

func (c *Controller) start(mode Mode, ev Event, index int) bool {
	if c.state.Mode != Idle {
		return false
	}
	o, ok := c.store.Get(index)
	if !ok {
		return false
	}
	// Pixel geometry against a 0x0 box would collapse the overlay.
	box := c.view.Dimensions()
	if box.Size().IsZero() {
		return false
	}
	release, ok := c.capture.Acquire(c)
	if !ok {
		return false
	}

	px := o.Rect().ToPixels(box.Size())
	c.release = release
	c.state = State{
		Mode:          mode,
		TargetID:      o.ID,
		OriginPointer: box.Relative(ev.ClientX, ev.ClientY),
		OriginOverlay: px.Origin(),
		OriginSize:    px.Size(),
	}
	c.changed()
	return true
}

// Move applies a pointer move. It returns true when overlay geometry was
// written. Moves while Idle, or while the container measures 0x0, are
// ignored.
func (c *Controller) Move(ev Event) bool {
	if c.state.Mode == Idle {
		return false
	}
	index := c.store.IndexOf(c.state.TargetID)
	if index < 0 {
		c.reset()
		return false
	}

	box := c.view.Dimensions()
	if box.Size().IsZero() {
		return false
	}
	pointer := box.Relative(ev.ClientX, ev.ClientY)

	var patch overlay.Patch
	switch c.state.Mode {
	case Dragging:
		grab := c.state.OriginPointer.Sub(c.state.OriginOverlay)
		origin := pointer.Sub(grab)
		patch = overlay.Position(
			geometry.PixelToPercent(origin.X, box.Width),
			geometry.PixelToPercent(origin.Y, box.Height),
		)
	case Resizing:
		delta := pointer.Sub(c.state.OriginPointer)
		w := math.Max(c.minSize.Width, c.state.OriginSize.Width+delta.X)
		h := math.Max(c.minSize.Height, c.state.OriginSize.Height+delta.Y)
		patch = overlay.Dimensions(
			geometry.PixelToPercent(w, box.Width),
			geometry.PixelToPercent(h, box.Height),
		)
	}

	if err := c.store.UpdateGeometry(index, patch); err != nil {
		log.Printf("interaction: updating overlay %s: %v", c.state.TargetID, err)
		return false
	}
	return true
}

// Release ends any active interaction. It returns true if one was active.
func (c *Controller) Release(Event) bool {
	if c.state.Mode == Idle {
		return false
	}
	c.reset()
	return true
}

// Handle implements Handler so the controller can own an input Capture.
func (c *Controller) Handle(ev Event) {
	switch {
	case ev.Kind == KindMove:
		c.Move(ev)
	case ev.IsRelease():
		c.Release(ev)
	}
}

// Down hit-tests a pointer press against the overlays on the viewed page and
// starts a resize when it lands on an overlay's bottom-right handle, or a drag
// anywhere else on the overlay. The topmost (last added) overlay wins. It
// returns the mode entered, Idle when nothing was hit or an interaction is
// already active.
func (c *Controller) Down(ev Event) Mode {
	if c.state.Mode != Idle {
		return Idle
	}
	box := c.view.Dimensions()
	page := c.view.Page()
	pointer := box.Relative(ev.ClientX, ev.ClientY)

	all := c.store.All()
	for i := len(all) - 1; i >= 0; i-- {
		o := all[i]
		if o.PageIndex != page {
			continue
		}
		r := o.Rect().ToPixels(box.Size())
		if !r.Contains(pointer) {
			continue
		}
		handle := geometry.PixelRect{
			X:      r.X + r.Width - c.handleSize,
			Y:      r.Y + r.Height - c.handleSize,
			Width:  c.handleSize,
			Height: c.handleSize,
		}
		if handle.Contains(pointer) {
			if c.StartResize(ev, i) {
				return Resizing
			}
			return Idle
		}
		if c.StartDrag(ev, i) {
			return Dragging
		}
		return Idle
	}
	return Idle
}

// Dispatch feeds a raw event stream into the controller: presses are
// hit-tested, everything else goes through the input capture.
func (c *Controller) Dispatch(ev Event) {
	if ev.Kind == KindDown {
		c.Down(ev)
		return
	}
	c.capture.Dispatch(ev)
}

func (c *Controller) reset() {
	if c.release != nil {
		c.release()
		c.release = nil
	}
	c.state = State{}
	c.changed()
}

func (c *Controller) changed() {
	if c.onChange != nil {
		c.onChange(c.state)
	}
}
