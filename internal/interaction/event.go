package interaction

// EventKind identifies a pointer event.
type EventKind string

const (
	KindDown   EventKind = "down"
	KindMove   EventKind = "move"
	KindUp     EventKind = "up"
	KindLeave  EventKind = "leave"
	KindCancel EventKind = "cancel"
)

// PointerType is the input device that produced an event.
type PointerType string

const (
	PointerMouse PointerType = "mouse"
	PointerTouch PointerType = "touch"
	PointerPen   PointerType = "pen"
)

// Event is a pointer event in client coordinates. Touch end is delivered as
// KindUp and touch cancel as KindCancel.
type Event struct {
	Kind        EventKind   `json:"kind"`
	ClientX     float64     `json:"client_x"`
	ClientY     float64     `json:"client_y"`
	PointerType PointerType `json:"pointer_type,omitempty"`
}

// IsRelease reports whether ev ends an interaction: pointer up, pointer
// leave, touch end or cancel.
func (ev Event) IsRelease() bool {
	switch ev.Kind {
	case KindUp, KindLeave, KindCancel:
		return true
	}
	return false
}

// Handler consumes pointer events.
type Handler interface {
	Handle(ev Event)
}

// Capture routes pointer events to a single owner while an interaction is in
// progress, so a drag keeps working after the pointer leaves the overlay.
// There is one Capture per input surface (one per connected client).
type Capture struct {
	owner Handler
	gen   int
}

// Acquire makes h the capture owner. It fails if the capture is already held.
// The returned release function is idempotent and only releases the
// acquisition it was returned for.
func (c *Capture) Acquire(h Handler) (release func(), ok bool) {
	if c.owner != nil {
		return nil, false
	}
	c.gen++
	gen := c.gen
	c.owner = h
	return func() {
		if c.gen == gen && c.owner == h {
			c.owner = nil
		}
	}, true
}

// Held reports whether an owner currently holds the capture.
func (c *Capture) Held() bool { return c.owner != nil }

// Dispatch delivers ev to the capture owner and reports whether one existed.
func (c *Capture) Dispatch(ev Event) bool {
	if c.owner == nil {
		return false
	}
	c.owner.Handle(ev)
	return true
}
