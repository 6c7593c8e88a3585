package interaction

import (
	"math"
	"testing"

	"github.com/ziadkadry99/sigplace/internal/overlay"
	"github.com/ziadkadry99/sigplace/internal/tracker"
)

const epsilon = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < epsilon }

// fixture: a 1000x500 container at the client origin with one overlay at
// (10%, 10%) sized 20%x10%, i.e. pixels (100,50) 200x50.
func fixture(t *testing.T) (*Controller, *overlay.Store, *tracker.Tracker, *Capture) {
	t.Helper()
	store := overlay.NewStore(2)
	if _, err := store.Add(overlay.Overlay{
		ID: "sig", XPercent: 10, YPercent: 10, WidthPercent: 20, HeightPercent: 10,
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	tr := tracker.New()
	tr.Observe(tracker.Fixed{Width: 1000, Height: 500})
	capture := &Capture{}
	return New(store, tr, capture), store, tr, capture
}

func at(kind EventKind, x, y float64) Event {
	return Event{Kind: kind, ClientX: x, ClientY: y, PointerType: PointerMouse}
}

func TestDragMovesByPointerDelta(t *testing.T) {
	c, store, _, _ := fixture(t)

	if !c.StartDrag(at(KindDown, 150, 60), 0) {
		t.Fatal("StartDrag returned false")
	}
	if c.State().Mode != Dragging {
		t.Fatalf("mode = %v, want dragging", c.State().Mode)
	}
	if !c.Move(at(KindMove, 250, 160)) {
		t.Fatal("Move returned false")
	}

	o, _ := store.Get(0)
	if !near(o.XPercent, 20) || !near(o.YPercent, 30) {
		t.Errorf("position = (%v, %v), want (20, 30)", o.XPercent, o.YPercent)
	}
	if !near(o.WidthPercent, 20) || !near(o.HeightPercent, 10) {
		t.Errorf("drag changed size to %vx%v", o.WidthPercent, o.HeightPercent)
	}
}

func TestDragIgnoresGrabPoint(t *testing.T) {
	grabs := [][2]float64{{101, 51}, {150, 60}, {299, 99}}
	for _, g := range grabs {
		c, store, _, _ := fixture(t)
		c.StartDrag(at(KindDown, g[0], g[1]), 0)
		c.Move(at(KindMove, g[0]+100, g[1]+100))

		o, _ := store.Get(0)
		if !near(o.XPercent, 20) || !near(o.YPercent, 30) {
			t.Errorf("grab %v: position = (%v, %v), want (20, 30)", g, o.XPercent, o.YPercent)
		}
	}
}

func TestResizeGrowsFromOrigin(t *testing.T) {
	c, store, _, _ := fixture(t)

	c.StartResize(at(KindDown, 300, 100), 0)
	c.Move(at(KindMove, 400, 150))

	o, _ := store.Get(0)
	if !near(o.WidthPercent, 30) || !near(o.HeightPercent, 20) {
		t.Errorf("size = %vx%v, want 30x20", o.WidthPercent, o.HeightPercent)
	}
	if !near(o.XPercent, 10) || !near(o.YPercent, 10) {
		t.Errorf("resize moved overlay to (%v, %v)", o.XPercent, o.YPercent)
	}
}

func TestResizeFloor(t *testing.T) {
	c, store, tr, _ := fixture(t)

	c.StartResize(at(KindDown, 300, 100), 0)
	moves := [][2]float64{{100, 60}, {-500, -500}, {120, 200}, {305, 52}}
	for _, m := range moves {
		c.Move(at(KindMove, m[0], m[1]))
		o, _ := store.Get(0)
		px := o.Rect().ToPixels(tr.Dimensions().Size())
		if px.Width < c.MinSize().Width-epsilon || px.Height < c.MinSize().Height-epsilon {
			t.Errorf("move %v: size %vx%v px is below the floor", m, px.Width, px.Height)
		}
	}

	c.Move(at(KindMove, 0, 0))
	o, _ := store.Get(0)
	if !near(o.WidthPercent, 5) || !near(o.HeightPercent, 5) {
		t.Errorf("collapsed size = %vx%v, want 5x5", o.WidthPercent, o.HeightPercent)
	}
}

func TestSecondStartIgnored(t *testing.T) {
	c, store, _, _ := fixture(t)
	if _, err := store.Add(overlay.Overlay{ID: "other", WidthPercent: 10, HeightPercent: 10}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	c.StartDrag(at(KindDown, 150, 60), 0)
	if c.StartResize(at(KindDown, 10, 10), 1) {
		t.Error("StartResize while dragging returned true")
	}
	if c.StartDrag(at(KindDown, 150, 60), 0) {
		t.Error("StartDrag while dragging returned true")
	}
	s := c.State()
	if s.Mode != Dragging || s.TargetID != "sig" {
		t.Errorf("state = %+v, want dragging sig", s)
	}
}

func TestMoveWhileIdle(t *testing.T) {
	c, store, _, _ := fixture(t)
	before, _ := store.Get(0)

	if c.Move(at(KindMove, 900, 400)) {
		t.Error("Move while idle returned true")
	}
	after, _ := store.Get(0)
	if before.Rect() != after.Rect() {
		t.Errorf("geometry changed while idle: %+v -> %+v", before.Rect(), after.Rect())
	}
}

func TestReleaseKinds(t *testing.T) {
	for _, kind := range []EventKind{KindUp, KindLeave, KindCancel} {
		c, store, _, capture := fixture(t)
		c.StartDrag(at(KindDown, 150, 60), 0)
		c.Move(at(KindMove, 250, 160))
		moved, _ := store.Get(0)

		if !capture.Held() {
			t.Fatalf("%s: capture not held during drag", kind)
		}
		c.Dispatch(at(kind, 0, 0))

		if c.State().Mode != Idle {
			t.Errorf("%s: mode = %v, want idle", kind, c.State().Mode)
		}
		if capture.Held() {
			t.Errorf("%s: capture still held after release", kind)
		}
		after, _ := store.Get(0)
		if after.Rect() != moved.Rect() {
			t.Errorf("%s: release changed geometry", kind)
		}
	}
}

func TestReleaseWhileIdle(t *testing.T) {
	c, _, _, _ := fixture(t)
	if c.Release(at(KindUp, 0, 0)) {
		t.Error("Release while idle returned true")
	}
}

func TestCaptureRoutesMovesOutsideOverlay(t *testing.T) {
	c, store, _, _ := fixture(t)
	c.Dispatch(at(KindDown, 150, 60))
	if c.State().Mode != Dragging {
		t.Fatalf("mode = %v, want dragging", c.State().Mode)
	}

	// Far outside the overlay and the container.
	c.Dispatch(at(KindMove, 1550, 760))
	o, _ := store.Get(0)
	if !near(o.XPercent, 150) || !near(o.YPercent, 150) {
		t.Errorf("position = (%v, %v), want (150, 150)", o.XPercent, o.YPercent)
	}
}

func TestRemovalDuringDragResets(t *testing.T) {
	c, store, _, capture := fixture(t)
	c.StartDrag(at(KindDown, 150, 60), 0)

	if _, err := store.Remove(0); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if c.State().Mode != Idle {
		t.Errorf("mode = %v, want idle", c.State().Mode)
	}
	if capture.Held() {
		t.Error("capture still held after target removal")
	}
	if c.Move(at(KindMove, 500, 500)) {
		t.Error("Move after removal returned true")
	}
}

func TestRemovalOfOtherOverlayKeepsDrag(t *testing.T) {
	c, store, _, _ := fixture(t)
	if _, err := store.Add(overlay.Overlay{ID: "other", WidthPercent: 10, HeightPercent: 10}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	c.StartDrag(at(KindDown, 150, 60), 0)
	if _, err := store.RemoveByID("other"); err != nil {
		t.Fatalf("RemoveByID: %v", err)
	}
	if c.State().Mode != Dragging {
		t.Fatalf("mode = %v, want dragging", c.State().Mode)
	}
	if !c.Move(at(KindMove, 250, 160)) {
		t.Error("Move returned false")
	}
}

func TestMoveReadsCurrentContainer(t *testing.T) {
	c, store, tr, _ := fixture(t)
	c.StartDrag(at(KindDown, 150, 60), 0)

	tr.Resize(tracker.Box{Width: 2000, Height: 1000})
	c.Move(at(KindMove, 250, 160))

	o, _ := store.Get(0)
	if !near(o.XPercent, 10) || !near(o.YPercent, 15) {
		t.Errorf("position = (%v, %v), want (10, 15)", o.XPercent, o.YPercent)
	}
}

func TestUnmeasuredContainerKeepsGeometry(t *testing.T) {
	store := overlay.NewStore(1)
	want := overlay.Overlay{ID: "sig", XPercent: 40, YPercent: 45, WidthPercent: 20, HeightPercent: 10}
	if _, err := store.Add(want); err != nil {
		t.Fatalf("Add: %v", err)
	}
	capture := &Capture{}
	c := New(store, tracker.New(), capture)

	if c.StartResize(at(KindDown, 0, 0), 0) {
		t.Error("StartResize succeeded against a 0x0 container")
	}
	c.Move(at(KindMove, 30, 30))
	if c.StartDrag(at(KindDown, 0, 0), 0) {
		t.Error("StartDrag succeeded against a 0x0 container")
	}
	c.Move(at(KindMove, 30, 30))

	if got, _ := store.Get(0); got != want {
		t.Errorf("overlay = %+v, want %+v", got, want)
	}
	if c.State().Mode != Idle {
		t.Errorf("mode = %v, want idle", c.State().Mode)
	}
	if capture.Held() {
		t.Error("rejected start left the capture held")
	}
}

func TestMoveIgnoredWhenContainerCollapses(t *testing.T) {
	c, store, tr, _ := fixture(t)
	before, _ := store.Get(0)

	c.StartResize(at(KindDown, 300, 100), 0)
	tr.Resize(tracker.Box{})
	if c.Move(at(KindMove, 330, 130)) {
		t.Error("Move wrote geometry against a 0x0 container")
	}
	if got, _ := store.Get(0); got != before {
		t.Errorf("overlay = %+v, want %+v", got, before)
	}
}

func TestDownHitTest(t *testing.T) {
	tests := []struct {
		name string
		x, y float64
		want Mode
	}{
		{"body", 150, 60, Dragging},
		{"handle", 295, 95, Resizing},
		{"miss", 900, 400, Idle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _, _ := fixture(t)
			if got := c.Down(at(KindDown, tt.x, tt.y)); got != tt.want {
				t.Errorf("Down = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDownIgnoresOtherPages(t *testing.T) {
	c, store, _, _ := fixture(t)
	if _, err := store.Add(overlay.Overlay{
		ID: "p1", PageIndex: 1, XPercent: 0, YPercent: 0, WidthPercent: 100, HeightPercent: 100,
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	c.Down(at(KindDown, 150, 60))
	if got := c.State().TargetID; got != "sig" {
		t.Errorf("target = %q, want sig", got)
	}
}

func TestStateListener(t *testing.T) {
	store := overlay.NewStore(1)
	if _, err := store.Add(overlay.Overlay{WidthPercent: 10, HeightPercent: 10}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	tr := tracker.New()
	tr.Observe(tracker.Fixed{Width: 100, Height: 100})

	var modes []Mode
	c := New(store, tr, nil, WithStateListener(func(s State) { modes = append(modes, s.Mode) }))
	c.StartResize(at(KindDown, 5, 5), 0)
	c.Move(at(KindMove, 6, 6))
	c.Release(at(KindUp, 6, 6))

	if len(modes) != 2 || modes[0] != Resizing || modes[1] != Idle {
		t.Errorf("transitions = %v, want [resizing idle]", modes)
	}
}

func TestCaptureAcquire(t *testing.T) {
	var capture Capture
	c1, _, _, _ := fixture(t)
	c2, _, _, _ := fixture(t)

	release, ok := capture.Acquire(c1)
	if !ok {
		t.Fatal("first Acquire failed")
	}
	if _, ok := capture.Acquire(c2); ok {
		t.Error("second Acquire succeeded while held")
	}
	release()
	release()
	if capture.Held() {
		t.Error("capture held after release")
	}

	release2, ok := capture.Acquire(c2)
	if !ok {
		t.Fatal("Acquire after release failed")
	}
	release()
	if !capture.Held() {
		t.Error("stale release dropped a newer acquisition")
	}
	release2()
}
