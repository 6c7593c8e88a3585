// Package session ties one uploaded document to its overlay store, container
// tracker and interaction controller, and serves them over HTTP and
// WebSocket.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ziadkadry99/sigplace/internal/audit"
	"github.com/ziadkadry99/sigplace/internal/embed"
	"github.com/ziadkadry99/sigplace/internal/fields"
	"github.com/ziadkadry99/sigplace/internal/geometry"
	"github.com/ziadkadry99/sigplace/internal/imaging"
	"github.com/ziadkadry99/sigplace/internal/interaction"
	"github.com/ziadkadry99/sigplace/internal/overlay"
	"github.com/ziadkadry99/sigplace/internal/pdfdoc"
	"github.com/ziadkadry99/sigplace/internal/preview"
	"github.com/ziadkadry99/sigplace/internal/tracker"
)

var (
	// ErrNotFound is returned for an unknown session ID.
	ErrNotFound = errors.New("session not found")
	// ErrFieldNotFound is returned when a placement names a field the document lacks.
	ErrFieldNotFound = errors.New("field not found")
	// ErrBadImage is returned for signature data that is not a supported image.
	ErrBadImage = errors.New("unsupported signature image")
)

// Default placement of a new overlay, in percent of the page.
const (
	DefaultWidthPercent  = 20.0
	DefaultHeightPercent = 10.0
)

// Options tune every session a Manager creates.
type Options struct {
	MinSize geometry.Size
	// HandleSize is the side of the resize handle in pixels; zero keeps
	// the controller default.
	HandleSize float64
	PreviewDPI float64
	Density    float64
	// Audit receives a trail of state changes. Nil disables auditing.
	Audit *audit.Store
}

// PageInfo describes one page.
type PageInfo struct {
	Index  int     `json:"index"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Placement says where a new overlay goes. Field wins over Rect; with
// neither, the overlay is centred on PageIndex at the default size.
type Placement struct {
	PageIndex int
	Rect      *geometry.PercentRect
	Field     string
}

// PointerResult is the outcome of one pointer event.
type PointerResult struct {
	Changed     bool                `json:"changed"`
	Transitions []interaction.State `json:"transitions,omitempty"`
}

// Session is one document being signed. All methods are safe for concurrent
// use; calls into the geometry core are serialized.
type Session struct {
	ID        string
	CreatedAt time.Time

	lastUsed atomic.Int64

	mu       sync.Mutex
	original []byte
	doc      *pdfdoc.Document
	opts     Options
	store    *overlay.Store
	tracker  *tracker.Tracker
	feed     *tracker.Feed
	release  func()
	ctrl     *interaction.Controller
	mapper   fields.Mapper
	renderer *preview.Renderer
	pending  []interaction.State
	gesture  *gesture
	// owner names the connection whose pointer events started the active
	// interaction.
	owner    string
	watchers map[int]func(interaction.State)
	nextWID  int
}

func newSession(id string, data []byte, opts Options) (*Session, error) {
	doc, err := pdfdoc.Open(data, pdfdoc.WithDensity(opts.Density))
	if err != nil {
		return nil, err
	}
	if doc.PageCount() == 0 {
		return nil, errors.New("document has no pages")
	}

	s := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		original:  data,
		doc:       doc,
		opts:      opts,
		store:     overlay.NewStore(doc.PageCount()),
		tracker:   tracker.New(),
		feed:      tracker.NewFeed(tracker.Box{}),
		mapper:    fields.Mapper{Source: doc, Pages: doc},
		renderer:  preview.NewRenderer(preview.BlankRaster{Pages: doc, DPI: opts.PreviewDPI}),
	}
	s.release = s.tracker.Observe(s.feed)

	ctrlOpts := []interaction.Option{
		interaction.WithStateListener(func(st interaction.State) { s.pending = append(s.pending, st) }),
	}
	if !opts.MinSize.IsZero() {
		ctrlOpts = append(ctrlOpts, interaction.WithMinSize(opts.MinSize))
	}
	if opts.HandleSize > 0 {
		ctrlOpts = append(ctrlOpts, interaction.WithHandleSize(opts.HandleSize))
	}
	s.ctrl = interaction.New(s.store, s.tracker, nil, ctrlOpts...)
	s.touch()
	return s, nil
}

func (s *Session) touch() { s.lastUsed.Store(time.Now().UnixNano()) }

// LastUsed returns the time of the most recent call into the session.
func (s *Session) LastUsed() time.Time { return time.Unix(0, s.lastUsed.Load()) }

// Close stops container observation.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release()
}

// Pages lists every page with its size in points.
func (s *Session) Pages() []PageInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PageInfo, 0, s.doc.PageCount())
	for i := 0; i < s.doc.PageCount(); i++ {
		size, err := s.doc.PageSize(i)
		if err != nil {
			continue
		}
		out = append(out, PageInfo{Index: i, Width: size.Width, Height: size.Height})
	}
	return out
}

// PageCount returns the number of pages.
func (s *Session) PageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.PageCount()
}

// Fields returns the field projections for a page.
func (s *Session) Fields(ctx context.Context, pageIndex int) ([]fields.Projection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if err := s.checkPage(pageIndex); err != nil {
		return nil, err
	}
	return s.mapper.ForPage(ctx, pageIndex)
}

// AddOverlay stores a new overlay carrying img.
func (s *Session) AddOverlay(ctx context.Context, img []byte, p Placement) (overlay.Overlay, error) {
	format, _, err := imaging.Sniff(img)
	if err != nil {
		return overlay.Overlay{}, fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	blob := overlay.NewBlob(img, imaging.ContentType(format))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	var o overlay.Overlay
	switch {
	case p.Field != "":
		proj, ok, err := s.mapper.Find(ctx, p.Field)
		if err != nil {
			return overlay.Overlay{}, err
		}
		if !ok {
			return overlay.Overlay{}, fmt.Errorf("%q: %w", p.Field, ErrFieldNotFound)
		}
		o = proj.Overlay(blob)
	case p.Rect != nil:
		o = overlay.Overlay{
			Image:         blob,
			PageIndex:     p.PageIndex,
			XPercent:      p.Rect.X,
			YPercent:      p.Rect.Y,
			WidthPercent:  p.Rect.Width,
			HeightPercent: p.Rect.Height,
		}
	default:
		o = overlay.Overlay{
			Image:         blob,
			PageIndex:     p.PageIndex,
			XPercent:      (100 - DefaultWidthPercent) / 2,
			YPercent:      (100 - DefaultHeightPercent) / 2,
			WidthPercent:  DefaultWidthPercent,
			HeightPercent: DefaultHeightPercent,
		}
	}
	added, err := s.store.Add(o)
	if err != nil {
		return added, err
	}
	entry := audit.Entry{
		Action:    audit.ActionOverlayAdded,
		OverlayID: added.ID,
		Summary:   fmt.Sprintf("Placed %s signature on page %d", format, added.PageIndex+1),
		NewValue:  rectValue(added.Rect()),
	}
	if p.Field != "" {
		entry.Detail = "field " + p.Field
	}
	s.record(entry)
	return added, nil
}

// UpdateOverlay replaces the geometry of the overlay with the given ID.
func (s *Session) UpdateOverlay(id string, patch overlay.Patch) (overlay.Overlay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	i := s.store.IndexOf(id)
	if i < 0 {
		return overlay.Overlay{}, fmt.Errorf("overlay %s: %w", id, overlay.ErrNotFound)
	}
	before, _ := s.store.Get(i)
	if err := s.store.UpdateGeometry(i, patch); err != nil {
		return overlay.Overlay{}, err
	}
	o, _ := s.store.Get(i)
	s.record(audit.Entry{
		Action:        audit.ActionOverlayUpdated,
		OverlayID:     id,
		Summary:       fmt.Sprintf("Updated overlay geometry on page %d", o.PageIndex+1),
		PreviousValue: rectValue(before.Rect()),
		NewValue:      rectValue(o.Rect()),
	})
	return o, nil
}

// RemoveOverlay deletes an overlay. An interaction targeting it ends and
// watchers are told.
func (s *Session) RemoveOverlay(id string) error {
	s.mu.Lock()
	s.touch()
	removed, err := s.store.RemoveByID(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.record(audit.Entry{
		Action:        audit.ActionOverlayRemoved,
		OverlayID:     id,
		Summary:       fmt.Sprintf("Removed overlay from page %d", removed.PageIndex+1),
		PreviousValue: rectValue(removed.Rect()),
	})
	s.unlockAndNotify()
	return nil
}

// OverlayImage returns the encoded image of an overlay.
func (s *Session) OverlayImage(id string) (*overlay.Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.store.IndexOf(id)
	o, ok := s.store.Get(i)
	if !ok {
		return nil, fmt.Errorf("overlay %s: %w", id, overlay.ErrNotFound)
	}
	return o.Image, nil
}

// Reset removes every overlay, ending any active interaction.
func (s *Session) Reset() {
	s.mu.Lock()
	s.touch()
	n := s.store.Len()
	s.store.Reset()
	s.record(audit.Entry{
		Action:  audit.ActionOverlaysReset,
		Summary: fmt.Sprintf("Removed %d overlay(s)", n),
	})
	s.unlockAndNotify()
}

// Overlays returns the overlays on pageIndex, or all overlays when pageIndex
// is negative.
func (s *Session) Overlays(pageIndex int) []overlay.Overlay {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pageIndex < 0 {
		return s.store.All()
	}
	return s.store.ForPage(pageIndex)
}

// Resize records a new container box.
func (s *Session) Resize(b tracker.Box) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.feed.Push(b)
}

// SetPage switches the viewed page.
func (s *Session) SetPage(pageIndex int, b tracker.Box) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if err := s.checkPage(pageIndex); err != nil {
		return err
	}
	s.tracker.SetPage(pageIndex, b)
	return nil
}

// Page returns the viewed page and the current container box.
func (s *Session) Page() (int, tracker.Box) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Page(), s.tracker.Dimensions()
}

// Pointer feeds one pointer event through the interaction controller.
// owner is an opaque token for the connection the event came from. While
// an interaction is active, events from any other owner are ignored.
func (s *Session) Pointer(owner string, ev interaction.Event) PointerResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	active := s.ctrl.State().Mode != interaction.Idle
	if active && owner != s.owner {
		return PointerResult{}
	}
	s.ctrl.Dispatch(ev)
	return PointerResult{
		Changed:     active && ev.Kind == interaction.KindMove,
		Transitions: s.settle(owner),
	}
}

// CancelFor ends the active interaction if owner started it, reporting
// whether it did. Watchers see the transition.
func (s *Session) CancelFor(owner string) bool {
	s.mu.Lock()
	if s.ctrl.State().Mode == interaction.Idle || owner != s.owner {
		s.mu.Unlock()
		return false
	}
	s.ctrl.Dispatch(interaction.Event{Kind: interaction.KindCancel})
	s.unlockAndNotify()
	return true
}

// Watch registers fn for interaction transitions that no Pointer call
// returns: a drag ended by removing its overlay, a reset or a cancel on
// another connection's behalf. fn runs without the session lock held. The
// returned function removes the registration.
func (s *Session) Watch(fn func(interaction.State)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watchers == nil {
		s.watchers = make(map[int]func(interaction.State))
	}
	id := s.nextWID
	s.nextWID++
	s.watchers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers, id)
	}
}

// settle audits the queued transitions, records which owner holds the
// interaction and returns them. Callers hold s.mu.
func (s *Session) settle(owner string) []interaction.State {
	states := s.pending
	s.pending = nil
	for _, st := range states {
		s.trackGesture(st)
		if st.Mode == interaction.Idle {
			s.owner = ""
		} else {
			s.owner = owner
		}
	}
	return states
}

// unlockAndNotify settles the transitions queued under s.mu, releases it
// and passes them to every watcher.
func (s *Session) unlockAndNotify() {
	states := s.settle("")
	var fns []func(interaction.State)
	if len(states) > 0 {
		for _, fn := range s.watchers {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()
	for _, st := range states {
		for _, fn := range fns {
			fn(st)
		}
	}
}

// State returns the interaction state.
func (s *Session) State() interaction.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.State()
}

// Preview renders a page with its fields and overlays as PNG.
func (s *Session) Preview(ctx context.Context, pageIndex int, withFields bool) ([]byte, error) {
	s.mu.Lock()
	if err := s.checkPage(pageIndex); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	overlays := s.store.ForPage(pageIndex)
	s.mu.Unlock()
	s.touch()

	var outliner preview.FieldOutliner
	if withFields {
		outliner = lockedOutlines{s}
	}
	return s.renderer.RenderPNG(ctx, pageIndex, overlays, outliner)
}

// lockedOutlines reads the session's fields under its lock while a preview
// renders outside it.
type lockedOutlines struct{ s *Session }

func (l lockedOutlines) Outlines(ctx context.Context, pageIndex int, raster geometry.Size) ([]fields.Outline, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.s.mapper.Outlines(ctx, pageIndex, raster)
}

// Commit stamps a snapshot of every overlay onto a fresh copy of the
// uploaded document and returns the result. The session keeps its overlays,
// so a commit can be repeated after further edits.
func (s *Session) Commit(ctx context.Context, progress func(done, total int)) (embed.Report, []byte, error) {
	s.mu.Lock()
	overlays := s.store.All()
	original := s.original
	density := s.opts.Density
	s.mu.Unlock()
	s.touch()

	out, err := pdfdoc.Open(original, pdfdoc.WithDensity(density))
	if err != nil {
		return embed.Report{}, nil, err
	}
	p := &embed.Pipeline{Doc: out, Drawer: out, Progress: progress}
	report, err := p.Commit(ctx, overlays)
	if err != nil {
		return report, nil, err
	}
	s.record(audit.Entry{
		Action:  audit.ActionCommitted,
		Summary: fmt.Sprintf("Embedded %d overlay(s), skipped %d", len(report.Embedded), len(report.Skipped)),
	})
	return report, out.Bytes(), nil
}

func (s *Session) checkPage(pageIndex int) error {
	if pageIndex < 0 || pageIndex >= s.doc.PageCount() {
		return fmt.Errorf("page %d of %d: %w", pageIndex, s.doc.PageCount(), overlay.ErrPageOutOfRange)
	}
	return nil
}
