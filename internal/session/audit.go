package session

import (
	"context"
	"fmt"
	"log"

	"github.com/ziadkadry99/sigplace/internal/audit"
	"github.com/ziadkadry99/sigplace/internal/geometry"
	"github.com/ziadkadry99/sigplace/internal/interaction"
	"github.com/ziadkadry99/sigplace/internal/overlay"
)

// gesture remembers an overlay as it was when a drag or resize began.
type gesture struct {
	mode  interaction.Mode
	start overlay.Overlay
}

func rectValue(r geometry.PercentRect) string {
	return fmt.Sprintf("%.2f,%.2f %.2fx%.2f", r.X, r.Y, r.Width, r.Height)
}

func record(store *audit.Store, e audit.Entry) {
	if store == nil {
		return
	}
	if e.ActorType == "" {
		e.ActorType = audit.ActorUser
	}
	if err := store.Log(context.Background(), e); err != nil {
		log.Printf("session: audit %s for %s: %v", e.Action, e.SessionID, err)
	}
}

func (s *Session) record(e audit.Entry) {
	e.SessionID = s.ID
	record(s.opts.Audit, e)
}

// trackGesture records a finished drag or resize as one audit entry. Callers
// hold s.mu.
func (s *Session) trackGesture(st interaction.State) {
	if st.Mode != interaction.Idle {
		if o, ok := s.store.Get(s.store.IndexOf(st.TargetID)); ok {
			s.gesture = &gesture{mode: st.Mode, start: o}
		}
		return
	}

	g := s.gesture
	s.gesture = nil
	if g == nil {
		return
	}
	o, ok := s.store.Get(s.store.IndexOf(g.start.ID))
	if !ok || o.Rect() == g.start.Rect() {
		return
	}
	action, summary := audit.ActionOverlayMoved, "Dragged overlay"
	if g.mode == interaction.Resizing {
		action, summary = audit.ActionOverlayResized, "Resized overlay"
	}
	s.record(audit.Entry{
		Action:        action,
		OverlayID:     o.ID,
		Summary:       fmt.Sprintf("%s on page %d", summary, o.PageIndex+1),
		PreviousValue: rectValue(g.start.Rect()),
		NewValue:      rectValue(o.Rect()),
	})
}
