// Package audit keeps a bounded in-memory trail of what happened to each
// signing session: uploads, overlay placements and edits, commits.
package audit

import "time"

// ActorType identifies who performed an action.
type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorSystem ActorType = "system"
)

// Action describes what was done.
type Action string

const (
	ActionSessionCreated Action = "session_created"
	ActionSessionDeleted Action = "session_deleted"
	ActionSessionEvicted Action = "session_evicted"
	ActionOverlayAdded   Action = "overlay_added"
	ActionOverlayUpdated Action = "overlay_updated"
	ActionOverlayMoved   Action = "overlay_moved"
	ActionOverlayResized Action = "overlay_resized"
	ActionOverlayRemoved Action = "overlay_removed"
	ActionOverlaysReset  Action = "overlays_reset"
	ActionCommitted      Action = "committed"
)

// Entry is a single audit trail record. PreviousValue and NewValue hold the
// overlay rectangle before and after a geometry change.
type Entry struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	ActorType     ActorType `json:"actor_type"`
	Action        Action    `json:"action"`
	SessionID     string    `json:"session_id"`
	OverlayID     string    `json:"overlay_id,omitempty"`
	Summary       string    `json:"summary"`
	Detail        string    `json:"detail,omitempty"`
	PreviousValue string    `json:"previous_value,omitempty"`
	NewValue      string    `json:"new_value,omitempty"`
}
