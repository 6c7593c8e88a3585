// Package dashboard serves the browser placement page and session statistics.
package dashboard

import (
	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/sigplace/internal/audit"
	"github.com/ziadkadry99/sigplace/internal/session"
)

// Dashboard provides the placement UI and an overview of live sessions.
type Dashboard struct {
	sessions *session.Manager
	trail    *audit.Store
}

// New creates a new Dashboard. trail may be nil, in which case no recent
// activity is reported.
func New(sessions *session.Manager, trail *audit.Store) *Dashboard {
	return &Dashboard{sessions: sessions, trail: trail}
}

// RegisterRoutes mounts all dashboard routes onto the given router.
func (d *Dashboard) RegisterRoutes(r chi.Router) {
	r.Get("/", d.ServeIndex)
	r.Get("/api/dashboard/stats", d.handleStats)
	r.Get("/api/dashboard/recent", d.handleRecent)
}
