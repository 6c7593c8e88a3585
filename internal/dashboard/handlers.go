package dashboard

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/ziadkadry99/sigplace/internal/audit"
	"github.com/ziadkadry99/sigplace/internal/interaction"
)

// statsResponse is the JSON response for the stats endpoint.
type statsResponse struct {
	TotalSessions      int `json:"total_sessions"`
	TotalOverlays      int `json:"total_overlays"`
	ActiveInteractions int `json:"active_interactions"`
}

// sessionSummary describes one live session.
type sessionSummary struct {
	ID       string           `json:"id"`
	Pages    int              `json:"pages"`
	Overlays int              `json:"overlays"`
	Mode     interaction.Mode `json:"mode"`
	LastUsed time.Time        `json:"last_used"`
}

// recentResponse is the JSON response for the recent activity endpoint.
type recentResponse struct {
	Sessions []sessionSummary `json:"sessions"`
	Activity []audit.Entry    `json:"activity"`
}

func (d *Dashboard) handleStats(w http.ResponseWriter, r *http.Request) {
	var stats statsResponse
	for _, s := range d.sessions.List() {
		stats.TotalSessions++
		stats.TotalOverlays += len(s.Overlays(-1))
		if s.State().Mode != interaction.Idle {
			stats.ActiveInteractions++
		}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (d *Dashboard) handleRecent(w http.ResponseWriter, r *http.Request) {
	all := d.sessions.List()
	summaries := make([]sessionSummary, 0, len(all))
	for _, s := range all {
		summaries = append(summaries, sessionSummary{
			ID:       s.ID,
			Pages:    s.PageCount(),
			Overlays: len(s.Overlays(-1)),
			Mode:     s.State().Mode,
			LastUsed: s.LastUsed(),
		})
	}

	// Most recently used first, limited to 10.
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastUsed.After(summaries[j].LastUsed)
	})
	if len(summaries) > 10 {
		summaries = summaries[:10]
	}

	resp := recentResponse{Sessions: summaries, Activity: []audit.Entry{}}
	if d.trail != nil {
		activity, err := d.trail.Query(r.Context(), audit.QueryFilter{Limit: 20})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		resp.Activity = activity
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
