package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(10)
}

func TestLogAndGetByID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	entry := Entry{
		ID:            "test-1",
		ActorType:     ActorUser,
		Action:        ActionOverlayMoved,
		SessionID:     "sess-1",
		OverlayID:     "ov-1",
		Summary:       "Moved overlay",
		PreviousValue: "40,45 20x10",
		NewValue:      "50,55 20x10",
	}

	if err := store.Log(ctx, entry); err != nil {
		t.Fatalf("Log: %v", err)
	}

	got, err := store.GetByID(ctx, "test-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	if got.Action != ActionOverlayMoved {
		t.Errorf("Action = %q, want %q", got.Action, ActionOverlayMoved)
	}
	if got.SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want %q", got.SessionID, "sess-1")
	}
	if got.OverlayID != "ov-1" {
		t.Errorf("OverlayID = %q, want %q", got.OverlayID, "ov-1")
	}
	if got.NewValue != "50,55 20x10" {
		t.Errorf("NewValue = %q, want %q", got.NewValue, "50,55 20x10")
	}
	if got.Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestLogGeneratesUUID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if err := store.Log(ctx, Entry{
		ActorType: ActorSystem,
		Action:    ActionSessionEvicted,
		SessionID: "sess-1",
	}); err != nil {
		t.Fatalf("Log: %v", err)
	}

	entries, err := store.Query(ctx, QueryFilter{ActorType: ActorSystem})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].ID == "" {
		t.Error("expected generated ID, got empty string")
	}
}

func TestLogCancelledContext(t *testing.T) {
	store := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Log(ctx, Entry{Action: ActionCommitted}); !errors.Is(err, context.Canceled) {
		t.Errorf("Log err = %v, want context.Canceled", err)
	}
	if store.Len() != 0 {
		t.Errorf("Len = %d after cancelled log", store.Len())
	}
}

func TestQueryFilters(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	seed := []Entry{
		{ActorType: ActorUser, Action: ActionOverlayAdded, SessionID: "a", OverlayID: "1"},
		{ActorType: ActorUser, Action: ActionOverlayMoved, SessionID: "a", OverlayID: "1"},
		{ActorType: ActorUser, Action: ActionOverlayAdded, SessionID: "b", OverlayID: "2"},
		{ActorType: ActorSystem, Action: ActionSessionEvicted, SessionID: "b"},
	}
	for _, e := range seed {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter QueryFilter
		want   int
	}{
		{"all", QueryFilter{}, 4},
		{"session", QueryFilter{SessionID: "a"}, 2},
		{"overlay", QueryFilter{OverlayID: "2"}, 1},
		{"action", QueryFilter{Action: ActionOverlayAdded}, 2},
		{"actor", QueryFilter{ActorType: ActorSystem}, 1},
		{"combined", QueryFilter{SessionID: "b", Action: ActionOverlayAdded}, 1},
		{"no match", QueryFilter{SessionID: "c"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(entries) != tt.want {
				t.Errorf("got %d entries, want %d", len(entries), tt.want)
			}
		})
	}
}

func TestQueryTimeRange(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if err := store.Log(ctx, Entry{
			Action:    ActionOverlayUpdated,
			SessionID: "a",
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		}); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	since := base.Add(30 * time.Minute)
	until := base.Add(90 * time.Minute)
	entries, err := store.Query(ctx, QueryFilter{Since: &since, Until: &until})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 || !entries[0].Timestamp.Equal(base.Add(time.Hour)) {
		t.Errorf("entries = %+v, want the one at 13:00", entries)
	}
}

func TestQueryNewestFirstLimitOffset(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := store.Log(ctx, Entry{ID: fmt.Sprintf("e%d", i), Action: ActionOverlayUpdated}); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	entries, err := store.Query(ctx, QueryFilter{Limit: 2})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != "e4" || entries[1].ID != "e3" {
		t.Errorf("limit 2 = %v, want [e4 e3]", ids(entries))
	}

	entries, err = store.Query(ctx, QueryFilter{Limit: 2, Offset: 3})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != "e1" || entries[1].ID != "e0" {
		t.Errorf("offset 3 = %v, want [e1 e0]", ids(entries))
	}
}

func TestCapacityDropsOldest(t *testing.T) {
	store := NewStore(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := store.Log(ctx, Entry{ID: fmt.Sprintf("e%d", i)}); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	if store.Len() != 3 {
		t.Errorf("Len = %d, want 3", store.Len())
	}
	entries, _ := store.Query(ctx, QueryFilter{})
	if got := ids(entries); len(got) != 3 || got[0] != "e4" || got[2] != "e2" {
		t.Errorf("entries = %v, want [e4 e3 e2]", got)
	}
	if _, err := store.GetByID(ctx, "e0"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID(e0) err = %v, want ErrNotFound", err)
	}
}

func TestDeleteSession(t *testing.T) {
	store := NewStore(4)
	ctx := context.Background()

	// Wrap the ring once so deletion has to unroll it.
	for i, sid := range []string{"a", "b", "a", "b", "a", "b"} {
		if err := store.Log(ctx, Entry{ID: fmt.Sprintf("e%d", i), SessionID: sid}); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	removed, err := store.DeleteSession(ctx, "a")
	if err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed %d, want 2", removed)
	}
	if store.Len() != 2 {
		t.Errorf("Len = %d, want 2", store.Len())
	}

	if err := store.Log(ctx, Entry{ID: "e6", SessionID: "c"}); err != nil {
		t.Fatalf("Log: %v", err)
	}
	entries, _ := store.Query(ctx, QueryFilter{})
	if got := ids(entries); len(got) != 3 || got[0] != "e6" || got[1] != "e5" || got[2] != "e3" {
		t.Errorf("entries = %v, want [e6 e5 e3]", got)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.GetByID(ctx, "nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

// --- HTTP handler tests ---

func setupRouter(t *testing.T) (chi.Router, *Store) {
	t.Helper()
	store := setupStore(t)
	r := chi.NewRouter()
	RegisterRoutes(r, store)
	return r, store
}

func TestHTTPGetByID(t *testing.T) {
	r, store := setupRouter(t)
	ctx := context.Background()

	entry := Entry{
		ID:        "http-1",
		ActorType: ActorUser,
		Action:    ActionCommitted,
		SessionID: "sess-1",
		Summary:   "Embedded 2 overlays",
	}
	if err := store.Log(ctx, entry); err != nil {
		t.Fatalf("Log: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/audit/http-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var got Entry
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != "http-1" {
		t.Errorf("ID = %q, want %q", got.ID, "http-1")
	}
	if got.Summary != "Embedded 2 overlays" {
		t.Errorf("Summary = %q", got.Summary)
	}
}

func TestHTTPGetByIDNotFound(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/audit/missing", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHTTPQueryEmpty(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/audit", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("body = %q, want an empty JSON array", body)
	}
}

func TestHTTPQueryWithFilter(t *testing.T) {
	r, store := setupRouter(t)
	ctx := context.Background()

	for _, sid := range []string{"a", "b", "a"} {
		if err := store.Log(ctx, Entry{
			ActorType: ActorUser,
			Action:    ActionOverlayAdded,
			SessionID: sid,
		}); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/audit?session=a&action=overlay_added&limit=10", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var entries []Entry
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries for session a, got %d", len(entries))
	}
}
