package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/sigplace/internal/embed"
	"github.com/ziadkadry99/sigplace/internal/fields"
	"github.com/ziadkadry99/sigplace/internal/geometry"
	"github.com/ziadkadry99/sigplace/internal/interaction"
	"github.com/ziadkadry99/sigplace/internal/overlay"
)

// DefaultMaxUpload bounds request bodies when no limit is configured.
const DefaultMaxUpload = 32 << 20

// RegisterRoutes mounts session endpoints under /api/sessions on the given
// router.
func RegisterRoutes(r chi.Router, m *Manager, maxUpload int64) {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", handleCreate(m, maxUpload))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handleGet(m))
			r.Delete("/", handleDelete(m))
			r.Get("/pages", handlePages(m))
			r.Get("/pages/{page}/fields", handleFields(m))
			r.Get("/pages/{page}/preview.png", handlePreview(m))
			r.Get("/overlays", handleListOverlays(m))
			r.Post("/overlays", handleAddOverlay(m, maxUpload))
			r.Patch("/overlays/{oid}", handleUpdateOverlay(m))
			r.Delete("/overlays/{oid}", handleRemoveOverlay(m))
			r.Get("/overlays/{oid}/image", handleOverlayImage(m))
			r.Post("/reset", handleReset(m))
			r.Post("/commit", handleCommit(m))
			r.Get("/ws", handleWebSocket(m))
		})
	})
}

type summary struct {
	ID       string            `json:"id"`
	Pages    []PageInfo        `json:"pages"`
	Overlays []overlay.Overlay `json:"overlays"`
	State    interaction.State `json:"state"`
}

func handleCreate(m *Manager, maxUpload int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := readUpload(w, r, "file", maxUpload)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s, err := m.Create(data)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		writeJSON(w, http.StatusCreated, summary{ID: s.ID, Pages: s.Pages(), Overlays: s.Overlays(-1), State: s.State()})
	}
}

func handleGet(m *Manager) http.HandlerFunc {
	return withSession(m, func(w http.ResponseWriter, r *http.Request, s *Session) {
		writeJSON(w, http.StatusOK, summary{ID: s.ID, Pages: s.Pages(), Overlays: s.Overlays(-1), State: s.State()})
	})
}

func handleDelete(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := m.Delete(chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handlePages(m *Manager) http.HandlerFunc {
	return withSession(m, func(w http.ResponseWriter, r *http.Request, s *Session) {
		writeJSON(w, http.StatusOK, s.Pages())
	})
}

func handleFields(m *Manager) http.HandlerFunc {
	return withSession(m, func(w http.ResponseWriter, r *http.Request, s *Session) {
		page, ok := pageParam(w, r)
		if !ok {
			return
		}
		projections, err := s.Fields(r.Context(), page)
		if err != nil {
			writeError(w, err)
			return
		}
		if projections == nil {
			projections = []fields.Projection{}
		}
		writeJSON(w, http.StatusOK, projections)
	})
}

func handlePreview(m *Manager) http.HandlerFunc {
	return withSession(m, func(w http.ResponseWriter, r *http.Request, s *Session) {
		page, ok := pageParam(w, r)
		if !ok {
			return
		}
		png, err := s.Preview(r.Context(), page, r.URL.Query().Get("fields") != "false")
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.Write(png)
	})
}

func handleListOverlays(m *Manager) http.HandlerFunc {
	return withSession(m, func(w http.ResponseWriter, r *http.Request, s *Session) {
		page := -1
		if v := r.URL.Query().Get("page"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				http.Error(w, "invalid page", http.StatusBadRequest)
				return
			}
			page = n
		}
		writeJSON(w, http.StatusOK, nonNil(s.Overlays(page)))
	})
}

func handleAddOverlay(m *Manager, maxUpload int64) http.HandlerFunc {
	return withSession(m, func(w http.ResponseWriter, r *http.Request, s *Session) {
		img, err := readUpload(w, r, "image", maxUpload)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		p, err := parsePlacement(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		o, err := s.AddOverlay(r.Context(), img, p)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, o)
	})
}

// geometryPatch is the JSON body of an overlay update. Omitted values are
// left unchanged.
type geometryPatch struct {
	XPercent      *float64 `json:"x_percent"`
	YPercent      *float64 `json:"y_percent"`
	WidthPercent  *float64 `json:"width_percent"`
	HeightPercent *float64 `json:"height_percent"`
}

func handleUpdateOverlay(m *Manager) http.HandlerFunc {
	return withSession(m, func(w http.ResponseWriter, r *http.Request, s *Session) {
		var body geometryPatch
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		o, err := s.UpdateOverlay(chi.URLParam(r, "oid"), overlay.Patch(body))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	})
}

func handleRemoveOverlay(m *Manager) http.HandlerFunc {
	return withSession(m, func(w http.ResponseWriter, r *http.Request, s *Session) {
		if err := s.RemoveOverlay(chi.URLParam(r, "oid")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func handleOverlayImage(m *Manager) http.HandlerFunc {
	return withSession(m, func(w http.ResponseWriter, r *http.Request, s *Session) {
		blob, err := s.OverlayImage(chi.URLParam(r, "oid"))
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", blob.ContentType)
		w.Header().Set("ETag", `"`+blob.Digest()+`"`)
		w.Write(blob.Data)
	})
}

func handleReset(m *Manager) http.HandlerFunc {
	return withSession(m, func(w http.ResponseWriter, r *http.Request, s *Session) {
		s.Reset()
		w.WriteHeader(http.StatusNoContent)
	})
}

// skipJSON is embed.Skip with its error as text.
type skipJSON struct {
	OverlayID string `json:"overlay_id"`
	PageIndex int    `json:"page_index"`
	Reason    string `json:"reason"`
}

type commitResponse struct {
	Embedded []string   `json:"embedded"`
	Skipped  []skipJSON `json:"skipped"`
	PDF      []byte     `json:"pdf,omitempty"`
}

func newCommitResponse(report embed.Report, pdf []byte) commitResponse {
	resp := commitResponse{Embedded: report.Embedded, Skipped: []skipJSON{}, PDF: pdf}
	if resp.Embedded == nil {
		resp.Embedded = []string{}
	}
	for _, sk := range report.Skipped {
		resp.Skipped = append(resp.Skipped, skipJSON{OverlayID: sk.OverlayID, PageIndex: sk.PageIndex, Reason: sk.Reason()})
	}
	return resp
}

// handleCommit returns the stamped PDF. With ?format=json the report and the
// base64 PDF are returned as JSON instead.
func handleCommit(m *Manager) http.HandlerFunc {
	return withSession(m, func(w http.ResponseWriter, r *http.Request, s *Session) {
		report, pdf, err := s.Commit(r.Context(), nil)
		if err != nil {
			writeError(w, err)
			return
		}
		if r.URL.Query().Get("format") == "json" {
			writeJSON(w, http.StatusOK, newCommitResponse(report, pdf))
			return
		}

		skipped := make([]string, 0, len(report.Skipped))
		for _, sk := range report.Skipped {
			skipped = append(skipped, sk.OverlayID)
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="signed.pdf"`)
		w.Header().Set("X-Sigplace-Embedded", strconv.Itoa(len(report.Embedded)))
		w.Header().Set("X-Sigplace-Skipped", strings.Join(skipped, ","))
		w.WriteHeader(http.StatusOK)
		w.Write(pdf)
	})
}

func withSession(m *Manager, fn func(http.ResponseWriter, *http.Request, *Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := m.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		fn(w, r, s)
	}
}

func pageParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil {
		http.Error(w, "invalid page", http.StatusBadRequest)
		return 0, false
	}
	return page, true
}

// readUpload returns the multipart file named field, or the raw body when
// the request is not multipart.
func readUpload(w http.ResponseWriter, r *http.Request, field string, maxUpload int64) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUpload); err != nil {
			return nil, fmt.Errorf("parsing upload: %w", err)
		}
		f, _, err := r.FormFile(field)
		if err != nil {
			return nil, fmt.Errorf("missing %q upload", field)
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty body")
	}
	return data, nil
}

// parsePlacement reads page, field and x/y/width/height from the form or
// query string. The four rect values must be given together.
func parsePlacement(r *http.Request) (Placement, error) {
	var p Placement
	if v := r.FormValue("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, errors.New("invalid page")
		}
		p.PageIndex = n
	}
	p.Field = r.FormValue("field")

	keys := []string{"x", "y", "width", "height"}
	var vals [4]float64
	given := 0
	for i, k := range keys {
		v := r.FormValue(k)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return p, fmt.Errorf("invalid %s", k)
		}
		vals[i] = f
		given++
	}
	switch given {
	case 0:
	case 4:
		p.Rect = &geometry.PercentRect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}
	default:
		return p, errors.New("x, y, width and height must be given together")
	}
	return p, nil
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, overlay.ErrNotFound), errors.Is(err, ErrFieldNotFound):
		status = http.StatusNotFound
	case errors.Is(err, overlay.ErrPageOutOfRange), errors.Is(err, overlay.ErrInvalidGeometry), errors.Is(err, ErrBadImage):
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}

func nonNil(o []overlay.Overlay) []overlay.Overlay {
	if o == nil {
		return []overlay.Overlay{}
	}
	return o
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
