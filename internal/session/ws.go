package session

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/sigplace/internal/fields"
	"github.com/ziadkadry99/sigplace/internal/interaction"
	"github.com/ziadkadry99/sigplace/internal/overlay"
	"github.com/ziadkadry99/sigplace/internal/tracker"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRequest is the incoming WebSocket message format.
type wsRequest struct {
	Type  string             `json:"type"` // "resize", "page" or "pointer"
	Box   tracker.Box        `json:"box"`
	Page  int                `json:"page"`
	Event *interaction.Event `json:"event,omitempty"`
}

// wsResponse is the outgoing WebSocket message format.
type wsResponse struct {
	Type     string              `json:"type"` // "overlays", "fields", "state" or "error"
	Page     int                 `json:"page"`
	Overlays []overlay.Overlay   `json:"overlays,omitempty"`
	Fields   []fields.Projection `json:"fields,omitempty"`
	State    *interaction.State  `json:"state,omitempty"`
	Box      *tracker.Box        `json:"box,omitempty"`
	Content  string              `json:"content,omitempty"`
}

// wsConn serializes writes: watcher notices arrive from REST handlers while
// the read loop answers its own messages.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func handleWebSocket(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := m.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("session: websocket upgrade: %v", err)
			return
		}
		defer conn.Close()

		c := &wsConn{conn: conn}
		owner := uuid.New().String()
		stopWatching := s.Watch(func(st interaction.State) {
			c.send(wsResponse{Type: "state", State: &st})
		})
		defer stopWatching()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("session: websocket read: %v", err)
				}
				// A dropped connection ends only the drag it started.
				s.CancelFor(owner)
				return
			}

			var req wsRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				c.sendError("invalid message format")
				continue
			}

			switch req.Type {
			case "resize":
				s.Resize(req.Box)
				c.sendOverlays(s)
			case "page":
				c.handlePage(r, s, req)
			case "pointer":
				if req.Event == nil {
					c.sendError("event is required")
					continue
				}
				res := s.Pointer(owner, *req.Event)
				for i := range res.Transitions {
					c.send(wsResponse{Type: "state", State: &res.Transitions[i]})
				}
				if res.Changed {
					c.sendOverlays(s)
				}
			default:
				c.sendError("unknown message type: " + req.Type)
			}
		}
	}
}

func (c *wsConn) handlePage(r *http.Request, s *Session, req wsRequest) {
	if err := s.SetPage(req.Page, req.Box); err != nil {
		c.sendError(err.Error())
		return
	}
	projections, err := s.Fields(r.Context(), req.Page)
	if err != nil {
		c.sendError("listing fields: " + err.Error())
	} else {
		c.send(wsResponse{Type: "fields", Page: req.Page, Fields: projections})
	}
	c.sendOverlays(s)
}

func (c *wsConn) sendOverlays(s *Session) {
	page, box := s.Page()
	c.send(wsResponse{Type: "overlays", Page: page, Overlays: nonNil(s.Overlays(page)), Box: &box})
}

func (c *wsConn) send(resp wsResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(resp); err != nil {
		log.Printf("session: websocket write: %v", err)
	}
}

func (c *wsConn) sendError(message string) {
	c.send(wsResponse{Type: "error", Content: message})
}
