package server

import (
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/flowscope/flowscope/pkg/editor"
	"github.com/flowscope/flowscope/pkg/editor/history"
)

// event is the envelope for every WebSocket push.
type event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// hub fans editor events out to connected WebSocket clients. Writes are
// best-effort: a client that fails a write is dropped.
type hub struct {
	mu       sync.Mutex
	conns    map[*websocket.Conn]struct{}
	upgrader websocket.Upgrader
	logger   *log.Logger
}

func newHub(logger *log.Logger) *hub {
	return &hub{
		conns: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			// The editor server binds to localhost by default; same-origin
			// enforcement belongs to a fronting proxy in other setups.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

func (h *hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "err", err)
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "remote", r.RemoteAddr)

	// Drain the read side so pings and close frames are processed.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn]; ok {
		delete(h.conns, conn)
		conn.Close()
	}
}

func (h *hub) broadcast(ev event) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.WriteJSON(ev); err != nil {
			h.logger.Debug("websocket write failed, dropping client", "err", err)
			h.drop(c)
		}
	}
}

// broadcastStackState is registered as the session's stack-change listener.
func (h *hub) broadcastStackState(st history.StackState) {
	h.broadcast(event{Type: "stackChange", Data: st})
}

// broadcastPositions pushes the full final-position set after a mutation.
func (h *hub) broadcastPositions(s *editor.Session) {
	d := s.Diagram()
	nodes := make(map[string]positionEntry, len(d.Nodes))
	for _, n := range d.Nodes {
		nodes[n.Name] = positionEntry{
			Position: s.FinalPosition(n.Name),
			Size:     s.NodeSize(n.Name),
			Label:    s.FinalLabelPosition(n.Name),
		}
	}
	h.broadcast(event{Type: "positions", Data: positionsResponse{Frame: s.Frame(), Nodes: nodes}})
}
