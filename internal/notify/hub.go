// Package notify fans invalidation events out to WebSocket subscribers.
// Events carry no payload - clients re-fetch whatever changed. Delivery is
// best-effort: no acknowledgment, no replay for late subscribers.
package notify

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event is the wire shape pushed to subscribers.
type Event struct {
	Type           string `json:"type"`
	TicketID       string `json:"ticketId,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
}

const writeTimeout = 5 * time.Second

// Hub tracks connected WebSocket clients and broadcasts events to all of
// them.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}

	// Serializes broadcasts: gorilla allows one concurrent writer per conn.
	writeMu sync.Mutex
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Demo server, same trust model as the REST API.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the request and keeps the connection registered until
// the client goes away. Inbound frames are discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()
	h.logger.Debug("subscriber connected", "subscribers", n)

	// Read loop only to detect disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(conn)
}

// TicketUpdated tells all subscribers to re-fetch a ticket.
func (h *Hub) TicketUpdated(ticketID string) {
	h.broadcast(Event{Type: "ticket_update", TicketID: ticketID})
}

// MessageUpdated tells all subscribers to re-fetch a conversation.
func (h *Hub) MessageUpdated(conversationID string) {
	h.broadcast(Event{Type: "message_update", ConversationID: conversationID})
}

func (h *Hub) broadcast(e Event) {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.WriteJSON(e); err != nil {
			h.logger.Debug("subscriber write failed, dropping", "error", err)
			h.drop(c)
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.conns[conn]
	delete(h.conns, conn)
	h.mu.Unlock()
	if ok {
		conn.Close()
	}
}

// Subscribers returns the current connection count (for testing).
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}
