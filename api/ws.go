package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/linewatch/bus"
	"github.com/c360/linewatch/domain"
)

const (
	// clientQueueSize bounds the per-client send queue; a client that falls
	// this far behind is dropped.
	clientQueueSize = 64

	wsWriteTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The API serves dashboards on other origins; events are read-only.
	CheckOrigin: func(*http.Request) bool { return true },
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// wsHub fans published alarm events out to websocket clients. The bus handler
// never blocks: a full client queue drops that client, not the event.
type wsHub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool
}

func newWSHub(logger *slog.Logger) *wsHub {
	return &wsHub{
		logger:  logger.With("component", "ws-hub"),
		clients: make(map[*wsClient]struct{}),
	}
}

// attach subscribes the hub to the bus; the returned function detaches it.
func (h *wsHub) attach(b *bus.Bus) func() {
	return b.Subscribe("ws-hub", h.broadcast)
}

// broadcast queues one event for every connected client.
func (h *wsHub) broadcast(ev domain.AlarmEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("event encoding failed", "alarm", ev.Key.String(), "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Client can't keep up; cut it loose rather than buffer unbounded.
			h.logger.Warn("dropping slow websocket client", "addr", c.conn.RemoteAddr().String())
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// handleUpgrade turns an HTTP request into a streaming client.
func (h *wsHub) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		writeError(w, http.StatusServiceUnavailable, "server shutting down")
		return
	}
	h.mu.Unlock()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, clientQueueSize)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(c)
	go h.readLoop(c)
}

// writeLoop drains the client's queue onto the socket. It exits when the
// queue closes (drop or hub shutdown) or a write fails.
func (h *wsHub) writeLoop(c *wsClient) {
	defer func() { _ = c.conn.Close() }()

	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(c)
			return
		}
	}
	// Queue closed: say goodbye properly before hanging up.
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
		time.Now().Add(wsWriteTimeout))
}

// readLoop exists to observe the client closing its side; the stream itself
// is one-way.
func (h *wsHub) readLoop(c *wsClient) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}

// remove detaches a client if it is still attached.
func (h *wsHub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// close drops every client and refuses new upgrades.
func (h *wsHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
