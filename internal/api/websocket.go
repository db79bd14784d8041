package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tradrx/internal/ledger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// subscriberBuffer is the per-client event backlog before events are
	// dropped.
	subscriberBuffer = 256
)

// Hub streams ledger events to WebSocket clients. Each client first receives
// a snapshot of the whole ledger, then every placed and cancelled trade in
// the order it was applied.
type Hub struct {
	ledger   *ledger.Ledger
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients int
	done    chan struct{}
	closed  bool
}

// NewHub creates a Hub over the given ledger.
func NewHub(l *ledger.Ledger, log *slog.Logger) *Hub {
	return &Hub{
		ledger: l,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The dashboard is served from another origin; CORS is
			// configured on the HTTP layer.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		done: make(chan struct{}),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clients
}

// Close disconnects every client. Hijacked connections are not closed by
// http.Server.Shutdown, so the server calls this during shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		close(h.done)
	}
}

// ServeHTTP upgrades the connection and streams events until the client
// disconnects or the hub is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	if !h.register() {
		return
	}
	defer h.unregister()

	subID, snapshot, events := h.ledger.SubscribeWithSnapshot(subscriberBuffer)
	defer h.ledger.Unsubscribe(subID)
	h.log.Info("websocket client subscribed", "sub", subID, "remote", r.RemoteAddr)

	// The read pump only handles control frames and notices disconnects.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.write(conn, snapshot); err != nil {
		h.log.Info("websocket client disconnected", "sub", subID, "error", err)
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-gone:
			h.log.Info("websocket client disconnected", "sub", subID)
			return
		case <-h.done:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := h.write(conn, evt); err != nil {
				h.log.Info("websocket client disconnected", "sub", subID, "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) write(conn *websocket.Conn, evt ledger.Event) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(evt)
}

func (h *Hub) register() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients++
	return true
}

func (h *Hub) unregister() {
	h.mu.Lock()
	h.clients--
	h.mu.Unlock()
}
