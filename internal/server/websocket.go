// WebSocket hub pushing sync lifecycle events to the UI shell.
package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rpacode/edlsync/internal/logger"
)

// Event types pushed over the socket.
const (
	EventSyncStarted         = "sync.started"
	EventSyncCompleted       = "sync.completed"
	EventItemSynced          = "sync.item_synced"
	EventConnectivityChanged = "connectivity.changed"
)

// Envelope wraps every WebSocket message.
type Envelope struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The API is bound to loopback; accept whatever the local UI
		// shell sends as origin.
		return true
	},
}

// Hub maintains active client connections and broadcasts envelopes.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// ServeHTTP upgrades the request and starts the client pumps.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 32)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go c.writePump()
	go h.readPump(c)
}

func (h *Hub) readPump(c *client) {
	defer h.drop(c)
	c.conn.SetReadLimit(1024)
	for {
		// Clients only listen; any read error means the peer is gone.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		close(c.send)
		delete(h.clients, c)
	}
}

// Broadcast sends an envelope to every connected client. Slow clients
// are dropped rather than blocking the sync goroutine.
func (h *Hub) Broadcast(eventType string, data map[string]interface{}) {
	msg, err := json.Marshal(Envelope{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			close(c.send)
			delete(h.clients, c)
		}
	}
}

// The Hub implements engine.Events.

func (h *Hub) SyncStarted() {
	h.Broadcast(EventSyncStarted, nil)
}

func (h *Hub) SyncCompleted(delivered, failed, abandoned int, duration time.Duration) {
	h.Broadcast(EventSyncCompleted, map[string]interface{}{
		"delivered":   delivered,
		"failed":      failed,
		"abandoned":   abandoned,
		"duration_ms": duration.Milliseconds(),
	})
}

func (h *Hub) ItemSynced(entryID int64, entryType string) {
	h.Broadcast(EventItemSynced, map[string]interface{}{
		"entry_id": entryID,
		"type":     entryType,
	})
}

func (h *Hub) ConnectivityChanged(online bool) {
	h.Broadcast(EventConnectivityChanged, map[string]interface{}{
		"online": online,
	})
}
