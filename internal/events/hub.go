// Package events streams pipeline progress to WebSocket subscribers.
// The hub implements workflow.Notifier, so processing runs publish to
// it without knowing whether anyone is listening.
package events

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/veilhq/veil/internal/workflow"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict origins once the dashboard host is fixed.
		return true
	},
}

type client struct {
	conn *websocket.Conn
	send chan workflow.Event
}

// Hub fans processing events out to connected WebSocket clients. Slow
// clients are dropped rather than allowed to stall the pipeline.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan workflow.Event
	clients    map[*client]bool
	logger     *zap.Logger

	mu    sync.RWMutex
	stats Stats
}

// Stats tracks hub activity.
type Stats struct {
	TotalConnections  int64 `json:"total_connections"`
	ActiveConnections int64 `json:"active_connections"`
	EventsBroadcast   int64 `json:"events_broadcast"`
}

// NewHub creates a hub. Call Run in a goroutine before serving.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan workflow.Event, 256),
		clients:    make(map[*client]bool),
		logger:     logger,
	}
}

// Run dispatches registrations and broadcasts until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.stats.TotalConnections++
			h.stats.ActiveConnections = int64(len(h.clients))
			h.mu.Unlock()
			h.logger.Info("Event subscriber connected",
				zap.Int("active", len(h.clients)))

		case c := <-h.unregister:
			h.mu.Lock()
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
			h.stats.ActiveConnections = int64(len(h.clients))
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			h.stats.EventsBroadcast++
			for c := range h.clients {
				select {
				case c.send <- event:
				default:
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.stats.ActiveConnections = int64(len(h.clients))
			h.mu.Unlock()
		}
	}
}

// Notify publishes a processing event. Never blocks; a full broadcast
// queue drops the event.
func (h *Hub) Notify(event workflow.Event) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("Event queue full, dropping event",
			zap.String("stage", event.Stage))
	}
}

// GetStats returns a snapshot of hub activity.
func (h *Hub) GetStats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stats
}

// HandleWebSocket upgrades the request and streams events to the peer.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan workflow.Event, 64)}
	h.register <- c

	go h.writeLoop(c)
	go h.readLoop(c)
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop discards client messages; the stream is one-way. It exists
// to service pongs and to notice disconnects.
func (h *Hub) readLoop(c *client) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
