// Package ws pushes change notifications to the open browser tabs of a
// user over websockets.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"boltvault/internal/events"
	"boltvault/internal/lib/logger/sl"
	"boltvault/internal/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// Message is what a browser receives. Self is set on the tab whose
// workspace caused the event.
type Message struct {
	Type          events.Kind `json:"type"`
	Self          bool        `json:"self"`
	Authenticated bool        `json:"authenticated,omitempty"`
	Timestamp     time.Time   `json:"timestamp"`
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID uuid.UUID
	key    string
}

// Hub keeps the connections of every user and fans events out to them.
type Hub struct {
	log      *slog.Logger
	upgrader websocket.Upgrader

	clients    map[uuid.UUID]map[*client]bool
	events     chan events.Event
	register   chan *client
	unregister chan *client
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients:    make(map[uuid.UUID]map[*client]bool),
		events:     make(chan events.Event, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// Publish queues e for delivery. It never blocks; events are dropped when
// the hub is saturated.
func (h *Hub) Publish(e events.Event) {
	if e.UserID == uuid.Nil {
		return
	}

	select {
	case h.events <- e:
	default:
		h.log.Warn("websocket hub saturated, dropping event", slog.String("type", string(e.Kind)))
	}
}

// Clients returns the number of open connections of userID.
func (h *Hub) Clients(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Run processes registrations and events until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for _, clients := range h.clients {
				for c := range clients {
					close(c.send)
				}
			}
			h.clients = make(map[uuid.UUID]map[*client]bool)
			h.mu.Unlock()
			metrics.WebsocketClients.Set(0)
			return

		case c := <-h.register:
			h.mu.Lock()
			if h.clients[c.userID] == nil {
				h.clients[c.userID] = make(map[*client]bool)
			}
			h.clients[c.userID][c] = true
			h.mu.Unlock()
			metrics.WebsocketClients.Inc()

		case c := <-h.unregister:
			h.remove(c)

		case e := <-h.events:
			h.deliver(e)
		}
	}
}

func (h *Hub) deliver(e events.Event) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients[e.UserID]))
	for c := range h.clients[e.UserID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		self := e.Origin != "" && c.key == e.Origin
		if e.Kind == events.ViewUpdated && !self {
			continue
		}

		msg, err := json.Marshal(Message{
			Type:          e.Kind,
			Self:          self,
			Authenticated: e.Authenticated,
			Timestamp:     time.Now(),
		})
		if err != nil {
			h.log.Error("failed to marshal event", sl.Err(err))
			continue
		}

		select {
		case c.send <- msg:
		default:
			h.remove(c)
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[c.userID]
	if !ok || !clients[c] {
		return
	}

	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.clients, c.userID)
	}
	metrics.WebsocketClients.Dec()
}

// Serve upgrades the request and registers the connection for userID.
// key identifies the workspace of the tab.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID uuid.UUID, key string) error {
	const op = "ws.Hub.Serve"

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("upgrade failed", slog.String("op", op), sl.Err(err))
		return err
	}

	c := &client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		userID: userID,
		key:    key,
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return nil
	}

	go c.writePump()
	go c.readPump()

	return nil
}

// readPump only watches for pongs and the close of the connection.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.hub.log.Debug("websocket closed", sl.Err(err))
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
