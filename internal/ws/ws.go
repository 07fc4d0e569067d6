// Package ws streams validation progress to WebSocket clients.
package ws

import (
	"context"
	"log/slog"
	"sync"

	"nhooyr.io/websocket"
)

// SnapshotFunc returns the payload sent to clients on connect and on sync.
type SnapshotFunc func() (any, error)

// Hub manages WebSocket connections and broadcasts messages to all clients.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	syncReq    chan *Client
	done       chan struct{}
	logger     *slog.Logger
	mu         sync.RWMutex
	snapshot   SnapshotFunc
}

// Client represents a single WebSocket connection. Only the hub's Run loop
// sends on or closes send.
type Client struct {
	hub  *Hub
	send chan []byte
	conn *websocket.Conn
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		syncReq:    make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// SetSnapshot sets the function producing the snapshot for new clients.
func (h *Hub) SetSnapshot(fn SnapshotFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshot = fn
}

// Run processes registrations, snapshot requests and broadcasts until ctx
// is done. A hub is run once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("websocket client connected")
			h.deliverSnapshot(client)

		case client := <-h.syncReq:
			h.mu.RLock()
			_, ok := h.clients[client]
			h.mu.RUnlock()
			if ok {
				h.deliverSnapshot(client)
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("websocket client disconnected")

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// deliverSnapshot queues the current snapshot for one client. It must only
// be called from Run.
func (h *Hub) deliverSnapshot(c *Client) {
	h.mu.RLock()
	fn := h.snapshot
	h.mu.RUnlock()
	if fn == nil {
		return
	}
	payload, err := fn()
	if err != nil {
		h.logger.Warn("building websocket snapshot", "error", err)
		return
	}
	msg, err := NewMessage(MsgSnapshot, payload)
	if err != nil {
		h.logger.Warn("encoding websocket snapshot", "error", err)
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// join registers c. It returns false once Run has stopped.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// leave unregisters c. It never blocks after Run has stopped.
func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// requestSnapshot asks Run to send c a fresh snapshot.
func (h *Hub) requestSnapshot(c *Client) {
	select {
	case h.syncReq <- c:
	case <-h.done:
	}
}

// Broadcast queues a message for all connected clients. It drops the
// message if the queue is full.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping message")
	}
}

// BroadcastJSON wraps payload in a typed envelope and broadcasts it.
func (h *Hub) BroadcastJSON(msgType MessageType, payload any) {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		h.logger.Error("failed to create broadcast message", "type", msgType, "error", err)
		return
	}
	h.Broadcast(msg)
}

// BroadcastRuleOutcome broadcasts a completed rule.
func (h *Hub) BroadcastRuleOutcome(validationID string, index, total int, outcome any) {
	h.BroadcastJSON(MsgRuleOutcome, RuleOutcomePayload{
		ValidationID: validationID,
		Index:        index,
		Total:        total,
		Outcome:      outcome,
	})
}

// BroadcastError broadcasts an error to all clients.
func (h *Hub) BroadcastError(errMsg string) {
	h.BroadcastJSON(MsgError, map[string]string{"message": errMsg})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
