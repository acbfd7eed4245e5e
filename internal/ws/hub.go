// Package ws implements the best-effort real-time notification channel:
// a broadcast hub of websocket clients with no delivery guarantee, no
// backpressure and no persistence. Messages to clients that cannot keep
// up are dropped along with the client.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mpetrie/taskboard-api/internal/events"
)

// Hub maintains the set of active clients and broadcasts messages to
// them. All bookkeeping happens on the Run goroutine, so the maps need no
// locking.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	logger     *slog.Logger
}

// NewHub creates a hub ready to be started with Run.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With(slog.String("component", "ws_hub")),
	}
}

// Run processes register/unregister/broadcast requests until the context
// is canceled. It must run on its own goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.logger.Info("client connected", "client_count", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Info("client disconnected", "client_count", len(h.clients))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client cannot keep up; drop it rather than block
					// the hub.
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// Broadcast sends the message to every connected client, best-effort.
// If the hub's buffer is full the message is dropped.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("broadcast buffer full, dropping message")
	}
}

// Ensure Hub can consume task mutation events
var _ events.EventHandler = (*Hub)(nil)

// HandleEvent implements events.EventHandler by broadcasting the event as
// a JSON frame to all connected clients.
func (h *Hub) HandleEvent(ctx context.Context, event *events.Event) {
	raw, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to encode event for broadcast", "error", err)
		return
	}
	h.Broadcast(raw)
}
