package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event types pushed to the UI shell.
const (
	EventKitchenReady    = "kitchen.ready"
	EventKitchenRejected = "kitchen.rejected"
	EventOrdersRefreshed = "orders.refreshed"
	EventSessionChanged  = "session.changed"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent marshals payload into an Event.
func NewEvent(eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Payload: raw}, nil
}

// operatorEvent routes an event to the screens of one operator
type operatorEvent struct {
	OperatorID uuid.UUID
	Event      Event
}

// Hub maintains the set of connected UI screens and pushes events to them.
// Screens join the room of the operator whose token they connected with, so
// a screen left open after a logout never sees the next operator's orders.
type Hub struct {
	// Registered clients by operator ID
	rooms map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *operatorEvent

	// done is closed when Run returns
	done chan struct{}

	mu     sync.RWMutex
	logger *zap.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *operatorEvent, 256),
		done:       make(chan struct{}),
		logger:     logger.Named("ws"),
	}
}

// Run starts the hub's main loop and returns when ctx is done, closing
// every remaining client.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.operatorID] == nil {
				h.rooms[client.operatorID] = make(map[*Client]bool)
			}
			h.rooms[client.operatorID][client] = true
			h.mu.Unlock()
			h.logger.Debug("Client registered", zap.Stringer("operator_id", client.operatorID))

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.logger.Error("Marshal event", zap.String("type", event.Event.Type), zap.Error(err))
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[event.OperatorID] {
				select {
				case client.send <- message:
				default:
					// Slow client, drop it
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// join adds client to its operator room. It reports false once the hub
// has stopped.
func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// leave removes client from its room. It is a no-op once the hub has
// stopped, since Run already closed every client.
func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// remove unregisters client. Callers hold h.mu.
func (h *Hub) remove(client *Client) {
	clients, ok := h.rooms[client.operatorID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.operatorID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.rooms {
		for client := range clients {
			h.remove(client)
		}
	}
}

// BroadcastToOperator queues an event for every screen of an operator.
// It never blocks; events are dropped when the queue is full.
func (h *Hub) BroadcastToOperator(operatorID uuid.UUID, event Event) {
	select {
	case h.broadcast <- &operatorEvent{OperatorID: operatorID, Event: event}:
	default:
		h.logger.Warn("Broadcast queue full, event dropped", zap.String("type", event.Type))
	}
}
