// Package hub fans controller telemetry out to websocket subscribers using
// the channel-based broadcast pattern: one goroutine owns the client set,
// and slow subscribers are dropped rather than allowed to stall the rest.
package hub

import (
	"encoding/json"
	"sync"

	"github.com/dvelkov/go-grasp/internal/log"
)

// Event is the wire envelope for one telemetry message.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hub maintains the active subscriber set and broadcasts events to it.
type Hub struct {
	name string

	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}

	mu sync.RWMutex // guards clients for outside readers
}

// New creates a hub. Run must be started before clients attach.
func New(name string) *Hub {
	return &Hub{
		name:       name,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
	}
}

// Run owns the client set. Call in a goroutine; Stop ends it.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			log.Debug("subscriber connected", "hub", h.name, "total", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			log.Debug("subscriber disconnected", "hub", h.name, "remaining", count)

		case data := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					// Subscriber cannot keep up; dropping it beats
					// backpressuring the controller's telemetry path.
					close(client.send)
					delete(h.clients, client)
					log.Warn("dropped slow subscriber", "hub", h.name)
				}
			}
			h.mu.Unlock()

		case <-h.stop:
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

// Stop shuts the hub down and disconnects all subscribers.
func (h *Hub) Stop() {
	close(h.stop)
}

// Publish encodes and broadcasts one event. Telemetry is lossy by design:
// if the broadcast queue is full the event is dropped, never blocked on.
func (h *Hub) Publish(eventType string, payload interface{}) error {
	data, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- data:
	default:
		log.Warn("broadcast queue full, event dropped", "hub", h.name, "type", eventType)
	}
	return nil
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
