package realtime

import (
	"encoding/json"
	"sync"
)

// Client represents a single websocket client connection.
// The actual network conn is managed in the ws handler.
type Client interface {
	Send(message []byte) bool
	Close()
}

// Event is a record mutation pushed to connected dashboard clients so they
// can refresh their current page.
type Event struct {
	Type     string `json:"type"`
	RecordID uint   `json:"record_id"`
	Actor    string `json:"actor"`
	Status   string `json:"status,omitempty"`
}

const (
	EventRecordCreated       = "record_created"
	EventRecordUpdated       = "record_updated"
	EventRecordStatusChanged = "record_status_changed"
	EventRecordDeleted       = "record_deleted"
)

// Hub maintains the set of connected dashboard clients. Every record event
// is broadcast to all of them; the board is shared, so there is no per-user
// routing.
type Hub struct {
	mu      sync.RWMutex
	clients map[Client]struct{}
}

var hubInstance *Hub
var once sync.Once

// GetHub returns a singleton hub instance.
func GetHub() *Hub {
	once.Do(func() {
		hubInstance = &Hub{clients: make(map[Client]struct{})}
	})
	return hubInstance
}

// Register adds a connected client.
func (h *Hub) Register(client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
}

// Unregister removes a client.
func (h *Hub) Unregister(client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client)
}

// Broadcast sends an event to every connected client. Clients whose write
// fails are left for their handler to clean up.
func (h *Hub) Broadcast(evt Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if ok := c.Send(payload); !ok {
			// client write failed; the handler cleans it up on its side
		}
	}
}
