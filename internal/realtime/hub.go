package realtime

import (
	"context"
	"sync"
)

type Hub struct {
	mu         sync.RWMutex
	Rooms      map[string]*Room
	Register   chan *Client
	Unregister chan *Client
	Broadcast  chan *Event
}

func NewHub() *Hub {
	return &Hub{
		Rooms:      make(map[string]*Room),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan *Event),
	}
}

// EnsureRoom creates the room for a thread if it does not exist yet and
// reports whether it was created. Rooms persist after their last client
// leaves so the Redis subscription stays warm for reconnects.
func (h *Hub) EnsureRoom(threadID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.Rooms[threadID]; ok {
		return false
	}
	h.Rooms[threadID] = &Room{
		ThreadID: threadID,
		Clients:  make(map[string]*Client),
	}
	setRooms(len(h.Rooms))
	return true
}

func (h *Hub) room(threadID string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.Rooms[threadID]
	return room, ok
}

// Run owns every room's client set; everything else talks to it through
// the three channels.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.Register:
			room, ok := h.room(client.ThreadID)
			if !ok {
				continue
			}
			room.Clients[client.ID] = client
			incConnections()

		case client := <-h.Unregister:
			room, ok := h.room(client.ThreadID)
			if !ok {
				continue
			}
			if _, ok := room.Clients[client.ID]; ok {
				delete(room.Clients, client.ID)
				close(client.Message)
				decConnections()
			}

		case event := <-h.Broadcast:
			room, ok := h.room(event.ThreadID)
			if !ok {
				continue
			}
			frame := frameFor(event)
			delivered := 0
			for _, client := range room.Clients {
				if client.Side != event.TargetSide {
					continue
				}
				select {
				case client.Message <- frame:
					delivered++
				default:
					close(client.Message)
					delete(room.Clients, client.ID)
					decConnections()
				}
			}
			if delivered > 0 {
				addDelivered(delivered)
			}
		}
	}
}
