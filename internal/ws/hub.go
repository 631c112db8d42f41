package ws

import (
	"encoding/json"
	"log"
	"sync"

	"messenger-service/internal/models"
	"messenger-service/internal/observability"
)

// Hub is the process-wide registry of live websocket connections and the
// rooms they joined, keyed by chat id. All room state is owned here and
// mutated only under the hub mutex; broadcasts enqueue into per-client send
// buffers so a slow socket in one chat never delays another chat's events.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	rooms   map[int]map[*Client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[int]map[*Client]struct{}),
	}
}

// Register admits an authenticated connection into the global set.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// Unregister removes the connection from every room it joined and from the
// global set, then releases its send buffer. After Unregister returns no
// broadcast can reach the connection.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	for chatID, room := range h.rooms {
		if _, ok := room[c]; ok {
			delete(room, c)
			if len(room) == 0 {
				delete(h.rooms, chatID)
			}
		}
	}
	delete(h.clients, c)
	h.mu.Unlock()

	c.close()
}

// Join places the connection into the chat's room and announces it. Joining
// a room twice is a no-op. Membership authorization happens in the caller,
// against fresh state, before this is invoked.
func (h *Hub) Join(chatID int, c *Client) {
	h.mu.Lock()
	room, ok := h.rooms[chatID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[chatID] = room
	}
	if _, already := room[c]; already {
		h.mu.Unlock()
		return
	}
	room[c] = struct{}{}
	h.broadcastRoomLocked(chatID, models.Event{Type: models.EventUserJoined, UserID: c.UserID, ChatID: chatID}, nil)
	h.mu.Unlock()
}

// Leave removes the connection from the chat's room and announces it to the
// remaining members. Leaving a room not joined is a no-op.
func (h *Hub) Leave(chatID int, c *Client) {
	h.mu.Lock()
	room, ok := h.rooms[chatID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, member := room[c]; !member {
		h.mu.Unlock()
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, chatID)
	} else {
		h.broadcastRoomLocked(chatID, models.Event{Type: models.EventUserLeft, UserID: c.UserID, ChatID: chatID}, nil)
	}
	h.mu.Unlock()
}

// InRoom reports whether the connection currently belongs to the chat's room.
func (h *Hub) InRoom(chatID int, c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[chatID]
	if !ok {
		return false
	}
	_, member := room[c]
	return member
}

// BroadcastRoom delivers the event to every connection joined to the chat's
// room. With exclude set, that connection is skipped (typing indicators).
// Events enqueued within one room preserve their broadcast order for every
// receiver.
func (h *Hub) BroadcastRoom(chatID int, event models.Event, exclude *Client) {
	h.mu.Lock()
	h.broadcastRoomLocked(chatID, event, exclude)
	h.mu.Unlock()
}

func (h *Hub) broadcastRoomLocked(chatID int, event models.Event, exclude *Client) {
	room, ok := h.rooms[chatID]
	if !ok {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("ws marshal error: %v", err)
		return
	}
	observability.IncRoomBroadcast(event.Type)
	for c := range room {
		if c == exclude {
			continue
		}
		c.enqueue(payload)
	}
}

// BroadcastAll delivers a global event (presence) to every live connection.
func (h *Hub) BroadcastAll(event models.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("ws marshal error: %v", err)
		return
	}
	observability.IncRoomBroadcast(event.Type)
	for c := range h.clients {
		c.enqueue(payload)
	}
}
