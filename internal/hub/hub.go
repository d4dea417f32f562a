// Package hub fans live room events out to active subscriptions.
//
// The hub holds no history: subscribers replay history from the store, then
// live-tail from here. Message sequence numbers let consumers stitch the two
// streams together without duplicates.
package hub

import (
	"log/slog"
	"sync"

	"github.com/lironoshka111/supportme/internal/models"
)

// Event types delivered to subscribers.
const (
	EventMessage        = "message"
	EventMessageDeleted = "message_deleted"
	EventReaction       = "reaction"
	EventRoomDeleted    = "room_deleted"
)

// Event is one item on a subscription stream.
type Event struct {
	Type string `json:"type"`

	// RoomID identifies the room for all event types.
	RoomID string `json:"roomId"`

	// Message is set for EventMessage and EventReaction (the updated message).
	Message *models.Message `json:"message,omitempty"`

	// MessageID is set for EventMessageDeleted.
	MessageID string `json:"messageId,omitempty"`
}

// subscriberBuffer is the per-subscriber channel depth. A subscriber that
// falls this far behind is disconnected rather than allowed to block senders.
const subscriberBuffer = 64

// Subscription is one live listener on a room.
type Subscription struct {
	hub    *Hub
	roomID string

	mu     sync.Mutex
	closed bool
	ch     chan Event
}

// Events returns the subscription's event stream. The channel is closed when
// the subscription is canceled, the room is deleted, or the subscriber falls
// too far behind.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Close detaches the subscription from the hub and closes its channel.
// Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.detach(s)
	s.close()
}

// send delivers without blocking. Returns false when the buffer is full.
func (s *Subscription) send(event Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- event:
		return true
	default:
		return false
	}
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Hub manages the subscriber sets of all rooms.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Subscription]struct{}
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{
		rooms: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe registers a new live listener on the given room.
func (h *Hub) Subscribe(roomID string) *Subscription {
	sub := &Subscription{
		hub:    h,
		roomID: roomID,
		ch:     make(chan Event, subscriberBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.rooms[roomID]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.rooms[roomID] = subs
	}
	subs[sub] = struct{}{}

	return sub
}

func (h *Hub) detach(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.rooms[sub.roomID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.rooms, sub.roomID)
		}
	}
}

// Publish delivers an event to every subscriber of its room. Delivery is
// non-blocking: a subscriber with a full buffer is dropped.
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	subs := make([]*Subscription, 0, len(h.rooms[event.RoomID]))
	for sub := range h.rooms[event.RoomID] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		if !sub.send(event) {
			slog.Warn("Dropping slow subscriber", "room_id", event.RoomID)
			sub.Close()
		}
	}
}

// CloseRoom ends every subscription on a room. Used when the room is deleted.
func (h *Hub) CloseRoom(roomID string) {
	h.mu.Lock()
	subs := h.rooms[roomID]
	delete(h.rooms, roomID)
	h.mu.Unlock()

	for sub := range subs {
		sub.send(Event{Type: EventRoomDeleted, RoomID: roomID})
		sub.close()
	}
}

// SubscriberCount returns the number of live subscriptions on a room.
func (h *Hub) SubscriberCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
