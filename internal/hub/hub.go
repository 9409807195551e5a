// Package hub fans seat events out to this instance's connected stream
// subscribers.  There is no replay buffer: a client that reconnects
// receives a fresh snapshot, so missed events never need to be
// re-delivered.
package hub

import (
	"sync"

	"github.com/iliyamo/seat-booking-flow/internal/queue"
)

// Subscriber is one connected stream consumer, scoped to a schedule.
type Subscriber struct {
	scheduleID uint64
	ch         chan queue.SeatEvent
}

// Events is the subscriber's delivery channel.
func (s *Subscriber) Events() <-chan queue.SeatEvent { return s.ch }

// Hub routes SeatEvents to subscribers of the matching schedule.
type Hub struct {
	mu   sync.RWMutex
	subs map[*Subscriber]struct{}
}

// New returns an empty Hub.
func New() *Hub {
	return &Hub{subs: make(map[*Subscriber]struct{})}
}

// Subscribe registers a consumer for one schedule's events.  Call
// Unsubscribe when the connection ends.
func (h *Hub) Subscribe(scheduleID uint64) *Subscriber {
	s := &Subscriber{
		scheduleID: scheduleID,
		ch:         make(chan queue.SeatEvent, 64),
	}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Unsubscribe removes a consumer from the hub.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
}

// Broadcast delivers an event to every subscriber of its schedule.
func (h *Hub) Broadcast(ev queue.SeatEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		if s.scheduleID != ev.ScheduleID {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			// Drop if the client is slow — prevents blocking the publisher;
			// the client recovers state from its next snapshot.
		}
	}
}
