// Package fanout delivers seat-transition deltas to every subscriber of the
// affected event. The hub is fed from the durable seat.transition subject, so
// delivery stays decoupled from the transactional booking path.
package fanout

import (
	"encoding/json"
	"log/slog"
	"sync"

	"parterre/internal/metrics"
	"parterre/internal/models"

	"github.com/nats-io/stan.go"
)

const subscriberBuffer = 64

// Subscriber is one connected viewer of an event's seat map.
type Subscriber struct {
	ID      string
	EventID int64
	ch      chan models.SeatTransitionEvent
}

// Events exposes the subscriber's delivery channel.
func (s *Subscriber) Events() <-chan models.SeatTransitionEvent {
	return s.ch
}

// Hub partitions subscribers by event id. Join/Leave are safe at any time,
// including while deliveries are in flight. A subscriber only ever sees
// transitions emitted after it joined.
type Hub struct {
	mu   sync.RWMutex
	subs map[int64]map[string]*Subscriber
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[int64]map[string]*Subscriber),
	}
}

// Join registers a subscriber for one event and returns its delivery handle.
func (h *Hub) Join(eventID int64, subscriberID string) *Subscriber {
	sub := &Subscriber{
		ID:      subscriberID,
		EventID: eventID,
		ch:      make(chan models.SeatTransitionEvent, subscriberBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[eventID] == nil {
		h.subs[eventID] = make(map[string]*Subscriber)
	}
	h.subs[eventID][subscriberID] = sub

	return sub
}

// Leave deregisters a subscriber and closes its channel. Leaving twice is a
// no-op.
func (h *Hub) Leave(eventID int64, subscriberID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.subs[eventID]
	if !ok {
		return
	}
	sub, ok := group[subscriberID]
	if !ok {
		return
	}

	delete(group, subscriberID)
	if len(group) == 0 {
		delete(h.subs, eventID)
	}
	close(sub.ch)
}

// Broadcast delivers one transition to every current subscriber of its event.
// Delivery is non-blocking: a subscriber whose buffer is full has the event
// dropped and logged rather than stalling delivery to others.
func (h *Hub) Broadcast(event models.SeatTransitionEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs[event.EventID] {
		select {
		case sub.ch <- event:
			metrics.FanoutDeliveredTotal.Inc()
		default:
			metrics.FanoutDroppedTotal.Inc()
			slog.Warn("Dropping seat transition for slow subscriber",
				"subscriber_id", sub.ID,
				"event_id", event.EventID,
				"seat_id", event.SeatID)
		}
	}
}

// SubscriberCount reports how many viewers are joined to an event.
func (h *Hub) SubscriberCount(eventID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[eventID])
}

// HandleMessage adapts a NATS Streaming message into a broadcast. Malformed
// payloads are acked and logged; redelivering them cannot help.
func (h *Hub) HandleMessage(m *stan.Msg) {
	var event models.SeatTransitionEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal seat transition event", "error", err)
		m.Ack()
		return
	}

	h.Broadcast(event)
	m.Ack()
}
