package models

import "time"

// NATS subjects. Seat transitions ride a single ordered subject; the fan-out
// hub partitions by event id on the consuming side.
const (
	SubjectSeatTransition = "seat.transition"
	SubjectOrderCreated   = "order.created"
	SubjectOrderExpired   = "order.expired"
	SubjectOrderCancelled = "order.cancelled"
	SubjectOrderCompleted = "order.completed"
	SubjectOrderRefunded  = "order.refunded"
)

// Seat transition types pushed to real-time subscribers.
const (
	TransitionSeatHeld     = "SEAT_HELD"
	TransitionSeatReleased = "SEAT_RELEASED"
	TransitionSeatSold     = "SEAT_SOLD"
)

// SeatTransitionEvent is one buyer-visible seat-state delta.
type SeatTransitionEvent struct {
	Type      string    `json:"type"`
	EventID   int64     `json:"event_id"`
	SeatID    string    `json:"seat_id"`
	NewStatus string    `json:"new_status"`
	HoldID    string    `json:"hold_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TransitionType maps a new seat status to its subscriber-facing event type.
func TransitionType(newStatus string) string {
	switch newStatus {
	case SeatHeld:
		return TransitionSeatHeld
	case SeatSold:
		return TransitionSeatSold
	default:
		return TransitionSeatReleased
	}
}

// OrderLifecycleEvent is published on order state changes for audit consumers.
type OrderLifecycleEvent struct {
	OrderID   string    `json:"order_id"`
	EventID   int64     `json:"event_id"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
