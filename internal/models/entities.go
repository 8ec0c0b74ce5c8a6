package models

import (
	"time"
)

// Seat statuses. Status and holder are only updated together, atomically,
// through the seat repository's transition call.
const (
	SeatAvailable = "AVAILABLE"
	SeatHeld      = "HELD"
	SeatSold      = "SOLD"
)

// Order statuses.
const (
	OrderPending   = "PENDING"
	OrderCompleted = "COMPLETED"
	OrderCancelled = "CANCELLED"
	OrderRefunded  = "REFUNDED"
	OrderExpired   = "EXPIRED"
)

// Event represents a sellable event whose inventory has been materialized
type Event struct {
	ID            int64     `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	DatetimeStart time.Time `json:"datetime_start" db:"datetime_start"`
	TotalSeats    int       `json:"total_seats" db:"total_seats"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Seat is one physical seat of one event. Identity is (event_id, seat_id);
// rows are partitioned by event_id so contention never crosses events.
type Seat struct {
	EventID   int64     `json:"event_id" db:"event_id"`
	SeatID    string    `json:"seat_id" db:"seat_id"`
	SectionID string    `json:"section_id" db:"section_id"`
	Row       int       `json:"row" db:"row_number"`
	Number    int       `json:"number" db:"seat_number"`
	Status    string    `json:"status" db:"status"`
	HolderID  *string   `json:"holder_id,omitempty" db:"holder_id"`
	BasePrice int64     `json:"base_price" db:"base_price"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Hold is a time-bounded exclusive claim on a seat set pending purchase.
// Seat exclusivity is enforced by the seat status transition, not this row.
type Hold struct {
	ID          string     `json:"id" db:"id"`
	EventID     int64      `json:"event_id" db:"event_id"`
	SeatIDs     []string   `json:"seat_ids" db:"seat_ids"`
	HolderID    string     `json:"holder_id" db:"holder_id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at" db:"expires_at"`
	ReleasedAt  *time.Time `json:"released_at,omitempty" db:"released_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty" db:"confirmed_at"`
}

// Order tracks a reservation once converted into a purchase intent.
type Order struct {
	ID             string    `json:"id" db:"id"`
	EventID        int64     `json:"event_id" db:"event_id"`
	HoldID         string    `json:"hold_id" db:"hold_id"`
	SeatIDs        []string  `json:"seat_ids" db:"seat_ids"`
	Status         string    `json:"status" db:"status"`
	TotalAmount    int64     `json:"total_amount" db:"total_amount"`
	IdempotencyKey string    `json:"idempotency_key" db:"idempotency_key"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
