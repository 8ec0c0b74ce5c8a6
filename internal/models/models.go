package models

// BookSeatsRequest - request body for POST /api/bookings
type BookSeatsRequest struct {
	EventID        int64    `json:"event_id" binding:"required"`
	SeatIDs        []string `json:"seat_ids" binding:"required,min=1"`
	HolderID       string   `json:"holder_id,omitempty"`
	IdempotencyKey string   `json:"idempotency_key" binding:"required"`
}

// OrderResponse - order as returned by the booking API
type OrderResponse struct {
	ID          string   `json:"id"`
	EventID     int64    `json:"event_id"`
	SeatIDs     []string `json:"seat_ids"`
	Status      string   `json:"status"`
	TotalAmount int64    `json:"total_amount"`
}

// CancelOrderRequest - request body for PATCH /api/orders/cancel
type CancelOrderRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

// RefundOrderRequest - request body for PATCH /api/orders/refund
type RefundOrderRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

// InitiatePaymentRequest - request body for PATCH /api/orders/initiatePayment
type InitiatePaymentRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

// CreateEventRequest - admin request materializing an event's inventory
type CreateEventRequest struct {
	Title       string `json:"title" binding:"required"`
	Rows        int    `json:"rows" binding:"required,min=1"`
	SeatsPerRow int    `json:"seats_per_row" binding:"required,min=1"`
	Sections    int    `json:"sections,omitempty"`
	BasePrice   int64  `json:"base_price,omitempty"`
}

// CreateEventResponse - response for POST /api/events
type CreateEventResponse struct {
	ID         int64 `json:"id"`
	TotalSeats int   `json:"total_seats"`
}

// ListSeatsResponseItem - one seat in the availability listing
type ListSeatsResponseItem struct {
	SeatID    string `json:"seat_id"`
	SectionID string `json:"section_id"`
	Row       int    `json:"row"`
	Number    int    `json:"number"`
	Status    string `json:"status"`
	BasePrice int64  `json:"base_price"`
}

// ListSeatsResponse - availability listing for one event
type ListSeatsResponse []ListSeatsResponseItem

// QuoteResponse - response for GET /api/seats/quote
type QuoteResponse struct {
	EventID     int64  `json:"event_id"`
	SeatID      string `json:"seat_id"`
	Price       int64  `json:"price"`
	DemandLevel string `json:"demand_level"`
}

// PaymentNotificationPayload - webhook notifications from the payment gateway
type PaymentNotificationPayload struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
