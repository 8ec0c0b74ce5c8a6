package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"parterre/internal/cache"
	apperrors "parterre/internal/errors"
	"parterre/internal/fanout"
	"parterre/internal/models"
	"parterre/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handlers struct {
	services     *service.Services
	valkeyClient *cache.ValkeyClient
	hub          *fanout.Hub
}

func NewHandlers(services *service.Services, valkeyClient *cache.ValkeyClient, hub *fanout.Hub) *Handlers {
	return &Handlers{
		services:     services,
		valkeyClient: valkeyClient,
		hub:          hub,
	}
}

// respondError maps the error taxonomy onto transport codes.
func respondError(c *gin.Context, err error) {
	if conflict, ok := apperrors.IsConflict(err); ok {
		c.JSON(http.StatusConflict, gin.H{
			"error": "seats unavailable",
			"seats": conflict.SeatIDs,
		})
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrKeyConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "idempotency key reused with different request"})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, apperrors.ErrInvalidTransition):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid order state transition"})
	case errors.Is(err, apperrors.ErrTimeout):
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "operation timed out, retry with backoff"})
	case errors.Is(err, apperrors.ErrFatal):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "backend unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func orderResponse(order *models.Order) models.OrderResponse {
	return models.OrderResponse{
		ID:          order.ID,
		EventID:     order.EventID,
		SeatIDs:     order.SeatIDs,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
	}
}

// Events handlers

// CreateEvent - POST /api/events
// Create an event and materialize its seat inventory
func (h *Handlers) CreateEvent(c *gin.Context) {
	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Events.Create(c.Request.Context(), &req)
	if err != nil {
		slog.Error("Failed to create event", "error", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// Bookings handlers

// BookSeats - POST /api/bookings
// Reserve a seat set and open a PENDING order for it
func (h *Handlers) BookSeats(c *gin.Context) {
	var req models.BookSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}
	if req.IdempotencyKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "idempotency_key is required"})
		return
	}

	order, err := h.services.Reservations.BookSeats(c.Request.Context(), &req)
	if err != nil {
		slog.Error("Failed to book seats",
			"error", err,
			"event_id", req.EventID,
			"idempotency_key", req.IdempotencyKey)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, orderResponse(order))
}

// Orders handlers

// GetOrder - GET /api/orders/:id
func (h *Handlers) GetOrder(c *gin.Context) {
	order, err := h.services.Orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, orderResponse(order))
}

// CancelOrder - PATCH /api/orders/cancel
// Cancel a pending order and release its seats
func (h *Handlers) CancelOrder(c *gin.Context) {
	var req models.CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.services.Orders.Cancel(c.Request.Context(), req.OrderID)
	if err != nil {
		slog.Error("Failed to cancel order", "error", err, "order_id", req.OrderID)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, orderResponse(order))
}

// RefundOrder - PATCH /api/orders/refund
func (h *Handlers) RefundOrder(c *gin.Context) {
	var req models.RefundOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.services.Orders.Refund(c.Request.Context(), req.OrderID)
	if err != nil {
		slog.Error("Failed to refund order", "error", err, "order_id", req.OrderID)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, orderResponse(order))
}

// InitiatePayment - PATCH /api/orders/initiatePayment
// Register a PENDING order with the payment gateway and hand back the
// checkout URL
func (h *Handlers) InitiatePayment(c *gin.Context) {
	var req models.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.services.Orders.InitiatePayment(c.Request.Context(), req.OrderID)
	if err != nil {
		slog.Error("Failed to initiate payment", "error", err, "order_id", req.OrderID)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment_id":  result.PaymentID,
		"payment_url": result.PaymentURL,
	})
}

// Seats handlers

// ListSeats - GET /api/seats
// Availability listing for one event, optionally by section/status
func (h *Handlers) ListSeats(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	eventID, _ := strconv.ParseInt(c.Query("event_id"), 10, 64)

	if eventID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event_id is required"})
		return
	}
	if page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be >= 1"})
		return
	}
	if pageSize < 1 || pageSize > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pageSize must be between 1 and 100"})
		return
	}

	var section, status *string
	if sectionParam := c.Query("section"); sectionParam != "" {
		section = &sectionParam
	}
	if statusParam := c.Query("status"); statusParam != "" {
		status = &statusParam
	}

	shouldCache := section == nil && status == nil

	if shouldCache && h.valkeyClient != nil {
		// Raw JSON from cache skips the decode/encode round trip.
		rawJSON, err := h.valkeyClient.GetSeatListRaw(c.Request.Context(), eventID, page, pageSize)
		if err == nil {
			c.Data(http.StatusOK, "application/json", rawJSON)
			return
		}
	}

	response, err := h.services.Seats.List(c.Request.Context(), eventID, page, pageSize, section, status)
	if err != nil {
		slog.Error("Failed to list seats", "error", err)
		respondError(c, err)
		return
	}

	if shouldCache && h.valkeyClient != nil {
		h.valkeyClient.SetSeatList(c.Request.Context(), eventID, page, pageSize, response)
	}

	c.JSON(http.StatusOK, response)
}

// QuoteSeat - GET /api/seats/quote
// Demand-bounded price for one seat
func (h *Handlers) QuoteSeat(c *gin.Context) {
	eventID, _ := strconv.ParseInt(c.Query("event_id"), 10, 64)
	seatID := c.Query("seat_id")

	if eventID == 0 || seatID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event_id and seat_id are required"})
		return
	}

	quote, err := h.services.Seats.Quote(c.Request.Context(), eventID, seatID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

// Real-time handlers

// StreamSeatEvents - GET /api/events/:id/stream
// SSE stream of seat-state deltas for one event. The subscriber joins on
// connect and leaves on disconnect; no replay of earlier transitions.
func (h *Handlers) StreamSeatEvents(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || eventID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	subscriberID := uuid.New().String()
	sub := h.hub.Join(eventID, subscriberID)
	defer h.hub.Leave(eventID, subscriberID)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				return false
			}
			c.SSEvent("seat", event)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// Payments handlers

// NotifyPaymentCompleted - GET /api/payments/success
// Gateway redirect target after a successful payment
func (h *Handlers) NotifyPaymentCompleted(c *gin.Context) {
	orderID := c.Query("orderId")
	if orderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderId is required"})
		return
	}

	slog.Info("Payment completed for order", "order_id", orderID)
	c.Status(http.StatusOK)
}

// NotifyPaymentFailed - GET /api/payments/fail
func (h *Handlers) NotifyPaymentFailed(c *gin.Context) {
	orderID := c.Query("orderId")
	if orderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderId is required"})
		return
	}

	slog.Error("Payment failed for order", "order_id", orderID)
	c.Status(http.StatusOK)
}

// OnPaymentUpdates - POST /api/payments/notifications
// Webhook from the payment gateway; a completed payment confirms the order
// (HELD -> SOLD atomically), a failed one releases the hold.
func (h *Handlers) OnPaymentUpdates(c *gin.Context) {
	var notification models.PaymentNotificationPayload
	if err := c.ShouldBindJSON(&notification); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	switch notification.Status {
	case "completed", "CONFIRMED":
		if _, err := h.services.Reservations.Confirm(ctx, notification.OrderID); err != nil {
			slog.Error("Failed to confirm order from payment notification",
				"error", err,
				"order_id", notification.OrderID)
			respondError(c, err)
			return
		}
	case "failed", "REJECTED", "CANCELLED":
		order, err := h.services.Orders.Get(ctx, notification.OrderID)
		if err != nil {
			respondError(c, err)
			return
		}
		if err := h.services.Reservations.Release(ctx, order.HoldID, service.ReleasePaymentFailed); err != nil {
			slog.Error("Failed to release hold after failed payment",
				"error", err,
				"order_id", notification.OrderID)
			respondError(c, err)
			return
		}
	default:
		slog.Warn("Ignoring payment notification with unknown status",
			"order_id", notification.OrderID,
			"status", notification.Status)
	}

	c.Status(http.StatusOK)
}
