package consumers

import (
	"context"
	"encoding/json"
	"log/slog"

	"parterre/internal/models"
	"parterre/internal/repository"

	"github.com/nats-io/stan.go"
)

// Handlers processes order lifecycle events off the durable queue group.
// These are audit-side consumers; the reservation protocol itself never
// depends on them.
type Handlers struct {
	repos *repository.Repositories
}

func NewHandlers(repos *repository.Repositories) *Handlers {
	return &Handlers{repos: repos}
}

func (h *Handlers) decode(m *stan.Msg, subject string) (*models.OrderLifecycleEvent, bool) {
	var event models.OrderLifecycleEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal order lifecycle event",
			"error", err, "subject", subject)
		// Poison message; ack so it is not redelivered forever
		m.Ack()
		return nil, false
	}
	return &event, true
}

func (h *Handlers) HandleOrderCreated(m *stan.Msg) {
	event, ok := h.decode(m, models.SubjectOrderCreated)
	if !ok {
		return
	}

	slog.Info("Order created",
		"order_id", event.OrderID,
		"event_id", event.EventID,
		"status", event.Status)

	m.Ack()
}

func (h *Handlers) HandleOrderExpired(m *stan.Msg) {
	event, ok := h.decode(m, models.SubjectOrderExpired)
	if !ok {
		return
	}

	slog.Info("Order expired",
		"order_id", event.OrderID,
		"event_id", event.EventID,
		"reason", event.Reason)

	m.Ack()
}

func (h *Handlers) HandleOrderCancelled(m *stan.Msg) {
	event, ok := h.decode(m, models.SubjectOrderCancelled)
	if !ok {
		return
	}

	slog.Info("Order cancelled",
		"order_id", event.OrderID,
		"event_id", event.EventID)

	m.Ack()
}

func (h *Handlers) HandleOrderRefunded(m *stan.Msg) {
	event, ok := h.decode(m, models.SubjectOrderRefunded)
	if !ok {
		return
	}

	slog.Info("Order refunded",
		"order_id", event.OrderID,
		"event_id", event.EventID)

	m.Ack()
}

// HandleOrderCompleted cross-checks the persisted order against the published
// terminal state and flags divergence.
func (h *Handlers) HandleOrderCompleted(m *stan.Msg) {
	event, ok := h.decode(m, models.SubjectOrderCompleted)
	if !ok {
		return
	}

	order, err := h.repos.Orders.GetByID(context.Background(), event.OrderID)
	if err != nil {
		slog.Error("Failed to load order for completion audit",
			"error", err, "order_id", event.OrderID)
		return
	}

	if order == nil {
		slog.Error("Completed order not found in store", "order_id", event.OrderID)
	} else if order.Status != models.OrderCompleted && order.Status != models.OrderRefunded {
		slog.Error("Order completion event diverges from stored status",
			"order_id", event.OrderID,
			"stored_status", order.Status)
	} else {
		slog.Info("Order completed",
			"order_id", event.OrderID,
			"event_id", event.EventID,
			"total_amount", order.TotalAmount)
	}

	m.Ack()
}
