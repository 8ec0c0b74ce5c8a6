package service

import (
	"context"
	"fmt"

	apperrors "parterre/internal/errors"
	"parterre/internal/external"
	"parterre/internal/models"
	"parterre/internal/repository"
)

// orderTransitions is the only legal edge set of the order state machine.
// Anything else fails with ErrInvalidTransition and changes nothing.
var orderTransitions = map[string][]string{
	models.OrderPending:   {models.OrderCompleted, models.OrderCancelled, models.OrderExpired},
	models.OrderCompleted: {models.OrderRefunded},
}

// CanTransition reports whether from -> to is a legal order transition.
func CanTransition(from, to string) bool {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// OrderService handles the order lifecycle outside the booking hot path.
type OrderService struct {
	orderRepo     *repository.OrderRepository
	holdRepo      *repository.HoldRepository
	reservations  *ReservationService
	paymentClient *external.PaymentClient
}

func NewOrderService(repos *repository.Repositories, reservations *ReservationService, paymentClient *external.PaymentClient) *OrderService {
	return &OrderService{
		orderRepo:     repos.Orders,
		holdRepo:      repos.Holds,
		reservations:  reservations,
		paymentClient: paymentClient,
	}
}

// InitiatePayment registers a PENDING order with the payment gateway and
// returns the checkout URL. The outcome comes back asynchronously through the
// gateway's notification webhook.
func (s *OrderService) InitiatePayment(ctx context.Context, orderID string) (*external.PaymentInitResponse, error) {
	order, err := s.reservations.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != models.OrderPending {
		return nil, fmt.Errorf("%w: cannot pay for order in status %s",
			apperrors.ErrInvalidTransition, order.Status)
	}

	result, err := s.paymentClient.InitPayment(ctx, order.TotalAmount, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to initiate payment: %w", err)
	}

	return result, nil
}

func (s *OrderService) Get(ctx context.Context, orderID string) (*models.Order, error) {
	return s.reservations.GetOrder(ctx, orderID)
}

// Cancel moves a PENDING order to CANCELLED and releases its seats in the
// same transaction, so no seat is ever left orphaned without an owning order.
func (s *OrderService) Cancel(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.reservations.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !CanTransition(order.Status, models.OrderCancelled) {
		return nil, fmt.Errorf("%w: %s -> %s for order %s",
			apperrors.ErrInvalidTransition, order.Status, models.OrderCancelled, orderID)
	}

	result, err := s.holdRepo.Release(ctx, order.HoldID, models.OrderCancelled)
	if err != nil {
		return nil, err
	}
	if !result.Released {
		// The reaper got there first; report the order as it now stands.
		return s.reservations.GetOrder(ctx, orderID)
	}

	order.Status = models.OrderCancelled
	s.reservations.publishSeatTransitions(ctx, result.EventID, result.SeatIDs, models.SeatAvailable, order.HoldID)
	s.reservations.publishOrderEvent(ctx, models.SubjectOrderCancelled, order, "cancelled by user")
	s.reservations.invalidateSeatLists(ctx, result.EventID)

	return order, nil
}

// Refund moves a COMPLETED order to REFUNDED. Seats stay SOLD; resale is an
// admin decision outside this protocol.
func (s *OrderService) Refund(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.reservations.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !CanTransition(order.Status, models.OrderRefunded) {
		return nil, fmt.Errorf("%w: %s -> %s for order %s",
			apperrors.ErrInvalidTransition, order.Status, models.OrderRefunded, orderID)
	}

	applied, err := s.orderRepo.UpdateStatus(ctx, orderID, models.OrderCompleted, models.OrderRefunded)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, fmt.Errorf("%w: order %s moved concurrently",
			apperrors.ErrInvalidTransition, orderID)
	}

	order.Status = models.OrderRefunded
	s.reservations.publishOrderEvent(ctx, models.SubjectOrderRefunded, order, "refunded")

	return order, nil
}
