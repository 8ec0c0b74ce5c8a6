package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parterre/internal/cache"
	apperrors "parterre/internal/errors"
	"parterre/internal/idempotency"
	"parterre/internal/logger"
	"parterre/internal/messaging"
	"parterre/internal/metrics"
	"parterre/internal/models"
	"parterre/internal/repository"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// ReservationService is the reservation coordinator: it owns the hold /
// release / confirm protocol on top of the seat store's atomic transition.
type ReservationService struct {
	eventRepo      *repository.EventRepository
	seatRepo       *repository.SeatRepository
	holdRepo       *repository.HoldRepository
	orderRepo      *repository.OrderRepository
	guard          *idempotency.Guard
	natsClient     *messaging.NATSClient
	valkeyClient   *cache.ValkeyClient
	holdDuration   time.Duration
	confirmTimeout time.Duration
}

func NewReservationService(repos *repository.Repositories, guard *idempotency.Guard, natsClient *messaging.NATSClient, valkeyClient *cache.ValkeyClient, holdDuration, confirmTimeout time.Duration) *ReservationService {
	return &ReservationService{
		eventRepo:      repos.Events,
		seatRepo:       repos.Seats,
		holdRepo:       repos.Holds,
		orderRepo:      repos.Orders,
		guard:          guard,
		natsClient:     natsClient,
		valkeyClient:   valkeyClient,
		holdDuration:   holdDuration,
		confirmTimeout: confirmTimeout,
	}
}

// BookSeats reserves a seat set under an idempotency key: the whole set is
// held atomically, a PENDING order is created for it, and a replay with the
// same key returns the same order without re-executing side effects.
func (s *ReservationService) BookSeats(ctx context.Context, req *models.BookSeatsRequest) (*models.Order, error) {
	fingerprint := idempotency.Fingerprint(req.EventID, req.SeatIDs)

	orderID, reserved, err := s.guard.CheckOrInsert(ctx, req.IdempotencyKey, fingerprint)
	if err != nil {
		return nil, err
	}
	if !reserved {
		metrics.IdempotencyReplaysTotal.Inc()
		order, err := s.orderRepo.GetByID(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("failed to load replayed order: %w", err)
		}
		if order == nil {
			return nil, fmt.Errorf("%w: replayed order %s", apperrors.ErrNotFound, orderID)
		}
		return order, nil
	}

	order, err := s.bookReserved(ctx, req)
	if err != nil {
		// Free the key so the caller may retry after fixing the conflict.
		if abortErr := s.guard.Abort(ctx, req.IdempotencyKey); abortErr != nil {
			logger.WithContext(ctx).Error("Failed to abort idempotency reservation",
				"error", abortErr,
				"idempotency_key", req.IdempotencyKey)
		}
		metrics.BookingsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	if err := s.guard.Commit(ctx, req.IdempotencyKey, fingerprint, order.ID); err != nil {
		logger.WithContext(ctx).Error("Failed to commit idempotency result",
			"error", err,
			"order_id", order.ID)
	}

	metrics.BookingsTotal.WithLabelValues("accepted").Inc()
	return order, nil
}

// bookReserved runs the booking once the idempotency key is won.
func (s *ReservationService) bookReserved(ctx context.Context, req *models.BookSeatsRequest) (*models.Order, error) {
	event, err := s.eventRepo.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, fmt.Errorf("%w: event %d", apperrors.ErrNotFound, req.EventID)
	}

	holder := req.HolderID
	if holder == "" {
		holder = "anonymous"
	}

	hold := &models.Hold{
		ID:        uuid.New().String(),
		EventID:   req.EventID,
		SeatIDs:   req.SeatIDs,
		HolderID:  holder,
		ExpiresAt: time.Now().Add(s.holdDuration),
	}
	if err := s.holdRepo.Create(ctx, hold); err != nil {
		return nil, fmt.Errorf("failed to create hold: %w", err)
	}

	holderID := hold.ID
	err = s.seatRepo.TryTransition(ctx, req.EventID, req.SeatIDs,
		[]string{models.SeatAvailable}, models.SeatHeld, &holderID)
	if err != nil {
		// The hold never owned any seat; retire its row.
		if _, relErr := s.holdRepo.Release(ctx, hold.ID, models.OrderExpired); relErr != nil {
			logger.WithContext(ctx).Error("Failed to retire unused hold",
				"error", relErr,
				"hold_id", hold.ID)
		}
		return nil, err
	}

	totalAmount, err := s.seatRepo.SumBasePrices(ctx, req.EventID, req.SeatIDs)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to price seat set", "error", err, "hold_id", hold.ID)
	}

	order := &models.Order{
		ID:             uuid.New().String(),
		EventID:        req.EventID,
		HoldID:         hold.ID,
		SeatIDs:        req.SeatIDs,
		Status:         models.OrderPending,
		TotalAmount:    totalAmount,
		IdempotencyKey: req.IdempotencyKey,
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		if _, relErr := s.holdRepo.Release(ctx, hold.ID, models.OrderExpired); relErr != nil {
			logger.WithContext(ctx).Error("Failed to release hold after order failure",
				"error", relErr,
				"hold_id", hold.ID)
		}
		// The unique index on idempotency_key backstops the guard: if its
		// record was lost after the first attempt committed, recover the
		// original order instead of failing the retry.
		if isUniqueViolation(err) {
			existing, lookupErr := s.orderRepo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
			if lookupErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.publishSeatTransitions(ctx, req.EventID, req.SeatIDs, models.SeatHeld, hold.ID)
	s.publishOrderEvent(ctx, models.SubjectOrderCreated, order, "")
	s.invalidateSeatLists(ctx, req.EventID)

	return order, nil
}

// Release reasons, recorded on the release metric and the order event.
const (
	ReleaseExpired        = "expired"
	ReleasePaymentFailed  = "payment_failed"
	ReleaseConfirmTimeout = "confirm_timeout"
)

// Release reclaims a hold's seats unconditionally. Releasing twice is a
// no-op. A PENDING order on the hold moves to EXPIRED in the same step.
func (s *ReservationService) Release(ctx context.Context, holdID, reason string) error {
	result, err := s.holdRepo.Release(ctx, holdID, models.OrderExpired)
	if err != nil {
		return err
	}
	if !result.Released {
		return nil
	}

	metrics.HoldsReleasedTotal.WithLabelValues(reason).Inc()
	s.publishSeatTransitions(ctx, result.EventID, result.SeatIDs, models.SeatAvailable, holdID)
	if result.OrderID != "" {
		s.publishOrderEvent(ctx, models.SubjectOrderExpired, &models.Order{
			ID:      result.OrderID,
			EventID: result.EventID,
			Status:  models.OrderExpired,
		}, reason)
	}
	s.invalidateSeatLists(ctx, result.EventID)

	return nil
}

// Confirm converts the order's hold into a sale. The step is bounded: past
// the confirm deadline it is treated as failed and the hold is released.
func (s *ReservationService) Confirm(ctx context.Context, orderID string) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
	defer cancel()

	order, err := s.orderRepo.Confirm(ctx, orderID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			if stale, lookupErr := s.orderRepo.GetByID(context.WithoutCancel(ctx), orderID); lookupErr == nil && stale != nil {
				if relErr := s.Release(context.WithoutCancel(ctx), stale.HoldID, ReleaseConfirmTimeout); relErr != nil {
					logger.WithContext(ctx).Error("Failed to release hold after confirm timeout",
						"error", relErr,
						"order_id", orderID)
				}
			}
			return nil, apperrors.ErrTimeout
		}
		return nil, err
	}

	s.publishSeatTransitions(ctx, order.EventID, order.SeatIDs, models.SeatSold, order.HoldID)
	s.publishOrderEvent(ctx, models.SubjectOrderCompleted, order, "")
	s.invalidateSeatLists(ctx, order.EventID)

	return order, nil
}

func (s *ReservationService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, fmt.Errorf("%w: order %s", apperrors.ErrNotFound, orderID)
	}
	return order, nil
}

func (s *ReservationService) publishSeatTransitions(ctx context.Context, eventID int64, seatIDs []string, newStatus, holdID string) {
	for _, seatID := range seatIDs {
		metrics.SeatTransitionsTotal.WithLabelValues(newStatus).Inc()

		event := models.SeatTransitionEvent{
			Type:      models.TransitionType(newStatus),
			EventID:   eventID,
			SeatID:    seatID,
			NewStatus: newStatus,
			HoldID:    holdID,
			Timestamp: time.Now(),
		}
		if err := s.natsClient.Publish(models.SubjectSeatTransition, event); err != nil {
			// Log but do not fail the booking path over delivery.
			logger.WithContext(ctx).Error("Failed to publish seat transition",
				"error", err,
				"event_id", eventID,
				"seat_id", seatID,
				"new_status", newStatus)
		}
	}
}

func (s *ReservationService) publishOrderEvent(ctx context.Context, subject string, order *models.Order, reason string) {
	event := models.OrderLifecycleEvent{
		OrderID:   order.ID,
		EventID:   order.EventID,
		Status:    order.Status,
		Reason:    reason,
		Timestamp: time.Now(),
	}
	if err := s.natsClient.Publish(subject, event); err != nil {
		logger.WithContext(ctx).Error("Failed to publish order event",
			"error", err,
			"order_id", order.ID,
			"subject", subject)
	}
}

func (s *ReservationService) invalidateSeatLists(ctx context.Context, eventID int64) {
	if s.valkeyClient == nil {
		return
	}
	if err := s.valkeyClient.InvalidateSeatLists(ctx, eventID); err != nil {
		logger.WithContext(ctx).Error("Failed to invalidate seat list cache",
			"error", err,
			"event_id", eventID)
	}
}
