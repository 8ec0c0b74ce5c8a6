package service

import (
	"time"

	"parterre/internal/cache"
	"parterre/internal/external"
	"parterre/internal/idempotency"
	"parterre/internal/messaging"
	"parterre/internal/repository"
)

type Services struct {
	Events       *EventService
	Seats        *SeatService
	Reservations *ReservationService
	Orders       *OrderService
}

func NewServices(repos *repository.Repositories, guard *idempotency.Guard, natsClient *messaging.NATSClient, valkeyClient *cache.ValkeyClient, predictor external.DemandPredictor, paymentClient *external.PaymentClient, holdDuration, confirmTimeout time.Duration) *Services {
	reservationService := NewReservationService(repos, guard, natsClient, valkeyClient, holdDuration, confirmTimeout)

	return &Services{
		Events:       NewEventService(repos),
		Seats:        NewSeatService(repos, predictor),
		Reservations: reservationService,
		Orders:       NewOrderService(repos, reservationService, paymentClient),
	}
}
