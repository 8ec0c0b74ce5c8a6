package consumers

import (
	"context"
	"log/slog"

	"parterre/internal/cache"
	"parterre/internal/config"
	"parterre/internal/database"
	"parterre/internal/external"
	"parterre/internal/idempotency"
	"parterre/internal/messaging"
	"parterre/internal/models"
	"parterre/internal/repository"
	"parterre/internal/service"
)

const queueGroup = "consumers"

// ConsumerService hosts the audit subscriptions for the consumers binary so
// API instances stay request-only.
type ConsumerService struct {
	db       *database.DB
	nats     *messaging.NATSClient
	guard    *idempotency.Guard
	valkey   *cache.ValkeyClient
	repos    *repository.Repositories
	services *service.Services
	handlers *Handlers
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, err
	}

	guard, err := idempotency.NewGuard(cfg.ValkeyAddr, cfg.ValkeyPass, cfg.Idempotency)
	if err != nil {
		return nil, err
	}

	valkeyClient, err := cache.NewValkeyClient(cfg.ValkeyAddr, cfg.ValkeyPass)
	if err != nil {
		return nil, err
	}

	repos := repository.NewRepositories(db)

	// The full service stack is built here so the hold reaper can release
	// through the same path a cancel takes: seat events, order terminal
	// status and cache invalidation included.
	services := service.NewServices(repos, guard, natsClient, valkeyClient,
		external.NewDemandClient(cfg.Demand), external.NewPaymentClient(cfg.Payment),
		cfg.HoldDuration, cfg.ConfirmTimeout)

	return &ConsumerService{
		db:       db,
		nats:     natsClient,
		guard:    guard,
		valkey:   valkeyClient,
		repos:    repos,
		services: services,
		handlers: NewHandlers(repos),
	}, nil
}

// Repositories exposes the repository layer for background jobs.
func (cs *ConsumerService) Repositories() *repository.Repositories {
	return cs.repos
}

// Reservations exposes the reservation service for background jobs.
func (cs *ConsumerService) Reservations() *service.ReservationService {
	return cs.services.Reservations
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	if _, err := cs.nats.SubscribeQueue(models.SubjectOrderCreated, queueGroup, cs.handlers.HandleOrderCreated); err != nil {
		return err
	}

	if _, err := cs.nats.SubscribeQueue(models.SubjectOrderExpired, queueGroup, cs.handlers.HandleOrderExpired); err != nil {
		return err
	}

	if _, err := cs.nats.SubscribeQueue(models.SubjectOrderCancelled, queueGroup, cs.handlers.HandleOrderCancelled); err != nil {
		return err
	}

	if _, err := cs.nats.SubscribeQueue(models.SubjectOrderCompleted, queueGroup, cs.handlers.HandleOrderCompleted); err != nil {
		return err
	}

	if _, err := cs.nats.SubscribeQueue(models.SubjectOrderRefunded, queueGroup, cs.handlers.HandleOrderRefunded); err != nil {
		return err
	}

	slog.Info("All consumers started successfully")
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if cs.guard != nil {
		if err := cs.guard.Close(); err != nil {
			slog.Error("Error closing idempotency store", "error", err)
		}
	}

	if cs.valkey != nil {
		if err := cs.valkey.Close(); err != nil {
			slog.Error("Error closing seat cache", "error", err)
		}
	}

	if cs.db != nil {
		if err := cs.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
