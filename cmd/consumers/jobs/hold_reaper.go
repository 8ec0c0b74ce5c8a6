package jobs

import (
	"context"
	"log/slog"
	"time"

	"parterre/internal/repository"
	"parterre/internal/service"
)

// reapBatchSize bounds how many expired holds one tick processes so a burst
// of expirations cannot monopolize the pool.
const reapBatchSize = 100

// HoldReaper releases holds whose TTL has lapsed. Expiry is detected by
// scanning, not by per-hold timers, so a missed tick only delays release.
type HoldReaper struct {
	holdRepo     *repository.HoldRepository
	reservations *service.ReservationService
	interval     time.Duration
	ticker       *time.Ticker
	done         chan bool
}

func NewHoldReaper(holdRepo *repository.HoldRepository, reservations *service.ReservationService, interval time.Duration) *HoldReaper {
	return &HoldReaper{
		holdRepo:     holdRepo,
		reservations: reservations,
		interval:     interval,
		done:         make(chan bool),
	}
}

// Start begins the background loop that sweeps for expired holds
func (j *HoldReaper) Start(ctx context.Context) {
	slog.Info("Starting hold reaper", "interval", j.interval.String())

	j.ticker = time.NewTicker(j.interval)

	go j.sweep(ctx)

	go func() {
		for {
			select {
			case <-j.ticker.C:
				j.sweep(ctx)
			case <-j.done:
				slog.Info("Hold reaper stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the background loop
func (j *HoldReaper) Stop() {
	if j.ticker != nil {
		j.ticker.Stop()
	}
	close(j.done)
}

func (j *HoldReaper) sweep(ctx context.Context) {
	expired, err := j.holdRepo.GetExpired(ctx, time.Now(), reapBatchSize)
	if err != nil {
		slog.Error("Failed to scan for expired holds", "error", err)
		return
	}

	if len(expired) == 0 {
		slog.Debug("No expired holds found")
		return
	}

	slog.Info("Found expired holds to release", "count", len(expired))

	for _, hold := range expired {
		// Release is idempotent; losing a race to a concurrent confirm or
		// cancel is a no-op, not an error.
		if err := j.reservations.Release(ctx, hold.ID, service.ReleaseExpired); err != nil {
			slog.Error("Failed to release expired hold",
				"error", err,
				"hold_id", hold.ID,
				"event_id", hold.EventID,
				"expires_at", hold.ExpiresAt)
			continue
		}

		slog.Info("Released expired hold",
			"hold_id", hold.ID,
			"event_id", hold.EventID,
			"seats", len(hold.SeatIDs),
			"overdue", time.Since(hold.ExpiresAt).String())
	}
}
