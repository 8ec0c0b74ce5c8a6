package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration tracks request latency per route and status.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "parterre_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	// BookingsTotal counts booking attempts by outcome.
	BookingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parterre_bookings_total",
		Help: "Booking attempts by result",
	}, []string{"result"})

	// SeatTransitionsTotal counts applied seat transitions by target status.
	SeatTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parterre_seat_transitions_total",
		Help: "Applied seat state transitions",
	}, []string{"to_status"})

	// HoldsReleasedTotal counts hold releases by cause. The reason label is
	// "expired" only when the reaper reclaimed a lapsed hold.
	HoldsReleasedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parterre_holds_released_total",
		Help: "Hold releases by reason",
	}, []string{"reason"})

	// FanoutDeliveredTotal counts seat-transition deliveries to subscribers.
	FanoutDeliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parterre_fanout_delivered_total",
		Help: "Seat transition events delivered to subscribers",
	})

	// FanoutDroppedTotal counts deliveries dropped for slow subscribers.
	FanoutDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parterre_fanout_dropped_total",
		Help: "Seat transition events dropped due to slow subscribers",
	})

	// IdempotencyReplaysTotal counts requests answered from the guard.
	IdempotencyReplaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parterre_idempotency_replays_total",
		Help: "Booking requests answered from the idempotency guard",
	})
)
