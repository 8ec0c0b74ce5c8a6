package service

import (
	"testing"

	"parterre/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionLegalEdges(t *testing.T) {
	legal := []struct{ from, to string }{
		{models.OrderPending, models.OrderCompleted},
		{models.OrderPending, models.OrderCancelled},
		{models.OrderPending, models.OrderExpired},
		{models.OrderCompleted, models.OrderRefunded},
	}

	for _, tc := range legal {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be legal", tc.from, tc.to)
	}
}

func TestCanTransitionRejectsEverythingElse(t *testing.T) {
	statuses := []string{
		models.OrderPending,
		models.OrderCompleted,
		models.OrderCancelled,
		models.OrderExpired,
		models.OrderRefunded,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			want := (from == models.OrderPending && to != models.OrderPending && to != models.OrderRefunded) ||
				(from == models.OrderCompleted && to == models.OrderRefunded)
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	terminal := []string{models.OrderCancelled, models.OrderExpired, models.OrderRefunded}
	targets := []string{
		models.OrderPending,
		models.OrderCompleted,
		models.OrderCancelled,
		models.OrderExpired,
		models.OrderRefunded,
	}

	for _, from := range terminal {
		for _, to := range targets {
			assert.False(t, CanTransition(from, to), "terminal %s must not exit to %s", from, to)
		}
	}
}

func TestRefundedDoesNotReopenSelling(t *testing.T) {
	// A refunded order never returns seats to the pool through the state
	// machine; resale would need an explicit admin path.
	assert.False(t, CanTransition(models.OrderRefunded, models.OrderPending))
	assert.False(t, CanTransition(models.OrderCompleted, models.OrderPending))
}
