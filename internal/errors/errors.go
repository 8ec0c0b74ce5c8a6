package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the reservation core. Callers classify with errors.Is
// and map to transport codes at the handler layer.
var (
	// ErrNotFound - unknown event, seat, hold or order.
	ErrNotFound = errors.New("not found")

	// ErrKeyConflict - idempotency key reused with a different request
	// fingerprint. Permanent client error, never retried.
	ErrKeyConflict = errors.New("idempotency key reused with different request")

	// ErrInvalidTransition - order state machine violation. Indicates a caller
	// or internal logic bug; logged and surfaced as-is.
	ErrInvalidTransition = errors.New("invalid order state transition")

	// ErrTimeout - idempotency in-progress wait or confirm deadline exceeded.
	ErrTimeout = errors.New("operation timed out")

	// ErrFatal - storage or broker unreachable. Not retried locally; the
	// caller's outer retry/circuit-breaker policy applies.
	ErrFatal = errors.New("backend unavailable")
)

// ConflictError reports which requested seats were not in an eligible state,
// so the UI can re-render availability instead of failing opaquely.
type ConflictError struct {
	EventID int64
	SeatIDs []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("seats unavailable for event %d: %s", e.EventID, strings.Join(e.SeatIDs, ", "))
}

// NewConflict builds a ConflictError for the rejected seat set.
func NewConflict(eventID int64, seatIDs []string) *ConflictError {
	return &ConflictError{EventID: eventID, SeatIDs: seatIDs}
}

// IsConflict reports whether err is a seat availability conflict and returns
// the rejected seat ids when it is.
func IsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// Fatal wraps err as a non-retryable backend failure.
func Fatal(err error) error {
	return fmt.Errorf("%w: %v", ErrFatal, err)
}
