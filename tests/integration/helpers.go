// Package integration exercises a running deployment over HTTP. The tests
// skip unless PARTERRE_API_URL points at a live API instance backed by
// Postgres, NATS and Valkey, with the consumers binary running the reaper.
package integration

import (
	"os"
	"strconv"
	"testing"
	"time"

	"parterre/internal/models"
)

const (
	apiURLEnv  = "PARTERRE_API_URL"
	holdTTLEnv = "PARTERRE_TEST_HOLD_TTL_SEC"
)

func apiBaseURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv(apiURLEnv)
	if url == "" {
		t.Skipf("set %s to run integration tests against a live deployment", apiURLEnv)
	}
	return url
}

// shortHoldTTL reports the target deployment's hold TTL. Expiry tests need
// the target started with a short HOLD_DURATION_SEC and skip otherwise.
func shortHoldTTL(t *testing.T) time.Duration {
	t.Helper()
	raw := os.Getenv(holdTTLEnv)
	if raw == "" {
		t.Skipf("set %s to the target's HOLD_DURATION_SEC to run expiry tests", holdTTLEnv)
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 1 {
		t.Fatalf("invalid %s value %q", holdTTLEnv, raw)
	}
	if secs > 10 {
		t.Skipf("%s=%d is too long to observe expiry in a test run", holdTTLEnv, secs)
	}
	return time.Duration(secs) * time.Second
}

// SeatIDsByStatus filters a listing down to seat ids in the given status.
func SeatIDsByStatus(seats models.ListSeatsResponse, status string) []string {
	var ids []string
	for _, seat := range seats {
		if seat.Status == status {
			ids = append(ids, seat.SeatID)
		}
	}
	return ids
}

// AssertSeatStatus fails the test if seatID is absent or not in wantStatus.
func AssertSeatStatus(t *testing.T, seats models.ListSeatsResponse, seatID, wantStatus string) {
	t.Helper()
	for _, seat := range seats {
		if seat.SeatID == seatID {
			if seat.Status != wantStatus {
				t.Errorf("seat %s has status %s, want %s", seatID, seat.Status, wantStatus)
			}
			return
		}
	}
	t.Errorf("seat %s not found in listing", seatID)
}

// LogTestStep logs a test step with consistent formatting
func LogTestStep(t *testing.T, format string, args ...interface{}) {
	t.Helper()
	t.Logf("🔹 "+format, args...)
}

// LogTestResult logs a test result with consistent formatting
func LogTestResult(t *testing.T, format string, args ...interface{}) {
	t.Helper()
	t.Logf("✅ "+format, args...)
}
