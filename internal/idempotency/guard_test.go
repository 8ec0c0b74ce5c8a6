package idempotency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintIgnoresSeatOrder(t *testing.T) {
	a := Fingerprint(1, []string{"R1-S1", "R1-S2", "R2-S1"})
	b := Fingerprint(1, []string{"R2-S1", "R1-S1", "R1-S2"})

	assert.Equal(t, a, b)
}

func TestFingerprintSeparatesEvents(t *testing.T) {
	a := Fingerprint(1, []string{"R1-S1"})
	b := Fingerprint(2, []string{"R1-S1"})

	assert.NotEqual(t, a, b)
}

func TestFingerprintSeparatesSeatSets(t *testing.T) {
	a := Fingerprint(1, []string{"R1-S1"})
	b := Fingerprint(1, []string{"R1-S1", "R1-S2"})
	c := Fingerprint(1, []string{"R1-S2"})

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, b, c)
}

func TestFingerprintDoesNotMutateInput(t *testing.T) {
	seats := []string{"R2-S1", "R1-S1"}
	Fingerprint(1, seats)

	assert.Equal(t, []string{"R2-S1", "R1-S1"}, seats)
}

// A reservation marker must outlive concurrent waiters but lapse far sooner
// than the retention window, so a caller that dies before Commit or Abort
// cannot hold the key hostage until retention expires.
func TestReserveTTLBoundsCrashWindow(t *testing.T) {
	g := &Guard{cfg: Config{
		Retention:    24 * time.Hour,
		WaitTimeout:  5 * time.Second,
		PollInterval: 100 * time.Millisecond,
	}}

	ttl := g.reserveTTL()
	assert.GreaterOrEqual(t, ttl, g.cfg.WaitTimeout, "waiters polling up to WaitTimeout must still see the marker")
	assert.Less(t, ttl, time.Minute)
}

func TestReserveTTLNeverExceedsRetention(t *testing.T) {
	g := &Guard{cfg: Config{
		Retention:    2 * time.Second,
		WaitTimeout:  5 * time.Second,
		PollInterval: 100 * time.Millisecond,
	}}

	assert.LessOrEqual(t, g.reserveTTL(), g.cfg.Retention)
}
