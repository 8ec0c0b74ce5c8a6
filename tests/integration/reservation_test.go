package integration

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"parterre/internal/models"

	"github.com/google/uuid"
)

func createSmallEvent(t *testing.T, client *TestClient, title string) int64 {
	t.Helper()
	event := client.CreateEvent(t, models.CreateEventRequest{
		Title:       title,
		Rows:        2,
		SeatsPerRow: 5,
		Sections:    1,
		BasePrice:   1000,
	})
	return event.ID
}

// Many buyers race for overlapping seat sets; every seat must end up held by
// at most one of them, and each request either fully succeeds or fully fails.
func TestConcurrentBookingsNeverDoubleSell(t *testing.T) {
	client := NewTestClient(t)
	eventID := createSmallEvent(t, client, "Concurrency Night")

	available := SeatIDsByStatus(client.ListSeats(t, eventID, models.SeatAvailable), models.SeatAvailable)
	if len(available) < 6 {
		t.Fatalf("expected at least 6 available seats, got %d", len(available))
	}
	pool := available[:6]

	// Sliding windows over a small pool so every request overlaps several
	// others on at least one seat.
	const workers = 8
	seatSets := make([][]string, workers)
	for i := range seatSets {
		seatSets[i] = []string{
			pool[i%len(pool)],
			pool[(i+1)%len(pool)],
			pool[(i+2)%len(pool)],
		}
	}

	LogTestStep(t, "Launching %d concurrent bookings over %d seats", workers, len(pool))

	results := make(chan BookingResult, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(seats []string) {
			defer wg.Done()
			results <- client.TryBookSeats(eventID, seats, uuid.New().String())
		}(seatSets[i])
	}
	wg.Wait()
	close(results)

	succeeded := 0
	claimedBy := make(map[string]string)
	for result := range results {
		if result.Err != nil {
			t.Fatalf("booking attempt failed: %v", result.Err)
		}
		switch result.Status {
		case http.StatusCreated:
			succeeded++
			for _, seatID := range result.Order.SeatIDs {
				if owner, taken := claimedBy[seatID]; taken {
					t.Errorf("seat %s sold to both order %s and order %s", seatID, owner, result.Order.ID)
				}
				claimedBy[seatID] = result.Order.ID
			}
		case http.StatusConflict:
			// Loser of the race; all-or-nothing means it holds no seats.
		default:
			t.Errorf("unexpected booking status %d", result.Status)
		}
	}

	if succeeded == 0 {
		t.Fatal("no booking succeeded against a fully available event")
	}

	held := SeatIDsByStatus(client.ListSeats(t, eventID, models.SeatHeld), models.SeatHeld)
	if len(held) != len(claimedBy) {
		t.Errorf("%d seats HELD in inventory but %d seats claimed by orders", len(held), len(claimedBy))
	}

	LogTestResult(t, "%d of %d bookings won, %d seats held, no seat claimed twice", succeeded, workers, len(claimedBy))
}

// Replaying the same idempotency key returns the original order without
// taking any additional seats.
func TestIdempotencyKeyReplayReturnsSameOrder(t *testing.T) {
	client := NewTestClient(t)
	eventID := createSmallEvent(t, client, "Replay Night")

	available := SeatIDsByStatus(client.ListSeats(t, eventID, models.SeatAvailable), models.SeatAvailable)
	if len(available) < 2 {
		t.Fatalf("expected at least 2 available seats, got %d", len(available))
	}
	seats := available[:2]
	key := uuid.New().String()

	LogTestStep(t, "Booking seats %v then replaying key %s", seats, key)

	first := client.BookSeats(t, eventID, seats, key)

	replay := client.TryBookSeats(eventID, seats, key)
	if replay.Err != nil {
		t.Fatalf("replay failed: %v", replay.Err)
	}
	if replay.Status != http.StatusCreated {
		t.Fatalf("replay returned %d, want 201", replay.Status)
	}
	if replay.Order.ID != first.ID {
		t.Errorf("replay returned order %s, want original order %s", replay.Order.ID, first.ID)
	}

	held := SeatIDsByStatus(client.ListSeats(t, eventID, models.SeatHeld), models.SeatHeld)
	if len(held) != len(seats) {
		t.Errorf("replay changed inventory: %d seats HELD, want %d", len(held), len(seats))
	}

	LogTestResult(t, "Replay returned order %s with no extra seats held", first.ID)
}

// Reusing an idempotency key for a different seat set is a conflict, and the
// original order is untouched.
func TestIdempotencyKeyConflictOnDifferentSeats(t *testing.T) {
	client := NewTestClient(t)
	eventID := createSmallEvent(t, client, "Key Conflict Night")

	available := SeatIDsByStatus(client.ListSeats(t, eventID, models.SeatAvailable), models.SeatAvailable)
	if len(available) < 4 {
		t.Fatalf("expected at least 4 available seats, got %d", len(available))
	}
	key := uuid.New().String()

	first := client.BookSeats(t, eventID, available[:2], key)

	LogTestStep(t, "Reusing key %s for a different seat set", key)

	conflict := client.TryBookSeats(eventID, available[2:4], key)
	if conflict.Err != nil {
		t.Fatalf("conflicting booking failed: %v", conflict.Err)
	}
	if conflict.Status != http.StatusConflict {
		t.Fatalf("reused key with different seats returned %d, want 409", conflict.Status)
	}

	order := client.GetOrder(t, first.ID)
	if order.Status != models.OrderPending {
		t.Errorf("original order moved to %s after key conflict, want PENDING", order.Status)
	}

	seats := client.ListSeats(t, eventID, "")
	for _, seatID := range available[:2] {
		AssertSeatStatus(t, seats, seatID, models.SeatHeld)
	}
	for _, seatID := range available[2:4] {
		AssertSeatStatus(t, seats, seatID, models.SeatAvailable)
	}

	LogTestResult(t, "Conflicting replay rejected, order %s and its seats untouched", first.ID)
}

// A hold past its TTL is reclaimed by the reaper: subscribers see
// SEAT_RELEASED, the seats return to AVAILABLE and the order expires.
func TestExpiredHoldReturnsSeatsToInventory(t *testing.T) {
	ttl := shortHoldTTL(t)
	client := NewTestClient(t)
	eventID := createSmallEvent(t, client, "Expiry Night")

	available := SeatIDsByStatus(client.ListSeats(t, eventID, models.SeatAvailable), models.SeatAvailable)
	if len(available) < 2 {
		t.Fatalf("expected at least 2 available seats, got %d", len(available))
	}
	seats := available[:2]

	// The reaper sweeps on its own interval, so allow a generous margin
	// past the TTL itself.
	deadline := ttl + 15*time.Second
	ctx, cancel := context.WithTimeout(context.Background(), deadline)
	defer cancel()

	stream := client.WatchSeatEvents(ctx, t, eventID)

	order := client.BookSeats(t, eventID, seats, uuid.New().String())
	LogTestStep(t, "Booked seats %v with a %s hold TTL, waiting for the reaper", seats, ttl)

	released := make(map[string]bool)
	for len(released) < len(seats) {
		select {
		case event, ok := <-stream:
			if !ok {
				t.Fatal("seat event stream closed before all seats were released")
			}
			if event.Type == models.TransitionSeatReleased {
				released[event.SeatID] = true
			}
		case <-ctx.Done():
			t.Fatalf("no release observed within %s; got %d of %d seats released", deadline, len(released), len(seats))
		}
	}

	listing := client.ListSeats(t, eventID, "")
	for _, seatID := range seats {
		AssertSeatStatus(t, listing, seatID, models.SeatAvailable)
	}

	expired := client.GetOrder(t, order.ID)
	if expired.Status != models.OrderExpired {
		t.Errorf("order %s has status %s after hold expiry, want EXPIRED", order.ID, expired.Status)
	}

	LogTestResult(t, "Hold expired, %d seats released back to inventory, order %s EXPIRED", len(seats), order.ID)
}
