package fanout

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"parterre/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transition(eventID int64, seatID string) models.SeatTransitionEvent {
	return models.SeatTransitionEvent{
		Type:      models.TransitionSeatHeld,
		EventID:   eventID,
		SeatID:    seatID,
		NewStatus: models.SeatHeld,
		Timestamp: time.Now(),
	}
}

func TestBroadcastScopedToEvent(t *testing.T) {
	hub := NewHub()

	subA := hub.Join(1, "viewer-a")
	subB := hub.Join(2, "viewer-b")

	hub.Broadcast(transition(1, "A-1"))

	select {
	case got := <-subA.Events():
		assert.Equal(t, "A-1", got.SeatID)
		assert.Equal(t, int64(1), got.EventID)
	case <-time.After(time.Second):
		t.Fatal("subscriber of event 1 did not receive the transition")
	}

	select {
	case got := <-subB.Events():
		t.Fatalf("subscriber of event 2 received foreign transition: %+v", got)
	default:
	}
}

func TestJoinAfterEmissionSeesNothing(t *testing.T) {
	hub := NewHub()

	hub.Broadcast(transition(7, "B-3"))

	sub := hub.Join(7, "late-viewer")
	select {
	case got := <-sub.Events():
		t.Fatalf("late subscriber received a replayed transition: %+v", got)
	default:
	}
}

func TestLeaveClosesChannelAndIsIdempotent(t *testing.T) {
	hub := NewHub()

	sub := hub.Join(3, "viewer")
	hub.Leave(3, "viewer")
	hub.Leave(3, "viewer")

	_, open := <-sub.Events()
	assert.False(t, open)
	assert.Equal(t, 0, hub.SubscriberCount(3))

	// Broadcast after leave must not panic or deliver.
	hub.Broadcast(transition(3, "C-9"))
}

func TestSlowSubscriberDoesNotBlockOthers(t *testing.T) {
	hub := NewHub()

	slow := hub.Join(5, "slow")
	fast := hub.Join(5, "fast")

	// Overflow the slow subscriber's buffer without draining it.
	for i := 0; i < subscriberBuffer+10; i++ {
		hub.Broadcast(transition(5, fmt.Sprintf("D-%d", i)))
	}

	// The fast subscriber still got a full buffer's worth.
	require.Equal(t, subscriberBuffer, len(fast.Events()))
	// The slow subscriber kept its first buffered events; the rest dropped.
	assert.Equal(t, subscriberBuffer, len(slow.Events()))
}

func TestConcurrentJoinLeaveBroadcast(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("viewer-%d", i)
			sub := hub.Join(9, id)
			for range sub.Events() {
			}
		}(i)
	}

	for i := 0; i < 200; i++ {
		hub.Broadcast(transition(9, fmt.Sprintf("E-%d", i)))
	}
	for i := 0; i < 16; i++ {
		hub.Leave(9, fmt.Sprintf("viewer-%d", i))
	}
	wg.Wait()

	assert.Equal(t, 0, hub.SubscriberCount(9))
}
