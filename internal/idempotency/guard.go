package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	apperrors "parterre/internal/errors"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "idem:"

const (
	stateReserved = "reserved"
	stateDone     = "done"
)

type Config struct {
	Retention    time.Duration
	WaitTimeout  time.Duration
	PollInterval time.Duration
}

// Guard deduplicates booking requests keyed by a caller-supplied token.
// The first caller atomically inserts a reservation marker and proceeds;
// replays wait for the final result and get it back without re-executing
// side effects. Reservation markers carry a short TTL so a caller that dies
// before Commit or Abort cannot wedge the key; committed records expire
// after the retention window.
type Guard struct {
	client *redis.Client
	cfg    Config
}

type record struct {
	State       string `json:"state"`
	Fingerprint string `json:"fingerprint"`
	OrderID     string `json:"order_id,omitempty"`
}

func NewGuard(addr, password string, cfg Config) (*Guard, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	return &Guard{client: rdb, cfg: cfg}, nil
}

// Fingerprint hashes the request payload so a reused key with a different
// seat set is detectable. Seat ids are sorted: the same set in any order
// yields the same fingerprint.
func Fingerprint(eventID int64, seatIDs []string) string {
	sorted := make([]string, len(seatIDs))
	copy(sorted, seatIDs)
	sort.Strings(sorted)

	h := sha256.Sum256([]byte(fmt.Sprintf("%d|%s", eventID, strings.Join(sorted, ","))))
	return fmt.Sprintf("%x", h)
}

// reserveTTL bounds how long a crashed first attempt can block its key. A
// retry after the marker lapses re-runs the booking; the unique index on the
// order's idempotency key recovers the original result if the first attempt
// actually committed.
func (g *Guard) reserveTTL() time.Duration {
	ttl := 4 * g.cfg.WaitTimeout
	if ttl < 10*time.Second {
		ttl = 10 * time.Second
	}
	if g.cfg.Retention > 0 && ttl > g.cfg.Retention {
		ttl = g.cfg.Retention
	}
	return ttl
}

// CheckOrInsert reserves key for the caller or returns the stored result.
// Return values: (orderID, reserved, err). reserved=true means this caller
// won the key and must finish with Commit or Abort. A non-empty orderID is
// the replayed result of an earlier identical request.
func (g *Guard) CheckOrInsert(ctx context.Context, key, fingerprint string) (string, bool, error) {
	payload, err := json.Marshal(record{State: stateReserved, Fingerprint: fingerprint})
	if err != nil {
		return "", false, err
	}

	deadline := time.Now().Add(g.cfg.WaitTimeout)
	for {
		ok, err := g.client.SetNX(ctx, keyPrefix+key, payload, g.reserveTTL()).Result()
		if err != nil {
			return "", false, apperrors.Fatal(err)
		}
		if ok {
			return "", true, nil
		}

		val, err := g.client.Get(ctx, keyPrefix+key).Result()
		if err == redis.Nil {
			// First caller aborted between our SetNX and Get; race again.
			continue
		}
		if err != nil {
			return "", false, apperrors.Fatal(err)
		}

		var rec record
		if err := json.Unmarshal([]byte(val), &rec); err != nil {
			return "", false, fmt.Errorf("corrupt idempotency record for key %s: %w", key, err)
		}

		if rec.Fingerprint != fingerprint {
			return "", false, apperrors.ErrKeyConflict
		}

		if rec.State == stateDone {
			return rec.OrderID, false, nil
		}

		// Reserved-in-progress: short poll with a capped wait.
		if time.Now().After(deadline) {
			return "", false, apperrors.ErrTimeout
		}
		select {
		case <-ctx.Done():
			return "", false, ctx.Err()
		case <-time.After(g.cfg.PollInterval):
		}
	}
}

// Commit writes the final result so replays return it directly, extending
// the record from the reserve TTL to the full retention window.
func (g *Guard) Commit(ctx context.Context, key, fingerprint, orderID string) error {
	payload, err := json.Marshal(record{State: stateDone, Fingerprint: fingerprint, OrderID: orderID})
	if err != nil {
		return err
	}
	if err := g.client.Set(ctx, keyPrefix+key, payload, g.cfg.Retention).Err(); err != nil {
		return apperrors.Fatal(err)
	}
	return nil
}

// Abort removes the reservation marker after a failed attempt so the caller
// may retry with the same key.
func (g *Guard) Abort(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return apperrors.Fatal(err)
	}
	return nil
}

func (g *Guard) Close() error {
	return g.client.Close()
}
