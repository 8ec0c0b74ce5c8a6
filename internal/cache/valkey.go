package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const seatListTTL = 2 * time.Second

// ValkeyClient caches the hot "seats for event" listing as raw JSON. The TTL
// is short: listings tolerate a couple seconds of staleness, the stream keeps
// viewers current in between.
type ValkeyClient struct {
	client *redis.Client
}

func NewValkeyClient(addr, password string) (*ValkeyClient, error) {
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

	return &ValkeyClient{client: rdb}, nil
}

func seatListKey(eventID int64, page, pageSize int) string {
	return fmt.Sprintf("seats:%d:%d:%d", eventID, page, pageSize)
}

// GetSeatListRaw returns the cached listing as raw JSON to skip a decode/encode
// round trip on the hot path.
func (v *ValkeyClient) GetSeatListRaw(ctx context.Context, eventID int64, page, pageSize int) ([]byte, error) {
	data, err := v.client.Get(ctx, seatListKey(eventID, page, pageSize)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("seat list not cached")
		}
		return nil, fmt.Errorf("cache lookup error: %w", err)
	}
	return data, nil
}

// SetSeatList stores a listing; failures are ignored by callers since the
// cache is best-effort.
func (v *ValkeyClient) SetSeatList(ctx context.Context, eventID int64, page, pageSize int, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return v.client.Set(ctx, seatListKey(eventID, page, pageSize), payload, seatListTTL).Err()
}

// InvalidateSeatLists drops every cached page for an event after a transition.
func (v *ValkeyClient) InvalidateSeatLists(ctx context.Context, eventID int64) error {
	iter := v.client.Scan(ctx, 0, fmt.Sprintf("seats:%d:*", eventID), 100).Iterator()
	for iter.Next(ctx) {
		if err := v.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (v *ValkeyClient) Close() error {
	return v.client.Close()
}
