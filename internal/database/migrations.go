package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createEventsTable,
		createSeatsTable,
		createSeatPartitions,
		createSeatsSectionStatusIndex,
		createHoldsTable,
		createHoldsExpiryIndex,
		createOrdersTable,
		createOrdersKeyIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    id BIGSERIAL PRIMARY KEY,
    title VARCHAR(500) NOT NULL,
    datetime_start TIMESTAMP NOT NULL DEFAULT NOW(),
    total_seats INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

// Seats are hash-partitioned by event_id: contention on one event's seats
// stays inside one partition and never blocks another event's transitions.
const createSeatsTable = `
CREATE TABLE IF NOT EXISTS seats (
    event_id BIGINT NOT NULL,
    seat_id VARCHAR(32) NOT NULL,
    section_id VARCHAR(32) NOT NULL,
    row_number INTEGER NOT NULL,
    seat_number INTEGER NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'AVAILABLE',
    holder_id VARCHAR(64),
    base_price BIGINT NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    PRIMARY KEY (event_id, seat_id),
    CHECK (status IN ('AVAILABLE', 'HELD', 'SOLD')),
    CHECK ((status = 'AVAILABLE') = (holder_id IS NULL))
) PARTITION BY HASH (event_id);`

const createSeatPartitions = `
DO $$
BEGIN
    FOR i IN 0..15 LOOP
        EXECUTE format(
            'CREATE TABLE IF NOT EXISTS seats_p%s PARTITION OF seats
             FOR VALUES WITH (MODULUS 16, REMAINDER %s)', i, i);
    END LOOP;
END $$;`

// Supports the "available seats in section" listing.
const createSeatsSectionStatusIndex = `
CREATE INDEX IF NOT EXISTS seats_event_section_status_idx
ON seats (event_id, section_id, status);`

const createHoldsTable = `
CREATE TABLE IF NOT EXISTS holds (
    id VARCHAR(64) PRIMARY KEY,
    event_id BIGINT NOT NULL,
    seat_ids TEXT[] NOT NULL,
    holder_id VARCHAR(64) NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMP NOT NULL,
    released_at TIMESTAMP,
    confirmed_at TIMESTAMP
);`

const createHoldsExpiryIndex = `
CREATE INDEX IF NOT EXISTS holds_expiry_idx
ON holds (expires_at) WHERE released_at IS NULL AND confirmed_at IS NULL;`

const createOrdersTable = `
CREATE TABLE IF NOT EXISTS orders (
    id VARCHAR(64) PRIMARY KEY,
    event_id BIGINT NOT NULL,
    hold_id VARCHAR(64) NOT NULL REFERENCES holds(id),
    seat_ids TEXT[] NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
    total_amount BIGINT NOT NULL DEFAULT 0,
    idempotency_key VARCHAR(128) NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (status IN ('PENDING', 'COMPLETED', 'CANCELLED', 'REFUNDED', 'EXPIRED'))
);`

const createOrdersKeyIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS orders_idempotency_key_idx
ON orders (idempotency_key);`
