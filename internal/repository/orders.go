package repository

import (
	"context"
	"database/sql"
	"time"

	"parterre/internal/database"
	apperrors "parterre/internal/errors"
	"parterre/internal/models"

	"github.com/lib/pq"
)

type OrderRepository struct {
	db *database.DB
}

func NewOrderRepository(db *database.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (id, event_id, hold_id, seat_ids, status, total_amount, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		order.ID,
		order.EventID,
		order.HoldID,
		pq.Array(order.SeatIDs),
		order.Status,
		order.TotalAmount,
		order.IdempotencyKey,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
}

func scanOrder(row *sql.Row) (*models.Order, error) {
	order := &models.Order{}
	var seatIDs pq.StringArray

	err := row.Scan(
		&order.ID,
		&order.EventID,
		&order.HoldID,
		&seatIDs,
		&order.Status,
		&order.TotalAmount,
		&order.IdempotencyKey,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	order.SeatIDs = seatIDs
	return order, nil
}

const orderColumns = `id, event_id, hold_id, seat_ids, status, total_amount, idempotency_key, created_at, updated_at`

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	return scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
}

func (r *OrderRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	return scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE idempotency_key = $1`, key))
}

// UpdateStatus applies a compare-and-swap status change. It reports whether
// the row actually moved, so stale transitions surface instead of clobbering.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id, from, to string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		to, id, from)
	if err != nil {
		return false, apperrors.Fatal(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// Confirm converts a PENDING order into a sale: every seat of its hold moves
// HELD -> SOLD and the order moves to COMPLETED in one transaction. Confirm
// fails with a conflict if the hold lapsed and any seat is no longer held.
func (r *OrderRepository) Confirm(ctx context.Context, orderID string) (*models.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.Fatal(err)
	}
	defer tx.Rollback()

	// Lock order: hold row, then order row, then the event advisory lock.
	var holdID string
	err = tx.QueryRowContext(ctx,
		`SELECT hold_id FROM orders WHERE id = $1`, orderID).Scan(&holdID)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.Fatal(err)
	}

	var eventID int64
	var releasedAt, confirmedAt *time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT event_id, released_at, confirmed_at FROM holds WHERE id = $1 FOR UPDATE`,
		holdID,
	).Scan(&eventID, &releasedAt, &confirmedAt)
	if err != nil {
		return nil, apperrors.Fatal(err)
	}

	order, err := scanOrder(tx.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, orderID))
	if err != nil {
		return nil, apperrors.Fatal(err)
	}
	if order == nil {
		return nil, apperrors.ErrNotFound
	}
	if order.Status != models.OrderPending {
		return nil, apperrors.ErrInvalidTransition
	}
	if releasedAt != nil || confirmedAt != nil {
		// Hold lapsed before payment landed; the seats are gone.
		return nil, apperrors.NewConflict(eventID, order.SeatIDs)
	}

	if err := lockEvent(ctx, tx, eventID); err != nil {
		return nil, apperrors.Fatal(err)
	}

	rows, err := tx.QueryContext(ctx, `
		UPDATE seats SET status = 'SOLD', updated_at = NOW()
		WHERE event_id = $1 AND holder_id = $2 AND status = 'HELD'
		RETURNING seat_id`,
		eventID, holdID)
	if err != nil {
		return nil, apperrors.Fatal(err)
	}

	var sold []string
	for rows.Next() {
		var seatID string
		if err := rows.Scan(&seatID); err != nil {
			rows.Close()
			return nil, err
		}
		sold = append(sold, seatID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(sold) != len(order.SeatIDs) {
		// Some seat already left HELD; roll everything back.
		return nil, apperrors.NewConflict(eventID, order.SeatIDs)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE holds SET confirmed_at = NOW() WHERE id = $1`, holdID); err != nil {
		return nil, apperrors.Fatal(err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = 'COMPLETED', updated_at = NOW() WHERE id = $1`,
		orderID); err != nil {
		return nil, apperrors.Fatal(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Fatal(err)
	}

	order.Status = models.OrderCompleted
	return order, nil
}
