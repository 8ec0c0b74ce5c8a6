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

type HoldRepository struct {
	db *database.DB
}

func NewHoldRepository(db *database.DB) *HoldRepository {
	return &HoldRepository{db: db}
}

func (r *HoldRepository) Create(ctx context.Context, hold *models.Hold) error {
	query := `
		INSERT INTO holds (id, event_id, seat_ids, holder_id, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	return r.db.QueryRowContext(ctx, query,
		hold.ID,
		hold.EventID,
		pq.Array(hold.SeatIDs),
		hold.HolderID,
		hold.ExpiresAt,
	).Scan(&hold.CreatedAt)
}

func (r *HoldRepository) GetByID(ctx context.Context, id string) (*models.Hold, error) {
	hold := &models.Hold{}
	var seatIDs pq.StringArray

	query := `
		SELECT id, event_id, seat_ids, holder_id, created_at, expires_at, released_at, confirmed_at
		FROM holds
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&hold.ID,
		&hold.EventID,
		&seatIDs,
		&hold.HolderID,
		&hold.CreatedAt,
		&hold.ExpiresAt,
		&hold.ReleasedAt,
		&hold.ConfirmedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	hold.SeatIDs = seatIDs
	return hold, nil
}

// GetExpired returns active holds whose deadline has passed, oldest first.
func (r *HoldRepository) GetExpired(ctx context.Context, now time.Time, limit int) ([]models.Hold, error) {
	var holds []models.Hold

	query := `
		SELECT id, event_id, seat_ids, holder_id, created_at, expires_at, released_at, confirmed_at
		FROM holds
		WHERE expires_at <= $1 AND released_at IS NULL AND confirmed_at IS NULL
		ORDER BY expires_at ASC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var hold models.Hold
		var seatIDs pq.StringArray
		err := rows.Scan(
			&hold.ID,
			&hold.EventID,
			&seatIDs,
			&hold.HolderID,
			&hold.CreatedAt,
			&hold.ExpiresAt,
			&hold.ReleasedAt,
			&hold.ConfirmedAt,
		)
		if err != nil {
			return nil, err
		}
		hold.SeatIDs = seatIDs
		holds = append(holds, hold)
	}

	return holds, rows.Err()
}

// ReleaseResult reports what a hold release actually changed.
type ReleaseResult struct {
	EventID  int64
	SeatIDs  []string
	OrderID  string
	Released bool
}

// Release reclaims a hold: its held seats return to AVAILABLE and the
// associated order, if one is still PENDING, moves to terminalOrderStatus in
// the same transaction. Releasing an already released or confirmed hold is a
// no-op, so the reaper may fire twice without harm.
func (r *HoldRepository) Release(ctx context.Context, holdID, terminalOrderStatus string) (*ReleaseResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.Fatal(err)
	}
	defer tx.Rollback()

	// Lock order: hold row, then order row, then the event advisory lock.
	var eventID int64
	var releasedAt, confirmedAt *time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT event_id, released_at, confirmed_at FROM holds WHERE id = $1 FOR UPDATE`,
		holdID,
	).Scan(&eventID, &releasedAt, &confirmedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.Fatal(err)
	}

	if releasedAt != nil || confirmedAt != nil {
		return &ReleaseResult{EventID: eventID, Released: false}, nil
	}

	var orderID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM orders WHERE hold_id = $1 AND status = 'PENDING' FOR UPDATE`,
		holdID,
	).Scan(&orderID)
	if err != nil && err != sql.ErrNoRows {
		return nil, apperrors.Fatal(err)
	}

	if err := lockEvent(ctx, tx, eventID); err != nil {
		return nil, apperrors.Fatal(err)
	}

	rows, err := tx.QueryContext(ctx, `
		UPDATE seats SET status = 'AVAILABLE', holder_id = NULL, updated_at = NOW()
		WHERE event_id = $1 AND holder_id = $2 AND status IN ('HELD', 'SOLD')
		RETURNING seat_id`,
		eventID, holdID)
	if err != nil {
		return nil, apperrors.Fatal(err)
	}

	var seatIDs []string
	for rows.Next() {
		var seatID string
		if err := rows.Scan(&seatID); err != nil {
			rows.Close()
			return nil, err
		}
		seatIDs = append(seatIDs, seatID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE holds SET released_at = NOW() WHERE id = $1`, holdID); err != nil {
		return nil, apperrors.Fatal(err)
	}

	if orderID != "" {
		if _, err := tx.ExecContext(ctx,
			`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`,
			terminalOrderStatus, orderID); err != nil {
			return nil, apperrors.Fatal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Fatal(err)
	}

	return &ReleaseResult{
		EventID:  eventID,
		SeatIDs:  seatIDs,
		OrderID:  orderID,
		Released: true,
	}, nil
}
