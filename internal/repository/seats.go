package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"parterre/internal/database"
	apperrors "parterre/internal/errors"
	"parterre/internal/models"

	"github.com/lib/pq"
)

type SeatRepository struct {
	db *database.DB
}

func NewSeatRepository(db *database.DB) *SeatRepository {
	return &SeatRepository{db: db}
}

// lockEvent serializes all seat transitions of one event behind a
// transaction-scoped advisory lock. Disjoint events never contend.
func lockEvent(ctx context.Context, tx *sql.Tx, eventID int64) error {
	_, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, eventID)
	return err
}

// sortedCopy returns the seat ids in a fixed order so concurrent overlapping
// requests acquire row locks in the same sequence.
func sortedCopy(seatIDs []string) []string {
	sorted := make([]string, len(seatIDs))
	copy(sorted, seatIDs)
	sort.Strings(sorted)
	return sorted
}

func (r *SeatRepository) CreateSeatsForEvent(ctx context.Context, eventID int64, rows, seatsPerRow, sections int, basePrice int64) error {
	if sections < 1 {
		sections = 1
	}
	if basePrice <= 0 {
		basePrice = 1000
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rowsPerSection := (rows + sections - 1) / sections

	for row := 1; row <= rows; row++ {
		sectionID := fmt.Sprintf("S%d", (row-1)/rowsPerSection+1)
		// Front rows carry a premium over the base price
		price := basePrice + int64(rows-row)*100

		for seat := 1; seat <= seatsPerRow; seat++ {
			seatID := fmt.Sprintf("R%d-S%d", row, seat)

			query := `
				INSERT INTO seats (event_id, seat_id, section_id, row_number, seat_number, status, base_price)
				VALUES ($1, $2, $3, $4, $5, 'AVAILABLE', $6)`

			if _, err := tx.ExecContext(ctx, query, eventID, seatID, sectionID, row, seat, price); err != nil {
				return err
			}
		}
	}

	updateQuery := `UPDATE events SET total_seats = $1 WHERE id = $2`
	if _, err := tx.ExecContext(ctx, updateQuery, rows*seatsPerRow, eventID); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *SeatRepository) GetByEventID(ctx context.Context, eventID int64, page, pageSize int, section, status *string) ([]models.Seat, error) {
	var seats []models.Seat
	var args []interface{}
	argIndex := 1

	query := `
		SELECT event_id, seat_id, section_id, row_number, seat_number, status, holder_id, base_price, updated_at
		FROM seats
		WHERE event_id = $1`
	args = append(args, eventID)
	argIndex++

	if section != nil {
		query += fmt.Sprintf(" AND section_id = $%d", argIndex)
		args = append(args, *section)
		argIndex++
	}

	if status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, *status)
		argIndex++
	}

	query += " ORDER BY row_number, seat_number"

	if page > 0 && pageSize > 0 {
		offset := (page - 1) * pageSize
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
		args = append(args, pageSize, offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seat models.Seat
		err := rows.Scan(
			&seat.EventID,
			&seat.SeatID,
			&seat.SectionID,
			&seat.Row,
			&seat.Number,
			&seat.Status,
			&seat.HolderID,
			&seat.BasePrice,
			&seat.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}

	return seats, rows.Err()
}

func (r *SeatRepository) GetByID(ctx context.Context, eventID int64, seatID string) (*models.Seat, error) {
	seat := &models.Seat{}
	query := `
		SELECT event_id, seat_id, section_id, row_number, seat_number, status, holder_id, base_price, updated_at
		FROM seats
		WHERE event_id = $1 AND seat_id = $2`

	err := r.db.QueryRowContext(ctx, query, eventID, seatID).Scan(
		&seat.EventID,
		&seat.SeatID,
		&seat.SectionID,
		&seat.Row,
		&seat.Number,
		&seat.Status,
		&seat.HolderID,
		&seat.BasePrice,
		&seat.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return seat, err
}

// SumBasePrices totals the base prices of a seat set for order amounts.
func (r *SeatRepository) SumBasePrices(ctx context.Context, eventID int64, seatIDs []string) (int64, error) {
	var total int64
	query := `SELECT COALESCE(SUM(base_price), 0) FROM seats WHERE event_id = $1 AND seat_id = ANY($2)`
	err := r.db.QueryRowContext(ctx, query, eventID, pq.Array(seatIDs)).Scan(&total)
	return total, err
}

// TryTransition applies one atomic multi-seat state transition. The whole
// requested set moves from one of fromStatuses to toStatus, or nothing moves
// and the conflict error names which seats were ineligible. No component may
// read-then-write seat status outside this call.
func (r *SeatRepository) TryTransition(ctx context.Context, eventID int64, seatIDs []string, fromStatuses []string, toStatus string, holderID *string) error {
	sorted := sortedCopy(seatIDs)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Fatal(err)
	}
	defer tx.Rollback()

	if err := lockEvent(ctx, tx, eventID); err != nil {
		return apperrors.Fatal(err)
	}

	query := `
		SELECT seat_id, status FROM seats
		WHERE event_id = $1 AND seat_id = ANY($2)
		ORDER BY seat_id
		FOR UPDATE`

	rows, err := tx.QueryContext(ctx, query, eventID, pq.Array(sorted))
	if err != nil {
		return apperrors.Fatal(err)
	}

	current := make(map[string]string, len(sorted))
	for rows.Next() {
		var seatID, status string
		if err := rows.Scan(&seatID, &status); err != nil {
			rows.Close()
			return err
		}
		current[seatID] = status
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	eligible := make(map[string]bool, len(fromStatuses))
	for _, s := range fromStatuses {
		eligible[s] = true
	}

	var missing, rejected []string
	for _, seatID := range sorted {
		status, ok := current[seatID]
		switch {
		case !ok:
			missing = append(missing, seatID)
		case !eligible[status]:
			rejected = append(rejected, seatID)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: seats %v for event %d", apperrors.ErrNotFound, missing, eventID)
	}
	if len(rejected) > 0 {
		return apperrors.NewConflict(eventID, rejected)
	}

	update := `
		UPDATE seats SET status = $1, holder_id = $2, updated_at = NOW()
		WHERE event_id = $3 AND seat_id = ANY($4)`

	if _, err := tx.ExecContext(ctx, update, toStatus, holderID, eventID, pq.Array(sorted)); err != nil {
		return apperrors.Fatal(err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Fatal(err)
	}
	return nil
}
