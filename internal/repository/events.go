package repository

import (
	"context"
	"database/sql"

	"parterre/internal/database"
	"parterre/internal/models"
)

type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (title, datetime_start)
		VALUES ($1, COALESCE($2, NOW()))
		RETURNING id, datetime_start, created_at`

	var start interface{}
	if !event.DatetimeStart.IsZero() {
		start = event.DatetimeStart
	}

	return r.db.QueryRowContext(ctx, query, event.Title, start).
		Scan(&event.ID, &event.DatetimeStart, &event.CreatedAt)
}

func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	event := &models.Event{}
	query := `
		SELECT id, title, datetime_start, total_seats, created_at
		FROM events
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&event.ID,
		&event.Title,
		&event.DatetimeStart,
		&event.TotalSeats,
		&event.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return event, err
}
