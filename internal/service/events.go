package service

import (
	"context"
	"fmt"

	apperrors "parterre/internal/errors"
	"parterre/internal/models"
	"parterre/internal/repository"
)

type EventService struct {
	eventRepo *repository.EventRepository
	seatRepo  *repository.SeatRepository
}

func NewEventService(repos *repository.Repositories) *EventService {
	return &EventService{
		eventRepo: repos.Events,
		seatRepo:  repos.Seats,
	}
}

// Create materializes an event's inventory: one seat row per physical seat,
// all AVAILABLE, priced off the requested base.
func (s *EventService) Create(ctx context.Context, req *models.CreateEventRequest) (*models.CreateEventResponse, error) {
	event := &models.Event{Title: req.Title}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	if err := s.seatRepo.CreateSeatsForEvent(ctx, event.ID, req.Rows, req.SeatsPerRow, req.Sections, req.BasePrice); err != nil {
		return nil, fmt.Errorf("failed to materialize seats: %w", err)
	}

	return &models.CreateEventResponse{
		ID:         event.ID,
		TotalSeats: req.Rows * req.SeatsPerRow,
	}, nil
}

func (s *EventService) Get(ctx context.Context, id int64) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, fmt.Errorf("%w: event %d", apperrors.ErrNotFound, id)
	}
	return event, nil
}
