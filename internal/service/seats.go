package service

import (
	"context"
	"fmt"

	apperrors "parterre/internal/errors"
	"parterre/internal/external"
	"parterre/internal/logger"
	"parterre/internal/models"
	"parterre/internal/pricing"
	"parterre/internal/repository"
)

type SeatService struct {
	seatRepo  *repository.SeatRepository
	eventRepo *repository.EventRepository
	predictor external.DemandPredictor
}

func NewSeatService(repos *repository.Repositories, predictor external.DemandPredictor) *SeatService {
	return &SeatService{
		seatRepo:  repos.Seats,
		eventRepo: repos.Events,
		predictor: predictor,
	}
}

func (s *SeatService) List(ctx context.Context, eventID int64, page, pageSize int, section, status *string) (models.ListSeatsResponse, error) {
	seats, err := s.seatRepo.GetByEventID(ctx, eventID, page, pageSize, section, status)
	if err != nil {
		return nil, fmt.Errorf("failed to get seats: %w", err)
	}

	result := make(models.ListSeatsResponse, len(seats))
	for i, seat := range seats {
		result[i] = models.ListSeatsResponseItem{
			SeatID:    seat.SeatID,
			SectionID: seat.SectionID,
			Row:       seat.Row,
			Number:    seat.Number,
			Status:    seat.Status,
			BasePrice: seat.BasePrice,
		}
	}

	return result, nil
}

// Quote composes the external demand prediction with the pricing gate. The
// quote path never touches seat locks; it reads the base price and clamps.
func (s *SeatService) Quote(ctx context.Context, eventID int64, seatID string) (*models.QuoteResponse, error) {
	seat, err := s.seatRepo.GetByID(ctx, eventID, seatID)
	if err != nil {
		return nil, fmt.Errorf("failed to get seat: %w", err)
	}
	if seat == nil {
		return nil, fmt.Errorf("%w: seat %s for event %d", apperrors.ErrNotFound, seatID, eventID)
	}

	predictedPrice := seat.BasePrice
	demandLevel := "unknown"

	prediction, err := s.predictor.Predict(ctx, eventID, seatID)
	if err != nil {
		// Prediction is advisory; quote at base price when it is unreachable.
		logger.WithContext(ctx).Warn("Demand prediction unavailable, quoting base price",
			"error", err,
			"event_id", eventID,
			"seat_id", seatID)
	} else {
		predictedPrice = prediction.PredictedPrice
		demandLevel = prediction.DemandLevel
	}

	return &models.QuoteResponse{
		EventID:     eventID,
		SeatID:      seatID,
		Price:       pricing.Clamp(seat.BasePrice, predictedPrice),
		DemandLevel: demandLevel,
	}, nil
}
