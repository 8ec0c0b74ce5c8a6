package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DemandPredictor supplies the opaque predicted price and demand level for a
// seat. The numeric model behind it is an external collaborator; the pricing
// gate only clamps its output.
type DemandPredictor interface {
	Predict(ctx context.Context, eventID int64, seatID string) (*DemandPrediction, error)
}

type DemandPrediction struct {
	PredictedPrice int64  `json:"predicted_price"`
	DemandLevel    string `json:"demand_level"`
}

type DemandConfig struct {
	BaseURL string
	Timeout time.Duration
}

type DemandClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewDemandClient(cfg DemandConfig) *DemandClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Second
	}

	return &DemandClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (dc *DemandClient) Predict(ctx context.Context, eventID int64, seatID string) (*DemandPrediction, error) {
	url := fmt.Sprintf("%s/predict?event_id=%d&seat_id=%s", dc.baseURL, eventID, seatID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := dc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query demand predictor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var prediction DemandPrediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return nil, fmt.Errorf("failed to decode prediction: %w", err)
	}

	return &prediction, nil
}
