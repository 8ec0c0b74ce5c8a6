package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// PaymentClient is the abstract "confirm" boundary to the payment gateway.
// Everything beyond init/cancel/result-callback lives on the gateway side.
type PaymentClient struct {
	baseURL    string
	httpClient *http.Client
}

type PaymentConfig struct {
	BaseURL string
	Timeout time.Duration
}

type PaymentInitRequest struct {
	Amount   int64  `json:"amount"`
	OrderID  string `json:"orderId"`
	Currency string `json:"currency"`
}

type PaymentInitResponse struct {
	Success    bool   `json:"success"`
	PaymentID  string `json:"paymentId"`
	OrderID    string `json:"orderId"`
	Status     string `json:"status"`
	PaymentURL string `json:"paymentURL"`
}

func NewPaymentClient(cfg PaymentConfig) *PaymentClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &PaymentClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// InitPayment registers the order with the gateway and returns the redirect
// URL the buyer completes payment on. The gateway later reports the outcome
// through the notifications webhook.
func (pc *PaymentClient) InitPayment(ctx context.Context, amount int64, orderID string) (*PaymentInitResponse, error) {
	jsonBody, err := json.Marshal(PaymentInitRequest{
		Amount:   amount,
		OrderID:  orderID,
		Currency: "RUB",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pc.baseURL+"/init", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to init payment: %w", err)
	}
	defer resp.Body.Close()

	var result PaymentInitResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !result.Success {
		return nil, fmt.Errorf("payment init failed for order %s", orderID)
	}

	return &result, nil
}

// CancelPayment voids a not-yet-completed payment, e.g. when a hold expires
// before the buyer finished checkout.
func (pc *PaymentClient) CancelPayment(ctx context.Context, paymentID, reason string) error {
	jsonBody, err := json.Marshal(map[string]string{
		"paymentId": paymentID,
		"reason":    reason,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pc.baseURL+"/cancel", bytes.NewBuffer(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to cancel payment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}
