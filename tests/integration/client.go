package integration

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"parterre/internal/models"
)

// TestClient wraps HTTP calls against a live API instance.
type TestClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewTestClient(t *testing.T) *TestClient {
	return &TestClient{
		BaseURL: apiBaseURL(t),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *TestClient) makeRequest(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reqBody)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	return resp
}

// CreateEvent materializes a fresh event and returns its id and seat count.
func (c *TestClient) CreateEvent(t *testing.T, req models.CreateEventRequest) models.CreateEventResponse {
	t.Helper()

	resp := c.makeRequest(t, http.MethodPost, "/api/events", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("create event returned %d: %s", resp.StatusCode, body)
	}

	var out models.CreateEventResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode create event response: %v", err)
	}
	return out
}

// BookingResult carries one booking attempt's outcome. Err is a transport
// failure; a rejected booking has Err nil and a non-201 Status.
type BookingResult struct {
	Status int
	Order  *models.OrderResponse
	Err    error
}

// TryBookSeats attempts a booking without failing the test, so contention
// tests can fire it from many goroutines and count winners and losers.
func (c *TestClient) TryBookSeats(eventID int64, seatIDs []string, idempotencyKey string) BookingResult {
	data, err := json.Marshal(models.BookSeatsRequest{
		EventID:        eventID,
		SeatIDs:        seatIDs,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return BookingResult{Err: err}
	}

	resp, err := c.HTTPClient.Post(c.BaseURL+"/api/bookings", "application/json", bytes.NewReader(data))
	if err != nil {
		return BookingResult{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		io.Copy(io.Discard, resp.Body)
		return BookingResult{Status: resp.StatusCode}
	}

	var order models.OrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return BookingResult{Status: resp.StatusCode, Err: err}
	}
	return BookingResult{Status: resp.StatusCode, Order: &order}
}

// BookSeats books a seat set and fails the test on anything but 201.
func (c *TestClient) BookSeats(t *testing.T, eventID int64, seatIDs []string, idempotencyKey string) models.OrderResponse {
	t.Helper()

	result := c.TryBookSeats(eventID, seatIDs, idempotencyKey)
	if result.Err != nil {
		t.Fatalf("booking failed: %v", result.Err)
	}
	if result.Status != http.StatusCreated {
		t.Fatalf("booking returned %d, want 201", result.Status)
	}
	return *result.Order
}

// ListSeats fetches the availability listing. A status filter bypasses the
// seat-list cache, so filtered reads are never stale.
func (c *TestClient) ListSeats(t *testing.T, eventID int64, status string) models.ListSeatsResponse {
	t.Helper()

	path := fmt.Sprintf("/api/seats?event_id=%d&pageSize=100", eventID)
	if status != "" {
		path += "&status=" + status
	}

	resp := c.makeRequest(t, http.MethodGet, path, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("list seats returned %d: %s", resp.StatusCode, body)
	}

	var seats models.ListSeatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&seats); err != nil {
		t.Fatalf("failed to decode seat listing: %v", err)
	}
	return seats
}

// GetOrder fetches one order by id.
func (c *TestClient) GetOrder(t *testing.T, orderID string) models.OrderResponse {
	t.Helper()

	resp := c.makeRequest(t, http.MethodGet, "/api/orders/"+orderID, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("get order returned %d: %s", resp.StatusCode, body)
	}

	var order models.OrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		t.Fatalf("failed to decode order: %v", err)
	}
	return order
}

// WatchSeatEvents subscribes to the event's SSE stream and collects seat
// transitions until the context expires or the stream closes.
func (c *TestClient) WatchSeatEvents(ctx context.Context, t *testing.T, eventID int64) <-chan models.SeatTransitionEvent {
	t.Helper()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/events/%d/stream", c.BaseURL, eventID), nil)
	if err != nil {
		t.Fatalf("failed to create stream request: %v", err)
	}

	// The stream outlives the client's default timeout.
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		t.Fatalf("failed to open seat event stream: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		t.Fatalf("seat event stream returned %d", resp.StatusCode)
	}

	events := make(chan models.SeatTransitionEvent, 64)
	go func() {
		defer close(events)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			var event models.SeatTransitionEvent
			if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &event); err != nil {
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events
}
