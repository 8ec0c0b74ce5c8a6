package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "parterre/internal/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// setupRouter wires the routes with an empty handler set. Validation rejects
// these requests before any backend is touched.
func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	h := &Handlers{}

	api := r.Group("/api")
	{
		api.POST("/events", h.CreateEvent)
		api.GET("/seats", h.ListSeats)
		api.GET("/seats/quote", h.QuoteSeat)
		api.POST("/bookings", h.BookSeats)
		api.PATCH("/orders/initiatePayment", h.InitiatePayment)
		api.PATCH("/orders/cancel", h.CancelOrder)
		api.PATCH("/orders/refund", h.RefundOrder)
		api.GET("/events/:id/stream", h.StreamSeatEvents)
		api.POST("/payments/notifications", h.OnPaymentUpdates)
	}

	return r
}

func doJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}

	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBookSeatsRejectsEmptySeatList(t *testing.T) {
	r := setupRouter()

	w := doJSON(r, "POST", "/api/bookings", map[string]any{
		"event_id":        1,
		"seat_ids":        []string{},
		"idempotency_key": "key-1",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookSeatsRejectsMissingIdempotencyKey(t *testing.T) {
	r := setupRouter()

	w := doJSON(r, "POST", "/api/bookings", map[string]any{
		"event_id": 1,
		"seat_ids": []string{"R1-S1"},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "idempotency_key")
}

func TestBookSeatsRejectsMissingEventID(t *testing.T) {
	r := setupRouter()

	w := doJSON(r, "POST", "/api/bookings", map[string]any{
		"seat_ids":        []string{"R1-S1"},
		"idempotency_key": "key-1",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateEventRejectsZeroRows(t *testing.T) {
	r := setupRouter()

	w := doJSON(r, "POST", "/api/events", map[string]any{
		"title":         "Concert",
		"rows":          0,
		"seats_per_row": 10,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListSeatsRequiresEventID(t *testing.T) {
	r := setupRouter()

	req, _ := http.NewRequest("GET", "/api/seats?page=1&pageSize=20", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "event_id")
}

func TestListSeatsRejectsBadPagination(t *testing.T) {
	cases := []string{
		"/api/seats?event_id=1&page=0",
		"/api/seats?event_id=1&pageSize=0",
		"/api/seats?event_id=1&pageSize=500",
	}

	r := setupRouter()
	for _, path := range cases {
		req, _ := http.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, "path %s", path)
	}
}

func TestQuoteRequiresSeatID(t *testing.T) {
	r := setupRouter()

	req, _ := http.NewRequest("GET", "/api/seats/quote?event_id=1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelOrderRequiresOrderID(t *testing.T) {
	r := setupRouter()

	w := doJSON(r, "PATCH", "/api/orders/cancel", map[string]any{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInitiatePaymentRequiresOrderID(t *testing.T) {
	r := setupRouter()

	w := doJSON(r, "PATCH", "/api/orders/initiatePayment", map[string]any{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStreamRejectsNonNumericEventID(t *testing.T) {
	r := setupRouter()

	req, _ := http.NewRequest("GET", "/api/events/abc/stream", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentNotificationRejectsBadJSON(t *testing.T) {
	r := setupRouter()

	req, _ := http.NewRequest("POST", "/api/payments/notifications", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		err      error
		wantCode int
	}{
		{apperrors.NewConflict(1, []string{"R1-S1"}), http.StatusConflict},
		{fmt.Errorf("wrapped: %w", apperrors.ErrKeyConflict), http.StatusConflict},
		{fmt.Errorf("wrapped: %w", apperrors.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", apperrors.ErrInvalidTransition), http.StatusUnprocessableEntity},
		{fmt.Errorf("wrapped: %w", apperrors.ErrTimeout), http.StatusRequestTimeout},
		{apperrors.Fatal(errors.New("pool exhausted")), http.StatusServiceUnavailable},
		{errors.New("anything else"), http.StatusInternalServerError},
	}

	gin.SetMode(gin.TestMode)
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		respondError(c, tc.err)

		assert.Equal(t, tc.wantCode, w.Code, "error %v", tc.err)
	}
}

func TestConflictResponseCarriesRejectedSeats(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondError(c, apperrors.NewConflict(7, []string{"R2-S3", "R2-S4"}))

	assert.Equal(t, http.StatusConflict, w.Code)

	var body struct {
		Seats []string `json:"seats"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"R2-S3", "R2-S4"}, body.Seats)
}
