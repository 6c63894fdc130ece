package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-seat-booking/internal/booking"
	"github.com/iliyamo/cinema-seat-booking/internal/database/dbtest"
	"github.com/iliyamo/cinema-seat-booking/internal/handler"
	"github.com/iliyamo/cinema-seat-booking/internal/model"
	"github.com/iliyamo/cinema-seat-booking/internal/repository"
)

type api struct {
	e     *echo.Echo
	store *repository.Store
	seats []model.Seat
}

func newAPI(t *testing.T) api {
	t.Helper()
	store := repository.NewStore(dbtest.Open(t))
	var seats []model.Seat
	for _, n := range []string{"A1", "A2", "A3"} {
		s := model.Seat{RoomID: 2, SeatNumber: n}
		require.NoError(t, store.Seats.Create(context.Background(), &s))
		seats = append(seats, s)
	}
	logger, _ := test.NewNullLogger()
	h := handler.NewBookingHandler(booking.NewManager(store, nil, logger), store.Seats, logger)

	e := echo.New()
	e.POST("/v1/showtimes/:id/bookings", h.Book)
	e.GET("/v1/customers/:id/history", h.History)
	e.GET("/v1/showtimes/:id/seats/:seat_id/booked", h.SeatBooked)
	return api{e: e, store: store, seats: seats}
}

func (a api) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	var out map[string]any
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func bookBody(seatIDs string) string {
	return `{"customer_id": 11, "seat_ids": [` + seatIDs + `], "total_price": "25.00", "movie_title": "Arrival", "room_name": "Room 2"}`
}

func TestBook_StatusPerOutcome(t *testing.T) {
	a := newAPI(t)

	rec, body := a.do(t, http.MethodPost, "/v1/showtimes/7/bookings", bookBody("1,2"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "payment successful", body["message"])
	assert.Equal(t, "info", body["severity"])
	tickets := body["tickets"].([]any)
	require.Len(t, tickets, 2)
	assert.EqualValues(t, 12, tickets[0].(map[string]any)["price"])

	rec, body = a.do(t, http.MethodPost, "/v1/showtimes/7/bookings", bookBody("3,2"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "seat A2 is already booked", body["message"])
	assert.Equal(t, "error", body["severity"])
	assert.NotContains(t, body, "tickets")

	rec, body = a.do(t, http.MethodPost, "/v1/showtimes/7/bookings", bookBody(""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid booking request: at least one seat is required", body["message"])

	rec, body = a.do(t, http.MethodPost, "/v1/showtimes/7/bookings", bookBody("99"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["message"], "seat 99")
}

func TestBook_RejectsBadInput(t *testing.T) {
	a := newAPI(t)

	rec, _ := a.do(t, http.MethodPost, "/v1/showtimes/zero/bookings", bookBody("1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = a.do(t, http.MethodPost, "/v1/showtimes/7/bookings", `{"seat_ids": "A1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body := a.do(t, http.MethodPost, "/v1/showtimes/7/bookings", `{"customer_id": 0, "seat_ids": [1], "total_price": 10}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid booking request: customer id must be positive", body["message"])
}

func TestHistoryAndSeatBooked(t *testing.T) {
	a := newAPI(t)

	rec, body := a.do(t, http.MethodGet, "/v1/showtimes/7/seats/1/booked", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["booked"])

	rec, body = a.do(t, http.MethodGet, "/v1/customers/11/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["items"])

	rec, _ = a.do(t, http.MethodPost, "/v1/showtimes/7/bookings", bookBody("1"))
	require.Equal(t, http.StatusCreated, rec.Code)

	_, body = a.do(t, http.MethodGet, "/v1/showtimes/7/seats/1/booked", "")
	assert.Equal(t, true, body["booked"])
	_, body = a.do(t, http.MethodGet, "/v1/showtimes/8/seats/1/booked", "")
	assert.Equal(t, false, body["booked"], "other showtimes are unaffected")

	_, body = a.do(t, http.MethodGet, "/v1/customers/11/history", "")
	items := body["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "Arrival", item["movie_title"])
	assert.Equal(t, "A1", item["seat_number"])
	assert.EqualValues(t, 25, item["price"])

	rec, _ = a.do(t, http.MethodGet, "/v1/customers/-1/history", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = a.do(t, http.MethodGet, "/v1/showtimes/7/seats/x/booked", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestReady(t *testing.T) {
	e := echo.New()
	for _, tc := range []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{errors.New("down"), http.StatusServiceUnavailable},
	} {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/readyz", nil), rec)
		require.NoError(t, handler.Ready(pinger{tc.err})(c))
		assert.Equal(t, tc.want, rec.Code)
	}
}
