package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-seat-booking/internal/booking"
	"github.com/iliyamo/cinema-seat-booking/internal/model"
	"github.com/iliyamo/cinema-seat-booking/internal/repository"
)

// SeatLookup resolves seat ids to seats in request order.
type SeatLookup interface {
	GetByIDs(ctx context.Context, ids []int64) ([]model.Seat, error)
}

// BookingHandler exposes the booking manager over HTTP.  The caller is
// assumed to be authenticated upstream; the customer id is trusted as
// sent.
type BookingHandler struct {
	Manager *booking.Manager
	Seats   SeatLookup
	Logger  logrus.FieldLogger
}

// NewBookingHandler wires a handler.  All dependencies must be non-nil.
func NewBookingHandler(m *booking.Manager, seats SeatLookup, logger logrus.FieldLogger) *BookingHandler {
	if m == nil || seats == nil || logger == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Manager: m, Seats: seats, Logger: logger}
}

type bookRequest struct {
	CustomerID int64           `json:"customer_id"`
	SeatIDs    []int64         `json:"seat_ids"`
	TotalPrice decimal.Decimal `json:"total_price"`
	MovieTitle string          `json:"movie_title"`
	RoomName   string          `json:"room_name"`
}

type bookResponse struct {
	Message  string         `json:"message"`
	Severity string         `json:"severity"`
	Tickets  []model.Ticket `json:"tickets,omitempty"`
}

// Book handles POST /v1/showtimes/:id/bookings.  The body names the
// customer, the seat ids in the order they were picked, the total price
// and the movie and room names shown at checkout.  The response carries
// the outcome message and severity; 201 on success, 400 for an invalid
// request, 409 when a seat is already booked and 500 on storage failure.
func (h *BookingHandler) Book(c echo.Context) error {
	showtimeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || showtimeID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	var body bookRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx := c.Request().Context()
	seats, err := h.Seats.GetByIDs(ctx, body.SeatIDs)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusBadRequest, bookResponse{
				Message:  "invalid booking request: " + err.Error(),
				Severity: string(booking.SeverityError),
			})
		}
		h.Logger.WithError(err).Error("resolving seats")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	out := h.Manager.Book(ctx, model.BookingRequest{
		CustomerID: body.CustomerID,
		ShowtimeID: showtimeID,
		Seats:      seats,
		TotalPrice: body.TotalPrice,
		MovieTitle: body.MovieTitle,
		RoomName:   body.RoomName,
	})
	return c.JSON(statusFor(out.Kind), bookResponse{
		Message:  out.Message(),
		Severity: string(out.Severity()),
		Tickets:  out.Tickets,
	})
}

func statusFor(k booking.Kind) int {
	switch k {
	case booking.KindSuccess:
		return http.StatusCreated
	case booking.KindInvalid:
		return http.StatusBadRequest
	case booking.KindSeatTaken:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// History handles GET /v1/customers/:id/history.
func (h *BookingHandler) History(c echo.Context) error {
	customerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid customer id"})
	}
	records, err := h.Manager.History(c.Request().Context(), customerID)
	switch {
	case errors.Is(err, booking.ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid customer id"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": records})
}

// SeatBooked handles GET /v1/showtimes/:id/seats/:seat_id/booked.
func (h *BookingHandler) SeatBooked(c echo.Context) error {
	showtimeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || showtimeID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	seatID, err := strconv.ParseInt(c.Param("seat_id"), 10, 64)
	if err != nil || seatID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}
	booked, err := h.Manager.IsSeatBooked(c.Request().Context(), seatID, showtimeID)
	if err != nil {
		h.Logger.WithError(err).Error("checking seat")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"booked": booked})
}
