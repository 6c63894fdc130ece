// Package queue carries booking confirmations over RabbitMQ: a publisher
// for the booking service and a consumer that keeps an append-only
// booking log.
package queue

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-seat-booking/internal/model"
)

// BookingConfirmedQueue is the durable queue confirmations travel on.
const BookingConfirmedQueue = "booking.confirmed"

// BookingConfirmedEvent is published once per committed booking.  It
// holds enough for consumers to log or notify without querying the
// primary database.
type BookingConfirmedEvent struct {
	EventID     string          `json:"event_id"`
	CustomerID  int64           `json:"customer_id"`
	ShowtimeID  int64           `json:"showtime_id"`
	RoomID      int64           `json:"room_id"`
	RoomName    string          `json:"room_name"`
	MovieTitle  string          `json:"movie_title"`
	SeatNumbers []string        `json:"seats"`
	TicketIDs   []int64         `json:"ticket_ids"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	ConfirmedAt string          `json:"confirmed_at"`
}

// NewBookingConfirmedEvent stamps c with a fresh event id.
func NewBookingConfirmedEvent(c model.BookingConfirmation) BookingConfirmedEvent {
	return BookingConfirmedEvent{
		EventID:     uuid.NewString(),
		CustomerID:  c.CustomerID,
		ShowtimeID:  c.ShowtimeID,
		RoomID:      c.RoomID,
		RoomName:    c.RoomName,
		MovieTitle:  c.MovieTitle,
		SeatNumbers: c.SeatNumbers,
		TicketIDs:   c.TicketIDs,
		TotalPrice:  c.TotalPrice,
		ConfirmedAt: c.ConfirmedAt.UTC().Format(time.RFC3339),
	}
}
