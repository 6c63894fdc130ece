package model

import "github.com/shopspring/decimal"

// BookingRequest is what a customer submits at checkout.  It is built
// per call, evaluated once and discarded.  Seats are kept in the order
// the customer picked them; tickets are created in that order.
type BookingRequest struct {
	CustomerID int64
	ShowtimeID int64
	Seats      []Seat
	TotalPrice decimal.Decimal
	MovieTitle string
	RoomName   string
}

// SeatNumbers returns the seat labels in request order.
func (r BookingRequest) SeatNumbers() []string {
	out := make([]string, 0, len(r.Seats))
	for _, s := range r.Seats {
		out = append(out, s.SeatNumber)
	}
	return out
}
