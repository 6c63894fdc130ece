package model

// Ticket is the proof that a seat was sold for a showtime.  There is
// exactly one ticket per booked seat and at most one ticket for any
// (SeatID, ShowtimeID) pair; the tickets table enforces that with a
// unique key.  Tickets are written once inside a committed booking and
// never updated afterwards.
//
// Fields:
//  TicketID   – primary key, assigned by storage on insert.
//  CustomerID – customer who paid for the ticket.
//  ShowtimeID – screening the seat is sold for.
//  SeatID     – seat being sold.
//  SeatNumber – copy of the seat label at booking time.
//  Price      – integral share of the booking's total price.
type Ticket struct {
	TicketID   int64  `db:"ticket_id" json:"ticket_id"`     // tickets.ticket_id
	CustomerID int64  `db:"customer_id" json:"customer_id"` // tickets.customer_id
	ShowtimeID int64  `db:"showtime_id" json:"showtime_id"` // tickets.showtime_id
	SeatID     int64  `db:"seat_id" json:"seat_id"`         // tickets.seat_id
	SeatNumber string `db:"seat_number" json:"seat_number"` // tickets.seat_number
	Price      int64  `db:"price" json:"price"`             // tickets.price
}
