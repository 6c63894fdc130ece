package model

import "time"

// BookingHistoryRecord is the customer-facing log line written next to
// every ticket.  It denormalises the movie and room names so history can
// be listed without joining showtime data.  TicketID is a reference to
// the ticket created in the same transaction, not an ownership link.
//
// Fields:
//  BookingID   – primary key identifier.
//  CustomerID  – customer who made the booking.
//  TicketID    – ticket created alongside this record.
//  BookingDate – when the booking was made (UTC).
//  MovieTitle  – title shown at booking time.
//  RoomName    – room name shown at booking time.
//  SeatNumber  – seat label.
//  Price       – price paid for this seat.
type BookingHistoryRecord struct {
	BookingID   int64     `db:"booking_id" json:"booking_id"`     // booking_history.booking_id
	CustomerID  int64     `db:"customer_id" json:"customer_id"`   // booking_history.customer_id
	TicketID    int64     `db:"ticket_id" json:"ticket_id"`       // booking_history.ticket_id
	BookingDate time.Time `db:"booking_date" json:"booking_date"` // booking_history.booking_date
	MovieTitle  string    `db:"movie_title" json:"movie_title"`   // booking_history.movie_title
	RoomName    string    `db:"room_name" json:"room_name"`       // booking_history.room_name
	SeatNumber  string    `db:"seat_number" json:"seat_number"`   // booking_history.seat_number
	Price       int64     `db:"price" json:"price"`               // booking_history.price
}
