package model

// Seat describes a physical seat in a screening room.  Seats are
// reference data: the booking core reads them but never changes them.
//
// Fields:
//  SeatID     – primary key identifier.
//  SeatNumber – display label printed on the ticket (e.g. "A1").
//  RoomID     – room to which this seat belongs.
type Seat struct {
	SeatID     int64  `db:"seat_id" json:"seat_id"`         // seats.seat_id
	SeatNumber string `db:"seat_number" json:"seat_number"` // seats.seat_number
	RoomID     int64  `db:"room_id" json:"room_id"`         // seats.room_id
}
