package model

// SeatOccupancyEvent announces that a set of seats became booked for a
// showtime.  It is derived after a booking commits and is never
// persisted.
type SeatOccupancyEvent struct {
	ShowtimeID  int64
	RoomID      int64
	SeatNumbers []string
}
