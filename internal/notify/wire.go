package notify

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/iliyamo/cinema-seat-booking/internal/model"
)

// SeatUpdatePrefix starts every seat-occupancy line on the wire.
const SeatUpdatePrefix = "SEAT_UPDATE"

// ErrMalformedLine is returned by ParseSeatUpdate for lines that are not
// seat updates.
var ErrMalformedLine = errors.New("malformed seat update")

// FormatSeatUpdate renders ev as
//
//	SEAT_UPDATE:<showtimeID>:<roomID>:<seat1,seat2,...>
//
// without the trailing newline.  Seat order is preserved.
func FormatSeatUpdate(ev model.SeatOccupancyEvent) string {
	return fmt.Sprintf("%s:%d:%d:%s", SeatUpdatePrefix, ev.ShowtimeID, ev.RoomID, strings.Join(ev.SeatNumbers, ","))
}

// ParseSeatUpdate is the inverse of FormatSeatUpdate.
func ParseSeatUpdate(line string) (model.SeatOccupancyEvent, error) {
	parts := strings.SplitN(strings.TrimRight(line, "\r\n"), ":", 4)
	if len(parts) != 4 || parts[0] != SeatUpdatePrefix {
		return model.SeatOccupancyEvent{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	showtimeID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return model.SeatOccupancyEvent{}, fmt.Errorf("%w: showtime id %q", ErrMalformedLine, parts[1])
	}
	roomID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return model.SeatOccupancyEvent{}, fmt.Errorf("%w: room id %q", ErrMalformedLine, parts[2])
	}
	var seats []string
	if parts[3] != "" {
		seats = strings.Split(parts[3], ",")
	}
	return model.SeatOccupancyEvent{ShowtimeID: showtimeID, RoomID: roomID, SeatNumbers: seats}, nil
}
