package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingConfirmation summarises a committed booking for downstream
// consumers that should not query the primary database.
type BookingConfirmation struct {
	CustomerID  int64
	ShowtimeID  int64
	RoomID      int64
	RoomName    string
	MovieTitle  string
	SeatNumbers []string
	TicketIDs   []int64
	TotalPrice  decimal.Decimal
	ConfirmedAt time.Time
}
