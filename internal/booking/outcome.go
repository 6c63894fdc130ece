package booking

import (
	"errors"
	"fmt"

	"github.com/iliyamo/cinema-seat-booking/internal/model"
)

var (
	// ErrInvalidRequest marks a malformed booking or history request.
	// Nothing was read from or written to storage.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrSeatUnavailable marks a business rejection: a requested seat is
	// already sold for the showtime.  Nothing was written.
	ErrSeatUnavailable = errors.New("seat unavailable")
	// ErrStorage marks a storage failure.  Any open transaction was
	// rolled back before it was returned.
	ErrStorage = errors.New("storage error")
)

// Kind classifies the terminal result of a booking request.
type Kind int

const (
	KindSuccess Kind = iota
	KindInvalid
	KindSeatTaken
	KindStorageError
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindInvalid:
		return "invalid"
	case KindSeatTaken:
		return "seat_taken"
	case KindStorageError:
		return "storage_error"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Severity tells a presentation layer how to display an outcome.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityError Severity = "error"
)

// Outcome is the result of Manager.Book.  It replaces any direct UI side
// effect: callers render Message and Severity however they like.
type Outcome struct {
	Kind Kind
	// Reason explains an Invalid outcome.
	Reason string
	// SeatNumber names the seat that made a SeatTaken outcome.
	SeatNumber string
	// Cause is the underlying storage error of a StorageError outcome.
	Cause error
	// Tickets holds the committed tickets of a Success outcome, in
	// request order.
	Tickets []model.Ticket
}

// Success reports whether the booking committed.
func (o Outcome) Success() bool { return o.Kind == KindSuccess }

// Severity is info for a success and error for everything else.
func (o Outcome) Severity() Severity {
	if o.Kind == KindSuccess {
		return SeverityInfo
	}
	return SeverityError
}

// Message is the single human-readable line for the outcome.
func (o Outcome) Message() string {
	switch o.Kind {
	case KindSuccess:
		return "payment successful"
	case KindInvalid:
		return "invalid booking request: " + o.Reason
	case KindSeatTaken:
		return fmt.Sprintf("seat %s is already booked", o.SeatNumber)
	case KindStorageError:
		if o.Cause != nil {
			return "could not process payment: " + o.Cause.Error()
		}
		return "could not process payment"
	}
	return o.Kind.String()
}

// Err returns nil for a success and otherwise an error wrapping the
// sentinel for the outcome's kind (and the storage cause, if any).
func (o Outcome) Err() error {
	switch o.Kind {
	case KindSuccess:
		return nil
	case KindInvalid:
		return fmt.Errorf("%w: %s", ErrInvalidRequest, o.Reason)
	case KindSeatTaken:
		return fmt.Errorf("%w: seat %s", ErrSeatUnavailable, o.SeatNumber)
	case KindStorageError:
		if o.Cause != nil {
			return fmt.Errorf("%w: %w", ErrStorage, o.Cause)
		}
		return ErrStorage
	}
	return fmt.Errorf("unknown outcome %s", o.Kind)
}

func invalid(reason string) Outcome { return Outcome{Kind: KindInvalid, Reason: reason} }

func seatTaken(seatNumber string) Outcome {
	return Outcome{Kind: KindSeatTaken, SeatNumber: seatNumber}
}

func storageError(cause error) Outcome { return Outcome{Kind: KindStorageError, Cause: cause} }
