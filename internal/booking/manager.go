// Package booking sells seats for a showtime against the shared ticket
// inventory.  A booking either commits one ticket and one history record
// per requested seat or leaves storage untouched; a seat-occupancy event
// is handed to the notifier only after the commit.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-seat-booking/internal/model"
	"github.com/iliyamo/cinema-seat-booking/internal/repository"
)

// Storage is the persistence contract the manager drives.  Begin opens
// the single unit of work that all of a request's writes share.
type Storage interface {
	IsSeatBooked(ctx context.Context, seatID, showtimeID int64) (bool, error)
	GetBookingsByCustomer(ctx context.Context, customerID int64) ([]model.BookingHistoryRecord, error)
	Begin(ctx context.Context) (repository.UnitOfWork, error)
}

// Notifier accepts a seat-occupancy event for asynchronous delivery.
// Emit must not block on the network; an error only means the event was
// not accepted and is logged.
type Notifier interface {
	Emit(event model.SeatOccupancyEvent) error
}

// ConfirmationPublisher announces committed bookings to other systems.
// Like Notifier it must not block; failures are logged.
type ConfirmationPublisher interface {
	PublishConfirmed(c model.BookingConfirmation) error
}

// Manager runs booking transactions.  It is safe for concurrent use.
type Manager struct {
	store    Storage
	notifier Notifier
	confirm  ConfirmationPublisher
	logger   logrus.FieldLogger
	now      func() time.Time
	timeout  time.Duration
}

// Option customises a Manager.
type Option func(*Manager)

// WithClock overrides the source of booking dates.
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

// WithTimeout bounds the storage work of a single Book call.  Zero
// leaves the caller's context untouched.
func WithTimeout(d time.Duration) Option { return func(m *Manager) { m.timeout = d } }

// WithConfirmationPublisher publishes a confirmation after every
// committed booking.
func WithConfirmationPublisher(p ConfirmationPublisher) Option {
	return func(m *Manager) { m.confirm = p }
}

// NewManager builds a Manager.  notifier may be nil, in which case no
// events are produced.
func NewManager(store Storage, notifier Notifier, logger logrus.FieldLogger, opts ...Option) *Manager {
	if store == nil {
		panic("nil storage passed to NewManager")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	m := &Manager{
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Book validates req, reserves every seat in one transaction and, after
// a successful commit, emits a seat-occupancy event.  It never returns a
// Go error: every result, including storage failures, is an Outcome.
func (m *Manager) Book(ctx context.Context, req model.BookingRequest) Outcome {
	log := m.logger.WithFields(logrus.Fields{
		"customer_id": req.CustomerID,
		"showtime_id": req.ShowtimeID,
		"seats":       len(req.Seats),
	})

	out := m.book(ctx, req, log)

	switch out.Kind {
	case KindSuccess:
		log.WithField("tickets", len(out.Tickets)).Info("booking committed")
	case KindStorageError:
		log.WithError(out.Cause).Error("booking rolled back")
	default:
		log.WithField("outcome", out.Kind.String()).Info(out.Message())
	}
	return out
}

func (m *Manager) book(ctx context.Context, req model.BookingRequest, log logrus.FieldLogger) Outcome {
	if reason := validate(req); reason != "" {
		return invalid(reason)
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	// Fast path: reject without opening a transaction.  The unique key
	// checked by the inserts below is the authoritative check.
	for _, seat := range req.Seats {
		booked, err := m.store.IsSeatBooked(ctx, seat.SeatID, req.ShowtimeID)
		if err != nil {
			return storageError(fmt.Errorf("checking seat %s: %w", seat.SeatNumber, err))
		}
		if booked {
			return seatTaken(seat.SeatNumber)
		}
	}

	tickets, confirmedAt, out := m.reserve(ctx, req, log)
	if out != nil {
		return *out
	}

	if m.notifier != nil {
		if err := m.notifier.Emit(OccupancyEvent(req)); err != nil {
			log.WithError(err).Warn("seat update not dispatched")
		}
	}
	if m.confirm != nil {
		if err := m.confirm.PublishConfirmed(Confirmation(req, tickets, confirmedAt)); err != nil {
			log.WithError(err).Warn("booking confirmation not dispatched")
		}
	}
	return Outcome{Kind: KindSuccess, Tickets: tickets}
}

// reserve writes all tickets and history rows in one unit of work.  A
// non-nil Outcome means the unit of work was rolled back.
func (m *Manager) reserve(ctx context.Context, req model.BookingRequest, log logrus.FieldLogger) ([]model.Ticket, time.Time, *Outcome) {
	fail := func(o Outcome) ([]model.Ticket, time.Time, *Outcome) { return nil, time.Time{}, &o }

	uow, err := m.store.Begin(ctx)
	if err != nil {
		return fail(storageError(fmt.Errorf("starting transaction: %w", err)))
	}
	committed := false
	defer func() {
		if !committed {
			if err := uow.Rollback(); err != nil {
				log.WithError(err).Error("rollback failed")
			}
		}
	}()

	price := SeatPrice(req.TotalPrice, len(req.Seats))
	bookedAt := m.now().UTC()
	tickets := make([]model.Ticket, 0, len(req.Seats))

	for _, seat := range req.Seats {
		ticket := model.Ticket{
			CustomerID: req.CustomerID,
			ShowtimeID: req.ShowtimeID,
			SeatID:     seat.SeatID,
			SeatNumber: seat.SeatNumber,
			Price:      price,
		}
		ticketID, err := uow.BookTicket(ctx, &ticket)
		if err != nil {
			if errors.Is(err, repository.ErrSeatTaken) {
				return fail(seatTaken(seat.SeatNumber))
			}
			return fail(storageError(fmt.Errorf("booking seat %s: %w", seat.SeatNumber, err)))
		}
		ticket.TicketID = ticketID

		history := model.BookingHistoryRecord{
			CustomerID:  req.CustomerID,
			TicketID:    ticketID,
			BookingDate: bookedAt,
			MovieTitle:  req.MovieTitle,
			RoomName:    req.RoomName,
			SeatNumber:  seat.SeatNumber,
			Price:       price,
		}
		if err := uow.AddBooking(ctx, &history); err != nil {
			return fail(storageError(fmt.Errorf("recording history for seat %s: %w", seat.SeatNumber, err)))
		}
		tickets = append(tickets, ticket)
	}

	if err := uow.Commit(); err != nil {
		return fail(storageError(fmt.Errorf("committing: %w", err)))
	}
	committed = true
	return tickets, bookedAt, nil
}

// History returns a customer's booking history in storage order.
func (m *Manager) History(ctx context.Context, customerID int64) ([]model.BookingHistoryRecord, error) {
	if customerID <= 0 {
		return nil, fmt.Errorf("%w: customer id must be positive", ErrInvalidRequest)
	}
	records, err := m.store.GetBookingsByCustomer(ctx, customerID)
	if err != nil {
		m.logger.WithError(err).WithField("customer_id", customerID).Error("loading booking history")
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return records, nil
}

// IsSeatBooked delegates to storage.
func (m *Manager) IsSeatBooked(ctx context.Context, seatID, showtimeID int64) (bool, error) {
	return m.store.IsSeatBooked(ctx, seatID, showtimeID)
}

// SeatPrice splits total equally over n seats, rounding each share down.
// The remainder is not charged to any seat.
func SeatPrice(total decimal.Decimal, n int) int64 {
	if n <= 0 {
		return 0
	}
	q, _ := total.QuoRem(decimal.NewFromInt(int64(n)), 0)
	return q.IntPart()
}

// OccupancyEvent derives the post-commit event for a request: the room is
// taken from the first seat and seat numbers keep request order.
func OccupancyEvent(req model.BookingRequest) model.SeatOccupancyEvent {
	var roomID int64
	if len(req.Seats) > 0 {
		roomID = req.Seats[0].RoomID
	}
	return model.SeatOccupancyEvent{
		ShowtimeID:  req.ShowtimeID,
		RoomID:      roomID,
		SeatNumbers: req.SeatNumbers(),
	}
}

// Confirmation summarises a committed booking.
func Confirmation(req model.BookingRequest, tickets []model.Ticket, at time.Time) model.BookingConfirmation {
	ids := make([]int64, 0, len(tickets))
	for _, t := range tickets {
		ids = append(ids, t.TicketID)
	}
	ev := OccupancyEvent(req)
	return model.BookingConfirmation{
		CustomerID:  req.CustomerID,
		ShowtimeID:  req.ShowtimeID,
		RoomID:      ev.RoomID,
		RoomName:    req.RoomName,
		MovieTitle:  req.MovieTitle,
		SeatNumbers: ev.SeatNumbers,
		TicketIDs:   ids,
		TotalPrice:  req.TotalPrice,
		ConfirmedAt: at,
	}
}

func validate(req model.BookingRequest) string {
	switch {
	case req.CustomerID <= 0:
		return "customer id must be positive"
	case req.ShowtimeID <= 0:
		return "showtime id must be positive"
	case len(req.Seats) == 0:
		return "at least one seat is required"
	case req.TotalPrice.IsNegative():
		return "total price must not be negative"
	}
	return ""
}
