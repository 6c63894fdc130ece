package booking_test

import (
	"context"
	"errors"
	"sync"

	"github.com/iliyamo/cinema-seat-booking/internal/booking"
	"github.com/iliyamo/cinema-seat-booking/internal/model"
	"github.com/iliyamo/cinema-seat-booking/internal/repository"
)

var errInjected = errors.New("injected failure")

type recordingNotifier struct {
	lock    sync.Mutex
	err     error
	emitted []model.SeatOccupancyEvent
}

func (n *recordingNotifier) Emit(ev model.SeatOccupancyEvent) error {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.emitted = append(n.emitted, ev)
	return n.err
}

func (n *recordingNotifier) events() []model.SeatOccupancyEvent {
	n.lock.Lock()
	defer n.lock.Unlock()
	return append([]model.SeatOccupancyEvent(nil), n.emitted...)
}

// spyStore counts storage access.  With a nil Storage it answers from its
// own fields.
type spyStore struct {
	booking.Storage
	isBookedErr error
	history     []model.BookingHistoryRecord
	historyErr  error

	lock   sync.Mutex
	checks int
	lists  int
	begins int
}

func (s *spyStore) calls() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.checks + s.lists + s.begins
}

func (s *spyStore) IsSeatBooked(ctx context.Context, seatID, showtimeID int64) (bool, error) {
	s.lock.Lock()
	s.checks++
	s.lock.Unlock()
	if s.isBookedErr != nil {
		return false, s.isBookedErr
	}
	if s.Storage == nil {
		return false, nil
	}
	return s.Storage.IsSeatBooked(ctx, seatID, showtimeID)
}

func (s *spyStore) GetBookingsByCustomer(ctx context.Context, customerID int64) ([]model.BookingHistoryRecord, error) {
	s.lock.Lock()
	s.lists++
	s.lock.Unlock()
	if s.historyErr != nil {
		return nil, s.historyErr
	}
	if s.Storage == nil {
		return s.history, nil
	}
	return s.Storage.GetBookingsByCustomer(ctx, customerID)
}

func (s *spyStore) Begin(ctx context.Context) (repository.UnitOfWork, error) {
	s.lock.Lock()
	s.begins++
	s.lock.Unlock()
	if s.Storage == nil {
		return nil, errInjected
	}
	return s.Storage.Begin(ctx)
}

// blindStore reports every seat as free so requests race on the insert.
type blindStore struct {
	booking.Storage
}

func (blindStore) IsSeatBooked(context.Context, int64, int64) (bool, error) { return false, nil }

// faultyStore injects a failure into the failAt-th call of failOp
// ("ticket", "history" or "commit") on a real unit of work.
type faultyStore struct {
	booking.Storage
	failOp     string
	failAt     int
	rolledBack bool
}

func (s *faultyStore) Begin(ctx context.Context) (repository.UnitOfWork, error) {
	uow, err := s.Storage.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &faultyUnit{UnitOfWork: uow, store: s}, nil
}

type faultyUnit struct {
	repository.UnitOfWork
	store   *faultyStore
	tickets int
	records int
}

func (u *faultyUnit) BookTicket(ctx context.Context, t *model.Ticket) (int64, error) {
	u.tickets++
	if u.store.failOp == "ticket" && u.tickets == u.store.failAt {
		return 0, errInjected
	}
	return u.UnitOfWork.BookTicket(ctx, t)
}

func (u *faultyUnit) AddBooking(ctx context.Context, h *model.BookingHistoryRecord) error {
	u.records++
	if u.store.failOp == "history" && u.records == u.store.failAt {
		return errInjected
	}
	return u.UnitOfWork.AddBooking(ctx, h)
}

func (u *faultyUnit) Commit() error {
	if u.store.failOp == "commit" {
		return errInjected
	}
	return u.UnitOfWork.Commit()
}

func (u *faultyUnit) Rollback() error {
	u.store.rolledBack = true
	return u.UnitOfWork.Rollback()
}

type recordingPublisher struct {
	lock      sync.Mutex
	err       error
	published []model.BookingConfirmation
}

func (p *recordingPublisher) PublishConfirmed(c model.BookingConfirmation) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.published = append(p.published, c)
	return p.err
}

func (p *recordingPublisher) confirmations() []model.BookingConfirmation {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]model.BookingConfirmation(nil), p.published...)
}
