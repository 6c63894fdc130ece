package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/cinema-seat-booking/internal/model"
)

// UnitOfWork is an open storage transaction.  Every write made through it
// becomes visible together on Commit or not at all on Rollback.  Rollback
// after a successful Commit is a no-op.
type UnitOfWork interface {
	BookTicket(ctx context.Context, t *model.Ticket) (int64, error)
	AddBooking(ctx context.Context, h *model.BookingHistoryRecord) error
	Commit() error
	Rollback() error
}

// Store bundles the ticket and history repositories behind the storage
// contract used by the booking manager.
type Store struct {
	db      *sqlx.DB
	Tickets *TicketRepo
	History *BookingHistoryRepo
	Seats   *SeatRepo
}

// NewStore wires all repositories to one database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		db:      db,
		Tickets: NewTicketRepo(db),
		History: NewBookingHistoryRepo(db),
		Seats:   NewSeatRepo(db),
	}
}

// DB exposes the underlying handle for health checks and seeding.
func (s *Store) DB() *sqlx.DB { return s.db }

// IsSeatBooked reports whether a ticket exists for the seat and showtime.
func (s *Store) IsSeatBooked(ctx context.Context, seatID, showtimeID int64) (bool, error) {
	return s.Tickets.IsSeatBooked(ctx, seatID, showtimeID)
}

// GetBookingsByCustomer lists a customer's booking history.
func (s *Store) GetBookingsByCustomer(ctx context.Context, customerID int64) ([]model.BookingHistoryRecord, error) {
	return s.History.ListByCustomer(ctx, customerID)
}

// Begin opens a read-committed transaction.  The unique key on tickets
// rejects a concurrent sale of the same seat regardless of isolation level.
func (s *Store) Begin(ctx context.Context) (UnitOfWork, error) {
	opts := &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	if s.db.DriverName() == "sqlite" {
		// sqlite only offers serializable transactions
		opts = nil
	}
	tx, err := s.db.BeginTxx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &sqlTx{tx: tx, tickets: s.Tickets, history: s.History}, nil
}

type sqlTx struct {
	tx      *sqlx.Tx
	tickets *TicketRepo
	history *BookingHistoryRepo
}

func (t *sqlTx) BookTicket(ctx context.Context, ticket *model.Ticket) (int64, error) {
	return t.tickets.BookTicketTx(ctx, t.tx, ticket)
}

func (t *sqlTx) AddBooking(ctx context.Context, h *model.BookingHistoryRecord) error {
	return t.history.AddBookingTx(ctx, t.tx, h)
}

func (t *sqlTx) Commit() error { return t.tx.Commit() }

func (t *sqlTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
