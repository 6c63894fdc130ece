package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/cinema-seat-booking/internal/model"
)

// TicketRepo provides access to the tickets table.  Each ticket sells one
// seat for one showtime; the (seat_id, showtime_id) unique key is the
// source of truth for availability.
type TicketRepo struct {
	db *sqlx.DB
}

// NewTicketRepo returns a new TicketRepo bound to the given database.
func NewTicketRepo(db *sqlx.DB) *TicketRepo { return &TicketRepo{db: db} }

const seatBookedQuery = `SELECT COUNT(*) FROM tickets WHERE seat_id = ? AND showtime_id = ?`

// IsSeatBooked reports whether a ticket exists for the seat and showtime.
func (r *TicketRepo) IsSeatBooked(ctx context.Context, seatID, showtimeID int64) (bool, error) {
	return isSeatBooked(ctx, r.db, seatID, showtimeID)
}

// IsSeatBookedTx is IsSeatBooked inside a caller-owned transaction.
func (r *TicketRepo) IsSeatBookedTx(ctx context.Context, tx *sqlx.Tx, seatID, showtimeID int64) (bool, error) {
	return isSeatBooked(ctx, tx, seatID, showtimeID)
}

func isSeatBooked(ctx context.Context, q sqlx.QueryerContext, seatID, showtimeID int64) (bool, error) {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, seatBookedQuery, seatID, showtimeID); err != nil {
		return false, err
	}
	return n > 0, nil
}

// BookTicketTx inserts a ticket within the scope of an existing
// transaction and returns the generated ticket ID, which is also stored
// on t.  A unique-key violation is reported as ErrSeatTaken.  The caller
// must commit or rollback the transaction.
func (r *TicketRepo) BookTicketTx(ctx context.Context, tx *sqlx.Tx, t *model.Ticket) (int64, error) {
	const q = `INSERT INTO tickets (customer_id, showtime_id, seat_id, seat_number, price) VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, t.CustomerID, t.ShowtimeID, t.SeatID, t.SeatNumber, t.Price)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, fmt.Errorf("seat %d showtime %d: %w", t.SeatID, t.ShowtimeID, ErrSeatTaken)
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	t.TicketID = id
	return id, nil
}

// ListByShowtime returns all tickets sold for a showtime ordered by ticket ID.
func (r *TicketRepo) ListByShowtime(ctx context.Context, showtimeID int64) ([]model.Ticket, error) {
	var tickets []model.Ticket
	err := r.db.SelectContext(ctx, &tickets,
		`SELECT ticket_id, customer_id, showtime_id, seat_id, seat_number, price
		 FROM tickets WHERE showtime_id = ? ORDER BY ticket_id`, showtimeID)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}
