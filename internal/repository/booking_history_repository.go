package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/cinema-seat-booking/internal/model"
)

// BookingHistoryRepo provides access to the booking_history table.
// Rows are written 1:1 with tickets in the same transaction and are
// read back per customer.
type BookingHistoryRepo struct {
	db *sqlx.DB
}

// NewBookingHistoryRepo returns a new BookingHistoryRepo bound to the given database.
func NewBookingHistoryRepo(db *sqlx.DB) *BookingHistoryRepo { return &BookingHistoryRepo{db: db} }

// AddBookingTx inserts a history record inside a caller-owned
// transaction and populates its generated BookingID.
func (r *BookingHistoryRepo) AddBookingTx(ctx context.Context, tx *sqlx.Tx, h *model.BookingHistoryRecord) error {
	const q = `INSERT INTO booking_history
		(customer_id, ticket_id, booking_date, movie_title, room_name, seat_number, price)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		h.CustomerID, h.TicketID, h.BookingDate.UTC(), h.MovieTitle, h.RoomName, h.SeatNumber, h.Price)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.BookingID = id
	return nil
}

// ListByCustomer returns a customer's bookings, newest first.  An empty
// slice (not nil) is returned when the customer has no bookings.
func (r *BookingHistoryRepo) ListByCustomer(ctx context.Context, customerID int64) ([]model.BookingHistoryRecord, error) {
	records := []model.BookingHistoryRecord{}
	err := r.db.SelectContext(ctx, &records,
		`SELECT booking_id, customer_id, ticket_id, booking_date, movie_title, room_name, seat_number, price
		 FROM booking_history
		 WHERE customer_id = ?
		 ORDER BY booking_date DESC, booking_id DESC`, customerID)
	if err != nil {
		return nil, err
	}
	return records, nil
}
