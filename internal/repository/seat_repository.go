package repository // repository defines data access for seats

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/cinema-seat-booking/internal/model"
)

// SeatRepo provides methods to work with seats in the database.
type SeatRepo struct {
	db *sqlx.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sqlx.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

// Create inserts a single seat record. On success the seat's ID is populated.
func (r *SeatRepo) Create(ctx context.Context, s *model.Seat) error {
	const q = `INSERT INTO seats (room_id, seat_number) VALUES (?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.RoomID, s.SeatNumber)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.SeatID = id
	return nil
}

// GetByRoom retrieves all seats of a room ordered by seat_id.
func (r *SeatRepo) GetByRoom(ctx context.Context, roomID int64) ([]model.Seat, error) {
	var seats []model.Seat
	err := r.db.SelectContext(ctx, &seats,
		`SELECT seat_id, room_id, seat_number FROM seats WHERE room_id = ? ORDER BY seat_id`, roomID)
	if err != nil {
		return nil, err
	}
	return seats, nil
}

// GetByIDs loads the given seats and returns them in the order the IDs
// were passed.  Duplicate IDs yield duplicate entries.  If any ID does
// not exist the error wraps ErrNotFound and names the missing seat.
func (r *SeatRepo) GetByIDs(ctx context.Context, ids []int64) ([]model.Seat, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT seat_id, room_id, seat_number FROM seats WHERE seat_id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var rows []model.Seat
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	byID := make(map[int64]model.Seat, len(rows))
	for _, s := range rows {
		byID[s.SeatID] = s
	}
	out := make([]model.Seat, 0, len(ids))
	for _, id := range ids {
		s, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("seat %d: %w", id, ErrNotFound)
		}
		out = append(out, s)
	}
	return out, nil
}
