package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// The unique key on tickets (seat_id, showtime_id) is what makes a seat
// impossible to sell twice: the insert inside the booking transaction
// fails for the loser of any race.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS seats (
		seat_id BIGINT AUTO_INCREMENT PRIMARY KEY,
		room_id BIGINT NOT NULL,
		seat_number VARCHAR(16) NOT NULL,
		UNIQUE KEY uq_seats_room_number (room_id, seat_number)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS tickets (
		ticket_id BIGINT AUTO_INCREMENT PRIMARY KEY,
		customer_id BIGINT NOT NULL,
		showtime_id BIGINT NOT NULL,
		seat_id BIGINT NOT NULL,
		seat_number VARCHAR(16) NOT NULL,
		price BIGINT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_tickets_seat_showtime (seat_id, showtime_id),
		CONSTRAINT fk_tickets_seat FOREIGN KEY (seat_id) REFERENCES seats (seat_id)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS booking_history (
		booking_id BIGINT AUTO_INCREMENT PRIMARY KEY,
		customer_id BIGINT NOT NULL,
		ticket_id BIGINT NOT NULL,
		booking_date DATETIME NOT NULL,
		movie_title VARCHAR(255) NOT NULL,
		room_name VARCHAR(255) NOT NULL,
		seat_number VARCHAR(16) NOT NULL,
		price BIGINT NOT NULL,
		KEY ix_booking_history_customer (customer_id),
		CONSTRAINT fk_booking_history_ticket FOREIGN KEY (ticket_id) REFERENCES tickets (ticket_id)
	) ENGINE=InnoDB`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS seats (
		seat_id INTEGER PRIMARY KEY AUTOINCREMENT,
		room_id INTEGER NOT NULL,
		seat_number TEXT NOT NULL,
		UNIQUE (room_id, seat_number)
	)`,
	`CREATE TABLE IF NOT EXISTS tickets (
		ticket_id INTEGER PRIMARY KEY AUTOINCREMENT,
		customer_id INTEGER NOT NULL,
		showtime_id INTEGER NOT NULL,
		seat_id INTEGER NOT NULL REFERENCES seats (seat_id),
		seat_number TEXT NOT NULL,
		price INTEGER NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (seat_id, showtime_id)
	)`,
	`CREATE TABLE IF NOT EXISTS booking_history (
		booking_id INTEGER PRIMARY KEY AUTOINCREMENT,
		customer_id INTEGER NOT NULL,
		ticket_id INTEGER NOT NULL REFERENCES tickets (ticket_id),
		booking_date DATETIME NOT NULL,
		movie_title TEXT NOT NULL,
		room_name TEXT NOT NULL,
		seat_number TEXT NOT NULL,
		price INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_booking_history_customer ON booking_history (customer_id)`,
}

// Migrate creates the booking tables if they do not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	stmts := mysqlSchema
	if db.DriverName() == DriverSQLite {
		stmts = sqliteSchema
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}
