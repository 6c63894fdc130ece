// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// booking manager and handlers to distinguish between different failure
// scenarios. ErrSeatTaken is the storage engine's verdict that a seat is
// already sold for a showtime, while ErrNotFound signals that referenced
// reference data (such as a seat) does not exist.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrSeatTaken is returned when inserting a ticket violates the unique
// (seat_id, showtime_id) key.  The booking manager translates this into
// a seat-unavailable outcome.
var ErrSeatTaken = errors.New("seat already booked for showtime")

// ErrNotFound is returned when a lookup yields no rows.
var ErrNotFound = errors.New("not found")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isDuplicateKey reports whether err is a unique-key violation from
// either supported driver.
func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
		// without extended result codes only the primary code is set
		return liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT &&
			strings.Contains(liteErr.Error(), "UNIQUE")
	}
	return false
}
