// Package repository defines error types that are reused across the room
// and reading repositories. These sentinel values allow higher layers such
// as handlers to distinguish between different failure scenarios. For
// example, ErrDuplicateRoomNumber indicates that a write would break the
// room number uniqueness, while ErrRoomHasReadings signals that a room
// cannot be deleted because billing history still references it.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrRoomNotFound is returned when a room cannot be found in the DB.
var ErrRoomNotFound = errors.New("room not found")

// ErrReadingNotFound is returned when a water reading cannot be found.
var ErrReadingNotFound = errors.New("water reading not found")

// ErrDuplicateRoomNumber is returned when an insert or update collides with
// the unique room_number index. Handlers should translate this into an
// HTTP 409 response.
var ErrDuplicateRoomNumber = errors.New("room number already exists")

// ErrDuplicateReading is returned when an update would give a room a second
// reading for the same month.
var ErrDuplicateReading = errors.New("room already has a reading for this month")

// ErrRoomHasReadings is returned when deleting a room that still owns
// readings without asking for a cascade. Handlers should translate this
// into an HTTP 409 response.
var ErrRoomHasReadings = errors.New("room has water readings")

// mysqlDuplicateEntry is the server error number for unique key violations.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
