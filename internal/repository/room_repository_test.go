package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/condo-water-billing/internal/model"
)

var roomCols = []string{"id", "room_number", "owner_name", "created_at", "updated_at"}

func newMock(t *testing.T) (sqlmock.Sqlmock, *RoomRepo, *ReadingRepo) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return mock, NewRoomRepo(db), NewReadingRepo(db)
}

func TestRoomRepo_Create(t *testing.T) {
	mock, rooms, _ := newMock(t)
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO rooms \(room_number, owner_name\)`).
		WithArgs("101", "Alice").
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectQuery(`SELECT .* FROM rooms WHERE id = \?`).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows(roomCols).AddRow(9, "101", "Alice", now, now))

	room := &model.Room{RoomNumber: "101", OwnerName: "Alice"}
	require.NoError(t, rooms.Create(context.Background(), room))
	assert.Equal(t, uint64(9), room.ID)
	assert.Equal(t, now, room.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepo_CreateDuplicate(t *testing.T) {
	mock, rooms, _ := newMock(t)
	mock.ExpectExec(`INSERT INTO rooms`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '101'"})

	err := rooms.Create(context.Background(), &model.Room{RoomNumber: "101", OwnerName: "Bob"})
	assert.ErrorIs(t, err, ErrDuplicateRoomNumber)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepo_GetByIDNotFound(t *testing.T) {
	mock, rooms, _ := newMock(t)
	mock.ExpectQuery(`SELECT .* FROM rooms WHERE id = \?`).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows(roomCols))

	_, err := rooms.GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRoomRepo_ListSearchEscapesWildcards(t *testing.T) {
	mock, rooms, _ := newMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .* FROM rooms WHERE room_number LIKE \? OR owner_name LIKE \? ORDER BY id LIMIT \? OFFSET \?`).
		WithArgs(`%1\_0%`, `%1\_0%`, 10, 20).
		WillReturnRows(sqlmock.NewRows(roomCols).AddRow(3, "1_0", "Carol", now, now))

	got, err := rooms.List(context.Background(), model.RoomFilter{Search: " 1_0 ", Limit: 10, Offset: 20})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Carol", got[0].OwnerName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepo_UpdateDuplicate(t *testing.T) {
	mock, rooms, _ := newMock(t)
	num := "102"
	mock.ExpectExec(`UPDATE rooms SET room_number = \?, updated_at = CURRENT_TIMESTAMP WHERE id = \?`).
		WithArgs("102", 1).
		WillReturnError(&mysql.MySQLError{Number: 1062})

	_, err := rooms.Update(context.Background(), 1, model.RoomPatch{RoomNumber: &num})
	assert.ErrorIs(t, err, ErrDuplicateRoomNumber)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepo_DeleteBlockedByReadings(t *testing.T) {
	mock, rooms, _ := newMock(t)
	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM rooms WHERE id = \? FOR UPDATE`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(roomCols).AddRow(5, "105", "Dan", now, now))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM water_readings WHERE room_id = \?`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	mock.ExpectRollback()

	_, err := rooms.Delete(context.Background(), 5, false)
	assert.ErrorIs(t, err, ErrRoomHasReadings)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepo_DeleteCascade(t *testing.T) {
	mock, rooms, _ := newMock(t)
	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(roomCols).AddRow(5, "105", "Dan", now, now))
	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	mock.ExpectExec(`DELETE FROM water_readings WHERE room_id = \?`).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM rooms WHERE id = \?`).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	room, err := rooms.Delete(context.Background(), 5, true)
	require.NoError(t, err)
	assert.Equal(t, "105", room.RoomNumber)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepo_DeleteMissing(t *testing.T) {
	mock, rooms, _ := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(8).
		WillReturnRows(sqlmock.NewRows(roomCols))
	mock.ExpectRollback()

	_, err := rooms.Delete(context.Background(), 8, true)
	assert.ErrorIs(t, err, ErrRoomNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
