package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/condo-water-billing/internal/model"
)

const roomColumns = "id, room_number, owner_name, created_at, updated_at"

// RoomRepo encapsulates all database queries related to rooms.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo constructs a RoomRepo with the provided DB handle.
func NewRoomRepo(db *sql.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(s rowScanner) (*model.Room, error) {
	var r model.Room
	if err := s.Scan(&r.ID, &r.RoomNumber, &r.OwnerName, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// Create inserts a new room.  On success the room's ID and timestamps are
// populated from the stored row.  A unique key violation on room_number is
// reported as ErrDuplicateRoomNumber.
func (r *RoomRepo) Create(ctx context.Context, room *model.Room) error {
	const qInsert = "INSERT INTO rooms (room_number, owner_name) VALUES (?, ?)"
	res, err := r.db.ExecContext(ctx, qInsert, room.RoomNumber, room.OwnerName)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicateRoomNumber
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*room = *stored
	return nil
}

// GetByID fetches a room by its ID.  It returns ErrRoomNotFound if no row
// is found.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
	const q = "SELECT " + roomColumns + " FROM rooms WHERE id = ?"
	room, err := scanRoom(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return room, nil
}

// GetByNumber fetches a room by its exact room number.
func (r *RoomRepo) GetByNumber(ctx context.Context, number string) (*model.Room, error) {
	const q = "SELECT " + roomColumns + " FROM rooms WHERE room_number = ? LIMIT 1"
	room, err := scanRoom(r.db.QueryRowContext(ctx, q, number))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return room, nil
}

// List returns rooms ordered by id, optionally filtered by a substring of
// the room number or owner name.
func (r *RoomRepo) List(ctx context.Context, f model.RoomFilter) ([]*model.Room, error) {
	q := "SELECT " + roomColumns + " FROM rooms"
	args := []any{}
	if s := strings.TrimSpace(f.Search); s != "" {
		q += " WHERE room_number LIKE ? OR owner_name LIKE ?"
		like := "%" + escapeLike(s) + "%"
		args = append(args, like, like)
	}
	q += " ORDER BY id LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)
	return r.queryRooms(ctx, q, args...)
}

// All returns every room ordered by id.  CSV import uses it to resolve room
// numbers without one query per row.
func (r *RoomRepo) All(ctx context.Context) ([]*model.Room, error) {
	return r.queryRooms(ctx, "SELECT "+roomColumns+" FROM rooms ORDER BY id")
}

func (r *RoomRepo) queryRooms(ctx context.Context, q string, args ...any) ([]*model.Room, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Room{}
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, room)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies the non-nil fields of p and returns the stored row.  An
// empty patch only reloads the room.
func (r *RoomRepo) Update(ctx context.Context, id uint64, p model.RoomPatch) (*model.Room, error) {
	sets := []string{}
	args := []any{}
	if p.RoomNumber != nil {
		sets = append(sets, "room_number = ?")
		args = append(args, *p.RoomNumber)
	}
	if p.OwnerName != nil {
		sets = append(sets, "owner_name = ?")
		args = append(args, *p.OwnerName)
	}
	if len(sets) > 0 {
		q := "UPDATE rooms SET " + strings.Join(sets, ", ") + ", updated_at = CURRENT_TIMESTAMP WHERE id = ?"
		args = append(args, id)
		if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
			if isDuplicate(err) {
				return nil, ErrDuplicateRoomNumber
			}
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

// Delete removes a room and returns the deleted row.  When the room still
// owns readings, ErrRoomHasReadings is returned unless cascade is set, in
// which case its readings are deleted first.  Everything runs in one
// transaction with the room row locked.
func (r *RoomRepo) Delete(ctx context.Context, id uint64, cascade bool) (room *model.Room, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	const qLock = "SELECT " + roomColumns + " FROM rooms WHERE id = ? FOR UPDATE"
	room, err = scanRoom(tx.QueryRowContext(ctx, qLock, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	var readings int
	if err = tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM water_readings WHERE room_id = ?", id).Scan(&readings); err != nil {
		return nil, err
	}
	if readings > 0 {
		if !cascade {
			return nil, ErrRoomHasReadings
		}
		if _, err = tx.ExecContext(ctx, "DELETE FROM water_readings WHERE room_id = ?", id); err != nil {
			return nil, err
		}
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM rooms WHERE id = ?", id); err != nil {
		return nil, err
	}
	return room, nil
}

// escapeLike escapes LIKE wildcards so a search for "10_" matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
