package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/condo-water-billing/internal/model"
)

const readingColumns = "id, room_id, month, last_month_reading, this_month_reading, units_used, price_per_unit, total_price, created_at, updated_at"

// ReadingRepo encapsulates all database queries related to water readings.
// The (room_id, month) pair is unique, so every write for a billing period
// goes through Upsert.
type ReadingRepo struct {
	db *sql.DB
}

// NewReadingRepo constructs a ReadingRepo with the provided DB handle.
func NewReadingRepo(db *sql.DB) *ReadingRepo {
	return &ReadingRepo{db: db}
}

func scanReading(s rowScanner) (*model.Reading, error) {
	var r model.Reading
	err := s.Scan(&r.ID, &r.RoomID, &r.Month, &r.LastMonth, &r.ThisMonth,
		&r.Usage, &r.PricePerUnit, &r.TotalPrice, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetByID fetches a reading by its ID.  It returns ErrReadingNotFound if no
// row is found.
func (r *ReadingRepo) GetByID(ctx context.Context, id uint64) (*model.Reading, error) {
	const q = "SELECT " + readingColumns + " FROM water_readings WHERE id = ?"
	rd, err := scanReading(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReadingNotFound
		}
		return nil, err
	}
	return rd, nil
}

// GetByRoomAndMonth fetches the single reading of a room for a month.
func (r *ReadingRepo) GetByRoomAndMonth(ctx context.Context, roomID uint64, month string) (*model.Reading, error) {
	const q = "SELECT " + readingColumns + " FROM water_readings WHERE room_id = ? AND month = ?"
	rd, err := scanReading(r.db.QueryRowContext(ctx, q, roomID, month))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReadingNotFound
		}
		return nil, err
	}
	return rd, nil
}

// ListByMonth returns every reading of a month ordered by room.
func (r *ReadingRepo) ListByMonth(ctx context.Context, month string) ([]model.Reading, error) {
	const q = "SELECT " + readingColumns + " FROM water_readings WHERE month = ? ORDER BY room_id, id"
	rows, err := r.db.QueryContext(ctx, q, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Reading{}
	for rows.Next() {
		rd, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rd)
	}
	return out, rows.Err()
}

// ListJoinedByMonth returns the readings of a month joined with their room.
// Readings whose room no longer exists are left out.
func (r *ReadingRepo) ListJoinedByMonth(ctx context.Context, month string) ([]model.RoomReading, error) {
	const q = `SELECT w.id, w.room_id, w.month, w.last_month_reading, w.this_month_reading,
		w.units_used, w.price_per_unit, w.total_price, w.created_at, w.updated_at,
		r.room_number, r.owner_name
		FROM water_readings w
		INNER JOIN rooms r ON r.id = w.room_id
		WHERE w.month = ?
		ORDER BY r.room_number, w.id`
	rows, err := r.db.QueryContext(ctx, q, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.RoomReading{}
	for rows.Next() {
		var rr model.RoomReading
		err := rows.Scan(&rr.ID, &rr.RoomID, &rr.Month, &rr.LastMonth, &rr.ThisMonth,
			&rr.Usage, &rr.PricePerUnit, &rr.TotalPrice, &rr.CreatedAt, &rr.UpdatedAt,
			&rr.RoomNumber, &rr.OwnerName)
		if err != nil {
			return nil, err
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

// Upsert writes the reading of (RoomID, Month) in a single statement so two
// concurrent writers can never create duplicates.  It reports whether a new
// row was inserted and reloads rd from the stored row.
func (r *ReadingRepo) Upsert(ctx context.Context, rd *model.Reading) (bool, error) {
	const q = `INSERT INTO water_readings
		(room_id, month, last_month_reading, this_month_reading, units_used, price_per_unit, total_price)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
		id = LAST_INSERT_ID(id),
		last_month_reading = VALUES(last_month_reading),
		this_month_reading = VALUES(this_month_reading),
		units_used = VALUES(units_used),
		price_per_unit = VALUES(price_per_unit),
		total_price = VALUES(total_price),
		updated_at = CURRENT_TIMESTAMP`
	res, err := r.db.ExecContext(ctx, q, rd.RoomID, rd.Month, rd.LastMonth, rd.ThisMonth,
		rd.Usage, rd.PricePerUnit, rd.TotalPrice)
	if err != nil {
		return false, err
	}
	// MySQL reports 1 for an insert, 2 for an update and 0 when the
	// existing row already held these values.
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, err
	}
	stored, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return false, err
	}
	neg := rd.NegativeUsage
	*rd = *stored
	rd.NegativeUsage = neg
	return affected == 1, nil
}

// Update rewrites every mutable column of the reading identified by rd.ID.
// Moving a reading onto a (room, month) pair that already has one returns
// ErrDuplicateReading.
func (r *ReadingRepo) Update(ctx context.Context, rd *model.Reading) error {
	const q = `UPDATE water_readings SET room_id = ?, month = ?, last_month_reading = ?,
		this_month_reading = ?, units_used = ?, price_per_unit = ?, total_price = ?,
		updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, rd.RoomID, rd.Month, rd.LastMonth, rd.ThisMonth,
		rd.Usage, rd.PricePerUnit, rd.TotalPrice, rd.ID); err != nil {
		if isDuplicate(err) {
			return ErrDuplicateReading
		}
		return err
	}
	stored, err := r.GetByID(ctx, rd.ID)
	if err != nil {
		return err
	}
	neg := rd.NegativeUsage
	*rd = *stored
	rd.NegativeUsage = neg
	return nil
}

// Delete removes a reading and returns the deleted row.
func (r *ReadingRepo) Delete(ctx context.Context, id uint64) (*model.Reading, error) {
	rd, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := r.db.ExecContext(ctx, "DELETE FROM water_readings WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrReadingNotFound
	}
	return rd, nil
}
