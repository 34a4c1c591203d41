// Package service implements the billing operations on top of the room and
// reading stores.  Services validate input, run the billing rules and
// publish audit events; they know nothing about HTTP.
package service

import (
    "context"

    "github.com/iliyamo/condo-water-billing/internal/model"
)

// RoomStore is the persistence contract for rooms.  It is implemented by
// repository.RoomRepo and by the in-memory store used in tests.
type RoomStore interface {
    GetByID(ctx context.Context, id uint64) (*model.Room, error)
    GetByNumber(ctx context.Context, number string) (*model.Room, error)
    List(ctx context.Context, f model.RoomFilter) ([]*model.Room, error)
    All(ctx context.Context) ([]*model.Room, error)
    Create(ctx context.Context, room *model.Room) error
    Update(ctx context.Context, id uint64, p model.RoomPatch) (*model.Room, error)
    Delete(ctx context.Context, id uint64, cascade bool) (*model.Room, error)
}

// ReadingStore is the persistence contract for water readings.  Upsert must
// be atomic on (RoomID, Month) and report whether it inserted a new row.
type ReadingStore interface {
    GetByID(ctx context.Context, id uint64) (*model.Reading, error)
    // GetByRoomAndMonth looks up the reading that the (room, month) unique
    // key identifies.  Writes go through Upsert; this is the read side of
    // the same key.
    GetByRoomAndMonth(ctx context.Context, roomID uint64, month string) (*model.Reading, error)
    ListByMonth(ctx context.Context, month string) ([]model.Reading, error)
    ListJoinedByMonth(ctx context.Context, month string) ([]model.RoomReading, error)
    Upsert(ctx context.Context, rd *model.Reading) (inserted bool, err error)
    Update(ctx context.Context, rd *model.Reading) error
    Delete(ctx context.Context, id uint64) (*model.Reading, error)
}
