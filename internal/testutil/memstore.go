// Package testutil provides in-memory stores for service and handler tests.
// They follow the repository contracts, including the sentinel errors and
// the (room, month) uniqueness of readings.
package testutil

import (
    "context"
    "sort"
    "strings"
    "sync"
    "time"

    "github.com/iliyamo/condo-water-billing/internal/model"
    "github.com/iliyamo/condo-water-billing/internal/repository"
)

// Store holds rooms and readings behind one mutex.  Rooms() and Readings()
// expose the two store contracts.
type Store struct {
    mu       sync.Mutex
    rooms    map[uint64]model.Room
    readings map[uint64]model.Reading
    nextRoom uint64
    nextRead uint64
    clock    time.Time

    // Writes counts successful reading upserts and updates.
    Writes int
    // FailUpsert, when set, is consulted before every upsert.  A non-nil
    // return aborts that upsert with the error.
    FailUpsert func(rd model.Reading) error
}

func NewStore() *Store {
    return &Store{
        rooms:    map[uint64]model.Room{},
        readings: map[uint64]model.Reading{},
        clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
    }
}

// tick advances the fake clock so updated timestamps always move.
func (s *Store) tick() time.Time {
    s.clock = s.clock.Add(time.Second)
    return s.clock
}

// AddRoom inserts a room directly and returns it.
func (s *Store) AddRoom(number, owner string) model.Room {
    room := &model.Room{RoomNumber: number, OwnerName: owner}
    if err := s.Rooms().Create(context.Background(), room); err != nil {
        panic(err)
    }
    return *room
}

// AddReading upserts a reading directly and returns the stored row.
func (s *Store) AddReading(rd model.Reading) model.Reading {
    if _, err := s.Readings().Upsert(context.Background(), &rd); err != nil {
        panic(err)
    }
    return rd
}

// ReadingsOf returns the readings of a month ordered by room id.
func (s *Store) ReadingsOf(month string) []model.Reading {
    out, _ := s.Readings().ListByMonth(context.Background(), month)
    return out
}

func (s *Store) Rooms() *Rooms       { return &Rooms{s} }
func (s *Store) Readings() *Readings { return &Readings{s} }

// Rooms implements service.RoomStore.
type Rooms struct{ s *Store }

func (r *Rooms) GetByID(_ context.Context, id uint64) (*model.Room, error) {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    room, ok := r.s.rooms[id]
    if !ok {
        return nil, repository.ErrRoomNotFound
    }
    return &room, nil
}

func (r *Rooms) GetByNumber(_ context.Context, number string) (*model.Room, error) {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    for _, room := range r.s.rooms {
        if room.RoomNumber == number {
            room := room
            return &room, nil
        }
    }
    return nil, repository.ErrRoomNotFound
}

func (r *Rooms) List(_ context.Context, f model.RoomFilter) ([]*model.Room, error) {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    q := strings.ToLower(strings.TrimSpace(f.Search))
    all := r.s.sortedRooms()
    out := []*model.Room{}
    for _, room := range all {
        if q != "" && !strings.Contains(strings.ToLower(room.RoomNumber), q) &&
            !strings.Contains(strings.ToLower(room.OwnerName), q) {
            continue
        }
        out = append(out, room)
    }
    if f.Offset >= len(out) {
        return []*model.Room{}, nil
    }
    out = out[f.Offset:]
    if f.Limit > 0 && f.Limit < len(out) {
        out = out[:f.Limit]
    }
    return out, nil
}

func (r *Rooms) All(_ context.Context) ([]*model.Room, error) {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    return r.s.sortedRooms(), nil
}

func (s *Store) sortedRooms() []*model.Room {
    out := make([]*model.Room, 0, len(s.rooms))
    for _, room := range s.rooms {
        room := room
        out = append(out, &room)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out
}

func (s *Store) numberTaken(number string, except uint64) bool {
    for id, room := range s.rooms {
        if id != except && room.RoomNumber == number {
            return true
        }
    }
    return false
}

func (r *Rooms) Create(_ context.Context, room *model.Room) error {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    if r.s.numberTaken(room.RoomNumber, 0) {
        return repository.ErrDuplicateRoomNumber
    }
    r.s.nextRoom++
    now := r.s.tick()
    room.ID, room.CreatedAt, room.UpdatedAt = r.s.nextRoom, now, now
    r.s.rooms[room.ID] = *room
    return nil
}

func (r *Rooms) Update(_ context.Context, id uint64, p model.RoomPatch) (*model.Room, error) {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    room, ok := r.s.rooms[id]
    if !ok {
        return nil, repository.ErrRoomNotFound
    }
    if p.RoomNumber != nil {
        if r.s.numberTaken(*p.RoomNumber, id) {
            return nil, repository.ErrDuplicateRoomNumber
        }
        room.RoomNumber = *p.RoomNumber
    }
    if p.OwnerName != nil {
        room.OwnerName = *p.OwnerName
    }
    room.UpdatedAt = r.s.tick()
    r.s.rooms[id] = room
    return &room, nil
}

func (r *Rooms) Delete(_ context.Context, id uint64, cascade bool) (*model.Room, error) {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    room, ok := r.s.rooms[id]
    if !ok {
        return nil, repository.ErrRoomNotFound
    }
    owned := []uint64{}
    for rid, rd := range r.s.readings {
        if rd.RoomID == id {
            owned = append(owned, rid)
        }
    }
    if len(owned) > 0 && !cascade {
        return nil, repository.ErrRoomHasReadings
    }
    for _, rid := range owned {
        delete(r.s.readings, rid)
    }
    delete(r.s.rooms, id)
    return &room, nil
}

// Readings implements service.ReadingStore.
type Readings struct{ s *Store }

func (r *Readings) GetByID(_ context.Context, id uint64) (*model.Reading, error) {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    rd, ok := r.s.readings[id]
    if !ok {
        return nil, repository.ErrReadingNotFound
    }
    return &rd, nil
}

func (r *Readings) GetByRoomAndMonth(_ context.Context, roomID uint64, month string) (*model.Reading, error) {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    if rd, ok := r.s.find(roomID, month); ok {
        return &rd, nil
    }
    return nil, repository.ErrReadingNotFound
}

func (s *Store) find(roomID uint64, month string) (model.Reading, bool) {
    for _, rd := range s.readings {
        if rd.RoomID == roomID && rd.Month == month {
            return rd, true
        }
    }
    return model.Reading{}, false
}

func (r *Readings) ListByMonth(_ context.Context, month string) ([]model.Reading, error) {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    out := []model.Reading{}
    for _, rd := range r.s.readings {
        if rd.Month == month {
            out = append(out, rd)
        }
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].RoomID != out[j].RoomID {
            return out[i].RoomID < out[j].RoomID
        }
        return out[i].ID < out[j].ID
    })
    return out, nil
}

func (r *Readings) ListJoinedByMonth(ctx context.Context, month string) ([]model.RoomReading, error) {
    rows, _ := r.ListByMonth(ctx, month)
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    out := []model.RoomReading{}
    for _, rd := range rows {
        room, ok := r.s.rooms[rd.RoomID]
        if !ok {
            continue
        }
        out = append(out, model.RoomReading{Reading: rd, RoomNumber: room.RoomNumber, OwnerName: room.OwnerName})
    }
    sort.SliceStable(out, func(i, j int) bool { return out[i].RoomNumber < out[j].RoomNumber })
    return out, nil
}

func (r *Readings) Upsert(_ context.Context, rd *model.Reading) (bool, error) {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    if r.s.FailUpsert != nil {
        if err := r.s.FailUpsert(*rd); err != nil {
            return false, err
        }
    }
    now := r.s.tick()
    if cur, ok := r.s.find(rd.RoomID, rd.Month); ok {
        rd.ID, rd.CreatedAt, rd.UpdatedAt = cur.ID, cur.CreatedAt, now
        stored := *rd
        stored.NegativeUsage = false
        r.s.readings[cur.ID] = stored
        r.s.Writes++
        return false, nil
    }
    r.s.nextRead++
    rd.ID, rd.CreatedAt, rd.UpdatedAt = r.s.nextRead, now, now
    stored := *rd
    stored.NegativeUsage = false
    r.s.readings[rd.ID] = stored
    r.s.Writes++
    return true, nil
}

func (r *Readings) Update(_ context.Context, rd *model.Reading) error {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    cur, ok := r.s.readings[rd.ID]
    if !ok {
        return repository.ErrReadingNotFound
    }
    for id, other := range r.s.readings {
        if id != rd.ID && other.RoomID == rd.RoomID && other.Month == rd.Month {
            return repository.ErrDuplicateReading
        }
    }
    rd.CreatedAt, rd.UpdatedAt = cur.CreatedAt, r.s.tick()
    stored := *rd
    stored.NegativeUsage = false
    r.s.readings[rd.ID] = stored
    r.s.Writes++
    return nil
}

func (r *Readings) Delete(_ context.Context, id uint64) (*model.Reading, error) {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    rd, ok := r.s.readings[id]
    if !ok {
        return nil, repository.ErrReadingNotFound
    }
    delete(r.s.readings, id)
    return &rd, nil
}
