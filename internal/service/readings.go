package service

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "math"
    "strconv"
    "strings"

    "go.uber.org/zap"

    "github.com/iliyamo/condo-water-billing/internal/apperr"
    "github.com/iliyamo/condo-water-billing/internal/billing"
    "github.com/iliyamo/condo-water-billing/internal/model"
    "github.com/iliyamo/condo-water-billing/internal/queue"
    "github.com/iliyamo/condo-water-billing/internal/repository"
)

// SaveInput is a reading write as decoded from a request body or CSV row.
// The numeric fields hold raw values (json.Number, string, float64); a nil
// field takes its default.
type SaveInput struct {
    RoomID       any
    Month        string
    LastMonth    any
    ThisMonth    any
    PricePerUnit any
}

// ReadingPatch carries the meter values to change on an existing reading.
// A nil field keeps the stored value.
type ReadingPatch struct {
    LastMonth    any
    ThisMonth    any
    PricePerUnit any
}

// ImportResult reports the outcome of a CSV import.
type ImportResult struct {
    Month    string   `json:"month"`
    Imported int      `json:"imported"`
    Failed   int      `json:"failed"`
    Skipped  int      `json:"skipped"`
    Errors   []string `json:"errors"`
}

// Readings implements reading writes, monthly summaries and CSV
// import/export.
type Readings struct {
    Rooms        RoomStore
    Readings     ReadingStore
    Publisher    Publisher
    Log          *zap.Logger
    DefaultPrice float64
}

// NewReadings wires a Readings service.  A nil publisher disables events.
func NewReadings(rooms RoomStore, readings ReadingStore, pub Publisher, log *zap.Logger, defaultPrice float64) *Readings {
    if pub == nil {
        pub = NopPublisher{}
    }
    if log == nil {
        log = zap.NewNop()
    }
    if defaultPrice < 0 || math.IsNaN(defaultPrice) {
        defaultPrice = billing.DefaultPricePerUnit
    }
    return &Readings{Rooms: rooms, Readings: readings, Publisher: pub, Log: log, DefaultPrice: defaultPrice}
}

// CheckMonth validates a month query value.  missingCode is returned for an
// empty value; a malformed value is INVALID_MONTH_FORMAT.
func CheckMonth(month, missingCode string) error {
    if month == "" {
        return apperr.Validation(missingCode, "month is required")
    }
    if !billing.ValidMonth(month) {
        return apperr.Validation("INVALID_MONTH_FORMAT", "Invalid month format. Use YYYY-MM")
    }
    return nil
}

// Get returns one reading.
func (s *Readings) Get(ctx context.Context, id uint64) (*model.Reading, error) {
    rd, err := s.Readings.GetByID(ctx, id)
    if err != nil {
        return nil, storeErr(err)
    }
    return rd, nil
}

// ListByMonth returns the readings of a month.
func (s *Readings) ListByMonth(ctx context.Context, month string) ([]model.Reading, error) {
    if err := CheckMonth(month, "MISSING_PARAMETER"); err != nil {
        return nil, err
    }
    out, err := s.Readings.ListByMonth(ctx, month)
    if err != nil {
        return nil, apperr.Internal(err)
    }
    return out, nil
}

// Save creates or overwrites the reading of a room for a month.
func (s *Readings) Save(ctx context.Context, actor string, in SaveInput) (*model.Reading, error) {
    rd, err := s.save(ctx, in)
    if err != nil {
        return nil, err
    }
    ev := queue.NewEvent(queue.ReadingSaved, actor)
    ev.Month, ev.RoomID, ev.ReadingID, ev.TotalPrice = rd.Month, rd.RoomID, rd.ID, rd.TotalPrice
    s.publish(ctx, ev)
    return rd, nil
}

func (s *Readings) save(ctx context.Context, in SaveInput) (*model.Reading, error) {
    if isAbsent(in.RoomID) {
        return nil, apperr.Validation("MISSING_ROOM_ID", "roomId is required")
    }
    month := in.Month
    if err := CheckMonth(month, "MISSING_MONTH"); err != nil {
        return nil, err
    }
    roomID, err := parseRoomID(in.RoomID)
    if err != nil {
        return nil, err
    }
    if _, err := s.Rooms.GetByID(ctx, roomID); err != nil {
        return nil, storeErr(err)
    }

    rd := model.Reading{RoomID: roomID, Month: month}
    if rd.LastMonth, err = billing.Coerce(billing.FieldLastMonth, in.LastMonth, 0); err != nil {
        return nil, fieldErr(err)
    }
    if rd.ThisMonth, err = billing.Coerce(billing.FieldThisMonth, in.ThisMonth, 0); err != nil {
        return nil, fieldErr(err)
    }
    if rd.PricePerUnit, err = billing.Coerce(billing.FieldPricePerUnit, in.PricePerUnit, s.DefaultPrice); err != nil {
        return nil, fieldErr(err)
    }
    if rd, err = billing.Price(rd); err != nil {
        return nil, fieldErr(err)
    }
    if rd.NegativeUsage {
        s.Log.Warn("negative usage recorded",
            zap.Uint64("room_id", rd.RoomID), zap.String("month", rd.Month),
            zap.Float64("last_month", rd.LastMonth), zap.Float64("this_month", rd.ThisMonth))
    }

    if _, err := s.Readings.Upsert(ctx, &rd); err != nil {
        return nil, storeErr(err)
    }
    return &rd, nil
}

// Update changes the meter values or unit price of an existing reading and
// recomputes its derived fields.
func (s *Readings) Update(ctx context.Context, actor string, id uint64, p ReadingPatch) (*model.Reading, error) {
    cur, err := s.Readings.GetByID(ctx, id)
    if err != nil {
        return nil, storeErr(err)
    }
    rd := *cur
    if rd.LastMonth, err = billing.Coerce(billing.FieldLastMonth, p.LastMonth, cur.LastMonth); err != nil {
        return nil, fieldErr(err)
    }
    if rd.ThisMonth, err = billing.Coerce(billing.FieldThisMonth, p.ThisMonth, cur.ThisMonth); err != nil {
        return nil, fieldErr(err)
    }
    if rd.PricePerUnit, err = billing.Coerce(billing.FieldPricePerUnit, p.PricePerUnit, cur.PricePerUnit); err != nil {
        return nil, fieldErr(err)
    }
    if rd, err = billing.Price(rd); err != nil {
        return nil, fieldErr(err)
    }
    if err := s.Readings.Update(ctx, &rd); err != nil {
        return nil, storeErr(err)
    }

    ev := queue.NewEvent(queue.ReadingUpdated, actor)
    ev.Month, ev.RoomID, ev.ReadingID, ev.TotalPrice = rd.Month, rd.RoomID, rd.ID, rd.TotalPrice
    s.publish(ctx, ev)
    return &rd, nil
}

// Delete removes a reading and returns it.
func (s *Readings) Delete(ctx context.Context, actor string, id uint64) (*model.Reading, error) {
    rd, err := s.Readings.Delete(ctx, id)
    if err != nil {
        return nil, storeErr(err)
    }
    ev := queue.NewEvent(queue.ReadingDeleted, actor)
    ev.Month, ev.RoomID, ev.ReadingID = rd.Month, rd.RoomID, rd.ID
    s.publish(ctx, ev)
    return rd, nil
}

// Summary aggregates the readings of a month.
func (s *Readings) Summary(ctx context.Context, month string) (billing.Summary, error) {
    if err := CheckMonth(month, "MISSING_MONTH"); err != nil {
        return billing.Summary{}, err
    }
    rows, err := s.Readings.ListJoinedByMonth(ctx, month)
    if err != nil {
        return billing.Summary{}, apperr.Internal(err)
    }
    sum, err := billing.Summarize(month, rows)
    if errors.Is(err, billing.ErrNoReadings) {
        return billing.Summary{}, apperr.NotFound("NO_READINGS_FOUND", "No water readings found for "+month)
    }
    return sum, err
}

// Export returns the readings of a month joined with their rooms.
func (s *Readings) Export(ctx context.Context, month string) ([]model.RoomReading, error) {
    if err := CheckMonth(month, "MISSING_MONTH"); err != nil {
        return nil, err
    }
    rows, err := s.Readings.ListJoinedByMonth(ctx, month)
    if err != nil {
        return nil, apperr.Internal(err)
    }
    return rows, nil
}

// Import saves one reading per CSV row into month.  Rows without a room
// number or current value are skipped.  Room numbers match
// case-insensitively; rows that match no room or fail validation are
// counted as failed and do not abort the import.
func (s *Readings) Import(ctx context.Context, actor, month string, rows []map[string]string) (ImportResult, error) {
    if err := CheckMonth(month, "MISSING_MONTH"); err != nil {
        return ImportResult{}, err
    }
    rooms, err := s.Rooms.All(ctx)
    if err != nil {
        return ImportResult{}, apperr.Internal(err)
    }
    byNumber := make(map[string]*model.Room, len(rooms))
    for _, r := range rooms {
        byNumber[strings.ToLower(strings.TrimSpace(r.RoomNumber))] = r
    }

    res := ImportResult{Month: month, Errors: []string{}}
    for i, row := range rows {
        line := i + 2 // header is line 1
        number := strings.TrimSpace(row["roomNumber"])
        if number == "" || strings.TrimSpace(row["thisMonth"]) == "" {
            res.Skipped++
            continue
        }
        room, ok := byNumber[strings.ToLower(number)]
        if !ok {
            res.Failed++
            res.Errors = append(res.Errors, fmt.Sprintf("line %d: room %q not found (ROOM_NOT_FOUND)", line, number))
            continue
        }
        _, err := s.save(ctx, SaveInput{
            RoomID:       room.ID,
            Month:        month,
            LastMonth:    cell(row, "lastMonth"),
            ThisMonth:    cell(row, "thisMonth"),
            PricePerUnit: cell(row, "pricePerUnit"),
        })
        if err != nil {
            if ae, ok := apperr.As(err); !ok || ae.Kind == apperr.KindInternal {
                return res, err
            }
            res.Failed++
            res.Errors = append(res.Errors, fmt.Sprintf("line %d: %s (%s)", line, err.Error(), apperr.CodeOf(err)))
            continue
        }
        res.Imported++
    }

    ev := queue.NewEvent(queue.ReadingsImported, actor)
    ev.Month, ev.Count, ev.Failed = month, res.Imported, res.Failed
    s.publish(ctx, ev)
    return res, nil
}

// cell returns a trimmed CSV value, or nil when it is blank so the field
// takes its default.
func cell(row map[string]string, key string) any {
    v := strings.TrimSpace(row[key])
    if v == "" {
        return nil
    }
    return v
}

func (s *Readings) publish(ctx context.Context, ev queue.BillingEvent) {
    publish(ctx, s.Publisher, s.Log, ev)
}

func publish(ctx context.Context, p Publisher, log *zap.Logger, ev queue.BillingEvent) {
    if err := p.Publish(ctx, ev); err != nil {
        log.Warn("audit event not published", zap.String("type", ev.Type), zap.Error(err))
    }
}

// isAbsent reports whether a room id was left out: nil, blank, or zero.
func isAbsent(v any) bool {
    switch t := v.(type) {
    case nil:
        return true
    case string:
        t = strings.TrimSpace(t)
        return t == "" || t == "0"
    case json.Number:
        return t.String() == "0"
    case float64:
        return t == 0
    case int:
        return t == 0
    case int64:
        return t == 0
    case uint64:
        return t == 0
    }
    return false
}

// parseRoomID accepts a positive integer as a JSON number, float without
// fraction, unsigned/signed int or numeric string.
func parseRoomID(v any) (uint64, error) {
    bad := apperr.Validation("INVALID_ROOM_ID", "roomId must be a valid integer")
    switch t := v.(type) {
    case uint64:
        if t > 0 {
            return t, nil
        }
    case int:
        if t > 0 {
            return uint64(t), nil
        }
    case int64:
        if t > 0 {
            return uint64(t), nil
        }
    case float64:
        if t > 0 && t == math.Trunc(t) && t < math.MaxInt64 {
            return uint64(t), nil
        }
    case json.Number:
        if n, err := strconv.ParseUint(t.String(), 10, 64); err == nil && n > 0 {
            return n, nil
        }
    case string:
        if n, err := strconv.ParseUint(strings.TrimSpace(t), 10, 64); err == nil && n > 0 {
            return n, nil
        }
    }
    return 0, bad
}

func fieldErr(err error) error {
    var fe *billing.FieldError
    if errors.As(err, &fe) {
        return apperr.Validation(fe.Code(), fe.Error())
    }
    return apperr.Internal(err)
}

// storeErr translates repository sentinels into typed errors.
func storeErr(err error) error {
    switch {
    case err == nil:
        return nil
    case errors.Is(err, repository.ErrRoomNotFound):
        return apperr.NotFound("ROOM_NOT_FOUND", "Room not found")
    case errors.Is(err, repository.ErrReadingNotFound):
        return apperr.NotFound("NOT_FOUND", "Water reading not found")
    case errors.Is(err, repository.ErrDuplicateReading):
        return apperr.Conflict("DUPLICATE_READING", "Room already has a reading for this month")
    }
    if _, ok := apperr.As(err); ok {
        return err
    }
    return apperr.Internal(err)
}
