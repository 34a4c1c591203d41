package service

import (
    "context"
    "errors"
    "time"

    "go.uber.org/zap"

    "github.com/iliyamo/condo-water-billing/internal/apperr"
    "github.com/iliyamo/condo-water-billing/internal/billing"
    "github.com/iliyamo/condo-water-billing/internal/lock"
    "github.com/iliyamo/condo-water-billing/internal/queue"
)

// defaultRolloverLockTTL bounds how long a crashed rollover can block the
// next attempt for the same months.
const defaultRolloverLockTTL = 2 * time.Minute

// RolloverResult reports how many target readings a rollover wrote.
type RolloverResult struct {
    FromMonth string `json:"fromMonth"`
    ToMonth   string `json:"toMonth"`
    Count     int    `json:"count"`
    Inserted  int    `json:"inserted"`
    Updated   int    `json:"updated"`
}

// Rollover opens a new billing month from the readings of a previous one.
type Rollover struct {
    Readings  ReadingStore
    Locker    lock.Locker
    Publisher Publisher
    Log       *zap.Logger
    LockTTL   time.Duration
}

// NewRollover wires a Rollover.  A nil locker falls back to an in-process
// one; a nil publisher disables events.
func NewRollover(readings ReadingStore, locker lock.Locker, pub Publisher, log *zap.Logger) *Rollover {
    if locker == nil {
        locker = lock.NewLocal()
    }
    if pub == nil {
        pub = NopPublisher{}
    }
    if log == nil {
        log = zap.NewNop()
    }
    return &Rollover{Readings: readings, Locker: locker, Publisher: pub, Log: log, LockTTL: defaultRolloverLockTTL}
}

func checkRolloverMonths(from, to string) error {
    if from == "" || to == "" {
        return apperr.Validation("MISSING_PARAMETERS", "fromMonth and toMonth are required")
    }
    if !billing.ValidMonth(from) {
        return apperr.Validation("INVALID_FROM_MONTH_FORMAT", "Invalid fromMonth format. Use YYYY-MM")
    }
    if !billing.ValidMonth(to) {
        return apperr.Validation("INVALID_TO_MONTH_FORMAT", "Invalid toMonth format. Use YYYY-MM")
    }
    if from == to {
        return apperr.Validation("SAME_MONTH", "fromMonth and toMonth must differ")
    }
    return nil
}

// Run carries every reading of from into to.  The current value of each
// source reading becomes the previous value of the target, which starts with
// zero current value, usage and charge at the same unit price.  Rooms with
// no source reading are left alone.  Existing target readings are
// overwritten, so running it twice yields the same values.
//
// Writes are not atomic across rooms: on a store error the rooms already
// written stay written and the error is returned.
func (r *Rollover) Run(ctx context.Context, actor, from, to string) (RolloverResult, error) {
    if err := checkRolloverMonths(from, to); err != nil {
        return RolloverResult{}, err
    }

    release, err := r.Locker.Acquire(ctx, "rollover:"+from+":"+to, r.LockTTL)
    if err != nil {
        if errors.Is(err, lock.ErrLocked) {
            return RolloverResult{}, apperr.Conflict("ROLLOVER_IN_PROGRESS", "A rollover for these months is already running")
        }
        return RolloverResult{}, apperr.Internal(err)
    }
    defer release()

    src, err := r.Readings.ListByMonth(ctx, from)
    if err != nil {
        return RolloverResult{}, apperr.Internal(err)
    }
    if len(src) == 0 {
        return RolloverResult{}, apperr.NotFound("NO_READINGS_FOUND", "No water readings found for "+from)
    }

    res := RolloverResult{FromMonth: from, ToMonth: to}
    for _, s := range src {
        next := billing.CarryForward(s, to)
        inserted, err := r.Readings.Upsert(ctx, &next)
        if err != nil {
            r.Log.Error("rollover aborted",
                zap.String("from", from), zap.String("to", to),
                zap.Uint64("room_id", s.RoomID), zap.Int("written", res.Count), zap.Error(err))
            return res, apperr.Internal(err)
        }
        if inserted {
            res.Inserted++
        } else {
            res.Updated++
        }
        res.Count++
    }

    r.Log.Info("rollover done",
        zap.String("from", from), zap.String("to", to),
        zap.Int("inserted", res.Inserted), zap.Int("updated", res.Updated))

    ev := queue.NewEvent(queue.ReadingsRolled, actor)
    ev.FromMonth, ev.ToMonth = from, to
    ev.Count, ev.Inserted, ev.Updated = res.Count, res.Inserted, res.Updated
    publish(ctx, r.Publisher, r.Log, ev)
    return res, nil
}
