package handler // handler defines http handlers

import (
    "encoding/json"
    "errors"
    "io"
    "strconv"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/condo-water-billing/internal/apperr"
    "github.com/iliyamo/condo-water-billing/internal/repository"
    "github.com/iliyamo/condo-water-billing/internal/service"
)

// BillingHandler bundles the room store and billing services behind the
// HTTP API.
type BillingHandler struct {
    Rooms    service.RoomStore  // Rooms provides room persistence
    Readings *service.Readings  // Readings implements reading writes, summaries and CSV
    Rollover *service.Rollover  // Rollover opens a month from the previous one
    Log      *zap.Logger
}

// NewBillingHandler constructs a BillingHandler and panics if a dependency
// is nil.
func NewBillingHandler(rooms service.RoomStore, readings *service.Readings, rollover *service.Rollover, log *zap.Logger) *BillingHandler {
    if rooms == nil || readings == nil || rollover == nil {
        panic("nil dependency passed to NewBillingHandler")
    }
    if log == nil {
        log = zap.NewNop()
    }
    return &BillingHandler{Rooms: rooms, Readings: readings, Rollover: rollover, Log: log}
}

// fail writes err as {error, code} with the status of its kind.  Repository
// sentinels that reach this point are translated here; anything else is an
// internal error and is logged.
func (h *BillingHandler) fail(c echo.Context, err error) error {
    ae, ok := apperr.As(err)
    if !ok {
        ae = fromStore(err)
    }
    if ae.Kind == apperr.KindInternal {
        h.Log.Error("request failed",
            zap.String("method", c.Request().Method), zap.String("path", c.Path()), zap.Error(ae.Err))
    }
    return c.JSON(ae.Kind.Status(), echo.Map{"error": ae.Message, "code": ae.Code})
}

func fromStore(err error) *apperr.Error {
    switch {
    case errors.Is(err, repository.ErrRoomNotFound):
        return apperr.NotFound("ROOM_NOT_FOUND", "Room not found")
    case errors.Is(err, repository.ErrReadingNotFound):
        return apperr.NotFound("NOT_FOUND", "Water reading not found")
    case errors.Is(err, repository.ErrDuplicateRoomNumber):
        return apperr.Conflict("DUPLICATE_ROOM_NUMBER", "Room number already exists")
    case errors.Is(err, repository.ErrRoomHasReadings):
        return apperr.Conflict("ROOM_HAS_READINGS", "Room has water readings; pass cascade=true to delete them too")
    }
    return apperr.Internal(err)
}

// parseID reads the :id path parameter as a positive integer.
func parseID(c echo.Context) (uint64, error) {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return 0, apperr.Validation("INVALID_ID", "Valid ID is required")
    }
    return id, nil
}

// decodeObject reads a JSON object body keeping numbers as json.Number so
// numeric strings and numbers can be told apart later.
func decodeObject(c echo.Context) (map[string]any, error) {
    dec := json.NewDecoder(c.Request().Body)
    dec.UseNumber()
    var body map[string]any
    if err := dec.Decode(&body); err != nil {
        if errors.Is(err, io.EOF) {
            return map[string]any{}, nil
        }
        return nil, apperr.Validation("INVALID_JSON", "Request body must be a JSON object")
    }
    if body == nil {
        body = map[string]any{}
    }
    return body, nil
}
