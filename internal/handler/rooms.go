package handler

import (
    "errors"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/condo-water-billing/internal/apperr"
    "github.com/iliyamo/condo-water-billing/internal/model"
    "github.com/iliyamo/condo-water-billing/internal/repository"
)

const maxRoomPage = 100

// ListRooms handles GET /v1/rooms?search=&limit=&offset=
func (h *BillingHandler) ListRooms(c echo.Context) error {
    f := model.RoomFilter{
        Search: c.QueryParam("search"),
        Limit:  queryInt(c, "limit", maxRoomPage),
        Offset: queryInt(c, "offset", 0),
    }
    if f.Limit < 1 || f.Limit > maxRoomPage {
        f.Limit = maxRoomPage
    }
    if f.Offset < 0 {
        f.Offset = 0
    }
    rooms, err := h.Rooms.List(c.Request().Context(), f)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, rooms)
}

func queryInt(c echo.Context, name string, def int) int {
    v := strings.TrimSpace(c.QueryParam(name))
    if v == "" {
        return def
    }
    n, err := strconv.Atoi(v)
    if err != nil {
        return def
    }
    return n
}

// GetRoom handles GET /v1/rooms/:id
func (h *BillingHandler) GetRoom(c echo.Context) error {
    id, err := parseID(c)
    if err != nil {
        return h.fail(c, err)
    }
    room, err := h.Rooms.GetByID(c.Request().Context(), id)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, room)
}

// CreateRoom handles POST /v1/rooms
func (h *BillingHandler) CreateRoom(c echo.Context) error {
    body, err := decodeObject(c)
    if err != nil {
        return h.fail(c, err)
    }
    if isFalsy(body["roomNumber"]) || isFalsy(body["ownerName"]) {
        return h.fail(c, apperr.Validation("MISSING_REQUIRED_FIELDS", "roomNumber and ownerName are required"))
    }
    number, ok1 := body["roomNumber"].(string)
    owner, ok2 := body["ownerName"].(string)
    if !ok1 || !ok2 {
        return h.fail(c, apperr.Validation("INVALID_FIELD_TYPE", "roomNumber and ownerName must be strings"))
    }
    number, owner = strings.TrimSpace(number), strings.TrimSpace(owner)
    if number == "" || owner == "" {
        return h.fail(c, apperr.Validation("EMPTY_REQUIRED_FIELDS", "roomNumber and ownerName cannot be empty"))
    }

    ctx := c.Request().Context()
    if _, err := h.Rooms.GetByNumber(ctx, number); err == nil {
        return h.fail(c, repository.ErrDuplicateRoomNumber)
    } else if !errors.Is(err, repository.ErrRoomNotFound) {
        return h.fail(c, err)
    }

    room := &model.Room{RoomNumber: number, OwnerName: owner}
    if err := h.Rooms.Create(ctx, room); err != nil { // the unique index still catches a concurrent insert
        return h.fail(c, err)
    }
    return c.JSON(http.StatusCreated, room)
}

// UpdateRoom handles PUT/PATCH /v1/rooms/:id.  Either field may be left out.
func (h *BillingHandler) UpdateRoom(c echo.Context) error {
    id, err := parseID(c)
    if err != nil {
        return h.fail(c, err)
    }
    ctx := c.Request().Context()
    current, err := h.Rooms.GetByID(ctx, id)
    if err != nil {
        return h.fail(c, err)
    }
    body, err := decodeObject(c)
    if err != nil {
        return h.fail(c, err)
    }
    if isFalsy(body["roomNumber"]) && isFalsy(body["ownerName"]) {
        return h.fail(c, apperr.Validation("NO_UPDATE_FIELDS", "At least one field (roomNumber or ownerName) must be provided"))
    }

    var patch model.RoomPatch
    if v, present := body["roomNumber"]; present {
        s, ok := v.(string)
        if !ok {
            return h.fail(c, apperr.Validation("INVALID_FIELD_TYPE", "roomNumber must be a string"))
        }
        s = strings.TrimSpace(s)
        if s == "" {
            return h.fail(c, apperr.Validation("EMPTY_ROOM_NUMBER", "roomNumber cannot be empty"))
        }
        if s != current.RoomNumber {
            if other, err := h.Rooms.GetByNumber(ctx, s); err == nil && other.ID != id {
                return h.fail(c, repository.ErrDuplicateRoomNumber)
            } else if err != nil && !errors.Is(err, repository.ErrRoomNotFound) {
                return h.fail(c, err)
            }
        }
        patch.RoomNumber = &s
    }
    if v, present := body["ownerName"]; present {
        s, ok := v.(string)
        if !ok {
            return h.fail(c, apperr.Validation("INVALID_FIELD_TYPE", "ownerName must be a string"))
        }
        s = strings.TrimSpace(s)
        if s == "" {
            return h.fail(c, apperr.Validation("EMPTY_OWNER_NAME", "ownerName cannot be empty"))
        }
        patch.OwnerName = &s
    }

    room, err := h.Rooms.Update(ctx, id, patch)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, room)
}

// DeleteRoom handles DELETE /v1/rooms/:id[?cascade=true].  A room that
// still has readings is only deleted together with them.
func (h *BillingHandler) DeleteRoom(c echo.Context) error {
    id, err := parseID(c)
    if err != nil {
        return h.fail(c, err)
    }
    cascade := false
    if v := c.QueryParam("cascade"); v != "" {
        if cascade, err = strconv.ParseBool(v); err != nil {
            return h.fail(c, apperr.Validation("INVALID_CASCADE", "cascade must be true or false"))
        }
    }
    room, err := h.Rooms.Delete(c.Request().Context(), id, cascade)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Room deleted successfully", "room": room})
}

// isFalsy reports whether a decoded JSON value is absent, null or "".
func isFalsy(v any) bool {
    switch t := v.(type) {
    case nil:
        return true
    case string:
        return t == ""
    }
    return false
}
