package handler

import (
    "fmt"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/condo-water-billing/internal/middleware"
    "github.com/iliyamo/condo-water-billing/internal/service"
)

// ListReadings handles GET /v1/water-readings?month=YYYY-MM
func (h *BillingHandler) ListReadings(c echo.Context) error {
    out, err := h.Readings.ListByMonth(c.Request().Context(), c.QueryParam("month"))
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, out)
}

// GetReading handles GET /v1/water-readings/:id
func (h *BillingHandler) GetReading(c echo.Context) error {
    id, err := parseID(c)
    if err != nil {
        return h.fail(c, err)
    }
    rd, err := h.Readings.Get(c.Request().Context(), id)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, rd)
}

// SaveReading handles POST /v1/water-readings.  It creates the reading of a
// room for a month, or overwrites the existing one, and answers 201 either
// way.
func (h *BillingHandler) SaveReading(c echo.Context) error {
    body, err := decodeObject(c)
    if err != nil {
        return h.fail(c, err)
    }
    in := service.SaveInput{
        RoomID:       body["roomId"],
        LastMonth:    body["lastMonth"],
        ThisMonth:    body["thisMonth"],
        PricePerUnit: body["pricePerUnit"],
    }
    if m := body["month"]; m != nil {
        in.Month = fmt.Sprint(m) // a non-string month fails format validation
    }
    rd, err := h.Readings.Save(c.Request().Context(), middleware.Actor(c), in)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusCreated, rd)
}

// UpdateReading handles PUT /v1/water-readings/:id.  Omitted values keep
// their stored value; derived fields are always recomputed.
func (h *BillingHandler) UpdateReading(c echo.Context) error {
    id, err := parseID(c)
    if err != nil {
        return h.fail(c, err)
    }
    body, err := decodeObject(c)
    if err != nil {
        return h.fail(c, err)
    }
    rd, err := h.Readings.Update(c.Request().Context(), middleware.Actor(c), id, service.ReadingPatch{
        LastMonth:    body["lastMonth"],
        ThisMonth:    body["thisMonth"],
        PricePerUnit: body["pricePerUnit"],
    })
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, rd)
}

// DeleteReading handles DELETE /v1/water-readings/:id
func (h *BillingHandler) DeleteReading(c echo.Context) error {
    id, err := parseID(c)
    if err != nil {
        return h.fail(c, err)
    }
    rd, err := h.Readings.Delete(c.Request().Context(), middleware.Actor(c), id)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Water reading deleted successfully", "deletedReading": rd})
}

// RolloverReadings handles POST /v1/water-readings/rollover?fromMonth=&toMonth=
func (h *BillingHandler) RolloverReadings(c echo.Context) error {
    res, err := h.Rollover.Run(c.Request().Context(), middleware.Actor(c),
        c.QueryParam("fromMonth"), c.QueryParam("toMonth"))
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "message":   "Water readings rolled over successfully",
        "fromMonth": res.FromMonth,
        "toMonth":   res.ToMonth,
        "count":     res.Count,
        "inserted":  res.Inserted,
        "updated":   res.Updated,
    })
}

// Summary handles GET /v1/water-readings/summary?month=YYYY-MM
func (h *BillingHandler) Summary(c echo.Context) error {
    sum, err := h.Readings.Summary(c.Request().Context(), c.QueryParam("month"))
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, sum)
}
