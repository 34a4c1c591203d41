package handler

import (
    "bytes"
    "fmt"
    "io"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/condo-water-billing/internal/apperr"
    "github.com/iliyamo/condo-water-billing/internal/csvio"
    "github.com/iliyamo/condo-water-billing/internal/middleware"
    "github.com/iliyamo/condo-water-billing/internal/service"
)

// maxImportBytes caps an uploaded CSV.  A building's month fits in a few KB.
const maxImportBytes = 5 << 20

// ExportReadings handles GET /v1/water-readings/export?month=YYYY-MM and
// streams the month as a CSV attachment.
func (h *BillingHandler) ExportReadings(c echo.Context) error {
    month := c.QueryParam("month")
    rows, err := h.Readings.Export(c.Request().Context(), month)
    if err != nil {
        return h.fail(c, err)
    }
    var buf bytes.Buffer
    if err := csvio.WriteRoomReadings(&buf, rows); err != nil {
        return h.fail(c, apperr.Internal(err))
    }
    c.Response().Header().Set(echo.HeaderContentDisposition,
        fmt.Sprintf(`attachment; filename="water-readings-%s.csv"`, month))
    return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ImportReadings handles POST /v1/water-readings/import?month=YYYY-MM.  The
// CSV comes either as the multipart field "file" or as the raw body.
func (h *BillingHandler) ImportReadings(c echo.Context) error {
    month := c.QueryParam("month")
    if err := service.CheckMonth(month, "MISSING_MONTH"); err != nil {
        return h.fail(c, err)
    }

    src, err := importSource(c)
    if err != nil {
        return h.fail(c, err)
    }
    defer src.Close()

    rows, err := csvio.ReadRows(src)
    if err != nil {
        return h.fail(c, apperr.Validation("INVALID_CSV", err.Error()))
    }
    res, err := h.Readings.Import(c.Request().Context(), middleware.Actor(c), month, rows)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, res)
}

func importSource(c echo.Context) (io.ReadCloser, error) {
    req := c.Request()
    req.Body = http.MaxBytesReader(c.Response(), req.Body, maxImportBytes)
    if strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
        fh, err := c.FormFile("file")
        if err != nil {
            return nil, apperr.Validation("MISSING_FILE", "multipart field \"file\" is required")
        }
        f, err := fh.Open()
        if err != nil {
            return nil, apperr.Internal(err)
        }
        return f, nil
    }
    return req.Body, nil
}
