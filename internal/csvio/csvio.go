// Package csvio reads reading imports and writes monthly exports in the
// column layout the admin spreadsheet uses.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/iliyamo/condo-water-billing/internal/model"
)

// Header is the export column order.  Imports accept these names in any
// order; unknown columns are ignored.
var Header = []string{"roomNumber", "ownerName", "lastMonth", "thisMonth", "usage", "pricePerUnit", "totalPrice"}

// ErrNoHeader is returned for an empty import file.
var ErrNoHeader = errors.New("csv has no header row")

// ReadRows parses a header-keyed CSV into one map per data row.  Header names
// and cells are trimmed, and a UTF-8 byte order mark is dropped.  Blank lines
// are skipped and short rows leave their missing columns empty.
func ReadRows(r io.Reader) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	rows := []map[string]string{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			if i < len(rec) {
				row[h] = strings.TrimSpace(rec[i])
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteRoomReadings writes the export of rows with a header line.
func WriteRoomReadings(w io.Writer, rows []model.RoomReading) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.RoomNumber,
			r.OwnerName,
			num(r.LastMonth),
			num(r.ThisMonth),
			num(r.Usage),
			num(r.PricePerUnit),
			num(r.TotalPrice),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
