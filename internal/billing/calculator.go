// Package billing holds the pure rules of water billing: deriving usage
// and charge from meter values, carrying a month forward into the next one,
// and aggregating monthly statistics.  Nothing here touches storage.
package billing

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/iliyamo/condo-water-billing/internal/model"
)

// Field names as they appear in request bodies and CSV headers.
const (
	FieldLastMonth    = "lastMonth"
	FieldThisMonth    = "thisMonth"
	FieldPricePerUnit = "pricePerUnit"
)

// DefaultPricePerUnit is used when neither the caller nor the configuration
// supplies a unit price.
const DefaultPricePerUnit = 5.0

var fieldCodes = map[string]string{
	FieldLastMonth:    "INVALID_LAST_MONTH",
	FieldThisMonth:    "INVALID_THIS_MONTH",
	FieldPricePerUnit: "INVALID_PRICE_PER_UNIT",
}

// FieldError reports a numeric input that could not be used.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Code is the machine-readable validation code for the field.
func (e *FieldError) Code() string {
	if c, ok := fieldCodes[e.Field]; ok {
		return c
	}
	return "INVALID_" + strings.ToUpper(e.Field)
}

// Result holds the derived fields of a reading.
type Result struct {
	Usage       float64
	TotalCharge float64
	// NegativeUsage is true when the current meter value is below the
	// previous one (meter reset or correction).  It is not an error.
	NegativeUsage bool
}

// ComputeReading derives usage and total charge.  All three inputs must be
// finite and non-negative.  Current is not required to be >= previous.
func ComputeReading(previous, current, unitPrice float64) (Result, error) {
	if err := checkValue(FieldLastMonth, previous); err != nil {
		return Result{}, err
	}
	if err := checkValue(FieldThisMonth, current); err != nil {
		return Result{}, err
	}
	if err := checkValue(FieldPricePerUnit, unitPrice); err != nil {
		return Result{}, err
	}
	usage := current - previous
	return Result{
		Usage:         usage,
		TotalCharge:   usage * unitPrice,
		NegativeUsage: usage < 0,
	}, nil
}

// Price recomputes the derived fields of r from its meter values and unit
// price.  The returned copy has NegativeUsage set accordingly.
func Price(r model.Reading) (model.Reading, error) {
	res, err := ComputeReading(r.LastMonth, r.ThisMonth, r.PricePerUnit)
	if err != nil {
		return r, err
	}
	r.Usage = res.Usage
	r.TotalPrice = res.TotalCharge
	r.NegativeUsage = res.NegativeUsage
	return r, nil
}

func checkValue(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &FieldError{Field: field, Reason: "must be a finite number"}
	}
	if v < 0 {
		return &FieldError{Field: field, Reason: "must not be negative"}
	}
	return nil
}

// Coerce converts a free-form input value into a float64.  A nil value
// yields def.  Numbers pass through and numeric strings are parsed after
// trimming.  Everything else is a *FieldError; a value that is present but
// not numeric never turns into zero.
func Coerce(field string, v any, def float64) (float64, error) {
	var f float64
	switch t := v.(type) {
	case nil:
		return def, nil
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint64:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0, &FieldError{Field: field, Reason: "must be a number"}
		}
		f = n
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, &FieldError{Field: field, Reason: "must be a number"}
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, &FieldError{Field: field, Reason: "must be a number"}
		}
		f = n
	default:
		return 0, &FieldError{Field: field, Reason: "must be a number"}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &FieldError{Field: field, Reason: "must be a finite number"}
	}
	return f, nil
}
