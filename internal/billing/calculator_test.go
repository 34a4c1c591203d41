package billing

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/condo-water-billing/internal/model"
)

func TestComputeReading(t *testing.T) {
	tcases := []struct {
		name                      string
		previous, current, price  float64
		wantUsage, wantTotal      float64
		wantNegative              bool
	}{
		{name: "typical month", previous: 150, current: 180, price: 5, wantUsage: 30, wantTotal: 150},
		{name: "zero everything", wantUsage: 0, wantTotal: 0},
		{name: "fractional", previous: 10.5, current: 12.75, price: 4.2, wantUsage: 2.25, wantTotal: 9.45},
		{name: "meter reset gives negative usage", previous: 900, current: 20, price: 5, wantUsage: -880, wantTotal: -4400, wantNegative: true},
		{name: "free water", previous: 1, current: 9, price: 0, wantUsage: 8, wantTotal: 0},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := ComputeReading(tc.previous, tc.current, tc.price)
			require.NoError(t, err)
			assert.InDelta(t, tc.wantUsage, res.Usage, 1e-9)
			assert.InDelta(t, tc.wantTotal, res.TotalCharge, 1e-9)
			assert.Equal(t, tc.wantNegative, res.NegativeUsage)
		})
	}
}

func TestComputeReading_Identity(t *testing.T) {
	values := []float64{0, 0.1, 1, 2.5, 17.3, 100, 12345.678}
	for _, p := range values {
		for _, c := range values {
			for _, u := range values {
				res, err := ComputeReading(p, c, u)
				require.NoError(t, err)
				assert.Equal(t, c-p, res.Usage)
				assert.Equal(t, (c-p)*u, res.TotalCharge)
			}
		}
	}
}

func TestComputeReading_Rejects(t *testing.T) {
	tcases := []struct {
		name                     string
		previous, current, price float64
		wantCode                 string
	}{
		{"negative previous", -1, 0, 5, "INVALID_LAST_MONTH"},
		{"negative current", 0, -3, 5, "INVALID_THIS_MONTH"},
		{"negative price", 0, 3, -5, "INVALID_PRICE_PER_UNIT"},
		{"nan current", 0, math.NaN(), 5, "INVALID_THIS_MONTH"},
		{"inf price", 0, 1, math.Inf(1), "INVALID_PRICE_PER_UNIT"},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ComputeReading(tc.previous, tc.current, tc.price)
			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tc.wantCode, fe.Code())
		})
	}
}

func TestPrice(t *testing.T) {
	r, err := Price(model.Reading{RoomID: 3, Month: "2024-05", LastMonth: 200, ThisMonth: 235, PricePerUnit: 5, Usage: 999})
	require.NoError(t, err)
	assert.Equal(t, 35.0, r.Usage)
	assert.Equal(t, 175.0, r.TotalPrice)
	assert.False(t, r.NegativeUsage)
	assert.Equal(t, uint64(3), r.RoomID)
}

func TestCoerce(t *testing.T) {
	tcases := []struct {
		name    string
		in      any
		want    float64
		wantErr bool
	}{
		{name: "nil uses default", in: nil, want: 5},
		{name: "json float", in: 12.5, want: 12.5},
		{name: "int", in: 7, want: 7},
		{name: "json number", in: json.Number("42.1"), want: 42.1},
		{name: "numeric string", in: " 180 ", want: 180},
		{name: "zero string", in: "0", want: 0},
		{name: "empty string", in: "", wantErr: true},
		{name: "garbage string", in: "12abc", wantErr: true},
		{name: "nan string", in: "NaN", wantErr: true},
		{name: "bool", in: true, wantErr: true},
		{name: "object", in: map[string]any{"v": 1}, wantErr: true},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Coerce(FieldThisMonth, tc.in, 5)
			if tc.wantErr {
				var fe *FieldError
				require.ErrorAs(t, err, &fe)
				assert.Equal(t, FieldThisMonth, fe.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFieldErrorCodeFallback(t *testing.T) {
	fe := &FieldError{Field: "roomId", Reason: "must be a number"}
	assert.Equal(t, "INVALID_ROOMID", fe.Code())
	assert.Equal(t, "roomId must be a number", fe.Error())
}
