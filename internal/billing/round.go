package billing

import (
	"math"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	half    = decimal.NewFromFloat(0.5)
)

// Round2 rounds x to the cent, half up (toward positive infinity on a tie).
// The value goes through its shortest decimal form first, so 1.005 rounds
// to 1.01 rather than the 1.00 that float arithmetic would give.
func Round2(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	d := decimal.NewFromFloat(x).Mul(hundred).Add(half).Floor().Div(hundred)
	f, _ := d.Float64()
	return f
}
