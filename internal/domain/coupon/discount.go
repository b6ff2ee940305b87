package coupon

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ApplyPercent returns subtotal - subtotal * percent / 100, rounded
// half-up to 2 decimal places and clamped at zero. Percentages above 100
// are clamped so a misconfigured rule can never produce a negative total.
func ApplyPercent(subtotal, percent decimal.Decimal) decimal.Decimal {
	if percent.GreaterThan(hundred) {
		percent = hundred
	}
	discounted := subtotal.Sub(subtotal.Mul(percent).Div(hundred))
	if discounted.IsNegative() {
		return decimal.Zero
	}
	return discounted.Round(2)
}
