// Package money renders cart amounts for display. Stored amounts are never
// rounded; only the strings and fields produced here are.
package money

import "github.com/shopspring/decimal"

// Format returns amount with exactly two decimal places, rounding half
// away from zero.
func Format(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}

// Round2 rounds amount to two decimal places for display fields.
func Round2(amount float64) float64 {
	f, _ := decimal.NewFromFloat(amount).Round(2).Float64()
	return f
}
