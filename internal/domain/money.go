package domain

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// PriceToCents converts a decimal dollar amount to int64 cents.
// Values with more than 2 decimal places are rejected rather than rounded,
// as are values whose cent amount does not fit in an int64.
func PriceToCents(d decimal.Decimal) (int64, error) {
	cents := d.Mul(hundred)
	if !cents.IsInteger() {
		return 0, errors.New("monetary values must have at most 2 decimal places")
	}
	if cents.GreaterThan(maxCents) || cents.LessThan(minCents) {
		return 0, errors.New("monetary value is out of range")
	}
	return cents.IntPart(), nil
}

// CentsToPrice converts an int64 cents value to a decimal dollar amount.
func CentsToPrice(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}
