package util

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MaxRoundTripMinor is the largest amount for which minor/major conversion
// is checked to be lossless.
const MaxRoundTripMinor int64 = 10_000_000

// MinorToMajor formats a minor-unit amount (paise, cents) as a major-unit
// string with exactly two decimals, e.g. 49950 -> "499.50".
func MinorToMajor(minor int64) string {
	return decimal.NewFromInt(minor).Shift(-2).StringFixed(2)
}

// MajorToMinor parses a major-unit string back into minor units, rounding
// half away from zero at the second decimal. It is the inverse of
// MinorToMajor and is used to check that encoded amounts round-trip.
func MajorToMinor(major string) (int64, error) {
	d, err := decimal.NewFromString(major)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", major, err)
	}
	return d.Round(2).Shift(2).IntPart(), nil
}
