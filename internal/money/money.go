// Package money holds the monetary value types used across the marketplace.
// All amounts are int64 minor currency units (ZAR cents); the only
// decimal conversion lives here so no other package touches floats.
package money

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Amount is a monetary value in minor currency units (cents).
type Amount int64

// BasisPoints expresses a fixed-point percentage: 100 bps = 1%.
type BasisPoints int64

const (
	// BpsDenominator scales basis points back to a whole amount.
	BpsDenominator = 10_000

	// MaxRateBps caps percentage rates at 100%.
	MaxRateBps BasisPoints = 10_000
)

var (
	ErrInvalidAmount  = errors.New("invalid_amount")
	ErrInvalidDecimal = errors.New("invalid_decimal_amount")
)

// PercentOf applies a basis-point rate to an amount, rounding half-up to
// the nearest minor unit. The rounding happens exactly once per call;
// callers must never re-derive a fee from an already rounded value.
func PercentOf(amount Amount, rate BasisPoints) Amount {
	raw := int64(amount) * int64(rate)
	if raw >= 0 {
		return Amount((raw + BpsDenominator/2) / BpsDenominator)
	}
	return Amount(-((-raw + BpsDenominator/2) / BpsDenominator))
}

// Max returns the larger of two amounts.
func Max(a, b Amount) Amount {
	if a > b {
		return a
	}
	return b
}

// FormatRand renders an amount as a display decimal, e.g. 114000 -> "R1140.00".
func FormatRand(a Amount) string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%sR%d.%02d", sign, v/100, v%100)
}

// ParseRand converts a display decimal back to minor units. Accepts an
// optional leading "R" and at most two decimal places: "R25", "25.5",
// "1000.00". This is the single decimal conversion routine for the module.
func ParseRand(value string) (Amount, error) {
	s := strings.TrimSpace(value)
	negative := strings.HasPrefix(s, "-")
	if negative {
		s = s[1:]
	}
	s = strings.TrimPrefix(s, "R")

	whole := s
	frac := ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		whole = s[:idx]
		frac = s[idx+1:]
	}
	if whole == "" && frac == "" {
		return 0, ErrInvalidDecimal
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, ErrInvalidDecimal
	}
	for len(frac) < 2 {
		frac += "0"
	}

	rand, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrInvalidDecimal
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, ErrInvalidDecimal
	}

	total := rand*100 + cents
	if negative {
		total = -total
	}
	return Amount(total), nil
}
