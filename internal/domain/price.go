package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParsePrice parses a venue numeric string. Empty strings, non-numeric
// text, zero, negative and out-of-range values all fail with
// ErrInvalidPrice.
func ParsePrice(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidPrice)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("%w: %s is not positive", ErrInvalidPrice, d.String())
	}
	f, _ := d.Float64()
	if !valid(f) {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidPrice, s)
	}
	return f, nil
}

// ParseOptionalPrice is ParsePrice for fields a venue may leave empty or
// zero, such as one side of an empty book. It returns 0 for those and an
// error only for malformed or negative input.
func ParseOptionalPrice(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if d, err := decimal.NewFromString(s); err == nil && d.IsZero() {
		return 0, nil
	}
	return ParsePrice(s)
}
