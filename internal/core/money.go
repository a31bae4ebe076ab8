// Package core provides the domain model for balance projections.
//
// This file contains helpers for parsing monetary amounts from the loose
// shapes the upstream feeds use (numeric strings, raw JSON numbers) into
// exact decimal values.
package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts an upstream amount into an exact decimal. Balances
// and item amounts arrive either as numeric strings ("1234.56") or plain
// JSON numbers; both are accepted. Grouping commas are tolerated. All
// arithmetic downstream stays on decimals, never floats.
func ParseAmount(v any) (decimal.Decimal, error) {
	switch a := v.(type) {
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(a), ",", "")
		if s == "" {
			return decimal.Zero, fmt.Errorf("%w: empty string", ErrInvalidAmount)
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, a)
		}
		return d, nil
	case json.Number:
		d, err := decimal.NewFromString(a.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, a.String())
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(a), nil
	case int64:
		return decimal.NewFromInt(a), nil
	case int:
		return decimal.NewFromInt(int64(a)), nil
	case decimal.Decimal:
		return a, nil
	case nil:
		return decimal.Zero, fmt.Errorf("%w: missing value", ErrInvalidAmount)
	default:
		return decimal.Zero, fmt.Errorf("%w: unsupported type %T", ErrInvalidAmount, v)
	}
}

// MustAmount is a test and fixture helper; it panics on malformed input.
func MustAmount(s string) decimal.Decimal {
	d, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FormatAmount renders a decimal with exactly two fractional digits for
// display. Calculations never round; only the display layer does.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
