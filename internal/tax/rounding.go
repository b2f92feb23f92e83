package tax

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RoundingMode is how the withheld amount is rounded. It materially changes
// reported net income, so it is always set explicitly in configuration.
type RoundingMode string

const (
	RoundHalfEven RoundingMode = "half_even"
	RoundHalfUp   RoundingMode = "half_up"
	RoundTruncate RoundingMode = "truncate"
)

// ParseRoundingMode accepts the configuration spelling of a mode.
func ParseRoundingMode(s string) (RoundingMode, error) {
	switch m := RoundingMode(strings.ToLower(strings.TrimSpace(s))); m {
	case RoundHalfEven, RoundHalfUp, RoundTruncate:
		return m, nil
	case "bankers", "banker":
		return RoundHalfEven, nil
	default:
		return "", fmt.Errorf("unknown rounding mode %q", s)
	}
}

// Round rounds d to places decimal places.
func (m RoundingMode) Round(d decimal.Decimal, places int32) decimal.Decimal {
	switch m {
	case RoundHalfUp:
		// Amounts are non-negative, so away-from-zero is half-up.
		return d.Round(places)
	case RoundTruncate:
		return d.Truncate(places)
	default:
		return d.RoundBank(places)
	}
}
