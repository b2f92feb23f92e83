package quotation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var thousandsOnly = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)

// ParseRate parses a positive quotation written the Argentine way
// ("1.234,50") or with a plain decimal point ("1234.50").
func ParseRate(s string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimPrefix(raw, "$")
	raw = strings.TrimSpace(raw)

	var normalized string
	switch {
	case strings.Contains(raw, ","):
		normalized = strings.ReplaceAll(raw, ".", "")
		normalized = strings.Replace(normalized, ",", ".", 1)
	case thousandsOnly.MatchString(raw):
		normalized = strings.ReplaceAll(raw, ".", "")
	default:
		normalized = raw
	}

	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid rate %q", s)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("rate %q must be positive", s)
	}
	return d, nil
}
