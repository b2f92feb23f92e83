package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dvloznov/ingresos-analytics/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	numberPattern = regexp.MustCompile(`\d[\d.,]*\d|\d`)
	// Longest alternatives first: matching is leftmost-first.
	markerPattern = regexp.MustCompile(`u\$s|us\$|u\$d|usd|u\$|d[oó]lar(?:es)?|us|ars|pesos?|\$`)
)

// numberToken is one run of digits and separators found in the text.
type numberToken struct {
	raw        string
	start, end int
	value      decimal.Decimal
	wellFormed bool
	ambiguous  bool // a lone separator followed by exactly three digits
}

type marker struct {
	currency   domain.Currency
	start, end int
	explicit   bool // false for a bare "$"
}

// scanned is the lexical view of one monetary text that the rules inspect.
type scanned struct {
	original string
	lower    string
	numbers  []numberToken
	markers  []marker
}

func scan(text string) *scanned {
	lower := strings.ToLower(strings.TrimSpace(text))
	s := &scanned{original: text, lower: lower}

	for _, loc := range numberPattern.FindAllStringIndex(lower, -1) {
		raw := lower[loc[0]:loc[1]]
		value, ambiguous, ok := parseNumber(raw)
		s.numbers = append(s.numbers, numberToken{
			raw:        raw,
			start:      loc[0],
			end:        loc[1],
			value:      value,
			wellFormed: ok,
			ambiguous:  ambiguous,
		})
	}

	for _, loc := range markerPattern.FindAllStringIndex(lower, -1) {
		word := lower[loc[0]:loc[1]]
		if word != "$" && glued(lower, loc[0], loc[1]) {
			continue
		}
		s.markers = append(s.markers, classifyMarker(word, loc[0], loc[1]))
	}

	return s
}

// glued reports whether an alphabetic marker is part of a longer word,
// e.g. the "us" in "usuario".
func glued(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if unicode.IsLetter(r) {
			return true
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func classifyMarker(word string, start, end int) marker {
	switch word {
	case "$":
		return marker{currency: domain.CurrencyARS, start: start, end: end}
	case "ars", "peso", "pesos":
		return marker{currency: domain.CurrencyARS, start: start, end: end, explicit: true}
	default:
		return marker{currency: domain.CurrencyUSD, start: start, end: end, explicit: true}
	}
}

// parseNumber resolves thousands and decimal separators for one token.
//
//	"1.250,50" -> 1250.50   both present: the rightmost is the decimal mark
//	"1.000.000" -> 1000000  one kind, repeated: thousands
//	"1.250"    -> 1250      lone separator + 3 digits: thousands, ambiguous
//	"1250,5"   -> 1250.5    lone separator + other length: decimal
func parseNumber(raw string) (value decimal.Decimal, ambiguous bool, ok bool) {
	dots := strings.Count(raw, ".")
	commas := strings.Count(raw, ",")

	switch {
	case dots == 0 && commas == 0:
		value, err := decimal.NewFromString(raw)
		return value, false, err == nil

	case dots > 0 && commas > 0:
		decIdx := strings.LastIndexAny(raw, ".,")
		decSep, thouSep := raw[decIdx], byte('.')
		if decSep == '.' {
			thouSep = ','
		}
		intPart, frac := raw[:decIdx], raw[decIdx+1:]
		if strings.IndexByte(intPart, decSep) >= 0 || strings.IndexByte(frac, thouSep) >= 0 {
			return decimal.Zero, false, false
		}
		digits, ok := groupedDigits(intPart, thouSep)
		if !ok {
			return decimal.Zero, false, false
		}
		value, err := decimal.NewFromString(digits + "." + frac)
		return value, false, err == nil

	default:
		sep := byte('.')
		if commas > 0 {
			sep = ','
		}
		if dots+commas > 1 {
			digits, ok := groupedDigits(raw, sep)
			if !ok {
				return decimal.Zero, false, false
			}
			value, err := decimal.NewFromString(digits)
			return value, false, err == nil
		}

		idx := strings.IndexByte(raw, sep)
		intPart, frac := raw[:idx], raw[idx+1:]
		if len(frac) == 3 && len(intPart) <= 3 && intPart != "0" {
			value, err := decimal.NewFromString(intPart + frac)
			return value, true, err == nil
		}
		value, err := decimal.NewFromString(intPart + "." + frac)
		return value, false, err == nil
	}
}

// groupedDigits validates 3-digit grouping ("1.234.567") and strips the separator.
func groupedDigits(s string, sep byte) (string, bool) {
	groups := strings.Split(s, string(sep))
	if len(groups[0]) < 1 || len(groups[0]) > 3 {
		return "", false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return "", false
		}
	}
	return strings.Join(groups, ""), true
}
