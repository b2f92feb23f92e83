package normalize

import (
	"fmt"
	"strings"

	"github.com/dvloznov/ingresos-analytics/internal/audit"
	"github.com/dvloznov/ingresos-analytics/internal/domain"
	"github.com/shopspring/decimal"
)

// Interpretation is the outcome of a rule: either Parsed or Rejected.
type Interpretation interface {
	interpretation()
}

// Note is an audit remark attached to a Parsed interpretation.
type Note struct {
	Code   audit.Code
	Detail string
}

// Parsed is a recovered amount.
type Parsed struct {
	Amount     decimal.Decimal
	Currency   domain.Currency
	Confidence domain.ParseConfidence
	Notes      []Note
}

// Rejected means no amount could be recovered from the text.
type Rejected struct {
	Code   audit.Code
	Reason string
}

func (Parsed) interpretation()   {}
func (Rejected) interpretation() {}

// Rule inspects a scanned text and either claims it or passes.
type Rule struct {
	Name  string
	Apply func(s *scanned) (Interpretation, bool)
}

// DefaultRules is the priority order used by the Normalizer.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "empty", Apply: emptyRule},
		{Name: "no_digits", Apply: noDigitsRule},
		{Name: "negative", Apply: negativeRule},
		{Name: "year", Apply: yearRule},
		{Name: "exact", Apply: exactRule},
		{Name: "free_text", Apply: freeTextRule},
		{Name: "malformed", Apply: malformedRule},
	}
}

func emptyRule(s *scanned) (Interpretation, bool) {
	switch s.lower {
	case "", "nan", "none", "null", "-":
		return Rejected{Code: audit.CodeEmpty, Reason: "empty amount"}, true
	}
	return nil, false
}

func noDigitsRule(s *scanned) (Interpretation, bool) {
	if len(s.numbers) > 0 {
		return nil, false
	}
	return Rejected{Code: audit.CodeNoNumericContent, Reason: fmt.Sprintf("no numeric content in %q", s.original)}, true
}

func negativeRule(s *scanned) (Interpretation, bool) {
	tok, ok := s.firstWellFormed()
	if !ok || !s.negative(tok) {
		return nil, false
	}
	return Rejected{Code: audit.CodeNegativeAmount, Reason: fmt.Sprintf("negative amount in %q", s.original)}, true
}

// yearRule catches a year typed into the amount column ("2023").
func yearRule(s *scanned) (Interpretation, bool) {
	if len(s.numbers) != 1 || len(s.markers) > 0 || s.residue() != "" {
		return nil, false
	}
	tok := s.numbers[0]
	if len(tok.raw) != 4 || strings.ContainsAny(tok.raw, ".,") {
		return nil, false
	}
	year := tok.value.IntPart()
	if year <= 2020 || year >= 2030 {
		return nil, false
	}
	return Rejected{Code: audit.CodePossibleYear, Reason: fmt.Sprintf("%q looks like a year, not an amount", s.original)}, true
}

func exactRule(s *scanned) (Interpretation, bool) {
	if len(s.numbers) != 1 {
		return nil, false
	}
	tok := s.numbers[0]
	if !tok.wellFormed || tok.ambiguous || s.residue() != "" {
		return nil, false
	}
	currency, conflict := s.currencyFor(tok)
	if conflict {
		return nil, false
	}
	return Parsed{Amount: tok.value, Currency: currency, Confidence: domain.ConfidenceExact}, true
}

// freeTextRule keeps the first well-formed number and records everything it dropped.
func freeTextRule(s *scanned) (Interpretation, bool) {
	tok, ok := s.firstWellFormed()
	if !ok {
		return nil, false
	}
	currency, conflict := s.currencyFor(tok)
	interp := fmt.Sprintf("%q -> %s %s", s.original, tok.value.String(), currency)

	var notes []Note
	if tok.ambiguous {
		notes = append(notes, Note{
			Code:   audit.CodeSeparatorAmbiguous,
			Detail: fmt.Sprintf("%s; %q read with thousands separator", interp, tok.raw),
		})
	}
	if extra := s.otherNumbers(tok); len(extra) > 0 {
		notes = append(notes, Note{
			Code:   audit.CodeExtraNumbers,
			Detail: fmt.Sprintf("%s; discarded %s", interp, strings.Join(extra, ", ")),
		})
	}
	if residue := s.residue(); residue != "" {
		notes = append(notes, Note{
			Code:   audit.CodeTextDiscarded,
			Detail: fmt.Sprintf("%s; discarded %q", interp, residue),
		})
	}
	if conflict {
		notes = append(notes, Note{
			Code:   audit.CodeCurrencyConflict,
			Detail: fmt.Sprintf("%s; marker nearest the amount chosen over the other currency", interp),
		})
	}

	confidence := domain.ConfidenceExact
	if len(notes) > 0 {
		confidence = domain.ConfidenceInferred
	}
	return Parsed{Amount: tok.value, Currency: currency, Confidence: confidence, Notes: notes}, true
}

func malformedRule(s *scanned) (Interpretation, bool) {
	return Rejected{Code: audit.CodeNoWellFormedNumber, Reason: fmt.Sprintf("no well-formed number in %q", s.original)}, true
}

func (s *scanned) firstWellFormed() (numberToken, bool) {
	for _, n := range s.numbers {
		if n.wellFormed {
			return n, true
		}
	}
	return numberToken{}, false
}

func (s *scanned) otherNumbers(keep numberToken) []string {
	var out []string
	for _, n := range s.numbers {
		if n.start != keep.start {
			out = append(out, n.raw)
		}
	}
	return out
}

// negative reports a minus sign directly in front of tok, allowing "$" and spaces in between.
func (s *scanned) negative(tok numberToken) bool {
	i := tok.start - 1
	for i >= 0 && (s.lower[i] == ' ' || s.lower[i] == '$') {
		i--
	}
	if i < 0 || s.lower[i] != '-' {
		return false
	}
	// "2021-03" is a date, not a sign.
	return i == 0 || !isDigit(s.lower[i-1])
}

// currencyFor picks the currency of tok. A marker belongs to the number it is
// written next to, so "$ 35.000 (eran 100 usd)" is pesos. When tok has no
// marker of its own, the nearest marker not claimed by another number decides.
// The conflict flag reports that some other free marker named the other currency.
func (s *scanned) currencyFor(tok numberToken) (domain.Currency, bool) {
	var own, free []marker
	for _, m := range s.markers {
		owner, ok := s.owner(m)
		switch {
		case ok && owner.start == tok.start:
			own = append(own, m)
		case !ok && m.explicit:
			free = append(free, m)
		}
	}

	if len(own) == 0 {
		if len(free) == 0 {
			return domain.CurrencyARS, false
		}
		return nearestMarker(free, tok)
	}

	currency, conflict := nearestMarker(own, tok)
	for _, m := range free {
		if m.currency != currency {
			conflict = true
		}
	}
	return currency, conflict
}

// owner returns the number m is written next to: only spaces, ':' or '='
// between them. A marker between two numbers goes to the closer one, and to
// the preceding number on a tie ("100 usd 200").
func (s *scanned) owner(m marker) (numberToken, bool) {
	var best numberToken
	bestGap := -1
	for _, n := range s.numbers {
		var gap int
		var ok bool
		switch {
		case n.end <= m.start:
			gap, ok = s.adjacent(n.end, m.start)
		case m.end <= n.start:
			gap, ok = s.adjacent(m.end, n.start)
		}
		if ok && (bestGap < 0 || gap < bestGap) {
			best, bestGap = n, gap
		}
	}
	return best, bestGap >= 0
}

func (s *scanned) adjacent(from, to int) (int, bool) {
	for i := from; i < to; i++ {
		switch s.lower[i] {
		case ' ', ':', '=':
		default:
			return 0, false
		}
	}
	return to - from, true
}

// nearestMarker prefers explicit markers over a bare "$" and reports a
// conflict when the candidates disagree.
func nearestMarker(markers []marker, tok numberToken) (domain.Currency, bool) {
	var candidates []marker
	for _, m := range markers {
		if m.explicit {
			candidates = append(candidates, m)
		}
	}
	bare := len(candidates) < len(markers)
	if len(candidates) == 0 {
		return domain.CurrencyARS, false
	}

	best, bestDist := candidates[0].currency, -1
	for _, m := range candidates {
		d := distance(m.start, m.end, tok.start, tok.end)
		if bestDist < 0 || d < bestDist {
			best, bestDist = m.currency, d
		}
	}

	conflict := bare && best != domain.CurrencyARS
	for _, m := range candidates {
		if m.currency != best {
			conflict = true
		}
	}
	return best, conflict
}

// residue is the text left after removing numbers and currency markers,
// with whitespace collapsed and bare punctuation dropped.
func (s *scanned) residue() string {
	b := []byte(s.lower)
	blank := func(start, end int) {
		for i := start; i < end; i++ {
			b[i] = ' '
		}
	}
	for _, n := range s.numbers {
		blank(n.start, n.end)
	}
	for _, m := range s.markers {
		blank(m.start, m.end)
	}

	out := strings.Join(strings.Fields(string(b)), " ")
	if strings.Trim(out, " .,:;=*-") == "" {
		return ""
	}
	return out
}

func distance(aStart, aEnd, bStart, bEnd int) int {
	switch {
	case aEnd <= bStart:
		return bStart - aEnd
	case bEnd <= aStart:
		return aStart - bEnd
	default:
		return 0
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
