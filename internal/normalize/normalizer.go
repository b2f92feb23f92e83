// Package normalize turns free-text monetary cells into structured amounts.
package normalize

import (
	"github.com/dvloznov/ingresos-analytics/internal/audit"
	"github.com/dvloznov/ingresos-analytics/internal/domain"
	"github.com/shopspring/decimal"
)

// Normalizer applies an ordered rule list to monetary text.
type Normalizer struct {
	rules []Rule
}

// New creates a Normalizer with DefaultRules.
func New() *Normalizer {
	return &Normalizer{rules: DefaultRules()}
}

// NewWithRules creates a Normalizer with a custom rule order.
func NewWithRules(rules ...Rule) *Normalizer {
	return &Normalizer{rules: rules}
}

// Interpret runs the rules in order and returns the first claim.
func (n *Normalizer) Interpret(text string) Interpretation {
	s := scan(text)
	for _, r := range n.rules {
		if out, ok := r.Apply(s); ok {
			return out
		}
	}
	out, _ := malformedRule(s)
	return out
}

// Normalize parses rec.AmountText and writes every non-exact decision to log.
// It never fails: unrecoverable text yields an unparseable zero amount.
func (n *Normalizer) Normalize(rec domain.RawRecord, log *audit.Log) domain.NormalizedAmount {
	switch out := n.Interpret(rec.AmountText).(type) {
	case Parsed:
		if out.Amount.IsNegative() || !out.Currency.Valid() {
			log.Appendf(rec.ID, audit.StageNormalize, audit.CodeNegativeAmount, "%q", rec.AmountText)
			return unparseable()
		}
		for _, note := range out.Notes {
			log.Append(rec.ID, audit.StageNormalize, note.Code, note.Detail)
		}
		return domain.NormalizedAmount{
			Amount:     out.Amount,
			Currency:   out.Currency,
			Confidence: out.Confidence,
		}
	case Rejected:
		log.Append(rec.ID, audit.StageNormalize, out.Code, out.Reason)
		return unparseable()
	default:
		return unparseable()
	}
}

func unparseable() domain.NormalizedAmount {
	return domain.NormalizedAmount{
		Amount:     decimal.Zero,
		Currency:   domain.CurrencyARS,
		Confidence: domain.ConfidenceUnparseable,
	}
}
