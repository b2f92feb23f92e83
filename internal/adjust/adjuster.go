// Package adjust converts normalized amounts into ARS nominal, ARS real
// (at one run-wide reference date) and USD equivalents.
package adjust

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ingresos-analytics/internal/audit"
	"github.com/dvloznov/ingresos-analytics/internal/domain"
	"github.com/shopspring/decimal"
)

// valueScale is the number of decimal places kept after a division, rounded half-even.
const valueScale = 6

// Options are the run-wide adjustment settings.
type Options struct {
	ReferenceDate      civil.Date
	FallbackWindowDays int
}

// Adjuster resolves quotations for records against a fixed reference quotation.
type Adjuster struct {
	series    *Series
	opts      Options
	reference domain.QuotationPoint
}

// New resolves the reference quotation. It fails when the reference date itself
// has no quotation within the fallback window, since no real value could be computed.
func New(series *Series, opts Options) (*Adjuster, error) {
	if series == nil || series.Len() == 0 {
		return nil, fmt.Errorf("adjust.New: %w", domain.ErrNoQuotations)
	}
	if !opts.ReferenceDate.IsValid() {
		return nil, errors.New("adjust.New: reference date is required")
	}
	if opts.FallbackWindowDays < 0 {
		return nil, fmt.Errorf("adjust.New: negative fallback window %d", opts.FallbackWindowDays)
	}

	ref, ok := series.OnOrBefore(opts.ReferenceDate, opts.FallbackWindowDays)
	if !ok {
		return nil, fmt.Errorf("adjust.New: %w: no quotation within %d day(s) before %s",
			domain.ErrReferenceQuotation, opts.FallbackWindowDays, opts.ReferenceDate)
	}

	return &Adjuster{series: series, opts: opts, reference: ref}, nil
}

// Reference returns the quotation every real value is expressed against.
func (a *Adjuster) Reference() domain.QuotationPoint { return a.reference }

// Adjust converts one normalized amount. A record without a prior quotation is
// kept unadjusted when the series resumes within the window; otherwise the whole
// run must stop, because the series does not cover the data.
func (a *Adjuster) Adjust(rec domain.RawRecord, amt domain.NormalizedAmount, log *audit.Log) (domain.AdjustedRecord, error) {
	out := domain.AdjustedRecord{Record: rec, NormalizedAmount: amt}
	window := a.opts.FallbackWindowDays

	if rec.Date.After(a.opts.ReferenceDate) {
		log.Appendf(rec.ID, audit.StageAdjust, audit.CodeDateAfterReference,
			"record %s is after reference %s", rec.Date, a.opts.ReferenceDate)
	}

	q, ok := a.series.OnOrBefore(rec.Date, window)
	if !ok {
		next, resumes := a.series.After(rec.Date, window)
		if !resumes {
			return out, &domain.QuotationGapError{RecordID: rec.ID, Date: rec.Date, WindowDays: window}
		}
		log.Appendf(rec.ID, audit.StageAdjust, audit.CodeQuotationUnavailable,
			"no quotation on or up to %d day(s) before %s; series resumes %s; kept nominal",
			window, rec.Date, next.Date)
		if amt.Currency == domain.CurrencyARS {
			out.NominalARS = decimal.NewNullDecimal(amt.Amount)
		}
		return out, nil
	}

	if q.Date != rec.Date {
		log.Appendf(rec.ID, audit.StageAdjust, audit.CodeQuotationFallback,
			"used %s (%d day(s) earlier) for %s", q.Date, rec.Date.DaysSince(q.Date), rec.Date)
	}

	qd := q.Date
	out.Adjusted = true
	out.QuotationDate = &qd
	out.QuotationRate = q.ARSPerUSD

	ref := a.reference.ARSPerUSD
	switch amt.Currency {
	case domain.CurrencyUSD:
		nominal := amt.Amount.Mul(q.ARSPerUSD)
		out.NominalARS = decimal.NewNullDecimal(nominal)
		out.USDEquivalent = decimal.NewNullDecimal(amt.Amount)
		out.RealARS = decimal.NewNullDecimal(amt.Amount.Mul(ref))
		log.Appendf(rec.ID, audit.StageAdjust, audit.CodeUSDConversion,
			"%s USD x %s = %s ARS", amt.Amount, q.ARSPerUSD, nominal)
	default:
		out.NominalARS = decimal.NewNullDecimal(amt.Amount)
		out.USDEquivalent = decimal.NewNullDecimal(amt.Amount.Div(q.ARSPerUSD).RoundBank(valueScale))
		out.RealARS = decimal.NewNullDecimal(amt.Amount.Mul(ref).Div(q.ARSPerUSD).RoundBank(valueScale))
	}

	return out, nil
}
