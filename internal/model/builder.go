package model

import (
	"fmt"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ingresos-analytics/internal/audit"
	"github.com/dvloznov/ingresos-analytics/internal/domain"
)

// Options control schema construction.
type Options struct {
	// Reference is the quotation every real value is expressed against.
	Reference domain.QuotationPoint

	// ContinuousCalendar emits one calendar row for every day between the
	// first and last fact date instead of only the dates with facts.
	ContinuousCalendar bool
}

type pairKey struct {
	method    domain.PaymentMethod
	condition domain.FiscalCondition
}

// Build assembles the star schema. Surrogate keys come from sorted natural
// keys, never from input order, so any permutation of records yields the
// same schema. Build never writes to log: MODEL tags go on each fact's own
// copy of its trail, so building twice from one log gives the same schema.
func Build(records []domain.TaxedRecord, log *audit.Log, opts Options) (*StarSchema, error) {
	sorted := make([]domain.TaxedRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Record, sorted[j].Record
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		return a.ID < b.ID
	})

	schema := &StarSchema{
		ReferenceDate: opts.Reference.Date,
		ReferenceRate: opts.Reference.ARSPerUSD,
	}

	schema.Calendario = buildCalendar(sorted, opts.ContinuousCalendar)

	medios, medioKeys := buildMediosPago(sorted)
	schema.MediosPago = medios

	cotizaciones, err := buildCotizacion(sorted, opts.Reference)
	if err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}
	schema.Cotizacion = cotizaciones

	schema.Facts = make([]FactIngreso, 0, len(sorted))
	for i, r := range sorted {
		id := r.Record.ID
		trail := log.Tags(id)
		if !r.Adjusted {
			trail = append(trail, audit.Tag{
				RecordID: id,
				Stage:    audit.StageModel,
				Code:     audit.CodeExcludedFromReal,
				Detail:   "no quotation; left out of real-value totals",
			})
		}

		var cotKey *int64
		if r.Adjusted && r.QuotationDate != nil {
			k := DateKey(*r.QuotationDate)
			cotKey = &k
		}

		schema.Facts = append(schema.Facts, FactIngreso{
			FactKey:          int64(i + 1),
			RecordID:         id,
			FechaKey:         DateKey(r.Record.Date),
			MedioPagoKey:     medioKeys[pairKey{r.PaymentMethod, r.FiscalCondition}],
			CotizacionKey:    cotKey,
			Date:             r.Record.Date,
			Shift:            r.Record.Shift,
			SourceColumn:     r.Record.SourceColumn,
			AmountText:       r.Record.AmountText,
			OriginalAmount:   r.Amount,
			OriginalCurrency: r.Currency,
			Confidence:       r.Confidence,
			NominalARS:       r.NominalARS,
			RealARS:          r.RealARS,
			USDEquivalent:    r.USDEquivalent,
			Adjusted:         r.Adjusted,
			Gross:            r.Gross,
			TaxWithheld:      r.TaxWithheld,
			Net:              r.Net,
			NetUSD:           r.NetUSD,
			Components:       r.Components,
			TaxedNative:      r.NativeCurrency,
			RuleKind:         r.RuleKind,
			IsRegistered:     r.IsRegistered,
			Exact:            !trail.Inferred(),
			Audit:            trail,
		})
	}

	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}
	return schema, nil
}

func buildCalendar(sorted []domain.TaxedRecord, continuous bool) []DimCalendario {
	if len(sorted) == 0 {
		return nil
	}

	var dates []civil.Date
	if continuous {
		first, last := sorted[0].Record.Date, sorted[len(sorted)-1].Record.Date
		for d := first; !d.After(last); d = d.AddDays(1) {
			dates = append(dates, d)
		}
	} else {
		for _, r := range sorted {
			d := r.Record.Date
			if len(dates) == 0 || dates[len(dates)-1] != d {
				dates = append(dates, d)
			}
		}
	}

	out := make([]DimCalendario, len(dates))
	for i, d := range dates {
		out[i] = NewDimCalendario(d)
	}
	return out
}

func buildMediosPago(sorted []domain.TaxedRecord) ([]DimMedioPago, map[pairKey]int64) {
	seen := make(map[pairKey]bool)
	var pairs []pairKey
	for _, r := range sorted {
		k := pairKey{r.PaymentMethod, r.FiscalCondition}
		if !seen[k] {
			seen[k] = true
			pairs = append(pairs, k)
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].method != pairs[j].method {
			return pairs[i].method < pairs[j].method
		}
		return pairs[i].condition < pairs[j].condition
	})

	keys := make(map[pairKey]int64, len(pairs))
	out := make([]DimMedioPago, len(pairs))
	for i, p := range pairs {
		key := int64(i + 1)
		keys[p] = key
		out[i] = DimMedioPago{
			MedioPagoKey:  key,
			Method:        p.method,
			Condition:     p.condition,
			MethodName:    p.method.String(),
			ConditionName: p.condition.String(),
			DisplayName:   p.method.DisplayName(),
			ChannelType:   p.method.ChannelType(),
			IsRegistered:  domain.IsRegistered(p.method, p.condition),
		}
	}
	return out, keys
}

func buildCotizacion(sorted []domain.TaxedRecord, reference domain.QuotationPoint) ([]DimCotizacion, error) {
	byDate := make(map[civil.Date]DimCotizacion)
	add := func(d civil.Date, q DimCotizacion) error {
		if prev, ok := byDate[d]; ok {
			if !prev.ARSPerUSD.Equal(q.ARSPerUSD) {
				return integrityError("dim_cotizacion: %s quoted as both %s and %s", d, prev.ARSPerUSD, q.ARSPerUSD)
			}
			q.IsReference = q.IsReference || prev.IsReference
		}
		byDate[d] = q
		return nil
	}

	for _, r := range sorted {
		if !r.Adjusted || r.QuotationDate == nil {
			continue
		}
		d := *r.QuotationDate
		if err := add(d, DimCotizacion{CotizacionKey: DateKey(d), Date: d, ARSPerUSD: r.QuotationRate}); err != nil {
			return nil, err
		}
	}
	if reference.Date.IsValid() {
		d := reference.Date
		if err := add(d, DimCotizacion{CotizacionKey: DateKey(d), Date: d, ARSPerUSD: reference.ARSPerUSD, IsReference: true}); err != nil {
			return nil, err
		}
	}

	out := make([]DimCotizacion, 0, len(byDate))
	for _, q := range byDate {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}
