package tax

import (
	"fmt"
	"strings"

	"github.com/dvloznov/ingresos-analytics/internal/audit"
	"github.com/dvloznov/ingresos-analytics/internal/domain"
	"github.com/shopspring/decimal"
)

// usdScale is the number of places kept for NetUSD, rounded half-even like
// the adjuster's USD equivalents.
const usdScale = 6

// Options control rounding of the tax split.
type Options struct {
	Places int32
	Mode   RoundingMode
}

// DefaultOptions rounds to cents with banker's rounding.
func DefaultOptions() Options {
	return Options{Places: 2, Mode: RoundHalfEven}
}

// Engine applies a rule table to adjusted records.
type Engine struct {
	table Table
	opts  Options
}

// NewEngine validates the table and options.
func NewEngine(table Table, opts Options) (*Engine, error) {
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("NewEngine: %w", err)
	}
	mode, err := ParseRoundingMode(string(opts.Mode))
	if err != nil {
		return nil, fmt.Errorf("NewEngine: %w", err)
	}
	opts.Mode = mode
	if opts.Places < 0 {
		return nil, fmt.Errorf("NewEngine: negative rounding places %d", opts.Places)
	}
	return &Engine{table: table, opts: opts}, nil
}

// Table returns the engine's rule table.
func (e *Engine) Table() Table { return e.table }

// ApplyAll taxes every record. If any record has no rule, nothing is taxed and
// the returned *domain.UnknownRuleError lists all of them.
func (e *Engine) ApplyAll(records []domain.AdjustedRecord, log *audit.Log) ([]domain.TaxedRecord, error) {
	keys := make([]RuleKey, len(records))
	var unknown []domain.RecordRef
	for i, rec := range records {
		key, ref, ok := e.resolve(rec.Record)
		if !ok {
			unknown = append(unknown, ref)
			continue
		}
		keys[i] = key
	}
	if len(unknown) > 0 {
		return nil, &domain.UnknownRuleError{Records: unknown}
	}

	out := make([]domain.TaxedRecord, 0, len(records))
	for i, rec := range records {
		taxed, err := e.apply(rec, keys[i], log)
		if err != nil {
			return nil, err
		}
		out = append(out, taxed)
	}
	return out, nil
}

// Apply taxes a single record.
func (e *Engine) Apply(rec domain.AdjustedRecord, log *audit.Log) (domain.TaxedRecord, error) {
	key, ref, ok := e.resolve(rec.Record)
	if !ok {
		return domain.TaxedRecord{}, &domain.UnknownRuleError{Records: []domain.RecordRef{ref}}
	}
	return e.apply(rec, key, log)
}

func (e *Engine) resolve(raw domain.RawRecord) (RuleKey, domain.RecordRef, bool) {
	ref := domain.RecordRef{
		ID:                   raw.ID,
		Date:                 raw.Date,
		PaymentMethodLabel:   raw.PaymentMethodLabel,
		FiscalConditionLabel: raw.FiscalConditionLabel,
	}

	method, err := domain.ParsePaymentMethod(raw.PaymentMethodLabel)
	if err != nil {
		ref.Reason = err.Error()
		return RuleKey{}, ref, false
	}
	condition, err := domain.ParseFiscalCondition(raw.FiscalConditionLabel)
	if err != nil {
		ref.Reason = err.Error()
		return RuleKey{}, ref, false
	}

	key := RuleKey{Method: method, Condition: condition}
	if _, ok := e.table[key]; !ok {
		ref.Reason = fmt.Sprintf("no rule for %s", key)
		return RuleKey{}, ref, false
	}
	return key, ref, true
}

func (e *Engine) apply(rec domain.AdjustedRecord, key RuleKey, log *audit.Log) (domain.TaxedRecord, error) {
	rule := e.table[key]
	id := rec.Record.ID

	native := !rec.NominalARS.Valid
	basis := rec.NominalARS.Decimal
	if native {
		basis = rec.Amount
		log.Appendf(id, audit.StageTax, audit.CodeTaxNativeCurrency,
			"no ARS nominal; taxed on native %s %s", rec.Amount, rec.Currency)
	}

	gross := e.opts.Mode.Round(basis, e.opts.Places)
	lines := rule.Lines(gross)
	withheld := e.opts.Mode.Round(sumLines(lines), e.opts.Places)
	components := e.allocate(lines, withheld)
	net := gross.Sub(withheld)

	if !withheld.Add(net).Equal(gross) || withheld.IsNegative() || withheld.GreaterThan(gross) {
		return domain.TaxedRecord{}, fmt.Errorf("record %s: gross %s, withheld %s, net %s: %w",
			id, gross, withheld, net, domain.ErrRoundingInvariant)
	}

	log.Appendf(id, audit.StageTax, audit.CodeTaxRuleApplied,
		"%s (%s) for %s: gross %s, withheld %s%s, net %s",
		rule.Name, rule.Kind, key, gross.StringFixed(e.opts.Places),
		withheld.StringFixed(e.opts.Places), e.describe(components), net.StringFixed(e.opts.Places))

	out := domain.TaxedRecord{
		AdjustedRecord:  rec,
		PaymentMethod:   key.Method,
		FiscalCondition: key.Condition,
		RuleKind:        string(rule.Kind),
		Gross:           gross,
		TaxWithheld:     withheld,
		Net:             net,
		Components:      components,
		IsRegistered:    domain.IsRegistered(key.Method, key.Condition),
		NativeCurrency:  native,
	}
	switch {
	case native && rec.Currency == domain.CurrencyUSD:
		out.NetUSD = decimal.NewNullDecimal(net)
	case rec.Adjusted && rec.QuotationRate.IsPositive():
		out.NetUSD = decimal.NewNullDecimal(net.Div(rec.QuotationRate).RoundBank(usdScale))
	}
	return out, nil
}

// allocate rounds each line and moves the rounding residue onto the primary
// line, so the components always add up to the once-rounded withheld total.
func (e *Engine) allocate(lines []domain.TaxComponent, withheld decimal.Decimal) []domain.TaxComponent {
	if len(lines) == 0 {
		return nil
	}
	out := make([]domain.TaxComponent, len(lines))
	for i, l := range lines {
		out[i] = domain.TaxComponent{Name: l.Name, Amount: e.opts.Mode.Round(l.Amount, e.opts.Places)}
	}
	out[0].Amount = out[0].Amount.Add(withheld.Sub(sumLines(out)))
	return out
}

func (e *Engine) describe(components []domain.TaxComponent) string {
	if len(components) < 2 {
		return ""
	}
	parts := make([]string, len(components))
	for i, c := range components {
		parts[i] = c.Name + " " + c.Amount.StringFixed(e.opts.Places)
	}
	return " (" + strings.Join(parts, " + ") + ")"
}

func sumLines(lines []domain.TaxComponent) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount)
	}
	return total
}

// Totals sums gross, withheld and net in ARS. Records taxed on their native
// USD amount are left out and counted in native.
func Totals(records []domain.TaxedRecord) (gross, withheld, net decimal.Decimal, native int) {
	for _, r := range records {
		if r.NativeCurrency {
			native++
			continue
		}
		gross = gross.Add(r.Gross)
		withheld = withheld.Add(r.TaxWithheld)
		net = net.Add(r.Net)
	}
	return gross, withheld, net, native
}
