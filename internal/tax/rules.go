// Package tax splits gross income into withheld tax and net income.
package tax

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dvloznov/ingresos-analytics/internal/domain"
	"github.com/shopspring/decimal"
)

// Kind selects how a rule computes the withheld amount.
type Kind string

const (
	// KindFlat withholds gross * rate.
	KindFlat Kind = "flat"
	// KindBracket uses the rate of the first bracket whose ceiling covers gross.
	KindBracket Kind = "bracket"
	// KindInclusive treats gross as tax-included: withheld = gross * rate / (1 + rate).
	KindInclusive Kind = "inclusive"
	// KindZero withholds nothing.
	KindZero Kind = "zero"
)

// Line names used by DefaultTable.
const (
	LineIVA     = "iva"
	LineIIBB    = "iibb"
	LineTasaSyH = "tasa_syh"
)

// Bracket is one step of a bracketed rule. A nil UpTo is unbounded.
type Bracket struct {
	UpTo *decimal.Decimal
	Rate decimal.Decimal
}

// Component is a further tax line charged on a rule's tax-exclusive base,
// such as IIBB next to an IVA-inclusive rule.
type Component struct {
	Name string
	Rate decimal.Decimal
}

// Rule is one tax treatment.
type Rule struct {
	Name     string
	Kind     Kind
	Rate     decimal.Decimal
	Brackets []Bracket

	// Line names the primary withholding line. Empty means Name.
	Line string
	// Components are charged on Base(gross) after the primary line.
	Components []Component
}

// RuleKey is the classified pair a rule applies to.
type RuleKey struct {
	Method    domain.PaymentMethod
	Condition domain.FiscalCondition
}

func (k RuleKey) String() string {
	return fmt.Sprintf("%s/%s", k.Method, k.Condition)
}

// Table maps every supported pair to its rule. A pair missing from the
// table has no tax treatment and stops the run.
type Table map[RuleKey]Rule

// Validate checks rates, bracket ordering and components.
func (r Rule) Validate() error {
	if err := r.validateKind(); err != nil {
		return err
	}
	return r.validateComponents()
}

func (r Rule) validateKind() error {
	switch r.Kind {
	case KindZero:
		return nil
	case KindFlat, KindInclusive:
		return validRate(r.Rate)
	case KindBracket:
		if len(r.Brackets) == 0 {
			return errors.New("bracket rule has no brackets")
		}
		var prev *decimal.Decimal
		for i, b := range r.Brackets {
			if err := validRate(b.Rate); err != nil {
				return fmt.Errorf("bracket %d: %w", i, err)
			}
			if b.UpTo == nil {
				if i != len(r.Brackets)-1 {
					return fmt.Errorf("bracket %d: only the last bracket may be unbounded", i)
				}
				continue
			}
			if prev != nil && !b.UpTo.GreaterThan(*prev) {
				return fmt.Errorf("bracket %d: ceilings must increase", i)
			}
			prev = b.UpTo
		}
		return nil
	default:
		return fmt.Errorf("unknown rule kind %q", r.Kind)
	}
}

func (r Rule) validateComponents() error {
	if len(r.Components) == 0 {
		return nil
	}
	if r.Kind == KindZero {
		return errors.New("zero rule cannot carry components")
	}

	seen := map[string]bool{r.LineName(): true}
	extra := decimal.Zero
	for i, c := range r.Components {
		if c.Name == "" {
			return fmt.Errorf("component %d: empty name", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("component %d: duplicate line %q", i, c.Name)
		}
		seen[c.Name] = true
		if err := validRate(c.Rate); err != nil {
			return fmt.Errorf("component %q: %w", c.Name, err)
		}
		extra = extra.Add(c.Rate)
	}

	// Inclusive rules charge components on gross/(1+rate), so their primary
	// line and components always fit in gross while extra <= 1.
	top := r.Rate
	switch r.Kind {
	case KindInclusive:
		top = decimal.Zero
	case KindBracket:
		top = decimal.Zero
		for _, b := range r.Brackets {
			top = decimal.Max(top, b.Rate)
		}
	}
	if top.Add(extra).GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("rate %s plus components %s exceeds 1", top, extra)
	}
	return nil
}

func validRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("rate %s outside [0, 1]", rate)
	}
	return nil
}

// LineName is the name of the primary withholding line.
func (r Rule) LineName() string {
	if r.Line != "" {
		return r.Line
	}
	return r.Name
}

// Base is the amount components are charged on: gross without the
// included tax for inclusive rules, gross otherwise.
func (r Rule) Base(gross decimal.Decimal) decimal.Decimal {
	if r.Kind == KindInclusive {
		return gross.Div(decimal.NewFromInt(1).Add(r.Rate))
	}
	return gross
}

// Lines returns the unrounded withholding lines for gross, the primary line
// first and then each component in table order. Zero rules have no lines.
func (r Rule) Lines(gross decimal.Decimal) []domain.TaxComponent {
	if r.Kind == KindZero {
		return nil
	}
	lines := make([]domain.TaxComponent, 0, 1+len(r.Components))
	lines = append(lines, domain.TaxComponent{Name: r.LineName(), Amount: r.primary(gross)})
	base := r.Base(gross)
	for _, c := range r.Components {
		lines = append(lines, domain.TaxComponent{Name: c.Name, Amount: base.Mul(c.Rate)})
	}
	return lines
}

// Withholding returns the unrounded withheld amount for gross, every line included.
func (r Rule) Withholding(gross decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, l := range r.Lines(gross) {
		total = total.Add(l.Amount)
	}
	return total
}

func (r Rule) primary(gross decimal.Decimal) decimal.Decimal {
	switch r.Kind {
	case KindFlat:
		return gross.Mul(r.Rate)
	case KindInclusive:
		return gross.Mul(r.Rate).Div(decimal.NewFromInt(1).Add(r.Rate))
	case KindBracket:
		for _, b := range r.Brackets {
			if b.UpTo == nil || b.UpTo.GreaterThanOrEqual(gross) {
				return gross.Mul(b.Rate)
			}
		}
		// Gross above every bounded ceiling: the last bracket applies.
		return gross.Mul(r.Brackets[len(r.Brackets)-1].Rate)
	default:
		return decimal.Zero
	}
}

// Validate checks every rule in the table.
func (t Table) Validate() error {
	if len(t) == 0 {
		return errors.New("tax table is empty")
	}
	for _, key := range t.Keys() {
		if key.Method == domain.PaymentMethodUnknown || key.Condition == domain.FiscalConditionUnknown {
			return fmt.Errorf("tax table: rule for unknown pair %s", key)
		}
		if err := t[key].Validate(); err != nil {
			return fmt.Errorf("tax table: %s: %w", key, err)
		}
	}
	return nil
}

// Keys returns the table keys in enum order.
func (t Table) Keys() []RuleKey {
	keys := make([]RuleKey, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Method != keys[j].Method {
			return keys[i].Method < keys[j].Method
		}
		return keys[i].Condition < keys[j].Condition
	})
	return keys
}

// DefaultTable is the built-in treatment. Registered taxpayers pay IVA 21%
// included in gross, plus IIBB 2.9% and Tasa SyH 0.3% on the net-of-IVA
// base. Monotributo withholds a flat 10%, and informal income pays nothing.
func DefaultTable() Table {
	iva := Rule{
		Name: "iva_inclusive_21",
		Kind: KindInclusive,
		Rate: decimal.RequireFromString("0.21"),
		Line: LineIVA,
		Components: []Component{
			{Name: LineIIBB, Rate: decimal.RequireFromString("0.029")},
			{Name: LineTasaSyH, Rate: decimal.RequireFromString("0.003")},
		},
	}
	mono := Rule{Name: "monotributo_10", Kind: KindFlat, Rate: decimal.RequireFromString("0.10")}
	informal := Rule{Name: "informal_exento", Kind: KindZero}

	t := Table{}
	for _, m := range []domain.PaymentMethod{
		domain.PaymentMethodEfectivo,
		domain.PaymentMethodTarjeta,
		domain.PaymentMethodTransferencia,
		domain.PaymentMethodMercadoPago,
	} {
		t[RuleKey{m, domain.FiscalConditionResponsableInscripto}] = iva
		t[RuleKey{m, domain.FiscalConditionMonotributo}] = mono
	}
	for _, m := range []domain.PaymentMethod{
		domain.PaymentMethodEfectivo,
		domain.PaymentMethodTransferencia,
		domain.PaymentMethodMercadoPago,
		domain.PaymentMethodMonedero,
		domain.PaymentMethodRevendedores,
	} {
		t[RuleKey{m, domain.FiscalConditionInformal}] = informal
	}
	return t
}
