package tax

import (
	"bytes"
	"fmt"

	"github.com/dvloznov/ingresos-analytics/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// tableFile is the on-disk layout of a rule table:
//
//	rules:
//	  - name: monotributo_10
//	    methods: [efectivo, tarjeta]
//	    condition: monotributo
//	    kind: flat
//	    rate: "0.10"
//	  - name: iva_inclusive_21
//	    methods: [C, T]
//	    condition: ri
//	    kind: inclusive
//	    rate: "0.21"
//	    line: iva
//	    components:
//	      - name: iibb
//	        rate: "0.029"
type tableFile struct {
	Rules []ruleYAML `yaml:"rules"`
}

type ruleYAML struct {
	Name      string        `yaml:"name"`
	Methods   []string      `yaml:"methods"`
	Condition string        `yaml:"condition"`
	Kind      string        `yaml:"kind"`
	Rate      string        `yaml:"rate,omitempty"`
	Brackets  []bracketYAML `yaml:"brackets,omitempty"`

	Line       string          `yaml:"line,omitempty"`
	Components []componentYAML `yaml:"components,omitempty"`
}

type componentYAML struct {
	Name string `yaml:"name"`
	Rate string `yaml:"rate"`
}

type bracketYAML struct {
	UpTo string `yaml:"up_to,omitempty"`
	Rate string `yaml:"rate"`
}

// ParseTable decodes a YAML rule table. Labels go through the same alias
// tables as the sheet, so "C" or "ri" are accepted.
func ParseTable(data []byte) (Table, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var in tableFile
	if err := dec.Decode(&in); err != nil {
		return nil, fmt.Errorf("ParseTable: decode: %w", err)
	}

	t := Table{}
	for i, r := range in.Rules {
		rule, err := r.toRule()
		if err != nil {
			return nil, fmt.Errorf("ParseTable: rule %d (%s): %w", i, r.Name, err)
		}
		condition, err := domain.ParseFiscalCondition(r.Condition)
		if err != nil {
			return nil, fmt.Errorf("ParseTable: rule %d (%s): %w", i, r.Name, err)
		}
		if len(r.Methods) == 0 {
			return nil, fmt.Errorf("ParseTable: rule %d (%s): no payment methods", i, r.Name)
		}
		for _, label := range r.Methods {
			method, err := domain.ParsePaymentMethod(label)
			if err != nil {
				return nil, fmt.Errorf("ParseTable: rule %d (%s): %w", i, r.Name, err)
			}
			key := RuleKey{Method: method, Condition: condition}
			if _, dup := t[key]; dup {
				return nil, fmt.Errorf("ParseTable: rule %d (%s): duplicate rule for %s", i, r.Name, key)
			}
			t[key] = rule
		}
	}

	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("ParseTable: %w", err)
	}
	return t, nil
}

func (r ruleYAML) toRule() (Rule, error) {
	rule := Rule{Name: r.Name, Kind: Kind(r.Kind), Line: r.Line}
	if rule.Name == "" {
		rule.Name = r.Kind
	}
	if r.Rate != "" {
		rate, err := decimal.NewFromString(r.Rate)
		if err != nil {
			return Rule{}, fmt.Errorf("rate: %w", err)
		}
		rule.Rate = rate
	}
	for _, b := range r.Brackets {
		rate, err := decimal.NewFromString(b.Rate)
		if err != nil {
			return Rule{}, fmt.Errorf("bracket rate: %w", err)
		}
		bracket := Bracket{Rate: rate}
		if b.UpTo != "" {
			upTo, err := decimal.NewFromString(b.UpTo)
			if err != nil {
				return Rule{}, fmt.Errorf("bracket up_to: %w", err)
			}
			bracket.UpTo = &upTo
		}
		rule.Brackets = append(rule.Brackets, bracket)
	}
	for _, c := range r.Components {
		rate, err := decimal.NewFromString(c.Rate)
		if err != nil {
			return Rule{}, fmt.Errorf("component %s rate: %w", c.Name, err)
		}
		rule.Components = append(rule.Components, Component{Name: c.Name, Rate: rate})
	}
	if err := rule.Validate(); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

// MarshalTable encodes t in the ParseTable layout, one entry per key in enum order.
func MarshalTable(t Table) ([]byte, error) {
	out := tableFile{Rules: make([]ruleYAML, 0, len(t))}
	for _, key := range t.Keys() {
		rule := t[key]
		r := ruleYAML{
			Name:      rule.Name,
			Methods:   []string{key.Method.String()},
			Condition: key.Condition.String(),
			Kind:      string(rule.Kind),
			Line:      rule.Line,
		}
		if rule.Kind == KindFlat || rule.Kind == KindInclusive {
			r.Rate = rule.Rate.String()
		}
		for _, b := range rule.Brackets {
			by := bracketYAML{Rate: b.Rate.String()}
			if b.UpTo != nil {
				by.UpTo = b.UpTo.String()
			}
			r.Brackets = append(r.Brackets, by)
		}
		for _, c := range rule.Components {
			r.Components = append(r.Components, componentYAML{Name: c.Name, Rate: c.Rate.String()})
		}
		out.Rules = append(out.Rules, r)
	}
	return yaml.Marshal(out)
}
