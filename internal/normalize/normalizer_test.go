package normalize

import (
	"testing"

	"github.com/dvloznov/ingresos-analytics/internal/audit"
	"github.com/dvloznov/ingresos-analytics/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizer_Normalize(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantAmount string
		wantCur    domain.Currency
		wantConf   domain.ParseConfidence
		wantCodes  []audit.Code
	}{
		{
			name:       "trailing comment is discarded",
			text:       "1.250,50 ARS (efectivo)",
			wantAmount: "1250.50",
			wantCur:    domain.CurrencyARS,
			wantConf:   domain.ConfidenceInferred,
			wantCodes:  []audit.Code{audit.CodeTextDiscarded},
		},
		{
			name:       "plain integer",
			text:       "1500",
			wantAmount: "1500",
			wantCur:    domain.CurrencyARS,
			wantConf:   domain.ConfidenceExact,
		},
		{
			name:       "usd suffix",
			text:       "100 USD",
			wantAmount: "100",
			wantCur:    domain.CurrencyUSD,
			wantConf:   domain.ConfidenceExact,
		},
		{
			name:       "u$s prefix",
			text:       "u$s 250",
			wantAmount: "250",
			wantCur:    domain.CurrencyUSD,
			wantConf:   domain.ConfidenceExact,
		},
		{
			name:       "dolares with accent",
			text:       "100 dólares",
			wantAmount: "100",
			wantCur:    domain.CurrencyUSD,
			wantConf:   domain.ConfidenceExact,
		},
		{
			name:       "whitespace noise",
			text:       "   150    usd   ",
			wantAmount: "150",
			wantCur:    domain.CurrencyUSD,
			wantConf:   domain.ConfidenceExact,
		},
		{
			name:       "lone dot with three digits is ambiguous",
			text:       "$1.500",
			wantAmount: "1500",
			wantCur:    domain.CurrencyARS,
			wantConf:   domain.ConfidenceInferred,
			wantCodes:  []audit.Code{audit.CodeSeparatorAmbiguous},
		},
		{
			name:       "repeated thousands separator",
			text:       "1.000.000",
			wantAmount: "1000000",
			wantCur:    domain.CurrencyARS,
			wantConf:   domain.ConfidenceExact,
		},
		{
			name:       "comma decimal",
			text:       "1250,5",
			wantAmount: "1250.5",
			wantCur:    domain.CurrencyARS,
			wantConf:   domain.ConfidenceExact,
		},
		{
			name:       "zero is a valid amount",
			text:       "0",
			wantAmount: "0",
			wantCur:    domain.CurrencyARS,
			wantConf:   domain.ConfidenceExact,
		},
		{
			name:       "multiple numbers keep the first",
			text:       "200 + 300 transferencia",
			wantAmount: "200",
			wantCur:    domain.CurrencyARS,
			wantConf:   domain.ConfidenceInferred,
			wantCodes:  []audit.Code{audit.CodeExtraNumbers, audit.CodeTextDiscarded},
		},
		{
			name:       "each number keeps its own marker",
			text:       "1500 pesos y 20 usd",
			wantAmount: "1500",
			wantCur:    domain.CurrencyARS,
			wantConf:   domain.ConfidenceInferred,
			wantCodes:  []audit.Code{audit.CodeExtraNumbers, audit.CodeTextDiscarded},
		},
		{
			name:       "bare peso sign beats usd of a discarded number",
			text:       "$ 35.000 (eran 100 usd)",
			wantAmount: "35000",
			wantCur:    domain.CurrencyARS,
			wantConf:   domain.ConfidenceInferred,
			wantCodes:  []audit.Code{audit.CodeSeparatorAmbiguous, audit.CodeExtraNumbers, audit.CodeTextDiscarded},
		},
		{
			name:       "glued peso sign with trailing usd amount",
			text:       "$35000 y 100 usd",
			wantAmount: "35000",
			wantCur:    domain.CurrencyARS,
			wantConf:   domain.ConfidenceInferred,
			wantCodes:  []audit.Code{audit.CodeExtraNumbers, audit.CodeTextDiscarded},
		},
		{
			name:       "marker between two numbers goes to the first",
			text:       "100 usd 200 pesos",
			wantAmount: "100",
			wantCur:    domain.CurrencyUSD,
			wantConf:   domain.ConfidenceInferred,
			wantCodes:  []audit.Code{audit.CodeExtraNumbers},
		},
		{
			name:       "marker before a colon",
			text:       "total en dolares: 100",
			wantAmount: "100",
			wantCur:    domain.CurrencyUSD,
			wantConf:   domain.ConfidenceInferred,
			wantCodes:  []audit.Code{audit.CodeTextDiscarded},
		},
		{
			name:       "detached marker still applies",
			text:       "usd, 100",
			wantAmount: "100",
			wantCur:    domain.CurrencyUSD,
			wantConf:   domain.ConfidenceExact,
		},
		{
			name:       "own marker wins over a free marker of the other currency",
			text:       "$ 100 en dolares",
			wantAmount: "100",
			wantCur:    domain.CurrencyARS,
			wantConf:   domain.ConfidenceInferred,
			wantCodes:  []audit.Code{audit.CodeTextDiscarded, audit.CodeCurrencyConflict},
		},
		{
			name:      "empty",
			text:      "",
			wantConf:  domain.ConfidenceUnparseable,
			wantCodes: []audit.Code{audit.CodeEmpty},
		},
		{
			name:      "nan from spreadsheet export",
			text:      "NaN",
			wantConf:  domain.ConfidenceUnparseable,
			wantCodes: []audit.Code{audit.CodeEmpty},
		},
		{
			name:      "no numeric content",
			text:      "sin ventas",
			wantConf:  domain.ConfidenceUnparseable,
			wantCodes: []audit.Code{audit.CodeNoNumericContent},
		},
		{
			name:      "negative amount",
			text:      "-500",
			wantConf:  domain.ConfidenceUnparseable,
			wantCodes: []audit.Code{audit.CodeNegativeAmount},
		},
		{
			name:      "year typed as amount",
			text:      "2023",
			wantConf:  domain.ConfidenceUnparseable,
			wantCodes: []audit.Code{audit.CodePossibleYear},
		},
		{
			name:      "malformed grouping",
			text:      "1.2.3",
			wantConf:  domain.ConfidenceUnparseable,
			wantCodes: []audit.Code{audit.CodeNoWellFormedNumber},
		},
	}

	n := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := audit.NewLog()
			rec := domain.RawRecord{ID: "r1", AmountText: tt.text}

			got := n.Normalize(rec, log)

			assert.Equal(t, tt.wantConf, got.Confidence)
			assert.True(t, got.Currency.Valid())
			assert.False(t, got.Amount.IsNegative())
			if tt.wantConf == domain.ConfidenceUnparseable {
				assert.True(t, got.Amount.IsZero())
			} else {
				assert.Equal(t, tt.wantCur, got.Currency)
				assert.True(t, decimal.RequireFromString(tt.wantAmount).Equal(got.Amount),
					"amount = %s, want %s", got.Amount, tt.wantAmount)
			}

			var codes []audit.Code
			for _, tag := range log.Tags("r1") {
				assert.Equal(t, audit.StageNormalize, tag.Stage)
				codes = append(codes, tag.Code)
			}
			assert.Equal(t, tt.wantCodes, codes)
		})
	}
}

func TestNormalizer_AuditDetailKeepsOriginalText(t *testing.T) {
	log := audit.NewLog()
	New().Normalize(domain.RawRecord{ID: "r1", AmountText: "1.250,50 ARS (efectivo)"}, log)

	tags := log.Tags("r1")
	require.Len(t, tags, 1)
	assert.Contains(t, tags[0].Detail, `"1.250,50 ARS (efectivo)"`)
	assert.Contains(t, tags[0].Detail, "1250.5 ARS")
	assert.Contains(t, tags[0].Detail, `"(efectivo)"`)
}

func TestNormalizer_ExactParseWritesNoTags(t *testing.T) {
	log := audit.NewLog()
	New().Normalize(domain.RawRecord{ID: "r1", AmountText: "$ 1.234,56"}, log)

	assert.Empty(t, log.Tags("r1"))
}

func TestNormalizer_CustomRuleOrder(t *testing.T) {
	// Without the year rule, "2023" is an ordinary amount.
	n := NewWithRules(Rule{Name: "exact", Apply: exactRule})

	out, ok := n.Interpret("2023").(Parsed)
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(2023).Equal(out.Amount))

	_, rejected := n.Interpret("abc").(Rejected)
	assert.True(t, rejected)
}

func TestNormalizer_NoRuleClaimsText(t *testing.T) {
	n := NewWithRules()

	out, ok := n.Interpret("12 docenas").(Rejected)
	require.True(t, ok)
	assert.Equal(t, audit.CodeNoWellFormedNumber, out.Code)

	log := audit.NewLog()
	got := n.Normalize(domain.RawRecord{ID: "r1", AmountText: "12 docenas"}, log)
	assert.Equal(t, domain.ConfidenceUnparseable, got.Confidence)
	assert.True(t, log.Tags("r1").Has(audit.CodeNoWellFormedNumber))
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		raw           string
		want          string
		wantAmbiguous bool
		wantOK        bool
	}{
		{"1250", "1250", false, true},
		{"1.250,50", "1250.50", false, true},
		{"1,250.50", "1250.50", false, true},
		{"1.000.000", "1000000", false, true},
		{"1,000,000", "1000000", false, true},
		{"1.250", "1250", true, true},
		{"1,250", "1250", true, true},
		{"0.500", "0.5", false, true},
		{"12345.678", "12345.678", false, true},
		{"99,99", "99.99", false, true},
		{"1.5", "1.5", false, true},
		{"1.2.3", "0", false, false},
		{"1250.000,5", "0", false, false},
		{"1.234,56.7", "0", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ambiguous, ok := parseNumber(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				return
			}
			assert.Equal(t, tt.wantAmbiguous, ambiguous)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestScan_MarkerInsideWordIsIgnored(t *testing.T) {
	s := scan("300 usuario")
	assert.Empty(t, s.markers)
	assert.Equal(t, "usuario", s.residue())
}
