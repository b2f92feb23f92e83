package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLog_AppendIsOrderedAndAccumulates(t *testing.T) {
	l := NewLog()
	l.Append("r1", StageNormalize, CodeTextDiscarded, "(efectivo)")
	l.Append("r1", StageAdjust, CodeQuotationFallback, "2 day(s)")
	l.Append("r2", StageTax, CodeTaxRuleApplied, "flat 10%")

	tags := l.Tags("r1")
	assert.Len(t, tags, 2)
	assert.Equal(t, CodeTextDiscarded, tags[0].Code)
	assert.Equal(t, CodeQuotationFallback, tags[1].Code)
	assert.Equal(t, "r1", tags[1].RecordID)
	assert.Equal(t, []string{"r1", "r2"}, l.RecordIDs())
}

func TestLog_TagsReturnsCopy(t *testing.T) {
	l := NewLog()
	l.Append("r1", StageNormalize, CodeEmpty, "")

	tags := l.Tags("r1")
	tags[0].Code = CodeTaxRuleApplied
	_ = append(tags, Tag{Code: CodeUSDConversion})

	again := l.Tags("r1")
	assert.Len(t, again, 1)
	assert.Equal(t, CodeEmpty, again[0].Code)
}

func TestLog_TagsUnknownRecord(t *testing.T) {
	assert.Nil(t, NewLog().Tags("missing"))
}

func TestTrail_Inferred(t *testing.T) {
	exact := Trail{{Stage: StageTax, Code: CodeTaxRuleApplied}}
	assert.False(t, exact.Inferred())

	inferred := append(Trail{{Stage: StageAdjust, Code: CodeQuotationFallback}}, exact...)
	assert.True(t, inferred.Inferred())
	assert.True(t, inferred.Has(CodeQuotationFallback))
	assert.False(t, inferred.Has(CodeEmpty))
}

func TestTrail_Flatten(t *testing.T) {
	assert.Equal(t, "NORMAL", Trail(nil).Flatten())

	tr := Trail{
		{Stage: StageNormalize, Code: CodeTextDiscarded, Detail: "(efectivo)"},
		{Stage: StageTax, Code: CodeTaxRuleApplied},
	}
	assert.Equal(t, "NORMALIZE:TEXT_DISCARDED((efectivo)) + TAX:TAX_RULE_APPLIED", tr.Flatten())
}

func TestLog_CountByCode(t *testing.T) {
	l := NewLog()
	l.Append("r1", StageTax, CodeTaxRuleApplied, "")
	l.Append("r2", StageTax, CodeTaxRuleApplied, "")
	l.Appendf("r2", StageAdjust, CodeQuotationFallback, "%d day(s)", 3)

	counts := l.CountByCode()
	assert.Equal(t, 2, counts[CodeTaxRuleApplied])
	assert.Equal(t, 1, counts[CodeQuotationFallback])
	assert.Equal(t, "3 day(s)", l.Tags("r2")[1].Detail)
}
