// Package audit keeps the per-record provenance trail of a transformation run.
//
// Every stage appends tags; nothing is ever removed or rewritten. The trail
// stays structured until a loader flattens it to text.
package audit

import (
	"fmt"
	"sort"
	"strings"
)

// Stage names the transformation step that wrote a tag.
type Stage string

const (
	StageNormalize Stage = "NORMALIZE"
	StageAdjust    Stage = "ADJUST"
	StageTax       Stage = "TAX"
	StageModel     Stage = "MODEL"
)

// Code is a machine-readable tag code.
type Code string

// Normalizer codes.
const (
	CodeEmpty              Code = "EMPTY"
	CodeNoNumericContent   Code = "NO_NUMERIC_CONTENT"
	CodeNoWellFormedNumber Code = "NO_WELL_FORMED_NUMBER"
	CodeNegativeAmount     Code = "NEGATIVE_AMOUNT"
	CodePossibleYear       Code = "POSSIBLE_YEAR"
	CodeSeparatorAmbiguous Code = "SEPARATOR_AMBIGUOUS"
	CodeTextDiscarded      Code = "TEXT_DISCARDED"
	CodeExtraNumbers       Code = "EXTRA_NUMBERS_DISCARDED"
	CodeCurrencyConflict   Code = "CURRENCY_CONFLICT"
	CodeUSDConversion      Code = "USD_CONVERSION"
)

// Adjuster codes.
const (
	CodeQuotationFallback    Code = "QUOTATION_FALLBACK"
	CodeQuotationUnavailable Code = "QUOTATION_UNAVAILABLE"
	CodeDateAfterReference   Code = "DATE_AFTER_REFERENCE"
)

// Tax engine codes.
const (
	CodeTaxRuleApplied    Code = "TAX_RULE_APPLIED"
	CodeTaxNativeCurrency Code = "TAX_NATIVE_CURRENCY"
)

// Modeler codes.
const (
	CodeExcludedFromReal Code = "EXCLUDED_FROM_REAL_TOTALS"
)

// informational codes do not make a record "inferred".
var informational = map[Code]bool{
	CodeTaxRuleApplied:     true,
	CodeUSDConversion:      true,
	CodeDateAfterReference: true,
}

// Tag is one audit entry.
type Tag struct {
	RecordID string `json:"record_id"`
	Stage    Stage  `json:"stage"`
	Code     Code   `json:"code"`
	Detail   string `json:"detail,omitempty"`
}

func (t Tag) String() string {
	if t.Detail == "" {
		return fmt.Sprintf("%s:%s", t.Stage, t.Code)
	}
	return fmt.Sprintf("%s:%s(%s)", t.Stage, t.Code, t.Detail)
}

// Trail is the ordered tag list of one record.
type Trail []Tag

// Inferred reports whether any tag records a non-exact interpretation.
func (tr Trail) Inferred() bool {
	for _, t := range tr {
		if !informational[t.Code] {
			return true
		}
	}
	return false
}

// Has reports whether the trail contains code.
func (tr Trail) Has(code Code) bool {
	for _, t := range tr {
		if t.Code == code {
			return true
		}
	}
	return false
}

// Flatten renders the trail as "STAGE:CODE(detail) + ...". Only loaders should need it.
func (tr Trail) Flatten() string {
	if len(tr) == 0 {
		return "NORMAL"
	}
	parts := make([]string, len(tr))
	for i, t := range tr {
		parts[i] = t.String()
	}
	return strings.Join(parts, " + ")
}

// Log holds the trails of every record in a run. It is not safe for concurrent use;
// the transformation core is single-threaded.
type Log struct {
	trails map[string]Trail
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{trails: make(map[string]Trail)}
}

// Append adds a tag to the record's trail.
func (l *Log) Append(recordID string, stage Stage, code Code, detail string) {
	l.trails[recordID] = append(l.trails[recordID], Tag{
		RecordID: recordID,
		Stage:    stage,
		Code:     code,
		Detail:   detail,
	})
}

// Appendf is Append with a formatted detail.
func (l *Log) Appendf(recordID string, stage Stage, code Code, format string, args ...any) {
	l.Append(recordID, stage, code, fmt.Sprintf(format, args...))
}

// Tags returns a copy of the record's trail.
func (l *Log) Tags(recordID string) Trail {
	src := l.trails[recordID]
	if len(src) == 0 {
		return nil
	}
	out := make(Trail, len(src))
	copy(out, src)
	return out
}

// RecordIDs returns every record with at least one tag, sorted.
func (l *Log) RecordIDs() []string {
	ids := make([]string, 0, len(l.trails))
	for id := range l.trails {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CountByCode tallies tags per code across the run.
func (l *Log) CountByCode() map[Code]int {
	counts := make(map[Code]int)
	for _, tr := range l.trails {
		for _, t := range tr {
			counts[t.Code]++
		}
	}
	return counts
}
