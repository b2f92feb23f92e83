package domain

import (
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
)

// Run-fatal errors. Anything wrapping one of these aborts the run.
var (
	ErrUnknownTaxRule       = errors.New("unknown_tax_rule")
	ErrNoQuotations         = errors.New("no_quotations")
	ErrQuotationGap         = errors.New("quotation_gap")
	ErrReferenceQuotation   = errors.New("reference_quotation_unavailable")
	ErrRoundingInvariant    = errors.New("rounding_invariant_violated")
	ErrReferentialIntegrity = errors.New("referential_integrity_violated")
)

// RecordRef identifies a record in run diagnostics.
type RecordRef struct {
	ID                   string
	Date                 civil.Date
	PaymentMethodLabel   string
	FiscalConditionLabel string
	Reason               string
}

func (r RecordRef) String() string {
	return fmt.Sprintf("record %s (%s, method=%q, fiscal=%q): %s",
		r.ID, r.Date, r.PaymentMethodLabel, r.FiscalConditionLabel, r.Reason)
}

// UnknownRuleError lists every record whose fiscal treatment could not be resolved.
type UnknownRuleError struct {
	Records []RecordRef
}

func (e *UnknownRuleError) Error() string {
	lines := make([]string, 0, len(e.Records))
	for _, r := range e.Records {
		lines = append(lines, r.String())
	}
	return fmt.Sprintf("%s: %d record(s) without a tax rule:\n  %s",
		ErrUnknownTaxRule, len(e.Records), strings.Join(lines, "\n  "))
}

func (e *UnknownRuleError) Unwrap() error { return ErrUnknownTaxRule }

// QuotationGapError is returned when no quotation exists near a record date
// on either side of the tolerance window.
type QuotationGapError struct {
	RecordID   string
	Date       civil.Date
	WindowDays int
}

func (e *QuotationGapError) Error() string {
	return fmt.Sprintf("%s: no quotation within %d day(s) of %s (record %s)",
		ErrQuotationGap, e.WindowDays, e.Date, e.RecordID)
}

func (e *QuotationGapError) Unwrap() error { return ErrQuotationGap }
