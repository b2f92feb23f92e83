package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Currency is the currency a monetary text was written in.
type Currency string

const (
	CurrencyARS Currency = "ARS"
	CurrencyUSD Currency = "USD"
)

// Valid reports whether c is one of the supported currencies.
func (c Currency) Valid() bool {
	return c == CurrencyARS || c == CurrencyUSD
}

// ParseConfidence grades how a monetary text was interpreted.
type ParseConfidence string

const (
	// ConfidenceExact means the text was a single unambiguous amount.
	ConfidenceExact ParseConfidence = "exact"
	// ConfidenceInferred means an interpretation was chosen and audited.
	ConfidenceInferred ParseConfidence = "inferred"
	// ConfidenceUnparseable means no amount could be recovered; Amount is zero.
	ConfidenceUnparseable ParseConfidence = "unparseable"
)

// RawRecord is one monetary cell as received from the extraction side.
// It is passed by value and never mutated by the core.
type RawRecord struct {
	ID                   string     // "<row>:<column>" from the extractor, or assigned by the core
	Date                 civil.Date // sale date (day-first in the sheet)
	AmountText           string     // free-text amount as typed by a person
	PaymentMethodLabel   string     // e.g. "C", "transferencia", "MP (NEGOCIO)"
	FiscalConditionLabel string     // e.g. "responsable_inscripto", "monotributo", "informal"
	Shift                string     // "Turno" column, may be empty
	SourceColumn         string     // sheet column the cell came from, may be empty
}

// NormalizedAmount is the structured result of parsing RawRecord.AmountText.
type NormalizedAmount struct {
	Amount     decimal.Decimal
	Currency   Currency
	Confidence ParseConfidence
}

// QuotationPoint is one ARS-per-USD observation.
type QuotationPoint struct {
	Date      civil.Date
	ARSPerUSD decimal.Decimal
}

// AdjustedRecord is a normalized amount expressed in ARS nominal and real terms.
type AdjustedRecord struct {
	Record RawRecord
	NormalizedAmount

	NominalARS    decimal.NullDecimal
	RealARS       decimal.NullDecimal // at the run's reference date
	USDEquivalent decimal.NullDecimal

	// Adjusted is false when no usable quotation covered the record date.
	// Such records keep their nominal form and are left out of real-value totals.
	Adjusted      bool
	QuotationDate *civil.Date // effective quotation date after fallback
	QuotationRate decimal.Decimal
}

// TaxComponent is one named line of the withheld amount, e.g. IVA or IIBB.
type TaxComponent struct {
	Name   string          `json:"nombre"`
	Amount decimal.Decimal `json:"monto"`
}

// TaxedRecord splits an adjusted record into gross, withheld and net.
// Gross always equals TaxWithheld + Net, and TaxWithheld is the sum of Components.
type TaxedRecord struct {
	AdjustedRecord

	PaymentMethod   PaymentMethod
	FiscalCondition FiscalCondition
	RuleKind        string

	Gross        decimal.Decimal
	TaxWithheld  decimal.Decimal
	Net          decimal.Decimal
	Components   []TaxComponent
	IsRegistered bool

	// NativeCurrency is true when no ARS nominal existed and the split was
	// computed on the native USD amount. Such splits stay out of ARS totals.
	NativeCurrency bool
	// NetUSD is Net in dollars: Net over the record's quotation when
	// adjusted, Net itself when taxed natively in USD, null otherwise.
	NetUSD decimal.NullDecimal
}
