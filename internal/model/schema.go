// Package model builds the star schema (one income fact table with calendar,
// payment-method and quotation dimensions) from taxed records.
package model

import (
	"encoding/json"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ingresos-analytics/internal/audit"
	"github.com/dvloznov/ingresos-analytics/internal/domain"
	"github.com/shopspring/decimal"
)

// FactIngreso is one income fact.
type FactIngreso struct {
	FactKey       int64  `json:"fact_key"`
	RecordID      string `json:"id_registro"`
	FechaKey      int64  `json:"fecha_key"`
	MedioPagoKey  int64  `json:"medio_pago_key"`
	CotizacionKey *int64 `json:"cotizacion_key"`

	Date         civil.Date `json:"fecha"`
	Shift        string     `json:"turno,omitempty"`
	SourceColumn string     `json:"columna_origen,omitempty"`

	AmountText       string                 `json:"texto_original"`
	OriginalAmount   decimal.Decimal        `json:"monto_original"`
	OriginalCurrency domain.Currency        `json:"moneda_original"`
	Confidence       domain.ParseConfidence `json:"confianza"`

	NominalARS    decimal.NullDecimal `json:"monto_nominal_ars"`
	RealARS       decimal.NullDecimal `json:"monto_real_ars"`
	USDEquivalent decimal.NullDecimal `json:"monto_usd"`
	Adjusted      bool                `json:"ajustado"`

	Gross        decimal.Decimal `json:"monto_bruto"`
	TaxWithheld  decimal.Decimal `json:"impuesto_retenido"`
	Net          decimal.Decimal `json:"monto_neto"`
	RuleKind     string          `json:"tipo_regla"`
	IsRegistered bool            `json:"es_registrado"`

	NetUSD     decimal.NullDecimal   `json:"monto_neto_usd"`
	Components []domain.TaxComponent `json:"componentes_impuesto"`
	// TaxedNative is true when Gross, TaxWithheld and Net are in the
	// original USD amount rather than ARS.
	TaxedNative bool `json:"gravado_en_moneda_original"`

	// Exact is true when the trail holds no inference tags.
	Exact bool        `json:"exacto"`
	Audit audit.Trail `json:"auditoria"`
}

// DimCalendario is one calendar day.
type DimCalendario struct {
	FechaKey     int64      `json:"fecha_key"`
	Date         civil.Date `json:"fecha"`
	Year         int        `json:"anio"`
	Month        int        `json:"mes"`
	Day          int        `json:"dia"`
	Quarter      int        `json:"trimestre"`
	FiscalPeriod string     `json:"periodo_fiscal"`
	MonthName    string     `json:"nombre_mes"`
	DayName      string     `json:"nombre_dia"`
	Weekend      bool       `json:"es_fin_de_semana"`
}

// DimMedioPago is one (payment method, fiscal condition) pair.
type DimMedioPago struct {
	MedioPagoKey  int64                  `json:"medio_pago_key"`
	Method        domain.PaymentMethod   `json:"-"`
	Condition     domain.FiscalCondition `json:"-"`
	MethodName    string                 `json:"medio_pago"`
	ConditionName string                 `json:"condicion_fiscal"`
	DisplayName   string                 `json:"nombre"`
	ChannelType   string                 `json:"tipo"`
	IsRegistered  bool                   `json:"es_registrado"`
}

// DimCotizacion is one quotation referenced by facts, or the run's reference quotation.
type DimCotizacion struct {
	CotizacionKey int64           `json:"cotizacion_key"`
	Date          civil.Date      `json:"fecha"`
	ARSPerUSD     decimal.Decimal `json:"cotizacion_blue"`
	IsReference   bool            `json:"es_referencia"`
}

// StarSchema is the complete output of one transformation run.
type StarSchema struct {
	ReferenceDate civil.Date      `json:"fecha_referencia"`
	ReferenceRate decimal.Decimal `json:"cotizacion_referencia"`

	Facts      []FactIngreso   `json:"fact_ingresos"`
	Calendario []DimCalendario `json:"dim_calendario"`
	MediosPago []DimMedioPago  `json:"dim_medios_pago"`
	Cotizacion []DimCotizacion `json:"dim_cotizacion"`
}

// DateKey encodes d as yyyymmdd.
func DateKey(d civil.Date) int64 {
	return int64(d.Year)*10000 + int64(d.Month)*100 + int64(d.Day)
}

// JSON renders the schema as indented JSON. The output depends only on the
// schema content, so equal inputs give byte-identical snapshots.
func (s *StarSchema) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("StarSchema.JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// Validate checks the dedup and referential invariants. A failure wraps
// domain.ErrReferentialIntegrity.
func (s *StarSchema) Validate() error {
	fechas := make(map[int64]bool, len(s.Calendario))
	dates := make(map[civil.Date]bool, len(s.Calendario))
	for _, c := range s.Calendario {
		if fechas[c.FechaKey] || dates[c.Date] {
			return integrityError("dim_calendario: duplicate row for %s", c.Date)
		}
		if c.FechaKey != DateKey(c.Date) {
			return integrityError("dim_calendario: key %d does not match %s", c.FechaKey, c.Date)
		}
		fechas[c.FechaKey] = true
		dates[c.Date] = true
	}

	medios := make(map[int64]bool, len(s.MediosPago))
	pairs := make(map[[2]int]bool, len(s.MediosPago))
	for _, m := range s.MediosPago {
		pair := [2]int{int(m.Method), int(m.Condition)}
		if medios[m.MedioPagoKey] || pairs[pair] {
			return integrityError("dim_medios_pago: duplicate row %d (%s/%s)", m.MedioPagoKey, m.Method, m.Condition)
		}
		medios[m.MedioPagoKey] = true
		pairs[pair] = true
	}

	cotizaciones := make(map[int64]bool, len(s.Cotizacion))
	for _, c := range s.Cotizacion {
		if cotizaciones[c.CotizacionKey] {
			return integrityError("dim_cotizacion: duplicate row for %s", c.Date)
		}
		cotizaciones[c.CotizacionKey] = true
	}

	factKeys := make(map[int64]bool, len(s.Facts))
	recordIDs := make(map[string]bool, len(s.Facts))
	for _, f := range s.Facts {
		if factKeys[f.FactKey] || recordIDs[f.RecordID] {
			return integrityError("fact_ingresos: duplicate fact %d (record %s)", f.FactKey, f.RecordID)
		}
		factKeys[f.FactKey] = true
		recordIDs[f.RecordID] = true

		if !fechas[f.FechaKey] {
			return integrityError("fact %s: fecha_key %d has no calendar row", f.RecordID, f.FechaKey)
		}
		if !medios[f.MedioPagoKey] {
			return integrityError("fact %s: medio_pago_key %d has no payment-method row", f.RecordID, f.MedioPagoKey)
		}
		switch {
		case f.Adjusted && f.CotizacionKey == nil:
			return integrityError("fact %s: adjusted fact without cotizacion_key", f.RecordID)
		case !f.Adjusted && f.CotizacionKey != nil:
			return integrityError("fact %s: unadjusted fact with cotizacion_key", f.RecordID)
		case f.CotizacionKey != nil && !cotizaciones[*f.CotizacionKey]:
			return integrityError("fact %s: cotizacion_key %d has no quotation row", f.RecordID, *f.CotizacionKey)
		}
	}
	return nil
}

func integrityError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrReferentialIntegrity, fmt.Sprintf(format, args...))
}
