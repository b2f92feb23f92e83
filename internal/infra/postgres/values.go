package postgres

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ingresos-analytics/internal/domain"
	"github.com/dvloznov/ingresos-analytics/internal/model"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// FactValues orders each fact's values as factColumns.
func FactValues(runID string, facts []model.FactIngreso) [][]any {
	rows := make([][]any, 0, len(facts))
	for _, f := range facts {
		codes := make([]string, len(f.Audit))
		for i, t := range f.Audit {
			codes[i] = string(t.Code)
		}

		// JSONB must not be null; a zero rule has no lines.
		components := f.Components
		if components == nil {
			components = []domain.TaxComponent{}
		}

		cotizacion := pgtype.Int8{}
		if f.CotizacionKey != nil {
			cotizacion = pgtype.Int8{Int64: *f.CotizacionKey, Valid: true}
		}

		rows = append(rows, []any{
			f.FactKey, runID, f.RecordID, f.FechaKey, f.MedioPagoKey, cotizacion,
			pgDate(f.Date), pgText(f.Shift), pgText(f.SourceColumn),
			f.AmountText, pgNumeric(f.OriginalAmount), string(f.OriginalCurrency), string(f.Confidence),
			pgNullNumeric(f.NominalARS), pgNullNumeric(f.RealARS), pgNullNumeric(f.USDEquivalent), f.Adjusted,
			pgNumeric(f.Gross), pgNumeric(f.TaxWithheld), pgNumeric(f.Net), f.RuleKind, f.IsRegistered,
			pgNullNumeric(f.NetUSD), components, f.TaxedNative,
			f.Exact, f.Audit.Flatten(), codes,
		})
	}
	return rows
}

// CalendarioValues are the upsertCalendario arguments.
func CalendarioValues(c model.DimCalendario) []any {
	return []any{
		c.FechaKey, pgDate(c.Date), int32(c.Year), int32(c.Month), int32(c.Day), int32(c.Quarter),
		c.FiscalPeriod, c.MonthName, c.DayName, c.Weekend,
	}
}

// MedioPagoValues are the upsertMedioPago arguments.
func MedioPagoValues(m model.DimMedioPago) []any {
	return []any{m.MedioPagoKey, m.MethodName, m.ConditionName, m.DisplayName, m.ChannelType, m.IsRegistered}
}

// CotizacionValues are the upsertCotizacion arguments.
func CotizacionValues(q model.DimCotizacion) []any {
	return []any{q.CotizacionKey, pgDate(q.Date), pgNumeric(q.ARSPerUSD), q.IsReference}
}

func pgNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func pgNullNumeric(d decimal.NullDecimal) pgtype.Numeric {
	if !d.Valid {
		return pgtype.Numeric{}
	}
	return pgNumeric(d.Decimal)
}

func pgDate(d civil.Date) pgtype.Date {
	return pgtype.Date{Time: d.In(time.UTC), Valid: true}
}

func pgText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
