package bigquery

import (
	"math/big"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/ingresos-analytics/internal/domain"
	"github.com/dvloznov/ingresos-analytics/internal/model"
	"github.com/shopspring/decimal"
)

// FactRows maps the fact table of a schema onto BigQuery rows.
func FactRows(runID string, facts []model.FactIngreso) []*FactIngresoRow {
	rows := make([]*FactIngresoRow, 0, len(facts))
	for _, f := range facts {
		codes := make([]string, len(f.Audit))
		for i, t := range f.Audit {
			codes[i] = string(t.Code)
		}

		row := &FactIngresoRow{
			FactKey:      f.FactKey,
			RunID:        runID,
			RecordID:     f.RecordID,
			FechaKey:     f.FechaKey,
			MedioPagoKey: f.MedioPagoKey,

			Fecha:        f.Date,
			Turno:        nullString(f.Shift),
			ColumnOrigen: nullString(f.SourceColumn),

			TextoOriginal:  f.AmountText,
			MontoOriginal:  f.OriginalAmount.Rat(),
			MonedaOriginal: string(f.OriginalCurrency),
			Confianza:      string(f.Confidence),

			MontoNominalARS: nullRat(f.NominalARS),
			MontoRealARS:    nullRat(f.RealARS),
			MontoUSD:        nullRat(f.USDEquivalent),
			Ajustado:        f.Adjusted,

			MontoBruto:       f.Gross.Rat(),
			ImpuestoRetenido: f.TaxWithheld.Rat(),
			MontoNeto:        f.Net.Rat(),
			TipoRegla:        f.RuleKind,
			EsRegistrado:     f.IsRegistered,

			MontoNetoUSD:            nullRat(f.NetUSD),
			ComponentesImpuesto:     componentRows(f.Components),
			GravadoEnMonedaOriginal: f.TaxedNative,

			Exacto:           f.Exact,
			Auditoria:        f.Audit.Flatten(),
			AuditoriaCodigos: codes,
		}
		if f.CotizacionKey != nil {
			row.CotizacionKey = bigquery.NullInt64{Int64: *f.CotizacionKey, Valid: true}
		}
		rows = append(rows, row)
	}
	return rows
}

// CalendarioRows maps the calendar dimension.
func CalendarioRows(days []model.DimCalendario) []*DimCalendarioRow {
	rows := make([]*DimCalendarioRow, 0, len(days))
	for _, c := range days {
		rows = append(rows, &DimCalendarioRow{
			FechaKey:      c.FechaKey,
			Fecha:         c.Date,
			Anio:          int64(c.Year),
			Mes:           int64(c.Month),
			Dia:           int64(c.Day),
			Trimestre:     int64(c.Quarter),
			PeriodoFiscal: c.FiscalPeriod,
			NombreMes:     c.MonthName,
			NombreDia:     c.DayName,
			EsFinDeSemana: c.Weekend,
		})
	}
	return rows
}

// MediosPagoRows maps the payment-method dimension.
func MediosPagoRows(medios []model.DimMedioPago) []*DimMedioPagoRow {
	rows := make([]*DimMedioPagoRow, 0, len(medios))
	for _, m := range medios {
		rows = append(rows, &DimMedioPagoRow{
			MedioPagoKey:    m.MedioPagoKey,
			MedioPago:       m.MethodName,
			CondicionFiscal: m.ConditionName,
			Nombre:          m.DisplayName,
			Tipo:            m.ChannelType,
			EsRegistrado:    m.IsRegistered,
		})
	}
	return rows
}

// CotizacionRows maps the quotation dimension.
func CotizacionRows(quotes []model.DimCotizacion) []*DimCotizacionRow {
	rows := make([]*DimCotizacionRow, 0, len(quotes))
	for _, q := range quotes {
		rows = append(rows, &DimCotizacionRow{
			CotizacionKey:  q.CotizacionKey,
			Fecha:          q.Date,
			CotizacionBlue: q.ARSPerUSD.Rat(),
			EsReferencia:   q.IsReference,
		})
	}
	return rows
}

func componentRows(components []domain.TaxComponent) []ComponenteImpuestoRow {
	rows := make([]ComponenteImpuestoRow, len(components))
	for i, c := range components {
		rows[i] = ComponenteImpuestoRow{Nombre: c.Name, Monto: c.Amount.Rat()}
	}
	return rows
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

func nullRat(d decimal.NullDecimal) *big.Rat {
	if !d.Valid {
		return nil
	}
	return d.Decimal.Rat()
}

func truncateError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > maxErrorMessageSize {
		// Drop a multi-byte character split by the byte limit.
		msg = strings.ToValidUTF8(msg[:maxErrorMessageSize], "")
	}
	return msg
}
