package bigquery

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ingresos-analytics/internal/audit"
	"github.com/dvloznov/ingresos-analytics/internal/domain"
	"github.com/dvloznov/ingresos-analytics/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactRows(t *testing.T) {
	key := int64(3)
	facts := []model.FactIngreso{
		{
			FactKey:          1,
			RecordID:         "2:C",
			FechaKey:         20230102,
			MedioPagoKey:     1,
			CotizacionKey:    &key,
			Date:             civil.Date{Year: 2023, Month: time.January, Day: 2},
			Shift:            "Mañana",
			SourceColumn:     "C",
			AmountText:       "1.210",
			OriginalAmount:   decimal.RequireFromString("1210"),
			OriginalCurrency: domain.CurrencyARS,
			Confidence:       domain.ConfidenceInferred,
			NominalARS:       decimal.NewNullDecimal(decimal.RequireFromString("1210")),
			RealARS:          decimal.NewNullDecimal(decimal.RequireFromString("2420")),
			USDEquivalent:    decimal.NewNullDecimal(decimal.RequireFromString("6.05")),
			Adjusted:         true,
			Gross:            decimal.RequireFromString("1210"),
			TaxWithheld:      decimal.RequireFromString("242"),
			Net:              decimal.RequireFromString("968"),
			RuleKind:         "inclusive",
			IsRegistered:     true,
			NetUSD:           decimal.NewNullDecimal(decimal.RequireFromString("4.84")),
			Components: []domain.TaxComponent{
				{Name: "iva", Amount: decimal.RequireFromString("210")},
				{Name: "iibb", Amount: decimal.RequireFromString("29")},
				{Name: "tasa_syh", Amount: decimal.RequireFromString("3")},
			},
			Audit: audit.Trail{
				{RecordID: "2:C", Stage: audit.StageNormalize, Code: audit.CodeSeparatorAmbiguous, Detail: "1.210"},
			},
		},
		{
			FactKey:          2,
			RecordID:         "2:M",
			Date:             civil.Date{Year: 2023, Month: time.January, Day: 2},
			OriginalAmount:   decimal.RequireFromString("20"),
			OriginalCurrency: domain.CurrencyUSD,
			Gross:            decimal.RequireFromString("20"),
			TaxWithheld:      decimal.Zero,
			Net:              decimal.RequireFromString("20"),
			NetUSD:           decimal.NewNullDecimal(decimal.RequireFromString("20")),
			TaxedNative:      true,
			Exact:            true,
		},
	}

	rows := FactRows("run-1", facts)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, "run-1", first.RunID)
	assert.True(t, first.CotizacionKey.Valid)
	assert.Equal(t, int64(3), first.CotizacionKey.Int64)
	assert.Equal(t, "Mañana", first.Turno.StringVal)
	assert.True(t, first.Turno.Valid)
	assert.Equal(t, "1210/1", first.MontoOriginal.String())
	assert.Equal(t, "121/20", first.MontoUSD.String())
	assert.Equal(t, "242/1", first.ImpuestoRetenido.String())
	assert.Equal(t, "121/25", first.MontoNetoUSD.String())
	require.Len(t, first.ComponentesImpuesto, 3)
	assert.Equal(t, "iva", first.ComponentesImpuesto[0].Nombre)
	assert.Equal(t, "210/1", first.ComponentesImpuesto[0].Monto.String())
	assert.Equal(t, "tasa_syh", first.ComponentesImpuesto[2].Nombre)
	assert.False(t, first.GravadoEnMonedaOriginal)
	assert.Equal(t, "ARS", first.MonedaOriginal)
	assert.Equal(t, "inferred", first.Confianza)
	assert.Equal(t, []string{string(audit.CodeSeparatorAmbiguous)}, first.AuditoriaCodigos)
	assert.True(t, strings.HasPrefix(first.Auditoria, "NORMALIZE:"), first.Auditoria)

	second := rows[1]
	assert.False(t, second.CotizacionKey.Valid)
	assert.False(t, second.Turno.Valid)
	assert.Nil(t, second.MontoNominalARS)
	assert.Nil(t, second.MontoRealARS)
	assert.Nil(t, second.MontoUSD)
	assert.Equal(t, "20/1", second.MontoNetoUSD.String())
	assert.Empty(t, second.ComponentesImpuesto)
	assert.True(t, second.GravadoEnMonedaOriginal)
	assert.Equal(t, "NORMAL", second.Auditoria)
	assert.Empty(t, second.AuditoriaCodigos)
}

func TestDimensionRows(t *testing.T) {
	d := civil.Date{Year: 2023, Month: time.January, Day: 7}
	cal := CalendarioRows([]model.DimCalendario{model.NewDimCalendario(d)})
	require.Len(t, cal, 1)
	assert.Equal(t, int64(20230107), cal[0].FechaKey)
	assert.Equal(t, int64(2023), cal[0].Anio)
	assert.Equal(t, int64(1), cal[0].Trimestre)
	assert.True(t, cal[0].EsFinDeSemana)

	medios := MediosPagoRows([]model.DimMedioPago{{
		MedioPagoKey:  4,
		MethodName:    "mercadopago",
		ConditionName: "informal",
		DisplayName:   "MercadoPago",
		ChannelType:   "Digital",
	}})
	require.Len(t, medios, 1)
	assert.Equal(t, "mercadopago", medios[0].MedioPago)
	assert.Equal(t, "informal", medios[0].CondicionFiscal)
	assert.False(t, medios[0].EsRegistrado)

	quotes := CotizacionRows([]model.DimCotizacion{{
		CotizacionKey: 1,
		Date:          d,
		ARSPerUSD:     decimal.RequireFromString("350.5"),
		IsReference:   true,
	}})
	require.Len(t, quotes, 1)
	assert.Equal(t, "701/2", quotes[0].CotizacionBlue.String())
	assert.True(t, quotes[0].EsReferencia)
}

func TestTruncateError(t *testing.T) {
	assert.Equal(t, "", truncateError(nil))
	assert.Equal(t, "boom", truncateError(errors.New("boom")))

	long := truncateError(errors.New(strings.Repeat("x", 5000)))
	assert.Len(t, long, maxErrorMessageSize)

	// "ñ" is two bytes; an odd prefix ends mid-character.
	spanish := truncateError(errors.New("x" + strings.Repeat("ñ", 2000)))
	assert.True(t, utf8.ValidString(spanish))
	assert.Len(t, spanish, maxErrorMessageSize-1)
}
