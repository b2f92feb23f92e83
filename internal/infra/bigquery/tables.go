package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

const (
	factIngresosTable   = "fact_ingresos"
	dimCalendarioTable  = "dim_calendario"
	dimMediosPagoTable  = "dim_medios_pago"
	dimCotizacionTable  = "dim_cotizacion"
	etlRunsTable        = "etl_runs"
	insertBatchSize     = 500
	maxErrorMessageSize = 2000
	defaultRunListLimit = 20
)

type FactIngresoRow struct {
	FactKey       int64              `bigquery:"fact_key"`       // REQUIRED
	RunID         string             `bigquery:"run_id"`         // REQUIRED
	RecordID      string             `bigquery:"id_registro"`    // REQUIRED
	FechaKey      int64              `bigquery:"fecha_key"`      // REQUIRED
	MedioPagoKey  int64              `bigquery:"medio_pago_key"` // REQUIRED
	CotizacionKey bigquery.NullInt64 `bigquery:"cotizacion_key"` // NULLABLE

	Fecha        civil.Date          `bigquery:"fecha"`          // REQUIRED
	Turno        bigquery.NullString `bigquery:"turno"`          // NULLABLE
	ColumnOrigen bigquery.NullString `bigquery:"columna_origen"` // NULLABLE

	TextoOriginal  string   `bigquery:"texto_original"`  // REQUIRED
	MontoOriginal  *big.Rat `bigquery:"monto_original"`  // REQUIRED NUMERIC
	MonedaOriginal string   `bigquery:"moneda_original"` // REQUIRED
	Confianza      string   `bigquery:"confianza"`       // REQUIRED

	MontoNominalARS *big.Rat `bigquery:"monto_nominal_ars"` // NULLABLE NUMERIC
	MontoRealARS    *big.Rat `bigquery:"monto_real_ars"`    // NULLABLE NUMERIC
	MontoUSD        *big.Rat `bigquery:"monto_usd"`         // NULLABLE NUMERIC
	Ajustado        bool     `bigquery:"ajustado"`

	MontoBruto       *big.Rat `bigquery:"monto_bruto"`       // REQUIRED NUMERIC
	ImpuestoRetenido *big.Rat `bigquery:"impuesto_retenido"` // REQUIRED NUMERIC
	MontoNeto        *big.Rat `bigquery:"monto_neto"`        // REQUIRED NUMERIC
	TipoRegla        string   `bigquery:"tipo_regla"`
	EsRegistrado     bool     `bigquery:"es_registrado"`

	MontoNetoUSD            *big.Rat                `bigquery:"monto_neto_usd"`       // NULLABLE NUMERIC
	ComponentesImpuesto     []ComponenteImpuestoRow `bigquery:"componentes_impuesto"` // REPEATED RECORD
	GravadoEnMonedaOriginal bool                    `bigquery:"gravado_en_moneda_original"`

	Exacto           bool     `bigquery:"exacto"`
	Auditoria        string   `bigquery:"auditoria"`         // flattened trail
	AuditoriaCodigos []string `bigquery:"auditoria_codigos"` // REPEATED STRING
}

// ComponenteImpuestoRow is one tax line nested in a fact row.
type ComponenteImpuestoRow struct {
	Nombre string   `bigquery:"nombre"`
	Monto  *big.Rat `bigquery:"monto"` // NUMERIC
}

type DimCalendarioRow struct {
	FechaKey      int64      `bigquery:"fecha_key"` // REQUIRED
	Fecha         civil.Date `bigquery:"fecha"`     // REQUIRED
	Anio          int64      `bigquery:"anio"`
	Mes           int64      `bigquery:"mes"`
	Dia           int64      `bigquery:"dia"`
	Trimestre     int64      `bigquery:"trimestre"`
	PeriodoFiscal string     `bigquery:"periodo_fiscal"`
	NombreMes     string     `bigquery:"nombre_mes"`
	NombreDia     string     `bigquery:"nombre_dia"`
	EsFinDeSemana bool       `bigquery:"es_fin_de_semana"`
}

type DimMedioPagoRow struct {
	MedioPagoKey    int64  `bigquery:"medio_pago_key"` // REQUIRED
	MedioPago       string `bigquery:"medio_pago"`
	CondicionFiscal string `bigquery:"condicion_fiscal"`
	Nombre          string `bigquery:"nombre"`
	Tipo            string `bigquery:"tipo"`
	EsRegistrado    bool   `bigquery:"es_registrado"`
}

type DimCotizacionRow struct {
	CotizacionKey  int64      `bigquery:"cotizacion_key"`  // REQUIRED
	Fecha          civil.Date `bigquery:"fecha"`           // REQUIRED
	CotizacionBlue *big.Rat   `bigquery:"cotizacion_blue"` // REQUIRED NUMERIC
	EsReferencia   bool       `bigquery:"es_referencia"`
}

// ETLRunRow is one row of etl_runs as read back by ListRunsWithClient.
type ETLRunRow struct {
	RunID  string              `bigquery:"run_id"` // REQUIRED
	Source bigquery.NullString `bigquery:"source"` // NULLABLE

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	Status       string              `bigquery:"status"`        // RUNNING, SUCCESS or FAILED
	ErrorMessage bigquery.NullString `bigquery:"error_message"` // NULLABLE

	Facts      bigquery.NullInt64 `bigquery:"facts"`      // NULLABLE
	Adjusted   bigquery.NullInt64 `bigquery:"adjusted"`   // NULLABLE
	Unadjusted bigquery.NullInt64 `bigquery:"unadjusted"` // NULLABLE

	NominalARS *big.Rat `bigquery:"nominal_ars"` // NULLABLE NUMERIC
	RealARS    *big.Rat `bigquery:"real_ars"`    // NULLABLE NUMERIC
	Net        *big.Rat `bigquery:"net"`         // NULLABLE NUMERIC
}
