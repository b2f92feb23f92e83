// Package postgres loads the star schema into PostgreSQL.
package postgres

// ddl creates the star schema when missing. Keys are the deterministic
// surrogate keys computed by the modeler.
var ddl = []string{
	`CREATE TABLE IF NOT EXISTS dim_calendario (
		fecha_key        BIGINT PRIMARY KEY,
		fecha            DATE NOT NULL UNIQUE,
		anio             INTEGER NOT NULL,
		mes              INTEGER NOT NULL,
		dia              INTEGER NOT NULL,
		trimestre        INTEGER NOT NULL,
		periodo_fiscal   TEXT NOT NULL,
		nombre_mes       TEXT NOT NULL,
		nombre_dia       TEXT NOT NULL,
		es_fin_de_semana BOOLEAN NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dim_medios_pago (
		medio_pago_key   BIGINT PRIMARY KEY,
		medio_pago       TEXT NOT NULL,
		condicion_fiscal TEXT NOT NULL,
		nombre           TEXT NOT NULL,
		tipo             TEXT NOT NULL,
		es_registrado    BOOLEAN NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dim_cotizacion (
		cotizacion_key  BIGINT PRIMARY KEY,
		fecha           DATE NOT NULL,
		cotizacion_blue NUMERIC(20,6) NOT NULL,
		es_referencia   BOOLEAN NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS fact_ingresos (
		fact_key          BIGINT PRIMARY KEY,
		run_id            TEXT NOT NULL,
		id_registro       TEXT NOT NULL UNIQUE,
		fecha_key         BIGINT NOT NULL REFERENCES dim_calendario(fecha_key),
		medio_pago_key    BIGINT NOT NULL REFERENCES dim_medios_pago(medio_pago_key),
		cotizacion_key    BIGINT REFERENCES dim_cotizacion(cotizacion_key),
		fecha             DATE NOT NULL,
		turno             TEXT,
		columna_origen    TEXT,
		texto_original    TEXT NOT NULL,
		monto_original    NUMERIC(20,6) NOT NULL,
		moneda_original   TEXT NOT NULL,
		confianza         TEXT NOT NULL,
		monto_nominal_ars NUMERIC(20,6),
		monto_real_ars    NUMERIC(20,6),
		monto_usd         NUMERIC(20,6),
		ajustado          BOOLEAN NOT NULL,
		monto_bruto       NUMERIC(20,6) NOT NULL,
		impuesto_retenido NUMERIC(20,6) NOT NULL,
		monto_neto        NUMERIC(20,6) NOT NULL,
		tipo_regla        TEXT NOT NULL,
		es_registrado     BOOLEAN NOT NULL,
		monto_neto_usd    NUMERIC(20,6),
		componentes_impuesto       JSONB NOT NULL,
		gravado_en_moneda_original BOOLEAN NOT NULL,
		exacto            BOOLEAN NOT NULL,
		auditoria         TEXT NOT NULL,
		auditoria_codigos TEXT[] NOT NULL
	)`,
}

var factColumns = []string{
	"fact_key", "run_id", "id_registro", "fecha_key", "medio_pago_key", "cotizacion_key",
	"fecha", "turno", "columna_origen",
	"texto_original", "monto_original", "moneda_original", "confianza",
	"monto_nominal_ars", "monto_real_ars", "monto_usd", "ajustado",
	"monto_bruto", "impuesto_retenido", "monto_neto", "tipo_regla", "es_registrado",
	"monto_neto_usd", "componentes_impuesto", "gravado_en_moneda_original",
	"exacto", "auditoria", "auditoria_codigos",
}

const (
	upsertCalendario = `INSERT INTO dim_calendario
		(fecha_key, fecha, anio, mes, dia, trimestre, periodo_fiscal, nombre_mes, nombre_dia, es_fin_de_semana)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (fecha_key) DO UPDATE SET
			fecha = EXCLUDED.fecha, anio = EXCLUDED.anio, mes = EXCLUDED.mes, dia = EXCLUDED.dia,
			trimestre = EXCLUDED.trimestre, periodo_fiscal = EXCLUDED.periodo_fiscal,
			nombre_mes = EXCLUDED.nombre_mes, nombre_dia = EXCLUDED.nombre_dia,
			es_fin_de_semana = EXCLUDED.es_fin_de_semana`

	upsertMedioPago = `INSERT INTO dim_medios_pago
		(medio_pago_key, medio_pago, condicion_fiscal, nombre, tipo, es_registrado)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (medio_pago_key) DO UPDATE SET
			medio_pago = EXCLUDED.medio_pago, condicion_fiscal = EXCLUDED.condicion_fiscal,
			nombre = EXCLUDED.nombre, tipo = EXCLUDED.tipo, es_registrado = EXCLUDED.es_registrado`

	upsertCotizacion = `INSERT INTO dim_cotizacion
		(cotizacion_key, fecha, cotizacion_blue, es_referencia)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cotizacion_key) DO UPDATE SET
			fecha = EXCLUDED.fecha, cotizacion_blue = EXCLUDED.cotizacion_blue,
			es_referencia = EXCLUDED.es_referencia`
)
