package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/ingresos-analytics/internal/logger"
	"github.com/dvloznov/ingresos-analytics/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a small pool on databaseURL and checks it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, errors.New("Connect: database URL is required")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("Connect: parsing config: %w", err)
	}
	cfg.MaxConns = 5
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 2 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("Connect: creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("Connect: ping: %w", err)
	}
	return pool, nil
}

// TxBeginner starts transactions. *pgxpool.Pool satisfies it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Loader replaces the star schema in PostgreSQL, one transaction per load.
type Loader struct {
	db TxBeginner
}

// NewLoader creates a loader over db.
func NewLoader(db TxBeginner) *Loader {
	return &Loader{db: db}
}

// LoadStarSchema creates the tables if missing, upserts the dimensions,
// replaces the facts and drops dimension rows the new load no longer has.
func (l *Loader) LoadStarSchema(ctx context.Context, runID string, schema *model.StarSchema) error {
	log := logger.FromContext(ctx)

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("LoadStarSchema: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, stmt := range ddl {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("LoadStarSchema: ensuring schema: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM fact_ingresos`); err != nil {
		return fmt.Errorf("LoadStarSchema: clearing facts: %w", err)
	}

	if err := upsertDimensions(ctx, tx, schema); err != nil {
		return fmt.Errorf("LoadStarSchema: %w", err)
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{"fact_ingresos"}, factColumns, pgx.CopyFromRows(FactValues(runID, schema.Facts)))
	if err != nil {
		return fmt.Errorf("LoadStarSchema: copying facts: %w", err)
	}

	if err := pruneDimensions(ctx, tx, schema); err != nil {
		return fmt.Errorf("LoadStarSchema: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("LoadStarSchema: commit: %w", err)
	}

	log.Info().
		Int64("facts", n).
		Int("calendario", len(schema.Calendario)).
		Int("medios_pago", len(schema.MediosPago)).
		Int("cotizacion", len(schema.Cotizacion)).
		Msg("Loaded star schema into PostgreSQL")
	return nil
}

func upsertDimensions(ctx context.Context, tx pgx.Tx, schema *model.StarSchema) error {
	batch := &pgx.Batch{}
	for _, c := range schema.Calendario {
		batch.Queue(upsertCalendario, CalendarioValues(c)...)
	}
	for _, m := range schema.MediosPago {
		batch.Queue(upsertMedioPago, MedioPagoValues(m)...)
	}
	for _, q := range schema.Cotizacion {
		batch.Queue(upsertCotizacion, CotizacionValues(q)...)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upserting dimensions: %w", err)
	}
	return nil
}

func pruneDimensions(ctx context.Context, tx pgx.Tx, schema *model.StarSchema) error {
	fechas := make([]int64, len(schema.Calendario))
	for i, c := range schema.Calendario {
		fechas[i] = c.FechaKey
	}
	medios := make([]int64, len(schema.MediosPago))
	for i, m := range schema.MediosPago {
		medios[i] = m.MedioPagoKey
	}
	cotizaciones := make([]int64, len(schema.Cotizacion))
	for i, q := range schema.Cotizacion {
		cotizaciones[i] = q.CotizacionKey
	}

	prunes := []struct {
		stmt string
		keys []int64
	}{
		{`DELETE FROM dim_calendario WHERE fecha_key <> ALL($1)`, fechas},
		{`DELETE FROM dim_medios_pago WHERE medio_pago_key <> ALL($1)`, medios},
		{`DELETE FROM dim_cotizacion WHERE cotizacion_key <> ALL($1)`, cotizaciones},
	}
	for _, p := range prunes {
		if _, err := tx.Exec(ctx, p.stmt, p.keys); err != nil {
			return fmt.Errorf("pruning dimensions: %w", err)
		}
	}
	return nil
}
