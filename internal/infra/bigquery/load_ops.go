package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/ingresos-analytics/internal/logger"
	"github.com/dvloznov/ingresos-analytics/internal/model"
)

// LoadStarSchemaWithClient replaces the four star-schema tables in dataset
// with the content of schema. Dimensions are written before facts.
func LoadStarSchemaWithClient(ctx context.Context, client *bigquery.Client, datasetID, runID string, schema *model.StarSchema) error {
	log := logger.FromContext(ctx)

	dataset := client.Dataset(datasetID)
	steps := []struct {
		table  string
		count  int
		insert func(*bigquery.Inserter) error
	}{
		{dimCalendarioTable, len(schema.Calendario), func(ins *bigquery.Inserter) error {
			return putBatches(ctx, ins, CalendarioRows(schema.Calendario))
		}},
		{dimMediosPagoTable, len(schema.MediosPago), func(ins *bigquery.Inserter) error {
			return putBatches(ctx, ins, MediosPagoRows(schema.MediosPago))
		}},
		{dimCotizacionTable, len(schema.Cotizacion), func(ins *bigquery.Inserter) error {
			return putBatches(ctx, ins, CotizacionRows(schema.Cotizacion))
		}},
		{factIngresosTable, len(schema.Facts), func(ins *bigquery.Inserter) error {
			return putBatches(ctx, ins, FactRows(runID, schema.Facts))
		}},
	}

	for _, s := range steps {
		if err := truncateTable(ctx, client, datasetID, s.table); err != nil {
			return fmt.Errorf("LoadStarSchema: clearing %s: %w", s.table, err)
		}
		if err := s.insert(dataset.Table(s.table).Inserter()); err != nil {
			return fmt.Errorf("LoadStarSchema: inserting into %s: %w", s.table, err)
		}
		log.Debug().Str("table", s.table).Int("rows", s.count).Msg("Replaced table")
	}

	return nil
}

func truncateTable(ctx context.Context, client *bigquery.Client, datasetID, table string) error {
	q := client.Query(fmt.Sprintf("DELETE FROM `%s.%s` WHERE TRUE", datasetID, table))

	return runQuery(ctx, q)
}

func putBatches[T any](ctx context.Context, inserter *bigquery.Inserter, rows []T) error {
	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := inserter.Put(ctx, rows[start:end]); err != nil {
			return fmt.Errorf("rows %d-%d: %w", start, end, err)
		}
	}
	return nil
}
