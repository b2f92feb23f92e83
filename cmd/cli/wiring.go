package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ingresos-analytics/internal/config"
	"github.com/dvloznov/ingresos-analytics/internal/gcsuploader"
	infraBQ "github.com/dvloznov/ingresos-analytics/internal/infra/bigquery"
	"github.com/dvloznov/ingresos-analytics/internal/infra/postgres"
	"github.com/dvloznov/ingresos-analytics/internal/pipeline"
	"github.com/dvloznov/ingresos-analytics/internal/quotation"
	"github.com/dvloznov/ingresos-analytics/internal/sheets"
	"github.com/dvloznov/ingresos-analytics/internal/tax"
)

// loadTaxTable reads a YAML rule table from a local path or gs:// URI.
// An empty path gives a nil table, meaning the built-in default.
func loadTaxTable(ctx context.Context, path string) (tax.Table, error) {
	if path == "" {
		return nil, nil
	}
	data, err := gcsuploader.ReadURI(ctx, gcsuploader.NewGCSStorageService(), path)
	if err != nil {
		return nil, fmt.Errorf("loadTaxTable: %w", err)
	}
	table, err := tax.ParseTable(data)
	if err != nil {
		return nil, fmt.Errorf("loadTaxTable: %s: %w", path, err)
	}
	return table, nil
}

// buildDeps wires the extraction, load, run-tracking and snapshot
// collaborators for cfg. The returned cleanup closes whatever was opened.
func buildDeps(ctx context.Context, cfg config.Config) (pipeline.Deps, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		closers = nil
	}

	layout, err := sheetLayout(cfg)
	if err != nil {
		return pipeline.Deps{}, cleanup, err
	}
	records, err := sheets.NewExtractor(ctx, cfg.SheetID, cfg.SheetRange, layout)
	if err != nil {
		return pipeline.Deps{}, cleanup, err
	}

	start, err := civil.ParseDate(cfg.QuotationStartDate)
	if err != nil {
		return pipeline.Deps{}, cleanup, fmt.Errorf("QUOTATION_START_DATE: %w", err)
	}
	quotes := quotation.NewClient(cfg.QuotationBaseURL, start,
		quotation.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.HTTPTimeoutSeconds) * time.Second}),
		quotation.WithLive(cfg.QuotationLive),
	)

	deps := pipeline.Deps{
		Records:    records,
		Quotations: quotes,
		Source:     "sheets:" + cfg.SheetID,
	}

	switch cfg.LoadTarget {
	case config.TargetBigQuery:
		repo, err := infraBQ.NewRepository(ctx, cfg.BQProjectID, cfg.BQDataset)
		if err != nil {
			return pipeline.Deps{}, cleanup, err
		}
		closers = append(closers, func() { _ = repo.Close() })
		deps.Loader = repo
		if cfg.RecordRuns {
			deps.Runs = repo
		}
	case config.TargetPostgres:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return pipeline.Deps{}, cleanup, err
		}
		closers = append(closers, pool.Close)
		deps.Loader = postgres.NewLoader(pool)
	}

	if cfg.SnapshotBucket != "" {
		store, err := gcsuploader.NewSnapshotStore(gcsuploader.NewGCSStorageService(), cfg.SnapshotBucket)
		if err != nil {
			return pipeline.Deps{}, cleanup, err
		}
		deps.Snapshots = store
	}

	return deps, cleanup, nil
}
