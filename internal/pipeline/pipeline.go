package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/ingresos-analytics/internal/logger"
	"github.com/google/uuid"
)

// Deps are the collaborators of a full ETL run. Loader, Runs and Snapshots
// are optional.
type Deps struct {
	Records    RecordSource
	Quotations QuotationSource
	Loader     Loader
	Runs       RunRecorder
	Snapshots  SnapshotStore

	// Source names the record origin in etl_runs, e.g. "sheets:<id>".
	Source string
}

// RunResult is what a finished ETL run produced.
type RunResult struct {
	RunID       string
	SnapshotURI string
	*Result
}

// RunWithDeps extracts, transforms and loads one full dataset. Any failure
// after the run is started marks it FAILED before returning.
func RunWithDeps(ctx context.Context, deps Deps, opts Options) (*RunResult, error) {
	if deps.Records == nil || deps.Quotations == nil {
		return nil, errors.New("RunWithDeps: record and quotation sources are required")
	}

	runID := uuid.NewString()
	if deps.Runs != nil {
		id, err := deps.Runs.StartRun(ctx, deps.Source)
		if err != nil {
			return nil, fmt.Errorf("RunWithDeps: starting run: %w", err)
		}
		runID = id
	}
	ctx = logger.WithRun(ctx, runID)
	log := logger.FromContext(ctx)

	fail := func(err error) (*RunResult, error) {
		if deps.Runs != nil {
			deps.Runs.MarkRunFailed(ctx, runID, err)
		}
		log.Error().Err(err).Msg("Run failed")
		return nil, err
	}

	log.Info().Str("source", deps.Source).Msg("Run started")

	records, err := deps.Records.FetchRecords(ctx)
	if err != nil {
		return fail(fmt.Errorf("RunWithDeps: fetching records: %w", err))
	}
	quotations, err := deps.Quotations.FetchQuotations(ctx)
	if err != nil {
		return fail(fmt.Errorf("RunWithDeps: fetching quotations: %w", err))
	}
	log.Info().Int("records", len(records)).Int("quotations", len(quotations)).Msg("Extracted inputs")

	result, err := Transform(ctx, records, quotations, opts)
	if err != nil {
		return fail(fmt.Errorf("RunWithDeps: transform: %w", err))
	}

	out := &RunResult{RunID: runID, Result: result}

	if deps.Snapshots != nil {
		data, err := result.Schema.JSON()
		if err != nil {
			return fail(fmt.Errorf("RunWithDeps: encoding snapshot: %w", err))
		}
		uri, err := deps.Snapshots.UploadSnapshot(ctx, runID, data)
		if err != nil {
			return fail(fmt.Errorf("RunWithDeps: uploading snapshot: %w", err))
		}
		out.SnapshotURI = uri
		log.Info().Str("uri", uri).Msg("Uploaded snapshot")
	}

	if deps.Loader != nil {
		if err := deps.Loader.LoadStarSchema(ctx, runID, result.Schema); err != nil {
			return fail(fmt.Errorf("RunWithDeps: loading star schema: %w", err))
		}
		log.Info().Int("facts", len(result.Schema.Facts)).Msg("Loaded star schema")
	}

	if deps.Runs != nil {
		if err := deps.Runs.MarkRunSucceeded(ctx, runID, result.Summary); err != nil {
			return nil, fmt.Errorf("RunWithDeps: marking run succeeded: %w", err)
		}
	}

	s := result.Summary
	log.Info().
		Int("facts", s.Facts).
		Int("adjusted", s.Adjusted).
		Int("unadjusted", s.Unadjusted).
		Int("exact", s.Exact).
		Str("nominal_ars", s.NominalARS.StringFixed(2)).
		Str("real_ars", s.RealARS.StringFixed(2)).
		Str("usd", s.USDEquivalent.StringFixed(2)).
		Str("net", s.Net.StringFixed(2)).
		Msg("Run succeeded")

	return out, nil
}
