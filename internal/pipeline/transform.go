package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ingresos-analytics/internal/audit"
	"github.com/dvloznov/ingresos-analytics/internal/domain"
	"github.com/dvloznov/ingresos-analytics/internal/logger"
	"github.com/dvloznov/ingresos-analytics/internal/model"
	"github.com/dvloznov/ingresos-analytics/internal/tax"
)

// DefaultFallbackWindowDays is how far back a missing quotation may be taken from.
const DefaultFallbackWindowDays = 7

// ErrNoRecords is returned when a run has nothing to transform.
var ErrNoRecords = errors.New("no records to transform")

// Options are the run-wide transformation settings.
type Options struct {
	// ReferenceDate for real values. Nil means the latest record date.
	ReferenceDate *civil.Date

	FallbackWindowDays int
	Tax                tax.Options

	// TaxTable overrides the built-in rule table when non-nil.
	TaxTable tax.Table

	ContinuousCalendar bool
}

// DefaultOptions returns the built-in settings.
func DefaultOptions() Options {
	return Options{
		FallbackWindowDays: DefaultFallbackWindowDays,
		Tax:                tax.DefaultOptions(),
	}
}

// Result is the output of a transformation.
type Result struct {
	Schema  *model.StarSchema
	Log     *audit.Log
	Summary model.Summary
}

// Transform runs the pure core: normalize, adjust, tax and model. It performs
// no I/O; the same inputs always give the same schema.
func Transform(ctx context.Context, records []domain.RawRecord, quotations []domain.QuotationPoint, opts Options) (*Result, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("Transform: %w", ErrNoRecords)
	}

	state := &PipelineState{
		Options:    opts,
		Records:    assignIDs(records),
		Quotations: quotations,
		Log:        audit.NewLog(),
	}

	if err := NewTransformPipeline().Execute(ctx, state); err != nil {
		return nil, err
	}
	logTagCounts(ctx, state.Log)

	return &Result{
		Schema:  state.Schema,
		Log:     state.Log,
		Summary: state.Schema.Summary(),
	}, nil
}

// assignIDs copies records and fills empty IDs from the input position.
func assignIDs(records []domain.RawRecord) []domain.RawRecord {
	out := make([]domain.RawRecord, len(records))
	for i, r := range records {
		if r.ID == "" {
			r.ID = fmt.Sprintf("r%06d", i+1)
		}
		out[i] = r
	}
	return out
}

func latestDate(records []domain.RawRecord) civil.Date {
	var latest civil.Date
	for _, r := range records {
		if !latest.IsValid() || r.Date.After(latest) {
			latest = r.Date
		}
	}
	return latest
}

// logTagCounts writes one line with the number of audit tags per code.
func logTagCounts(ctx context.Context, tags *audit.Log) {
	counts := tags.CountByCode()
	codes := make([]string, 0, len(counts))
	for code := range counts {
		codes = append(codes, string(code))
	}
	sort.Strings(codes)

	log := logger.FromContext(ctx)
	ev := log.Info()
	for _, code := range codes {
		ev = ev.Int(code, counts[audit.Code(code)])
	}
	ev.Msg("Audit tags")
}
