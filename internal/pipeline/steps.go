package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/ingresos-analytics/internal/adjust"
	"github.com/dvloznov/ingresos-analytics/internal/audit"
	"github.com/dvloznov/ingresos-analytics/internal/domain"
	"github.com/dvloznov/ingresos-analytics/internal/logger"
	"github.com/dvloznov/ingresos-analytics/internal/model"
	"github.com/dvloznov/ingresos-analytics/internal/normalize"
	"github.com/dvloznov/ingresos-analytics/internal/tax"
)

// PipelineStep represents a single step in the transformation pipeline.
type PipelineStep interface {
	Name() string
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Options Options

	Records    []domain.RawRecord
	Quotations []domain.QuotationPoint
	Log        *audit.Log

	Normalized []domain.NormalizedAmount
	Series     *adjust.Series
	Reference  domain.QuotationPoint
	Adjusted   []domain.AdjustedRecord
	Taxed      []domain.TaxedRecord
	Schema     *model.StarSchema
}

// Step 1: NormalizeStep parses every amount text.
type NormalizeStep struct {
	Normalizer *normalize.Normalizer
}

func (s *NormalizeStep) Name() string { return "normalize" }

func (s *NormalizeStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)
	n := s.Normalizer
	if n == nil {
		n = normalize.New()
	}

	state.Normalized = make([]domain.NormalizedAmount, len(state.Records))
	counts := map[domain.ParseConfidence]int{}
	for i, rec := range state.Records {
		state.Normalized[i] = n.Normalize(rec, state.Log)
		counts[state.Normalized[i].Confidence]++
	}

	log.Info().
		Int("records", len(state.Records)).
		Int("exact", counts[domain.ConfidenceExact]).
		Int("inferred", counts[domain.ConfidenceInferred]).
		Int("unparseable", counts[domain.ConfidenceUnparseable]).
		Msg("Normalized amounts")
	return nil
}

// Step 2: AdjustStep builds the quotation series and converts every amount.
type AdjustStep struct{}

func (s *AdjustStep) Name() string { return "adjust" }

func (s *AdjustStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	series, err := adjust.NewSeries(state.Quotations)
	if err != nil {
		return err
	}
	state.Series = series

	refDate := state.Options.ReferenceDate
	if refDate == nil {
		latest := latestDate(state.Records)
		refDate = &latest
	}

	adjuster, err := adjust.New(series, adjust.Options{
		ReferenceDate:      *refDate,
		FallbackWindowDays: state.Options.FallbackWindowDays,
	})
	if err != nil {
		return err
	}
	state.Reference = adjuster.Reference()

	state.Adjusted = make([]domain.AdjustedRecord, 0, len(state.Records))
	unadjusted := 0
	for i, rec := range state.Records {
		out, err := adjuster.Adjust(rec, state.Normalized[i], state.Log)
		if err != nil {
			return err
		}
		if !out.Adjusted {
			unadjusted++
			log.Debug().Str("record_id", rec.ID).Str("date", rec.Date.String()).Msg("Record left unadjusted")
		}
		state.Adjusted = append(state.Adjusted, out)
	}

	log.Info().
		Int("quotations", series.Len()).
		Str("reference_date", state.Reference.Date.String()).
		Str("reference_rate", state.Reference.ARSPerUSD.String()).
		Int("unadjusted", unadjusted).
		Msg("Adjusted amounts")
	return nil
}

// Step 3: TaxStep splits gross into withheld and net.
type TaxStep struct{}

func (s *TaxStep) Name() string { return "tax" }

func (s *TaxStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	table := state.Options.TaxTable
	if table == nil {
		table = tax.DefaultTable()
	}
	engine, err := tax.NewEngine(table, state.Options.Tax)
	if err != nil {
		return err
	}

	taxed, err := engine.ApplyAll(state.Adjusted, state.Log)
	if err != nil {
		return err
	}
	state.Taxed = taxed

	gross, withheld, net, native := tax.Totals(taxed)
	log.Info().
		Str("gross_ars", gross.String()).
		Str("withheld_ars", withheld.String()).
		Str("net_ars", net.String()).
		Int("native_usd", native).
		Msg("Applied tax rules")
	return nil
}

// Step 4: ModelStep assembles and validates the star schema.
type ModelStep struct{}

func (s *ModelStep) Name() string { return "model" }

func (s *ModelStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	schema, err := model.Build(state.Taxed, state.Log, model.Options{
		Reference:          state.Reference,
		ContinuousCalendar: state.Options.ContinuousCalendar,
	})
	if err != nil {
		return err
	}
	state.Schema = schema

	log.Info().
		Int("facts", len(schema.Facts)).
		Int("dim_calendario", len(schema.Calendario)).
		Int("dim_medios_pago", len(schema.MediosPago)).
		Int("dim_cotizacion", len(schema.Cotizacion)).
		Msg("Built star schema")
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially and stops at the first error.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d (%s) failed: %w", i+1, step.Name(), err)
		}
	}
	return nil
}

// NewTransformPipeline creates the standard 4-step transformation pipeline.
func NewTransformPipeline() *Pipeline {
	return NewPipeline(
		&NormalizeStep{},
		&AdjustStep{},
		&TaxStep{},
		&ModelStep{},
	)
}
