package pipeline

import (
	"context"

	"github.com/dvloznov/ingresos-analytics/internal/domain"
	"github.com/dvloznov/ingresos-analytics/internal/model"
)

// RecordSource provides the raw sales records of a run.
type RecordSource interface {
	FetchRecords(ctx context.Context) ([]domain.RawRecord, error)
}

// QuotationSource provides the ARS/USD quotation series.
type QuotationSource interface {
	FetchQuotations(ctx context.Context) ([]domain.QuotationPoint, error)
}

// Loader persists a finished star schema. Every run replaces the previous load.
type Loader interface {
	LoadStarSchema(ctx context.Context, runID string, schema *model.StarSchema) error
}

// RunRecorder tracks run status in the etl_runs table.
type RunRecorder interface {
	StartRun(ctx context.Context, source string) (string, error)
	MarkRunSucceeded(ctx context.Context, runID string, summary model.Summary) error
	MarkRunFailed(ctx context.Context, runID string, runErr error)
}

// SnapshotStore keeps the JSON snapshot of a run and returns its URI.
type SnapshotStore interface {
	UploadSnapshot(ctx context.Context, runID string, data []byte) (string, error)
}
