package pipeline_test

import (
	"context"

	"github.com/dvloznov/ingresos-analytics/internal/domain"
	"github.com/dvloznov/ingresos-analytics/internal/model"
)

// MockRecordSource is a mock implementation of pipeline.RecordSource.
type MockRecordSource struct {
	FetchRecordsFunc func(ctx context.Context) ([]domain.RawRecord, error)
}

func (m *MockRecordSource) FetchRecords(ctx context.Context) ([]domain.RawRecord, error) {
	if m.FetchRecordsFunc != nil {
		return m.FetchRecordsFunc(ctx)
	}
	return nil, nil
}

// MockQuotationSource is a mock implementation of pipeline.QuotationSource.
type MockQuotationSource struct {
	FetchQuotationsFunc func(ctx context.Context) ([]domain.QuotationPoint, error)
}

func (m *MockQuotationSource) FetchQuotations(ctx context.Context) ([]domain.QuotationPoint, error) {
	if m.FetchQuotationsFunc != nil {
		return m.FetchQuotationsFunc(ctx)
	}
	return nil, nil
}

// MockLoader is a mock implementation of pipeline.Loader.
type MockLoader struct {
	LoadStarSchemaFunc func(ctx context.Context, runID string, schema *model.StarSchema) error
}

func (m *MockLoader) LoadStarSchema(ctx context.Context, runID string, schema *model.StarSchema) error {
	if m.LoadStarSchemaFunc != nil {
		return m.LoadStarSchemaFunc(ctx, runID, schema)
	}
	return nil
}

// MockRunRecorder is a mock implementation of pipeline.RunRecorder.
type MockRunRecorder struct {
	StartRunFunc         func(ctx context.Context, source string) (string, error)
	MarkRunSucceededFunc func(ctx context.Context, runID string, summary model.Summary) error
	MarkRunFailedFunc    func(ctx context.Context, runID string, runErr error)
}

func (m *MockRunRecorder) StartRun(ctx context.Context, source string) (string, error) {
	if m.StartRunFunc != nil {
		return m.StartRunFunc(ctx, source)
	}
	return "mock-run-id", nil
}

func (m *MockRunRecorder) MarkRunSucceeded(ctx context.Context, runID string, summary model.Summary) error {
	if m.MarkRunSucceededFunc != nil {
		return m.MarkRunSucceededFunc(ctx, runID, summary)
	}
	return nil
}

func (m *MockRunRecorder) MarkRunFailed(ctx context.Context, runID string, runErr error) {
	if m.MarkRunFailedFunc != nil {
		m.MarkRunFailedFunc(ctx, runID, runErr)
	}
}

// MockSnapshotStore is a mock implementation of pipeline.SnapshotStore.
type MockSnapshotStore struct {
	UploadSnapshotFunc func(ctx context.Context, runID string, data []byte) (string, error)
}

func (m *MockSnapshotStore) UploadSnapshot(ctx context.Context, runID string, data []byte) (string, error) {
	if m.UploadSnapshotFunc != nil {
		return m.UploadSnapshotFunc(ctx, runID, data)
	}
	return "gs://mock/" + runID + ".json", nil
}
