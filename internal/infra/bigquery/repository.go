package bigquery

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/ingresos-analytics/internal/model"
)

// Repository loads star schemas and records etl_runs in one dataset. It holds
// a shared BigQuery client to avoid creating a new connection per operation.
type Repository struct {
	client    *bigquery.Client
	datasetID string
}

// NewRepository creates a repository for project and dataset.
func NewRepository(ctx context.Context, projectID, datasetID string) (*Repository, error) {
	if projectID == "" || datasetID == "" {
		return nil, errors.New("NewRepository: project and dataset are required")
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return &Repository{client: client, datasetID: datasetID}, nil
}

// Close closes the BigQuery client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// LoadStarSchema delegates to LoadStarSchemaWithClient with the shared client.
func (r *Repository) LoadStarSchema(ctx context.Context, runID string, schema *model.StarSchema) error {
	return LoadStarSchemaWithClient(ctx, r.client, r.datasetID, runID, schema)
}

// StartRun delegates to StartRunWithClient with the shared client.
func (r *Repository) StartRun(ctx context.Context, source string) (string, error) {
	return StartRunWithClient(ctx, r.client, r.datasetID, source)
}

// MarkRunSucceeded delegates to MarkRunSucceededWithClient with the shared client.
func (r *Repository) MarkRunSucceeded(ctx context.Context, runID string, summary model.Summary) error {
	return MarkRunSucceededWithClient(ctx, r.client, r.datasetID, runID, summary)
}

// MarkRunFailed delegates to MarkRunFailedWithClient with the shared client.
func (r *Repository) MarkRunFailed(ctx context.Context, runID string, runErr error) {
	MarkRunFailedWithClient(ctx, r.client, r.datasetID, runID, runErr)
}

// ListRuns delegates to ListRunsWithClient with the shared client.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]*ETLRunRow, error) {
	return ListRunsWithClient(ctx, r.client, r.datasetID, limit)
}
