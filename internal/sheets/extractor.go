// Package sheets extracts raw sales records from the wide sales spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/ingresos-analytics/internal/domain"
	"github.com/dvloznov/ingresos-analytics/internal/logger"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// ValuesGetter reads a range of cell values.
type ValuesGetter interface {
	GetValues(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error)
}

// Extractor reads the sales sheet and melts it into raw records.
type Extractor struct {
	getter        ValuesGetter
	spreadsheetID string
	readRange     string
	layout        Layout
}

// NewExtractor creates an extractor over the Google Sheets API.
func NewExtractor(ctx context.Context, spreadsheetID, readRange string, layout Layout, opts ...option.ClientOption) (*Extractor, error) {
	if spreadsheetID == "" {
		return nil, errors.New("NewExtractor: spreadsheet ID is required")
	}
	opts = append([]option.ClientOption{option.WithScopes(gsheets.SpreadsheetsReadonlyScope)}, opts...)
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewExtractor: creating sheets service: %w", err)
	}
	return NewExtractorWithGetter(&apiGetter{svc: svc}, spreadsheetID, readRange, layout), nil
}

// NewExtractorWithGetter creates an extractor over any values source.
func NewExtractorWithGetter(getter ValuesGetter, spreadsheetID, readRange string, layout Layout) *Extractor {
	return &Extractor{
		getter:        getter,
		spreadsheetID: spreadsheetID,
		readRange:     readRange,
		layout:        layout,
	}
}

// FetchRecords reads the sheet and melts it, logging every skipped row.
func (e *Extractor) FetchRecords(ctx context.Context) ([]domain.RawRecord, error) {
	log := logger.FromContext(ctx)

	values, err := e.getter.GetValues(ctx, e.spreadsheetID, e.readRange)
	if err != nil {
		return nil, fmt.Errorf("FetchRecords: reading %s: %w", e.readRange, err)
	}

	result, err := Melt(StringRows(values), e.layout)
	if err != nil {
		return nil, fmt.Errorf("FetchRecords: %w", err)
	}

	for _, s := range result.Skipped {
		log.Warn().
			Int("row", s.Row).
			Str("reason", string(s.Reason)).
			Str("detail", s.Detail).
			Msg("Skipped sheet row")
	}
	log.Info().
		Int("rows", len(values)).
		Int("records", len(result.Records)).
		Int("skipped", len(result.Skipped)).
		Msg("Extracted sheet records")

	return result.Records, nil
}

// StringRows converts API cell values to strings.
func StringRows(values [][]interface{}) [][]string {
	rows := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, v := range row {
			if v != nil {
				cells[j] = fmt.Sprint(v)
			}
		}
		rows[i] = cells
	}
	return rows
}

type apiGetter struct {
	svc *gsheets.Service
}

func (g *apiGetter) GetValues(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(spreadsheetID, readRange).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}
