// Package csvio reads local CSV exports of the sales sheet and the quotation series.
package csvio

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dvloznov/ingresos-analytics/internal/domain"
	"github.com/dvloznov/ingresos-analytics/internal/logger"
	"github.com/dvloznov/ingresos-analytics/internal/quotation"
	"github.com/dvloznov/ingresos-analytics/internal/sheets"
)

// Header names accepted for the quotation file.
var (
	dateHeaders = []string{"fecha", "date"}
	rateHeaders = []string{"cotizacion_blue", "cotizacion", "venta", "ars_per_usd"}
)

// RecordFile reads a wide sales sheet export.
type RecordFile struct {
	Path   string
	Layout sheets.Layout
}

// NewRecordFile creates a record source over the CSV at path.
func NewRecordFile(path string, layout sheets.Layout) *RecordFile {
	return &RecordFile{Path: path, Layout: layout}
}

// FetchRecords reads and melts the export, logging every skipped row.
func (f *RecordFile) FetchRecords(ctx context.Context) ([]domain.RawRecord, error) {
	log := logger.FromContext(ctx)

	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open record file %s: %w", f.Path, err)
	}
	defer file.Close()

	result, err := ReadRecords(file, f.Layout)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.Path, err)
	}
	for _, s := range result.Skipped {
		log.Warn().Int("row", s.Row).Str("reason", string(s.Reason)).Str("detail", s.Detail).Msg("Skipped CSV row")
	}
	log.Info().Str("path", f.Path).Int("records", len(result.Records)).Int("skipped", len(result.Skipped)).Msg("Read record file")
	return result.Records, nil
}

// ReadRecords melts a wide sheet read from r.
func ReadRecords(r io.Reader, layout sheets.Layout) (*sheets.MeltResult, error) {
	rows, err := readAll(r)
	if err != nil {
		return nil, err
	}
	return sheets.Melt(rows, layout)
}

// QuotationFile reads a two-column quotation export.
type QuotationFile struct {
	Path string
}

// NewQuotationFile creates a quotation source over the CSV at path.
func NewQuotationFile(path string) *QuotationFile {
	return &QuotationFile{Path: path}
}

// FetchQuotations reads the export.
func (f *QuotationFile) FetchQuotations(ctx context.Context) ([]domain.QuotationPoint, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open quotation file %s: %w", f.Path, err)
	}
	defer file.Close()

	points, err := ReadQuotations(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.Path, err)
	}
	log := logger.FromContext(ctx)
	log.Info().Str("path", f.Path).Int("points", len(points)).Msg("Read quotation file")
	return points, nil
}

// ReadQuotations parses a quotation CSV with a date column and a rate
// column. Dates are day first or ISO; rates may use Argentine separators.
// Later rows win over earlier rows for the same date.
func ReadQuotations(r io.Reader) ([]domain.QuotationPoint, error) {
	rows, err := readAll(r)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("quotation file is empty")
	}

	dateIdx := findColumn(rows[0], dateHeaders)
	rateIdx := findColumn(rows[0], rateHeaders)
	if dateIdx < 0 || rateIdx < 0 {
		return nil, fmt.Errorf("quotation header %v needs a date and a rate column", rows[0])
	}

	points := make([]domain.QuotationPoint, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2
		if dateIdx >= len(row) || rateIdx >= len(row) {
			return nil, fmt.Errorf("line %d: short row", line)
		}
		d, err := sheets.ParseDayFirst(row[dateIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rate, err := quotation.ParseRate(row[rateIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		points = append(points, domain.QuotationPoint{Date: d, ARSPerUSD: rate})
	}
	return quotation.Merge(points), nil
}

func readAll(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading record: %w", err)
		}
		rows = append(rows, record)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

func findColumn(header []string, names []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, name := range names {
			if h == name {
				return i
			}
		}
	}
	return -1
}
