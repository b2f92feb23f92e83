package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/ingresos-analytics/internal/config"
	"github.com/dvloznov/ingresos-analytics/internal/domain"
	infraBQ "github.com/dvloznov/ingresos-analytics/internal/infra/bigquery"
	"github.com/dvloznov/ingresos-analytics/internal/model"
	"github.com/dvloznov/ingresos-analytics/internal/tax"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTaxTableEmptyPath(t *testing.T) {
	table, err := loadTaxTable(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, table)
}

func TestLoadTaxTableLocalFile(t *testing.T) {
	data, err := tax.MarshalTable(tax.DefaultTable())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	table, err := loadTaxTable(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, len(tax.DefaultTable()), len(table))

	require.NoError(t, os.WriteFile(path, []byte("rules: [ {name: x} ]"), 0o644))
	_, err = loadTaxTable(context.Background(), path)
	assert.Error(t, err)
}

func TestSheetLayout(t *testing.T) {
	layout, err := sheetLayout(config.Config{RegisteredCondition: "monotributo"})
	require.NoError(t, err)
	assert.Equal(t, domain.FiscalConditionMonotributo.String(), layout.Channels["C"].Condition)
	assert.True(t, layout.MaxDate.IsValid())

	_, err = sheetLayout(config.Config{RegisteredCondition: "nope"})
	assert.Error(t, err)
}

func TestWriteOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, writeOutput(path, []byte("{}\n")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(got))
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, "run-1", "gs://b/runs/run-1.json", model.Summary{
		Facts:      3,
		Adjusted:   2,
		Unadjusted: 1,
		NominalARS: decimal.NewFromInt(15000),
		Net:        decimal.RequireFromString("12396.694"),
	})

	out := buf.String()
	assert.Contains(t, out, "Run ID:        run-1")
	assert.Contains(t, out, "Facts:         3 (adjusted 2, unadjusted 1, exact 0, unparseable 0)")
	assert.Contains(t, out, "Nominal ARS:   15000.00")
	assert.Contains(t, out, "Net:           12396.69")
	assert.NotContains(t, out, "Taxed in USD")

	buf.Reset()
	printSummary(&buf, "", "", model.Summary{
		Facts:          2,
		Gross:          decimal.NewFromInt(1000),
		Net:            decimal.NewFromInt(900),
		TaxedNative:    1,
		NativeUSDGross: decimal.NewFromInt(100),
		NativeUSDNet:   decimal.NewFromInt(90),
	})
	out = buf.String()
	assert.Contains(t, out, "Gross:         1000.00")
	assert.Contains(t, out, "Taxed in USD:  1 (gross 100.00, net 90.00; not in ARS totals)")
}

func TestPrintRuns(t *testing.T) {
	var empty bytes.Buffer
	printRuns(&empty, nil)
	assert.Equal(t, "No runs recorded.\n", empty.String())

	started := time.Date(2024, 5, 2, 10, 30, 0, 0, time.UTC)
	var buf bytes.Buffer
	printRuns(&buf, []*infraBQ.ETLRunRow{
		{
			RunID:     "run-ok",
			Source:    bigquery.NullString{StringVal: "sheets:abc", Valid: true},
			StartedTS: started,
			Status:    infraBQ.RunStatusSuccess,
			Facts:     bigquery.NullInt64{Int64: 42, Valid: true},
		},
		{
			RunID:        "run-bad",
			Source:       bigquery.NullString{StringVal: "sheets:abc", Valid: true},
			StartedTS:    started,
			Status:       infraBQ.RunStatusFailed,
			ErrorMessage: bigquery.NullString{StringVal: "unknown_tax_rule: 1 record(s) without a tax rule", Valid: true},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "RUN ID")
	assert.Contains(t, out, "2024-05-02T10:30:00Z")
	assert.Contains(t, out, "42  sheets:abc")
	assert.Contains(t, out, "unknown_tax_rule")
}

func TestPrintRuns_TruncatesByCharacter(t *testing.T) {
	msg := strings.Repeat("ñ", 79) + "ó después del límite"
	var buf bytes.Buffer
	printRuns(&buf, []*infraBQ.ETLRunRow{{
		RunID:        "run-bad",
		StartedTS:    time.Date(2024, 5, 2, 10, 30, 0, 0, time.UTC),
		Status:       infraBQ.RunStatusFailed,
		ErrorMessage: bigquery.NullString{StringVal: msg, Valid: true},
	}})

	out := buf.String()
	assert.True(t, utf8.ValidString(out), "output cut inside a character")
	assert.Contains(t, out, strings.Repeat("ñ", 79)+"ó...")
	assert.NotContains(t, out, "después")
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"corto", 10, "corto"},
		{"exacto", 6, "exacto"},
		{"cotización", 8, "cotizaci..."},
		{"añoñoño", 3, "año..."},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, truncateRunes(tt.in, tt.n))
		})
	}
}
