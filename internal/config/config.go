// Package config loads run settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ingresos-analytics/internal/domain"
	"github.com/dvloznov/ingresos-analytics/internal/logger"
	"github.com/dvloznov/ingresos-analytics/internal/pipeline"
	"github.com/dvloznov/ingresos-analytics/internal/tax"
	"github.com/joho/godotenv"
)

// Load targets.
const (
	TargetNone     = "none"
	TargetBigQuery = "bigquery"
	TargetPostgres = "postgres"
)

// Config holds application configuration.
type Config struct {
	LogLevel string

	// Core options.
	ReferenceDate      string
	FallbackDays       int64
	RoundingPlaces     int64
	RoundingMode       string
	TaxRulesPath       string
	ContinuousCalendar bool

	// Extraction.
	SheetID             string
	SheetRange          string
	RegisteredCondition string
	QuotationBaseURL    string
	QuotationStartDate  string
	QuotationLive       bool
	HTTPTimeoutSeconds  int64

	// Loading.
	LoadTarget     string
	BQProjectID    string
	BQDataset      string
	DatabaseURL    string
	SnapshotBucket string
	RecordRuns     bool
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		LogLevel: getenv("LOG_LEVEL", "info"),

		ReferenceDate:      strings.TrimSpace(getenv("REFERENCE_DATE", "")),
		FallbackDays:       getenvInt64("QUOTATION_FALLBACK_DAYS", pipeline.DefaultFallbackWindowDays),
		RoundingPlaces:     getenvInt64("TAX_ROUNDING_PLACES", 2),
		RoundingMode:       strings.ToLower(getenv("TAX_ROUNDING_MODE", string(tax.RoundHalfEven))),
		TaxRulesPath:       strings.TrimSpace(getenv("TAX_RULES_PATH", "")),
		ContinuousCalendar: getenvBool("CONTINUOUS_CALENDAR", false),

		SheetID:             strings.TrimSpace(getenv("SHEET_ID", "")),
		SheetRange:          getenv("SHEET_RANGE", "A1:Z"),
		RegisteredCondition: getenv("SHEET_REGISTERED_CONDITION", "responsable_inscripto"),
		QuotationBaseURL:    strings.TrimRight(getenv("QUOTATION_BASE_URL", "https://mercados.ambito.com"), "/"),
		QuotationStartDate:  getenv("QUOTATION_START_DATE", "2022-01-01"),
		QuotationLive:       getenvBool("QUOTATION_LIVE", true),
		HTTPTimeoutSeconds:  getenvInt64("HTTP_TIMEOUT_SECONDS", 10),

		LoadTarget:     strings.ToLower(getenv("LOAD_TARGET", TargetNone)),
		BQProjectID:    strings.TrimSpace(getenv("BQ_PROJECT_ID", "")),
		BQDataset:      getenv("BQ_DATASET", "ingresos"),
		DatabaseURL:    strings.TrimSpace(getenv("DATABASE_URL", "")),
		SnapshotBucket: strings.TrimSpace(getenv("SNAPSHOT_BUCKET", "")),
		RecordRuns:     getenvBool("RECORD_RUNS", true),
	}
}

// Validate checks the core options and the settings the load target needs.
func (c Config) Validate() error {
	var errs []error

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.referenceDate(); err != nil {
		errs = append(errs, err)
	}
	if c.FallbackDays < 0 {
		errs = append(errs, fmt.Errorf("QUOTATION_FALLBACK_DAYS must be >= 0, got %d", c.FallbackDays))
	}
	if c.RoundingPlaces < 0 || c.RoundingPlaces > 6 {
		errs = append(errs, fmt.Errorf("TAX_ROUNDING_PLACES must be between 0 and 6, got %d", c.RoundingPlaces))
	}
	if _, err := tax.ParseRoundingMode(c.RoundingMode); err != nil {
		errs = append(errs, fmt.Errorf("TAX_ROUNDING_MODE: %w", err))
	}
	if _, err := domain.ParseFiscalCondition(c.RegisteredCondition); err != nil {
		errs = append(errs, fmt.Errorf("SHEET_REGISTERED_CONDITION: %w", err))
	}
	if _, err := civil.ParseDate(c.QuotationStartDate); err != nil {
		errs = append(errs, fmt.Errorf("QUOTATION_START_DATE: %w", err))
	}

	switch c.LoadTarget {
	case TargetNone:
	case TargetBigQuery:
		if c.BQProjectID == "" {
			errs = append(errs, errors.New("BQ_PROJECT_ID is required for LOAD_TARGET=bigquery"))
		}
	case TargetPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for LOAD_TARGET=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LOAD_TARGET %q", c.LoadTarget))
	}

	return errors.Join(errs...)
}

// TransformOptions converts the core settings. The tax table is left nil
// (built-in) and is overridden by the caller when TaxRulesPath is set.
func (c Config) TransformOptions() (pipeline.Options, error) {
	mode, err := tax.ParseRoundingMode(c.RoundingMode)
	if err != nil {
		return pipeline.Options{}, fmt.Errorf("TransformOptions: %w", err)
	}
	ref, err := c.referenceDate()
	if err != nil {
		return pipeline.Options{}, fmt.Errorf("TransformOptions: %w", err)
	}

	return pipeline.Options{
		ReferenceDate:      ref,
		FallbackWindowDays: int(c.FallbackDays),
		Tax:                tax.Options{Places: int32(c.RoundingPlaces), Mode: mode},
		ContinuousCalendar: c.ContinuousCalendar,
	}, nil
}

func (c Config) referenceDate() (*civil.Date, error) {
	if c.ReferenceDate == "" {
		return nil, nil
	}
	d, err := civil.ParseDate(c.ReferenceDate)
	if err != nil {
		return nil, fmt.Errorf("REFERENCE_DATE: %w", err)
	}
	return &d, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}
