package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ingresos-analytics/internal/config"
	"github.com/dvloznov/ingresos-analytics/internal/csvio"
	"github.com/dvloznov/ingresos-analytics/internal/domain"
	infraBQ "github.com/dvloznov/ingresos-analytics/internal/infra/bigquery"
	"github.com/dvloznov/ingresos-analytics/internal/logger"
	"github.com/dvloznov/ingresos-analytics/internal/model"
	"github.com/dvloznov/ingresos-analytics/internal/pipeline"
	"github.com/dvloznov/ingresos-analytics/internal/sheets"
	"github.com/dvloznov/ingresos-analytics/internal/tax"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := logger.NewWithLevel(level)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runETL(log, cfg)
	case "transform":
		runTransform(log, cfg)
	case "rules":
		runRules(log, cfg)
	case "runs":
		runList(log, cfg)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Ingresos Analytics CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  run        Extract from Google Sheets and Ámbito, transform and load")
	fmt.Println("  transform  Transform local CSV exports and write the JSON snapshot")
	fmt.Println("  rules      Print the effective tax rule table as YAML")
	fmt.Println("  runs       List recent runs recorded in BigQuery")
	fmt.Println("  help       Show this help message")
	fmt.Println("\nSettings come from the environment or a .env file; flags override them.")
	fmt.Println("Run 'cli <command> -h' for more information on a command.")
}

func runETL(log zerolog.Logger, cfg config.Config) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	target := fs.String("target", cfg.LoadTarget, "Load target: bigquery, postgres or none")
	reference := fs.String("reference", cfg.ReferenceDate, "Reference date for real values (YYYY-MM-DD)")
	rulesPath := fs.String("rules", cfg.TaxRulesPath, "Tax rule table (local path or gs:// URI)")
	timeout := fs.Duration("timeout", 10*time.Minute, "Overall run timeout")
	fs.Parse(os.Args[2:])

	cfg.LoadTarget = *target
	cfg.ReferenceDate = *reference
	cfg.TaxRulesPath = *rulesPath
	if cfg.SheetID == "" {
		log.Fatal().Msg("Error: SHEET_ID is required")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	opts, err := transformOptions(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build transform options")
	}

	deps, cleanup, err := buildDeps(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up collaborators")
	}
	defer cleanup()

	result, err := pipeline.RunWithDeps(ctx, deps, opts)
	if err != nil {
		cleanup()
		log.Fatal().Err(err).Msg("Run failed")
	}

	printSummary(os.Stdout, result.RunID, result.SnapshotURI, result.Summary)
}

func runTransform(log zerolog.Logger, cfg config.Config) {
	fs := flag.NewFlagSet("transform", flag.ExitOnError)
	recordsPath := fs.String("records", "", "CSV export of the sales sheet")
	quotesPath := fs.String("quotations", "", "CSV of fecha,cotizacion rows")
	outPath := fs.String("out", "-", "Snapshot output file, - for stdout")
	reference := fs.String("reference", cfg.ReferenceDate, "Reference date for real values (YYYY-MM-DD)")
	rulesPath := fs.String("rules", cfg.TaxRulesPath, "Tax rule table (local path or gs:// URI)")
	registered := fs.String("registered", cfg.RegisteredCondition, "Fiscal condition of the declared channels")
	fs.Parse(os.Args[2:])

	if *recordsPath == "" || *quotesPath == "" {
		log.Fatal().Msg("Usage: cli transform -records FILE -quotations FILE [-out FILE]")
	}
	cfg.ReferenceDate = *reference
	cfg.TaxRulesPath = *rulesPath
	cfg.RegisteredCondition = *registered
	cfg.LoadTarget = config.TargetNone
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	opts, err := transformOptions(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build transform options")
	}
	layout, err := sheetLayout(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid sheet layout")
	}

	records, err := csvio.NewRecordFile(*recordsPath, layout).FetchRecords(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read records")
	}
	quotes, err := csvio.NewQuotationFile(*quotesPath).FetchQuotations(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read quotations")
	}

	result, err := pipeline.Transform(ctx, records, quotes, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("Transform failed")
	}

	data, err := result.Schema.JSON()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode snapshot")
	}
	if err := writeOutput(*outPath, data); err != nil {
		log.Fatal().Err(err).Msg("Failed to write snapshot")
	}

	printSummary(os.Stderr, "", *outPath, result.Summary)
}

func runRules(log zerolog.Logger, cfg config.Config) {
	fs := flag.NewFlagSet("rules", flag.ExitOnError)
	rulesPath := fs.String("rules", cfg.TaxRulesPath, "Tax rule table (local path or gs:// URI)")
	fs.Parse(os.Args[2:])

	ctx := logger.WithContext(context.Background(), log)

	table, err := loadTaxTable(ctx, *rulesPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load tax rules")
	}
	if table == nil {
		table = tax.DefaultTable()
	}

	data, err := tax.MarshalTable(table)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode tax rules")
	}
	os.Stdout.Write(data)
}

func runList(log zerolog.Logger, cfg config.Config) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Number of runs to show")
	fs.Parse(os.Args[2:])

	if cfg.BQProjectID == "" {
		log.Fatal().Msg("Error: BQ_PROJECT_ID is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := infraBQ.NewRepository(ctx, cfg.BQProjectID, cfg.BQDataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
	}
	defer repo.Close()

	runs, err := repo.ListRuns(ctx, *limit)
	if err != nil {
		repo.Close()
		log.Fatal().Err(err).Msg("Failed to list runs")
	}

	printRuns(os.Stdout, runs)
}

func transformOptions(ctx context.Context, cfg config.Config) (pipeline.Options, error) {
	opts, err := cfg.TransformOptions()
	if err != nil {
		return pipeline.Options{}, err
	}
	table, err := loadTaxTable(ctx, cfg.TaxRulesPath)
	if err != nil {
		return pipeline.Options{}, err
	}
	opts.TaxTable = table
	return opts, nil
}

func sheetLayout(cfg config.Config) (sheets.Layout, error) {
	registered, err := domain.ParseFiscalCondition(cfg.RegisteredCondition)
	if err != nil {
		return sheets.Layout{}, err
	}
	layout := sheets.DefaultLayout(registered)
	layout.MaxDate = civil.DateOf(time.Now())
	return layout, nil
}

func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func printSummary(w io.Writer, runID, location string, s model.Summary) {
	fmt.Fprintln(w, "\n=== Run Summary ===")
	if runID != "" {
		fmt.Fprintf(w, "Run ID:        %s\n", runID)
	}
	if location != "" {
		fmt.Fprintf(w, "Snapshot:      %s\n", location)
	}
	fmt.Fprintf(w, "Facts:         %d (adjusted %d, unadjusted %d, exact %d, unparseable %d)\n",
		s.Facts, s.Adjusted, s.Unadjusted, s.Exact, s.Unparseable)
	fmt.Fprintf(w, "Nominal ARS:   %s\n", s.NominalARS.StringFixed(2))
	fmt.Fprintf(w, "Real ARS:      %s\n", s.RealARS.StringFixed(2))
	fmt.Fprintf(w, "USD:           %s\n", s.USDEquivalent.StringFixed(2))
	fmt.Fprintf(w, "Gross:         %s\n", s.Gross.StringFixed(2))
	fmt.Fprintf(w, "Tax withheld:  %s\n", s.TaxWithheld.StringFixed(2))
	fmt.Fprintf(w, "Net:           %s\n", s.Net.StringFixed(2))
	if s.TaxedNative > 0 {
		fmt.Fprintf(w, "Taxed in USD:  %d (gross %s, net %s; not in ARS totals)\n",
			s.TaxedNative, s.NativeUSDGross.StringFixed(2), s.NativeUSDNet.StringFixed(2))
	}
}

// truncateRunes cuts s to at most n characters, never inside a UTF-8 sequence.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func printRuns(w io.Writer, runs []*infraBQ.ETLRunRow) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	fmt.Fprintf(w, "%-36s  %-20s  %-8s  %6s  %s\n", "RUN ID", "STARTED", "STATUS", "FACTS", "DETAIL")
	for _, r := range runs {
		facts := "-"
		if r.Facts.Valid {
			facts = fmt.Sprintf("%d", r.Facts.Int64)
		}
		detail := r.Source.StringVal
		if r.Status == infraBQ.RunStatusFailed && r.ErrorMessage.Valid {
			detail = truncateRunes(r.ErrorMessage.StringVal, 80)
		}
		fmt.Fprintf(w, "%-36s  %-20s  %-8s  %6s  %s\n",
			r.RunID, r.StartedTS.UTC().Format(time.RFC3339), r.Status, facts, detail)
	}
}
