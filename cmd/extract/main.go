// Command extract runs the spreadsheet extraction stage over one workbook:
// it loads the discovery stage's schema document, extracts every mapped
// sheet, writes the results as JSON, and optionally persists them to a
// storage backend for the load stage.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"sheetetl/internal/extract"
	"sheetetl/internal/metrics"
	"sheetetl/internal/metrics/datadog"
	"sheetetl/internal/profile"
	"sheetetl/internal/schema"

	"sheetetl/internal/storage"

	// register all backends with the storage factory; flags pick which runs.
	_ "sheetetl/internal/storage/all"
)

func main() {
	var (
		filePath       string
		schemaPath     string
		profilePath    string
		outPath        string
		storageKind    string
		storageDSN     string
		metricsBackend string
		metricsTags    string
	)

	flag.StringVar(&filePath, "file", "", "workbook path (.xlsx), required")
	flag.StringVar(&schemaPath, "schema", "", "schema-discovery JSON path, required")
	flag.StringVar(&profilePath, "profiles", "configs/profiles.json", "sheet-layout profile JSON path (optional)")
	flag.StringVar(&outPath, "out", "-", "results JSON output path, or - for stdout")
	flag.StringVar(&storageKind, "storage-kind", "", "persist results to this backend (sqlite, postgres); empty disables")
	flag.StringVar(&storageDSN, "dsn", "", "storage DSN (env-expanded)")
	flag.StringVar(&metricsBackend, "metrics-backend", "none", "metrics backend to use (datadog, none)")
	flag.StringVar(&metricsTags, "metrics-tags", "", "extra metric tags, e.g. env:prod,team:data")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	if filePath == "" || schemaPath == "" {
		fatalf("-file and -schema are required")
	}

	sf, err := schema.LoadSchemaFile(schemaPath)
	if err != nil {
		fatalf("load schema: %v", err)
	}

	profiles, err := profile.Load(profilePath)
	if err != nil {
		fatalf("load profiles: %v", err)
	}

	ctx := context.Background()

	var backend metrics.Backend = metrics.Nop{}
	if metricsBackend == "datadog" {
		backend = datadog.NewBackend(ctx, datadog.Options{
			JobName: "extract",
			Tags:    datadog.ParseTagsCSV(metricsTags),
		})
	}
	defer backend.Close()

	orch := extract.NewOrchestrator(profiles)
	orch.OnSheet = func(res extract.Result, elapsed time.Duration) {
		status := "ok"
		if res.Stats.Extracted == 0 && res.Stats.Errored > 0 && res.Stats.Total == 0 {
			status = "failed"
		}
		backend.IncCounter(metrics.SheetsTotal, 1, metrics.Labels{"status": status})
		backend.IncCounter(metrics.RecordsTotal, float64(res.Stats.Extracted), metrics.Labels{"collection": res.TargetCollection})
		backend.IncCounter(metrics.RowErrorsTotal, float64(res.Stats.Errored), metrics.Labels{"collection": res.TargetCollection})
		backend.ObserveHistogram(metrics.SheetDurationSeconds, elapsed.Seconds(), metrics.Labels{"collection": res.TargetCollection})

		if *verbose {
			log.Printf("sheet %q -> %s: %d/%d records, %d errors (%.2fs)",
				res.SheetName, res.TargetCollection,
				res.Stats.Extracted, res.Stats.Total, res.Stats.Errored, elapsed.Seconds())
		}
	}

	runID := uuid.NewString()
	startedAt := time.Now()

	results := orch.Run(filePath, sf.SheetMappings)
	log.Printf("run %s: %s", runID, summarize(results))

	if err := writeResults(outPath, results); err != nil {
		fatalf("write results: %v", err)
	}

	if storageKind != "" {
		repo, err := storage.New(ctx, storage.Config{
			Kind: storageKind,
			DSN:  os.ExpandEnv(storageDSN),
		})
		if err != nil {
			fatalf("storage: %v", err)
		}
		defer repo.Close()

		if err := repo.EnsureSchema(ctx); err != nil {
			fatalf("storage schema: %v", err)
		}
		run := storage.Run{ID: runID, SourceFile: filePath, StartedAt: startedAt}
		if err := repo.SaveRun(ctx, run, results); err != nil {
			fatalf("save run: %v", err)
		}
		log.Printf("run %s persisted to %s", runID, storageKind)
	}
}

// summarize renders the one-line run summary logged at the end.
func summarize(results []extract.Result) string {
	var sheets, records, rowErrs, failed int
	for _, res := range results {
		sheets++
		records += res.Stats.Extracted
		rowErrs += res.Stats.Errored
		if res.Stats.Total == 0 && res.Stats.Errored > 0 {
			failed++
		}
	}
	return fmt.Sprintf("%d sheets, %d records, %d row errors, %d failed sheets",
		sheets, records, rowErrs, failed)
}

func writeResults(outPath string, results []extract.Result) error {
	b, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	if outPath == "-" {
		_, err := os.Stdout.Write(b)
		return err
	}
	return os.WriteFile(outPath, b, 0o644)
}

func fatalf(format string, args ...any) {
	log.Printf(format, args...)
	os.Exit(1)
}
