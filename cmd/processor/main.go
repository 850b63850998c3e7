package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"edupulse/internal/config"
	"edupulse/internal/dataprocessing"
	"edupulse/internal/exporter"
	"edupulse/internal/infrastructure"
	"edupulse/internal/services"
	"edupulse/internal/state"
)

func main() {
	activity := flag.String("activity", "ACTIVITY_LOG.csv", "path to the activity log CSV")
	userLog := flag.String("userlog", "USER_LOG.csv", "path to the user log CSV")
	codes := flag.String("codes", "COMPONENT_CODES.csv", "path to the component codes CSV")
	out := flag.String("out", "", "output workbook path (defaults to <reports dir>/engagement.xlsx)")
	csvDir := flag.String("csvdir", "", "also write stage tables as CSV files into this directory")
	bucket := flag.String("bucket", "", "time bucket granularity: month | day (overrides config)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if *bucket != "" {
		cfg.Pipeline.BucketGranularity = *bucket
		if !cfg.Pipeline.Granularity().Valid() {
			slog.Error("Invalid bucket granularity", "bucket", *bucket)
			os.Exit(1)
		}
	}
	if *out == "" {
		*out = filepath.Join(cfg.Paths.ReportsDir, "engagement.xlsx")
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	logger.Info("Starting engagement pipeline",
		slog.String("activity_log", *activity),
		slog.String("user_log", *userLog),
		slog.String("component_codes", *codes),
		slog.String("output", *out),
		slog.String("bucket", cfg.Pipeline.BucketGranularity))

	store, err := state.Open(cfg.Paths.StateFile)
	if err != nil {
		logger.Warn("Run history disabled", slog.String("error", err.Error()))
		store = nil
	}

	pipeline := services.NewPipelineService(cfg, logger, store)
	ctx := context.Background()
	paths := dataprocessing.SourcePaths{
		ActivityLog:    *activity,
		UserLog:        *userLog,
		ComponentCodes: *codes,
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"load", func() error { return pipeline.Load(ctx, paths) }},
		{"clean", func() error { return pipeline.Clean(ctx) }},
		{"merge", func() error { return pipeline.Merge(ctx) }},
		{"reshape", func() error { return pipeline.Reshape(ctx) }},
		{"aggregate", func() error { return pipeline.Aggregate(ctx) }},
		{"export", func() error { return pipeline.Export(ctx, *out) }},
	}

	for i, step := range steps {
		fmt.Printf("Stage %d of %d: %s\n", i+1, len(steps), step.name)
		if err := step.run(); err != nil {
			logger.Error("Stage failed",
				slog.String("stage", step.name),
				slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	if *csvDir != "" {
		tables := exporter.NewTableExporter(*csvDir)
		csvSteps := []struct {
			file string
			run  func(string) error
		}{
			{"processed.csv", func(p string) error { return tables.ExportDataset(p, pipeline.ProcessedDataset()) }},
			{"reshaped.csv", func(p string) error { return tables.ExportReshaped(p, pipeline.ReshapedTable()) }},
			{"interaction_counts.csv", func(p string) error { return tables.ExportInteractionCounts(p, pipeline.Summary()) }},
		}
		for _, cs := range csvSteps {
			if err := cs.run(cs.file); err != nil {
				logger.Error("CSV export failed",
					slog.String("file", cs.file),
					slog.String("error", err.Error()))
				os.Exit(1)
			}
		}
		fmt.Printf("Stage tables written to %s\n", *csvDir)
	}

	diag := pipeline.Diagnostics()
	summary := pipeline.Summary()
	fmt.Printf("Pipeline complete: %d interactions across %d users\n",
		summary.TotalInteractions, len(summary.UserTotals))
	if diag.Dropped() > 0 {
		fmt.Printf("Dropped rows: %d unmatched users, %d unmatched components, %d excluded\n",
			diag.UnmatchedUsers, diag.UnmatchedComponents, diag.ExcludedComponents)
	}
	fmt.Printf("Workbook written to %s\n", *out)
}
