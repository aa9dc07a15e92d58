package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/couchcryptid/storm-impact-report/internal/adapter/csvfile"
	"github.com/couchcryptid/storm-impact-report/internal/adapter/render"
	"github.com/couchcryptid/storm-impact-report/internal/config"
	"github.com/couchcryptid/storm-impact-report/internal/domain"
	"github.com/couchcryptid/storm-impact-report/internal/observability"
	"github.com/couchcryptid/storm-impact-report/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Flags override the environment; their defaults show the resolved config.
	input := flag.String("input", cfg.InputPath, "storm data CSV (plain, .bz2, .gz, or .zst)")
	outDir := flag.String("out-dir", cfg.OutputDir, "directory for the chart files")
	top := flag.Int("top", cfg.TopN, "rows per ranked table")
	flag.Parse()
	cfg.InputPath = *input
	cfg.OutputDir = *outDir
	cfg.TopN = *top

	if cfg.TopN < 1 {
		slog.Error("top must be at least 1")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	reader, err := csvfile.Open(cfg.InputPath, logger)
	if err != nil {
		logger.Error("failed to open input", "error", err)
		os.Exit(1)
	}

	charts, err := render.NewCharts(cfg.OutputDir, cfg.ChartWidth, cfg.ChartHeight, cfg.ChartFont, logger)
	if err != nil {
		logger.Error("failed to set up charts", "error", err)
		os.Exit(1)
	}

	// Tables own stdout; everything else logs to stderr.
	renderers := []pipeline.Renderer{
		render.NewTables(os.Stdout),
		charts,
	}

	p := pipeline.New(reader, pipeline.NewTransformer(), domain.NewAggregator(),
		renderers, logger, metrics, cfg.BatchSize, cfg.TopN)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	report, runErr := p.Run(ctx, runID, cfg.InputPath)

	if err := reader.Close(); err != nil {
		logger.Error("input close error", "error", err)
	}

	// Metrics are written even for failed runs; the error counters are most
	// interesting exactly then.
	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile, runID); err != nil {
			logger.Error("metrics textfile write error", "error", err)
		} else {
			logger.Info("metrics written", "path", cfg.MetricsFile)
		}
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logger.Info("run interrupted")
		} else {
			logger.Error("pipeline error", "error", runErr)
		}
		os.Exit(1)
	}

	logger.Info("report complete",
		"run_id", report.RunID,
		"rows", report.Rows,
		"rows_skipped", report.RowsSkipped,
		"event_types", report.EventTypes,
	)
}
