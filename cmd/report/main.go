// Package main renders a strategy's backtest report from the configured store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/app"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/config"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/logging"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/metrics"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/reporting"
)

func main() {
	envFile := flag.String("env-file", ".env", "Path to .env file (ignored if missing)")
	strategyID := flag.String("strategy", "", "Strategy ID (required)")
	format := flag.String("format", "markdown", "Output format: markdown, csv, stats-csv")
	output := flag.String("output", "", "Output file (default stdout)")
	flag.Parse()

	if *strategyID == "" {
		fmt.Fprintln(os.Stderr, "Error: --strategy is required")
		os.Exit(1)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	body, err := run(context.Background(), cfg, *strategyID, *format, logger)
	if err != nil {
		logger.Error("report failed", zap.Error(err))
		os.Exit(1)
	}

	if *output == "" {
		fmt.Print(body)
		return
	}
	if err := os.WriteFile(*output, []byte(body), 0o644); err != nil {
		logger.Error("write report", zap.String("path", *output), zap.Error(err))
		os.Exit(1)
	}
	logger.Info("report written", zap.String("path", *output))
}

func run(ctx context.Context, cfg config.Config, strategyID, format string, logger *zap.Logger) (string, error) {
	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		return "", err
	}
	defer stores.Close()

	gen := reporting.NewGenerator(stores.Strategies, metrics.NewCalculator(stores.Trades, logger))
	report, err := gen.Generate(ctx, strategyID)
	if err != nil {
		return "", err
	}
	return render(report, format)
}

func render(report *reporting.Report, format string) (string, error) {
	switch format {
	case "markdown", "md":
		return reporting.RenderMarkdown(report), nil
	case "csv":
		return reporting.RenderTradesCSV(report.Trades)
	case "stats-csv":
		return reporting.RenderStatsCSV(report.Stats), nil
	default:
		return "", fmt.Errorf("unknown format %q", format)
	}
}
