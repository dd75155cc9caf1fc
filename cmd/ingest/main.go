// Package main backfills Binance kline history into the candle cache
// (ClickHouse when CLICKHOUSE_DSN is set, otherwise the SQLite database).
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/app"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/candles"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/config"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/logging"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/marketdata/binance"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/observability"
)

func main() {
	envFile := flag.String("env-file", ".env", "Path to .env file (ignored if missing)")
	symbols := flag.String("symbols", "BTCUSDT", "Comma-separated symbols")
	intervals := flag.String("intervals", "1h", "Comma-separated kline intervals")
	every := flag.Duration("every", 0, "Repeat the backfill at this interval (0 runs once)")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")
	flag.Parse()

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

	keys, err := parseKeys(*symbols, *intervals)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			logger.Info("metrics server listening", zap.String("addr", *metricsAddr))
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server", zap.Error(err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, keys, *every, logger); err != nil {
		logger.Error("ingest failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, keys []domain.SeriesKey, every time.Duration, logger *zap.Logger) error {
	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close()
	if stores.Candles == nil {
		return app.ErrNoCandleCache
	}

	// Straight to Binance: Backfill does the cache writes itself.
	assembler := app.Assembler(cfg, binance.NewHistoryClient(cfg.BinanceBaseURL, logger), logger)

	for {
		failed := 0
		for _, key := range keys {
			fetched, cached, err := candles.Backfill(ctx, assembler, stores.Candles, key)
			if err != nil {
				failed++
				logger.Error("backfill failed", zap.String("series", key.String()), zap.Error(err))
				continue
			}
			logger.Info("backfill complete",
				zap.String("series", key.String()),
				zap.Int("fetched", fetched),
				zap.Int("cached", cached),
			)
		}
		if failed == 0 {
			observability.MarkIngestionSuccess(time.Now().Unix())
		}

		if every <= 0 {
			if failed > 0 {
				return fmt.Errorf("%d of %d series failed", failed, len(keys))
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(every):
		}
	}
}

func parseKeys(symbols, intervals string) ([]domain.SeriesKey, error) {
	var keys []domain.SeriesKey
	for _, iv := range splitList(intervals) {
		if !domain.ValidInterval(iv) {
			return nil, fmt.Errorf("unsupported interval %q", iv)
		}
		for _, sym := range splitList(symbols) {
			keys = append(keys, domain.SeriesKey{Symbol: strings.ToUpper(sym), Interval: iv})
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no symbols or intervals given")
	}
	return keys, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
