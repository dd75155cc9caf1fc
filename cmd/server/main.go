// Package main runs the replay and journal HTTP service:
// - strategies and journals backed by memory, Postgres or SQLite
// - replay sessions over Binance history, optionally cached in ClickHouse or SQLite
// - journal events published to NATS when NATS_URL is set
// - Prometheus metrics at /metrics
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/api"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/app"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/config"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/events"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/journal"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/logging"
)

func main() {
	envFile := flag.String("env-file", ".env", "Path to .env file (ignored if missing)")
	addr := flag.String("addr", "", "Listen address (overrides HTTP_ADDR)")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	var listeners []journal.Listener
	if cfg.NatsURL != "" {
		nc, err := events.Connect(cfg.NatsURL, logger)
		if err != nil {
			return err
		}
		defer nc.Close()
		listeners = append(listeners, events.NewPublisher(nc, logger))
		logger.Info("publishing journal events", zap.String("nats_url", cfg.NatsURL))
	}

	source := app.HistorySource(cfg, stores, logger)
	srv := api.NewServer(api.Options{
		Strategies: stores.Strategies,
		Trades:     stores.Trades,
		History:    app.Assembler(cfg, source, logger),
		Live:       app.LiveSource(cfg, logger),
		Listeners:  listeners,
		Logger:     logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	// Force-closes open positions and flushes pending journal writes.
	srv.Shutdown(shutdownCtx)
	return nil
}
