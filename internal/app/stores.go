// Package app wires configuration into stores and market data clients for the commands.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/candles"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/config"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/marketdata/binance"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/storage"
	chstore "github.com/s1zeNof/SenzoCrypto-sub001/internal/storage/clickhouse"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/storage/memory"
	pgstore "github.com/s1zeNof/SenzoCrypto-sub001/internal/storage/postgres"
	sqlitestore "github.com/s1zeNof/SenzoCrypto-sub001/internal/storage/sqlite"
)

// Stores holds the opened storage backends.
type Stores struct {
	Strategies storage.StrategyStore
	Trades     storage.TradeStore

	// Candles is the history cache; nil when no cache backend is configured.
	Candles         storage.CandleStore
	CandlesDatabase string

	closers []func()
}

// Close releases every backend connection.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// OpenStores opens the journal backend named by cfg.StorageBackend and the
// candle cache: ClickHouse when CLICKHOUSE_DSN is set, otherwise the SQLite
// file for the sqlite backend.
func OpenStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Stores, error) {
	s := &Stores{}

	var sqliteDB *sqlitestore.DB
	switch cfg.StorageBackend {
	case config.BackendMemory:
		s.Strategies = memory.NewStrategyStore()
		s.Trades = memory.NewTradeStore()

	case config.BackendPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		if err := pool.Migrate(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		s.Strategies = pgstore.NewStrategyStore(pool)
		s.Trades = pgstore.NewTradeStore(pool)

	case config.BackendSQLite:
		db, err := sqlitestore.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		sqliteDB = db
		s.closers = append(s.closers, func() { _ = db.Close() })
		s.Strategies = sqlitestore.NewStrategyStore(db)
		s.Trades = sqlitestore.NewTradeStore(db)

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	switch {
	case cfg.ClickhouseDSN != "":
		conn, err := chstore.Open(ctx, cfg.ClickhouseDSN)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, func() { _ = conn.Close() })
		s.Candles = chstore.NewCandleStore(conn)
		s.CandlesDatabase = "clickhouse"
	case sqliteDB != nil:
		s.Candles = sqlitestore.NewCandleStore(sqliteDB)
		s.CandlesDatabase = "sqlite"
	}

	logger.Info("stores opened",
		zap.String("backend", cfg.StorageBackend),
		zap.String("candle_cache", s.CandlesDatabase),
	)
	return s, nil
}

// HistorySource returns the Binance history client, wrapped in the candle
// cache when one is configured.
func HistorySource(cfg config.Config, stores *Stores, logger *zap.Logger) candles.HistorySource {
	var src candles.HistorySource = binance.NewHistoryClient(cfg.BinanceBaseURL, logger)
	if stores != nil && stores.Candles != nil {
		src = candles.NewCachedSource(src, stores.Candles, stores.CandlesDatabase, logger)
	}
	return src
}

// Assembler builds the paginated history assembler for cfg.
func Assembler(cfg config.Config, src candles.HistorySource, logger *zap.Logger) *candles.Assembler {
	return candles.NewAssembler(candles.AssemblerOptions{
		Source:   src,
		PageSize: cfg.HistoryPageSize,
		MaxPages: cfg.HistoryMaxPages,
		Logger:   logger,
	})
}

// LiveSource returns the Binance kline stream client, or nil when live
// updates are disabled.
func LiveSource(cfg config.Config, logger *zap.Logger) candles.LiveSource {
	if !cfg.LiveUpdates {
		return nil
	}
	sc := binance.DefaultStreamConfig()
	if cfg.BinanceStreamURL != "" {
		sc.BaseURL = cfg.BinanceStreamURL
	}
	return binance.NewStreamClient(&sc, logger)
}

// ErrNoCandleCache is returned by commands that need a candle cache.
var ErrNoCandleCache = errors.New("no candle cache configured: set CLICKHOUSE_DSN or use the sqlite backend")
