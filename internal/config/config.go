// Package config loads service configuration from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// History page size bounds. Binance serves at most 1000 klines per page;
// pages overlap by one candle, so a page of one never moves the cursor back.
const (
	MinHistoryPageSize = 2
	MaxHistoryPageSize = 1000
)

// Config is the service configuration.
type Config struct {
	HTTPAddr         string `mapstructure:"HTTP_ADDR"`
	StorageBackend   string `mapstructure:"STORAGE_BACKEND"`
	PostgresDSN      string `mapstructure:"POSTGRES_DSN"`
	ClickhouseDSN    string `mapstructure:"CLICKHOUSE_DSN"`
	SQLitePath       string `mapstructure:"SQLITE_PATH"`
	NatsURL          string `mapstructure:"NATS_URL"`
	BinanceBaseURL   string `mapstructure:"BINANCE_BASE_URL"`
	BinanceStreamURL string `mapstructure:"BINANCE_STREAM_URL"`
	HistoryPageSize  int    `mapstructure:"HISTORY_PAGE_SIZE"`
	HistoryMaxPages  int    `mapstructure:"HISTORY_MAX_PAGES"`
	LiveUpdates      bool   `mapstructure:"LIVE_UPDATES"`
	LogLevel         string `mapstructure:"LOG_LEVEL"`
	LogFormat        string `mapstructure:"LOG_FORMAT"`
}

var keys = []string{
	"HTTP_ADDR", "STORAGE_BACKEND", "POSTGRES_DSN", "CLICKHOUSE_DSN", "SQLITE_PATH",
	"NATS_URL", "BINANCE_BASE_URL", "BINANCE_STREAM_URL", "HISTORY_PAGE_SIZE",
	"HISTORY_MAX_PAGES", "LIVE_UPDATES", "LOG_LEVEL", "LOG_FORMAT",
}

// Load reads envFile (if it exists) into the process environment, then
// builds the configuration from environment variables and defaults.
// An empty envFile means ".env".
func Load(envFile string) (Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("STORAGE_BACKEND", BackendMemory)
	v.SetDefault("SQLITE_PATH", "senzo.db")
	v.SetDefault("HISTORY_PAGE_SIZE", MaxHistoryPageSize)
	v.SetDefault("HISTORY_MAX_PAGES", 10)
	v.SetDefault("LIVE_UPDATES", true)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.AutomaticEnv()
	// Unmarshal only sees keys viper knows about.
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.StorageBackend = strings.ToLower(cfg.StorageBackend)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.StorageBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return errors.New("config: POSTGRES_DSN is required for the postgres backend")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return errors.New("config: SQLITE_PATH is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("config: unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	if c.HistoryPageSize < MinHistoryPageSize || c.HistoryPageSize > MaxHistoryPageSize {
		return fmt.Errorf("config: HISTORY_PAGE_SIZE must be in %d..%d, got %d",
			MinHistoryPageSize, MaxHistoryPageSize, c.HistoryPageSize)
	}
	if c.HistoryMaxPages <= 0 {
		return fmt.Errorf("config: HISTORY_MAX_PAGES must be positive, got %d", c.HistoryMaxPages)
	}
	return nil
}
