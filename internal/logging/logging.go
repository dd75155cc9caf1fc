// Package logging builds the process logger.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// New returns a zap logger at level ("debug", "info", "warn", "error").
// format "console" selects the development encoder; anything else logs JSON.
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if strings.EqualFold(format, "console") {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
