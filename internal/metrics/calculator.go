package metrics

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/observability"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/storage"
)

// Calculator computes statistics for persisted trade logs.
type Calculator struct {
	trades storage.TradeStore
	logger *zap.Logger
}

// NewCalculator creates a calculator over trades. A nil logger disables logging.
func NewCalculator(trades storage.TradeStore, logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{trades: trades, logger: logger}
}

// ForStrategy loads a strategy's trades in entry-time order and computes its stats.
// An unknown strategy yields the empty-log stats.
func (c *Calculator) ForStrategy(ctx context.Context, strategyID string) (domain.Stats, []*domain.Trade, error) {
	trades, err := c.trades.ListByStrategy(ctx, strategyID)
	if err != nil {
		return domain.Stats{}, nil, fmt.Errorf("list trades for strategy %s: %w", strategyID, err)
	}

	stats := Compute(trades)
	observability.RecordStatsComputed()
	c.logger.Debug("stats computed",
		zap.String("strategy_id", strategyID),
		zap.Int("trades", stats.TotalTrades),
		zap.Float64("total_pnl", stats.TotalPnL),
	)
	return stats, trades, nil
}
