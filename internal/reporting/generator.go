package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/metrics"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/observability"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/storage"
)

// Generator builds reports from stored strategies and trades.
type Generator struct {
	strategies storage.StrategyStore
	calc       *metrics.Calculator
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a report generator.
func NewGenerator(strategies storage.StrategyStore, calc *metrics.Calculator) *Generator {
	return &Generator{
		strategies: strategies,
		calc:       calc,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the report of one strategy. Returns storage.ErrNotFound
// (wrapped) for an unknown strategy.
func (g *Generator) Generate(ctx context.Context, strategyID string) (*Report, error) {
	st, err := g.strategies.GetByID(ctx, strategyID)
	if err != nil {
		return nil, fmt.Errorf("get strategy %s: %w", strategyID, err)
	}

	stats, trades, err := g.calc.ForStrategy(ctx, strategyID)
	if err != nil {
		return nil, err
	}

	observability.RecordReportGenerated()
	return &Report{
		GeneratedAt: g.now(),
		Strategy:    st,
		Stats:       stats,
		Trades:      trades,
	}, nil
}
