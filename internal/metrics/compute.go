// Package metrics computes trading performance statistics from a trade log.
package metrics

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
)

// Compute derives performance statistics from trades in the given order.
// It does not sort: the equity curve and drawdown follow slice order, so
// callers wanting a chronological curve pass trades ordered by entry time.
// Compute is pure. A nil entry counts as a breakeven trade with zero PnL so
// the equity curve always holds len(trades)+1 points.
func Compute(trades []*domain.Trade) domain.Stats {
	stats := domain.Stats{
		EquityCurve: make([]domain.EquityPoint, 1, len(trades)+1),
	}

	var (
		cum       float64
		peak      float64
		rSum      float64
		rCount    int
		winSum    float64
		lossSum   float64
		lossRun   int
		pnlSum    float64
		finiteCnt int
	)

	for _, t := range trades {
		if t == nil {
			t = &nilTrade
		}
		stats.TotalTrades++

		switch t.Status {
		case domain.StatusWin:
			stats.Wins++
			winSum += t.PnL
		case domain.StatusLoss:
			stats.Losses++
			lossSum += t.PnL
		default:
			stats.Breakevens++
		}

		if t.Status == domain.StatusLoss {
			lossRun++
			stats.MaxConsecutiveLosses = max(stats.MaxConsecutiveLosses, lossRun)
		} else {
			lossRun = 0
		}

		switch {
		case t.PnL > 0:
			stats.GrossProfit += t.PnL
		case t.PnL < 0:
			stats.GrossLoss += t.PnL
		}

		if isFinite(t.PnL) {
			stats.LargestWin = max(stats.LargestWin, t.PnL)
			stats.LargestLoss = min(stats.LargestLoss, t.PnL)
			pnlSum += t.PnL
			finiteCnt++
		}

		if isFinite(t.RMultiple) {
			rSum += t.RMultiple
			rCount++
		}

		cum += t.PnL
		peak = max(peak, cum)
		stats.MaxDrawdown = min(stats.MaxDrawdown, cum-peak)
		stats.EquityCurve = append(stats.EquityCurve, domain.EquityPoint{Index: stats.TotalTrades, CumPnL: cum})
	}

	stats.GrossLoss = math.Abs(stats.GrossLoss)
	stats.ProfitFactor = profitFactor(stats.GrossProfit, stats.GrossLoss)
	stats.TotalPnL = roundCents(cum)

	if stats.TotalTrades > 0 {
		stats.WinRate = float64(stats.Wins) / float64(stats.TotalTrades) * 100
	}
	if rCount > 0 {
		stats.AvgRMultiple = rSum / float64(rCount)
	}
	if stats.Wins > 0 {
		stats.AvgWin = winSum / float64(stats.Wins)
	}
	if stats.Losses > 0 {
		stats.AvgLoss = lossSum / float64(stats.Losses)
	}
	if finiteCnt > 0 {
		stats.Expectancy = pnlSum / float64(finiteCnt)
	}
	return stats
}

var nilTrade = domain.Trade{Status: domain.StatusBreakeven}

// profitFactor is grossProfit/grossLoss, +Inf when there are profits but no
// losses, and 0 when there are neither.
func profitFactor(grossProfit, grossLoss float64) domain.Ratio {
	if grossLoss == 0 {
		if grossProfit > 0 {
			return domain.Ratio(math.Inf(1))
		}
		return 0
	}
	return domain.Ratio(grossProfit / grossLoss)
}

// roundCents rounds v half away from zero to two decimals. Non-finite values
// pass through unchanged.
func roundCents(v float64) float64 {
	if !isFinite(v) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
