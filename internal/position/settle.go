package position

import (
	"math"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
)

// Settle converts an open position into a closed trade at exitPrice.
//
//	pnl       = size * direction * (exit - entry) / entry
//	risk      = |entry - stopLoss|  (0 without a stop)
//	rMultiple = direction * (exit - entry) / risk  (0 when risk is 0)
//
// Degenerate input (zero entry price, zero size) yields NaN/Inf, never a panic.
func Settle(p *domain.Position, exitPrice float64, exitTime int64, notes string, reason domain.ExitReason) *domain.Trade {
	t := &domain.Trade{
		Side:       p.Side,
		EntryPrice: p.EntryPrice,
		ExitPrice:  exitPrice,
		Size:       p.Size,
		EntryTime:  p.EntryTime,
		ExitTime:   exitTime,
		ExitReason: reason,
		Notes:      notes,
	}
	if p.StopLoss != nil {
		v := *p.StopLoss
		t.StopLoss = &v
	}
	if p.TakeProfit != nil {
		v := *p.TakeProfit
		t.TakeProfit = &v
	}
	Recompute(t)
	return t
}

// Recompute derives PnL, RMultiple and Status from the trade's prices, size and stop.
func Recompute(t *domain.Trade) {
	t.PnL = PnL(t.Side, t.EntryPrice, t.ExitPrice, t.Size)
	t.RMultiple = RMultiple(t.Side, t.EntryPrice, t.ExitPrice, t.StopLoss)
	t.Status = Classify(t.PnL)
}

// PnL returns the realized profit of a notional position.
func PnL(side domain.Side, entry, exit, size float64) float64 {
	return size * (side.Direction() * (exit - entry) / entry)
}

// RMultiple returns the realized move expressed in units of initial risk.
func RMultiple(side domain.Side, entry, exit float64, stopLoss *float64) float64 {
	if stopLoss == nil {
		return 0
	}
	risk := math.Abs(entry - *stopLoss)
	if !(risk > 0) {
		return 0
	}
	return side.Direction() * (exit - entry) / risk
}

// Classify maps a PnL to win/loss/breakeven using domain.BreakevenEpsilon.
// NaN classifies as breakeven.
func Classify(pnl float64) domain.TradeStatus {
	switch {
	case pnl > domain.BreakevenEpsilon:
		return domain.StatusWin
	case pnl < -domain.BreakevenEpsilon:
		return domain.StatusLoss
	default:
		return domain.StatusBreakeven
	}
}
