// Package position owns the single open simulated position of a replay session.
package position

import (
	"go.uber.org/zap"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
)

// Notes attached to trades closed by the engine rather than the user.
const (
	NoteAutoClose     = "SL/TP hit (auto)"
	NoteReplayStopped = "Replay stopped (auto)"
)

// Manager holds zero or one open position and turns closes into trades.
// Invalid calls (open while open, close while flat) are silent no-ops.
// Manager is not safe for concurrent use; the replay engine serialises access.
type Manager struct {
	open   *domain.Position
	logger *zap.Logger
}

// NewManager creates a flat position manager. A nil logger disables logging.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{logger: logger}
}

// HasOpen reports whether a position is open.
func (m *Manager) HasOpen() bool {
	return m.open != nil
}

// Position returns a copy of the open position, or nil when flat.
func (m *Manager) Position() *domain.Position {
	return m.open.Clone()
}

// Open opens a position at the close of candle at. Returns the chart effects and
// whether the position was opened.
func (m *Manager) Open(side domain.Side, size float64, stopLoss, takeProfit *float64, at domain.Candle) ([]domain.Effect, bool) {
	if m.open != nil {
		m.logger.Debug("open ignored: position already open", zap.String("side", string(side)))
		return nil, false
	}

	p := &domain.Position{
		Side:       side,
		EntryPrice: at.Close,
		Size:       size,
		EntryTime:  at.Time,
	}
	if stopLoss != nil {
		v := *stopLoss
		p.StopLoss = &v
	}
	if takeProfit != nil {
		v := *takeProfit
		p.TakeProfit = &v
	}
	m.open = p

	effects := []domain.Effect{
		{Kind: domain.EffectEntryMarker, Side: side, Time: p.EntryTime, Price: p.EntryPrice},
		{Kind: domain.EffectAddPriceLine, Line: domain.LineEntry, Price: p.EntryPrice},
	}
	if p.StopLoss != nil {
		effects = append(effects, domain.Effect{Kind: domain.EffectAddPriceLine, Line: domain.LineStopLoss, Price: *p.StopLoss})
	}
	if p.TakeProfit != nil {
		effects = append(effects, domain.Effect{Kind: domain.EffectAddPriceLine, Line: domain.LineTakeProfit, Price: *p.TakeProfit})
	}
	return effects, true
}

// CheckAutoClose evaluates the open position's stop and target against latestClose.
// Only the close is examined, not the candle's high/low range. The stop is checked
// before the target, so a close satisfying both exits at the stop.
// Returns nil when flat or when nothing triggers.
func (m *Manager) CheckAutoClose(latestClose float64, at int64) (*domain.Trade, []domain.Effect) {
	if m.open == nil {
		return nil, nil
	}

	reason, hit := m.triggered(latestClose)
	if !hit {
		return nil, nil
	}
	return m.close(latestClose, at, NoteAutoClose, reason)
}

func (m *Manager) triggered(price float64) (domain.ExitReason, bool) {
	p := m.open
	long := p.Side != domain.SideShort

	if p.StopLoss != nil {
		if (long && price <= *p.StopLoss) || (!long && price >= *p.StopLoss) {
			return domain.ExitReasonStopLoss, true
		}
	}
	if p.TakeProfit != nil {
		if (long && price >= *p.TakeProfit) || (!long && price <= *p.TakeProfit) {
			return domain.ExitReasonTakeProfit, true
		}
	}
	return "", false
}

// Close closes the open position at exitPrice. Returns nil when flat.
func (m *Manager) Close(exitPrice float64, at int64, notes string, reason domain.ExitReason) (*domain.Trade, []domain.Effect) {
	if m.open == nil {
		m.logger.Debug("close ignored: no open position")
		return nil, nil
	}
	return m.close(exitPrice, at, notes, reason)
}

func (m *Manager) close(exitPrice float64, at int64, notes string, reason domain.ExitReason) (*domain.Trade, []domain.Effect) {
	p := m.open
	m.open = nil

	trade := Settle(p, exitPrice, at, notes, reason)

	effects := []domain.Effect{
		{Kind: domain.EffectRemovePriceLine, Line: domain.LineEntry},
	}
	if p.StopLoss != nil {
		effects = append(effects, domain.Effect{Kind: domain.EffectRemovePriceLine, Line: domain.LineStopLoss})
	}
	if p.TakeProfit != nil {
		effects = append(effects, domain.Effect{Kind: domain.EffectRemovePriceLine, Line: domain.LineTakeProfit})
	}
	effects = append(effects,
		domain.Effect{Kind: domain.EffectExitMarker, Side: p.Side, Time: at, Price: exitPrice},
		domain.Effect{Kind: domain.EffectTradeClosed, Trade: trade.Clone()},
	)

	m.logger.Debug("position closed",
		zap.String("side", string(trade.Side)),
		zap.String("reason", string(reason)),
		zap.Float64("pnl", trade.PnL),
	)
	return trade, effects
}
