// Package replay steps a frozen candle series forward one candle at a time and
// drives the simulated position against the revealed candles.
package replay

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/candles"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/observability"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/position"
)

// TradeSink receives every trade the engine closes.
// Submit must not block on persistence; it returns a local entry id.
type TradeSink interface {
	Submit(ctx context.Context, t *domain.Trade) string
}

// Options configures an Engine.
type Options struct {
	Series *candles.Series
	Sink   TradeSink   // optional
	Logger *zap.Logger // optional
}

// State is a snapshot of an engine.
type State struct {
	Key      domain.SeriesKey `json:"key"`
	Cursor   CursorState      `json:"cursor"`
	Token    uint64           `json:"token"`
	Position *domain.Position `json:"position,omitempty"`
	Current  *domain.Candle   `json:"current,omitempty"`
	SeriesN  int              `json:"series_len"`
}

// Engine owns one replay session: the series, the cursor and the open position.
// All methods are serialised; each revealed candle is checked against the open
// position exactly once before the next Advance is accepted.
type Engine struct {
	mu        sync.Mutex
	series    *candles.Series
	cursor    *Cursor // nil in live mode
	positions *position.Manager
	sink      TradeSink
	token     uint64
	logger    *zap.Logger
}

// NewEngine creates a live-mode engine over opts.Series.
func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	series := opts.Series
	if series == nil {
		series = candles.NewSeries(domain.SeriesKey{}, nil)
	}
	return &Engine{
		series:    series,
		positions: position.NewManager(logger),
		sink:      opts.Sink,
		logger:    logger,
	}
}

// Series returns the underlying series.
func (e *Engine) Series() *candles.Series {
	return e.series
}

// Start enters replay at the candle whose time equals atTime. The series is
// frozen until Stop. No-op if already replaying or atTime is not a candle time.
func (e *Engine) Start(atTime int64) []domain.Effect {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cursor != nil {
		e.logger.Debug("start ignored: already replaying", zap.Int64("at", atTime))
		return nil
	}
	if e.series.IndexOf(atTime) < 0 {
		e.logger.Debug("start ignored: no candle at time", zap.Int64("at", atTime))
		return nil
	}

	cur := NewCursor(e.series.Freeze())
	if !cur.Start(atTime) {
		e.series.Unfreeze()
		return nil
	}
	e.cursor = cur
	e.token++
	observability.RecordReplayStart()

	st := cur.State()
	e.logger.Info("replay started",
		zap.String("series", e.series.Key().String()),
		zap.Int("start_index", st.StartIndex),
		zap.Uint64("token", e.token),
	)
	c, _ := cur.Current()
	return []domain.Effect{{Kind: domain.EffectRevealCandle, Index: st.CurrentIndex, Candle: &c}}
}

// Advance reveals the next candle and evaluates the open position against its
// close. No-op in live mode and at the end of history.
func (e *Engine) Advance(ctx context.Context) []domain.Effect {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cursor == nil {
		e.logger.Debug("advance ignored: not replaying")
		return nil
	}
	c, ok := e.cursor.Advance()
	if !ok {
		e.logger.Debug("advance ignored: end of history")
		return nil
	}
	observability.RecordAdvance()

	effects := []domain.Effect{{Kind: domain.EffectRevealCandle, Index: e.cursor.State().CurrentIndex, Candle: &c}}
	trade, closeEffects := e.positions.CheckAutoClose(c.Close, c.Time)
	if trade != nil {
		e.emit(ctx, trade)
		effects = append(effects, closeEffects...)
	}
	return effects
}

// CheckAutoClose evaluates the open position against latestClose at the current
// candle. Calls carrying a token from an earlier session are dropped.
func (e *Engine) CheckAutoClose(ctx context.Context, token uint64, latestClose float64) []domain.Effect {
	e.mu.Lock()
	defer e.mu.Unlock()

	if token != e.token || e.cursor == nil {
		e.logger.Debug("auto-close check dropped: stale token",
			zap.Uint64("token", token),
			zap.Uint64("current", e.token),
		)
		return nil
	}
	c, _ := e.cursor.Current()
	trade, effects := e.positions.CheckAutoClose(latestClose, c.Time)
	if trade == nil {
		return nil
	}
	e.emit(ctx, trade)
	return effects
}

// OpenPosition opens a position at the current candle's close. No-op unless
// replaying with no position open.
func (e *Engine) OpenPosition(side domain.Side, size float64, stopLoss, takeProfit *float64) []domain.Effect {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cursor == nil {
		e.logger.Debug("open ignored: not replaying")
		return nil
	}
	c, _ := e.cursor.Current()
	effects, ok := e.positions.Open(side, size, stopLoss, takeProfit, c)
	if !ok {
		return nil
	}
	observability.RecordPositionOpened(string(side))
	return effects
}

// ClosePosition closes the open position at the current candle's close.
func (e *Engine) ClosePosition(ctx context.Context, notes string) []domain.Effect {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.current()
	if !ok {
		e.logger.Debug("close ignored: no current price")
		return nil
	}
	return e.close(ctx, c.Close, c.Time, notes, domain.ExitReasonManual)
}

// ClosePositionAt closes the open position at exitPrice, stamped with the
// current candle's time.
func (e *Engine) ClosePositionAt(ctx context.Context, exitPrice float64, notes string) []domain.Effect {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, _ := e.current()
	return e.close(ctx, exitPrice, c.Time, notes, domain.ExitReasonManual)
}

// Stop force-closes any open position at the last revealed close, then
// returns to live mode and unfreezes the series. No-op in live mode.
func (e *Engine) Stop(ctx context.Context) []domain.Effect {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cursor == nil {
		e.logger.Debug("stop ignored: not replaying")
		return nil
	}
	return append(e.stop(ctx), domain.Effect{Kind: domain.EffectShowSeries})
}

// Switch replaces the series with history for key, the way a symbol or
// interval change does in the chart. An active replay is stopped first,
// force-closing any open position against the old series.
func (e *Engine) Switch(ctx context.Context, key domain.SeriesKey, history []domain.Candle) []domain.Effect {
	e.mu.Lock()
	defer e.mu.Unlock()

	var effects []domain.Effect
	if e.cursor != nil {
		effects = e.stop(ctx)
	} else {
		e.token++
	}
	e.series.Replace(key, history)
	e.logger.Info("series switched", zap.String("series", key.String()), zap.Int("candles", e.series.Len()))

	return append(effects, domain.Effect{Kind: domain.EffectShowSeries})
}

// stop leaves replay mode. Callers hold e.mu and have checked e.cursor.
func (e *Engine) stop(ctx context.Context) []domain.Effect {
	var effects []domain.Effect
	if e.positions.HasOpen() {
		c, _ := e.cursor.Current()
		effects = e.close(ctx, c.Close, c.Time, position.NoteReplayStopped, domain.ExitReasonReplayStopped)
	}

	e.cursor.Stop()
	e.cursor = nil
	e.token++
	e.series.Unfreeze()
	e.logger.Info("replay stopped", zap.String("series", e.series.Key().String()))
	return effects
}

// Visible returns the candles currently shown: the revealed prefix while
// replaying, the full live series otherwise.
func (e *Engine) Visible() []domain.Candle {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cursor == nil {
		return e.series.Candles()
	}
	return e.cursor.Visible()
}

// State returns a snapshot of the engine.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := State{
		Key:      e.series.Key(),
		Cursor:   CursorState{Mode: ModeLive, StartIndex: -1, CurrentIndex: -1},
		Token:    e.token,
		Position: e.positions.Position(),
		SeriesN:  e.series.Len(),
	}
	if e.cursor != nil {
		st.Cursor = e.cursor.State()
		st.SeriesN = e.cursor.Len()
		if c, ok := e.cursor.Current(); ok {
			st.Current = &c
		}
	}
	return st
}

// current returns the replay candle, or the last live candle in live mode.
func (e *Engine) current() (domain.Candle, bool) {
	if e.cursor != nil {
		return e.cursor.Current()
	}
	return e.series.Last()
}

func (e *Engine) close(ctx context.Context, exitPrice float64, at int64, notes string, reason domain.ExitReason) []domain.Effect {
	trade, effects := e.positions.Close(exitPrice, at, notes, reason)
	if trade == nil {
		return nil
	}
	e.emit(ctx, trade)
	return effects
}

func (e *Engine) emit(ctx context.Context, trade *domain.Trade) {
	key := e.series.Key()
	trade.Symbol = key.Symbol
	trade.Interval = key.Interval
	observability.RecordTradeClosed(string(trade.ExitReason), string(trade.Status))

	if e.sink == nil {
		return
	}
	id := e.sink.Submit(ctx, trade.Clone())
	e.logger.Debug("trade submitted",
		zap.String("entry_id", id),
		zap.String("reason", string(trade.ExitReason)),
	)
}
