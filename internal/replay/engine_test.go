package replay

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/candles"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/position"
)

type recordingSink struct {
	mu     sync.Mutex
	trades []*domain.Trade
}

func (s *recordingSink) Submit(_ context.Context, t *domain.Trade) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, t)
	return "local-1"
}

func (s *recordingSink) all() []*domain.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.Trade(nil), s.trades...)
}

var engineKey = domain.SeriesKey{Symbol: "BTCUSDT", Interval: "1h"}

func newTestEngine(t *testing.T, n int) (*Engine, []domain.Candle, *recordingSink) {
	t.Helper()
	series := makeSeries(n)
	sink := &recordingSink{}
	e := NewEngine(Options{Series: candles.NewSeries(engineKey, series), Sink: sink})
	return e, series, sink
}

func ptr[T any](v T) *T { return &v }

func hasKind(effects []domain.Effect, kind domain.EffectKind) bool {
	for _, e := range effects {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

func TestEngine_ReplayWalkthrough(t *testing.T) {
	ctx := context.Background()
	e, series, _ := newTestEngine(t, 20)

	effects := e.Start(series[4].Time)
	require.Len(t, effects, 1)
	assert.Equal(t, domain.EffectRevealCandle, effects[0].Kind)
	assert.Equal(t, 4, effects[0].Index)

	for i := 0; i < 16; i++ {
		require.NotEmpty(t, e.Advance(ctx), "advance %d", i+1)
	}
	assert.Equal(t, 19, e.State().Cursor.CurrentIndex)

	assert.Empty(t, e.Advance(ctx))
	assert.Equal(t, 19, e.State().Cursor.CurrentIndex)
	assert.Len(t, e.Visible(), 20)
}

func TestEngine_StartFreezesSeries(t *testing.T) {
	e, series, _ := newTestEngine(t, 5)

	e.Start(series[1].Time)
	res := e.Series().Apply(domain.Candle{Time: series[4].Time + 3600, Close: 1})
	assert.Equal(t, candles.Ignored, res)
	assert.Equal(t, 5, e.Series().Len())

	e.Stop(context.Background())
	res = e.Series().Apply(domain.Candle{Time: series[4].Time + 3600, Close: 1})
	assert.Equal(t, candles.Appended, res)
}

func TestEngine_StartUnknownTimeIsNoop(t *testing.T) {
	e, series, _ := newTestEngine(t, 5)

	assert.Empty(t, e.Start(series[1].Time+1))
	assert.Equal(t, ModeLive, e.State().Cursor.Mode)
	assert.False(t, e.Series().Frozen())
}

func TestEngine_OpenRequiresReplay(t *testing.T) {
	e, series, _ := newTestEngine(t, 5)

	assert.Empty(t, e.OpenPosition(domain.SideLong, 100, nil, nil))
	assert.Nil(t, e.State().Position)

	e.Start(series[2].Time)
	effects := e.OpenPosition(domain.SideLong, 100, nil, nil)
	require.NotEmpty(t, effects)
	assert.True(t, hasKind(effects, domain.EffectEntryMarker))

	pos := e.State().Position
	require.NotNil(t, pos)
	assert.Equal(t, series[2].Close, pos.EntryPrice)
	assert.Equal(t, series[2].Time, pos.EntryTime)

	assert.Empty(t, e.OpenPosition(domain.SideShort, 50, nil, nil))
	assert.Equal(t, domain.SideLong, e.State().Position.Side)
}

func TestEngine_AdvanceTriggersTakeProfit(t *testing.T) {
	ctx := context.Background()
	e, series, sink := newTestEngine(t, 10)

	e.Start(series[2].Time)
	e.OpenPosition(domain.SideLong, 1000, ptr(99.0), ptr(104.0))

	effects := e.Advance(ctx)
	assert.False(t, hasKind(effects, domain.EffectTradeClosed))
	assert.Empty(t, sink.all())

	effects = e.Advance(ctx)
	assert.True(t, hasKind(effects, domain.EffectTradeClosed))
	assert.True(t, hasKind(effects, domain.EffectExitMarker))

	trades := sink.all()
	require.Len(t, trades, 1)
	tr := trades[0]
	assert.Equal(t, domain.ExitReasonTakeProfit, tr.ExitReason)
	assert.Equal(t, position.NoteAutoClose, tr.Notes)
	assert.Equal(t, 104.0, tr.ExitPrice)
	assert.Equal(t, series[4].Time, tr.ExitTime)
	assert.Equal(t, "BTCUSDT", tr.Symbol)
	assert.Equal(t, "1h", tr.Interval)
	assert.InDelta(t, 1000*2.0/102.0, tr.PnL, 1e-9)
	assert.Equal(t, domain.StatusWin, tr.Status)
	assert.Nil(t, e.State().Position)
}

func TestEngine_ManualClose(t *testing.T) {
	ctx := context.Background()
	e, series, sink := newTestEngine(t, 10)

	assert.Empty(t, e.ClosePosition(ctx, "nothing open"))

	e.Start(series[0].Time)
	e.OpenPosition(domain.SideShort, 500, nil, nil)
	e.Advance(ctx)
	effects := e.ClosePosition(ctx, "took profit early")
	require.True(t, hasKind(effects, domain.EffectTradeClosed))

	trades := sink.all()
	require.Len(t, trades, 1)
	assert.Equal(t, domain.ExitReasonManual, trades[0].ExitReason)
	assert.Equal(t, "took profit early", trades[0].Notes)
	assert.Equal(t, series[1].Close, trades[0].ExitPrice)
	assert.Equal(t, domain.StatusLoss, trades[0].Status)

	assert.Empty(t, e.ClosePosition(ctx, "again"))
	assert.Len(t, sink.all(), 1)
}

func TestEngine_ClosePositionAtPrice(t *testing.T) {
	ctx := context.Background()
	e, series, sink := newTestEngine(t, 5)

	e.Start(series[1].Time)
	e.OpenPosition(domain.SideLong, 100, nil, nil)
	e.ClosePositionAt(ctx, 150, "")

	trades := sink.all()
	require.Len(t, trades, 1)
	assert.Equal(t, 150.0, trades[0].ExitPrice)
	assert.Equal(t, series[1].Time, trades[0].ExitTime)
}

func TestEngine_StopForceClosesOpenPosition(t *testing.T) {
	ctx := context.Background()
	e, series, sink := newTestEngine(t, 10)

	e.Start(series[3].Time)
	e.OpenPosition(domain.SideLong, 100, nil, nil)
	e.Advance(ctx)
	e.Advance(ctx)

	effects := e.Stop(ctx)
	require.NotEmpty(t, effects)
	assert.Equal(t, domain.EffectShowSeries, effects[len(effects)-1].Kind)
	assert.True(t, hasKind(effects, domain.EffectTradeClosed))

	trades := sink.all()
	require.Len(t, trades, 1)
	assert.Equal(t, domain.ExitReasonReplayStopped, trades[0].ExitReason)
	assert.Equal(t, position.NoteReplayStopped, trades[0].Notes)
	assert.Equal(t, series[5].Close, trades[0].ExitPrice)

	st := e.State()
	assert.Equal(t, ModeLive, st.Cursor.Mode)
	assert.Nil(t, st.Position)
	assert.Len(t, e.Visible(), 10)
}

func TestEngine_StopInLiveIsNoop(t *testing.T) {
	e, _, _ := newTestEngine(t, 3)
	before := e.State().Token

	assert.Empty(t, e.Stop(context.Background()))
	assert.Equal(t, before, e.State().Token)
}

func TestEngine_StaleAutoCloseDropped(t *testing.T) {
	ctx := context.Background()
	e, series, sink := newTestEngine(t, 10)

	e.Start(series[2].Time)
	stale := e.State().Token
	e.Stop(ctx)

	e.Start(series[2].Time)
	e.OpenPosition(domain.SideLong, 100, ptr(50.0), nil)

	assert.Empty(t, e.CheckAutoClose(ctx, stale, 10))
	assert.NotNil(t, e.State().Position)
	assert.Empty(t, sink.all())

	effects := e.CheckAutoClose(ctx, e.State().Token, 10)
	assert.True(t, hasKind(effects, domain.EffectTradeClosed))
	require.Len(t, sink.all(), 1)
	assert.Equal(t, domain.ExitReasonStopLoss, sink.all()[0].ExitReason)
}

func TestEngine_CheckAutoCloseAfterStopDropped(t *testing.T) {
	ctx := context.Background()
	e, series, sink := newTestEngine(t, 10)

	e.Start(series[2].Time)
	token := e.State().Token
	e.OpenPosition(domain.SideLong, 100, ptr(50.0), nil)
	e.Stop(ctx)
	require.Len(t, sink.all(), 1)

	assert.Empty(t, e.CheckAutoClose(ctx, token, 10))
	assert.Len(t, sink.all(), 1)
}

func TestEngine_ConcurrentAdvanceRevealsEachCandleOnce(t *testing.T) {
	ctx := context.Background()
	e, series, _ := newTestEngine(t, 50)
	e.Start(series[0].Time)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		revealed = map[int]int{}
	)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				for _, eff := range e.Advance(ctx) {
					if eff.Kind == domain.EffectRevealCandle {
						mu.Lock()
						revealed[eff.Index]++
						mu.Unlock()
					}
				}
			}
		}()
	}
	wg.Wait()

	assert.Len(t, revealed, 49)
	for idx, n := range revealed {
		assert.Equal(t, 1, n, "index %d", idx)
	}
	assert.Equal(t, 49, e.State().Cursor.CurrentIndex)
}

func TestEngine_NilSinkAndLogger(t *testing.T) {
	e := NewEngine(Options{})

	assert.Empty(t, e.Start(0))
	assert.Empty(t, e.Visible())
	assert.Equal(t, ModeLive, e.State().Cursor.Mode)
}

func TestEngine_SwitchStopsReplayAndReplacesSeries(t *testing.T) {
	ctx := context.Background()
	e, series, sink := newTestEngine(t, 10)

	e.Start(series[3].Time)
	e.OpenPosition(domain.SideLong, 100, nil, nil)
	token := e.State().Token

	ethKey := domain.SeriesKey{Symbol: "ETHUSDT", Interval: "15m"}
	effects := e.Switch(ctx, ethKey, makeSeries(4))
	assert.True(t, hasKind(effects, domain.EffectTradeClosed))
	assert.Equal(t, domain.EffectShowSeries, effects[len(effects)-1].Kind)

	trades := sink.all()
	require.Len(t, trades, 1)
	assert.Equal(t, domain.ExitReasonReplayStopped, trades[0].ExitReason)
	assert.Equal(t, "BTCUSDT", trades[0].Symbol)

	st := e.State()
	assert.Equal(t, ModeLive, st.Cursor.Mode)
	assert.Equal(t, ethKey, st.Key)
	assert.Equal(t, 4, st.SeriesN)
	assert.NotEqual(t, token, st.Token)
	assert.False(t, e.Series().Frozen())
}

func TestEngine_SwitchInLiveMode(t *testing.T) {
	e, _, sink := newTestEngine(t, 10)
	before := e.State().Token

	effects := e.Switch(context.Background(), engineKey, makeSeries(3))
	require.Len(t, effects, 1)
	assert.Equal(t, domain.EffectShowSeries, effects[0].Kind)
	assert.Len(t, e.Visible(), 3)
	assert.Greater(t, e.State().Token, before)
	assert.Empty(t, sink.all())
}
