package position

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
)

func candle(t int64, close float64) domain.Candle {
	return domain.Candle{Time: t, Open: close, High: close, Low: close, Close: close}
}

func TestManager_OpenUsesCandleClose(t *testing.T) {
	m := NewManager(nil)

	effects, ok := m.Open(domain.SideLong, 1000, ptr(95.0), ptr(110.0), candle(60, 100))
	require.True(t, ok)

	p := m.Position()
	require.NotNil(t, p)
	assert.Equal(t, 100.0, p.EntryPrice)
	assert.Equal(t, int64(60), p.EntryTime)

	// entry marker + entry/SL/TP lines
	require.Len(t, effects, 4)
	assert.Equal(t, domain.EffectEntryMarker, effects[0].Kind)
	assert.Equal(t, domain.LineStopLoss, effects[2].Line)
	assert.Equal(t, domain.LineTakeProfit, effects[3].Line)
}

func TestManager_SecondOpenLeavesOriginal(t *testing.T) {
	m := NewManager(nil)

	_, ok := m.Open(domain.SideLong, 1000, nil, nil, candle(60, 100))
	require.True(t, ok)

	effects, ok := m.Open(domain.SideShort, 5, nil, nil, candle(120, 200))
	assert.False(t, ok)
	assert.Nil(t, effects)

	p := m.Position()
	assert.Equal(t, domain.SideLong, p.Side)
	assert.Equal(t, 100.0, p.EntryPrice)
	assert.Equal(t, 1000.0, p.Size)
}

func TestManager_CloseWhenFlatIsNoop(t *testing.T) {
	m := NewManager(nil)

	tr, effects := m.Close(100, 0, "", domain.ExitReasonManual)
	assert.Nil(t, tr)
	assert.Nil(t, effects)
}

func TestManager_CloseClearsPositionAndLines(t *testing.T) {
	m := NewManager(nil)
	m.Open(domain.SideLong, 1000, ptr(95.0), nil, candle(60, 100))

	tr, effects := m.Close(110, 120, "took profit early", domain.ExitReasonManual)
	require.NotNil(t, tr)
	assert.False(t, m.HasOpen())
	assert.Equal(t, "took profit early", tr.Notes)
	assert.InDelta(t, 100.0, tr.PnL, 1e-9)

	var removed []domain.PriceLine
	for _, e := range effects {
		if e.Kind == domain.EffectRemovePriceLine {
			removed = append(removed, e.Line)
		}
	}
	assert.ElementsMatch(t, []domain.PriceLine{domain.LineEntry, domain.LineStopLoss}, removed)
	assert.Equal(t, domain.EffectTradeClosed, effects[len(effects)-1].Kind)
}

func TestManager_AutoCloseLong(t *testing.T) {
	tests := []struct {
		name   string
		close  float64
		reason domain.ExitReason
		hit    bool
	}{
		{"between brackets", 100, "", false},
		{"stop touched", 95, domain.ExitReasonStopLoss, true},
		{"stop gapped through", 90, domain.ExitReasonStopLoss, true},
		{"target touched", 110, domain.ExitReasonTakeProfit, true},
		{"target exceeded", 130, domain.ExitReasonTakeProfit, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(nil)
			m.Open(domain.SideLong, 1000, ptr(95.0), ptr(110.0), candle(60, 100))

			tr, _ := m.CheckAutoClose(tt.close, 120)
			if !tt.hit {
				assert.Nil(t, tr)
				assert.True(t, m.HasOpen())
				return
			}
			require.NotNil(t, tr)
			assert.Equal(t, tt.reason, tr.ExitReason)
			assert.Equal(t, NoteAutoClose, tr.Notes)
			assert.Equal(t, tt.close, tr.ExitPrice)
			assert.False(t, m.HasOpen())
		})
	}
}

func TestManager_AutoCloseShortMirrored(t *testing.T) {
	m := NewManager(nil)
	m.Open(domain.SideShort, 1000, ptr(105.0), ptr(90.0), candle(60, 100))

	tr, _ := m.CheckAutoClose(100, 120)
	assert.Nil(t, tr)

	tr, _ = m.CheckAutoClose(89, 180)
	require.NotNil(t, tr)
	assert.Equal(t, domain.ExitReasonTakeProfit, tr.ExitReason)
	assert.Greater(t, tr.PnL, 0.0)

	m.Open(domain.SideShort, 1000, ptr(105.0), ptr(90.0), candle(240, 100))
	tr, _ = m.CheckAutoClose(105, 300)
	require.NotNil(t, tr)
	assert.Equal(t, domain.ExitReasonStopLoss, tr.ExitReason)
	assert.Less(t, tr.PnL, 0.0)
}

func TestManager_StopCheckedBeforeTarget(t *testing.T) {
	// Inverted bracket: both conditions hold for a close of 100.
	m := NewManager(nil)
	m.Open(domain.SideLong, 1000, ptr(105.0), ptr(95.0), candle(60, 100))

	tr, _ := m.CheckAutoClose(100, 120)
	require.NotNil(t, tr)
	assert.Equal(t, domain.ExitReasonStopLoss, tr.ExitReason)
}

func TestManager_AutoCloseWithoutBracketsNeverTriggers(t *testing.T) {
	m := NewManager(nil)
	m.Open(domain.SideLong, 1000, nil, nil, candle(60, 100))

	for _, c := range []float64{0.01, 50, 100, 1e9} {
		tr, _ := m.CheckAutoClose(c, 120)
		assert.Nil(t, tr)
	}
	assert.True(t, m.HasOpen())
}
