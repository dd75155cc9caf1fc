package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/metrics"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/reporting"
)

func TestRenderFormats(t *testing.T) {
	trades := []*domain.Trade{{
		ID: "t1", Side: domain.SideLong, EntryPrice: 100, ExitPrice: 110, Size: 1000,
		PnL: 100, RMultiple: 2, Status: domain.StatusWin, EntryTime: 1_700_000_000, ExitTime: 1_700_003_600,
	}}
	report := &reporting.Report{
		GeneratedAt: time.Unix(1_700_010_000, 0).UTC(),
		Strategy:    &domain.Strategy{ID: "s1", Name: "Breakout", Symbol: "BTCUSDT", Interval: "1h"},
		Stats:       metrics.Compute(trades),
		Trades:      trades,
	}

	md, err := render(report, "markdown")
	require.NoError(t, err)
	assert.Contains(t, md, "Breakout")

	csvOut, err := render(report, "csv")
	require.NoError(t, err)
	assert.Contains(t, csvOut, "t1")

	stats, err := render(report, "stats-csv")
	require.NoError(t, err)
	assert.NotEmpty(t, stats)

	_, err = render(report, "pdf")
	assert.Error(t, err)
}
