package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
)

func TestParseKeys(t *testing.T) {
	keys, err := parseKeys("btcusdt, ETHUSDT", "1h,15m")
	require.NoError(t, err)
	assert.Equal(t, []domain.SeriesKey{
		{Symbol: "BTCUSDT", Interval: "1h"},
		{Symbol: "ETHUSDT", Interval: "1h"},
		{Symbol: "BTCUSDT", Interval: "15m"},
		{Symbol: "ETHUSDT", Interval: "15m"},
	}, keys)

	_, err = parseKeys("BTCUSDT", "7m")
	assert.Error(t, err)

	_, err = parseKeys(" , ", "1h")
	assert.Error(t, err)
}
