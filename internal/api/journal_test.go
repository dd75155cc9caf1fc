package api

import (
	"bufio"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/journal"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/replay"
)

type journalBody struct {
	Entries []journal.Entry `json:"entries"`
	Stats   domain.Stats    `json:"stats"`
}

// closedTrade runs a long 1000 from 100 to 110 and returns the entry path.
func closedTrade(t *testing.T, env *testEnv, st domain.Strategy) string {
	t.Helper()
	sess := env.createSession(t, st.ID)
	base := "/api/v1/sessions/" + sess.ID

	env.do(t, http.MethodPost, base+"/start", map[string]any{"time": baseTime})
	env.do(t, http.MethodPost, base+"/open", map[string]any{"side": "long", "size": 1000})
	w := env.do(t, http.MethodPost, base+"/close", map[string]any{"exit_price": 110})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env.waitJournals()

	w = env.do(t, http.MethodGet, "/api/v1/strategies/"+st.ID+"/journal", nil)
	entries := decode[journalBody](t, w).Entries
	require.Len(t, entries, 1)
	return "/api/v1/strategies/" + st.ID + "/journal/" + entries[0].LocalID
}

func TestUpdateEntryRejectsDegenerateValues(t *testing.T) {
	env := newTestEnv(t)
	st := env.createStrategy(t)
	entryPath := closedTrade(t, env, st)

	for _, body := range []map[string]any{
		{"entry_price": 0},
		{"entry_price": -100},
		{"exit_price": 0},
		{"stop_loss": 0},
		{"take_profit": -1},
		{"size": 0},
	} {
		w := env.do(t, http.MethodPatch, entryPath, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %v", body)
	}

	w := env.do(t, http.MethodGet, "/api/v1/strategies/"+st.ID+"/journal", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[journalBody](t, w)
	require.Len(t, body.Entries, 1)
	assert.InDelta(t, 100.0, body.Entries[0].Trade.PnL, 1e-9)
	assert.InDelta(t, 100.0, body.Stats.TotalPnL, 1e-9)
}

func TestNonFiniteTradeStillServed(t *testing.T) {
	env := newTestEnv(t)
	st := env.createStrategy(t)

	_, err := env.trades.Create(context.Background(), st.OwnerID, st.ID, &domain.Trade{
		Side: domain.SideLong, EntryPrice: 0, ExitPrice: 110, Size: 1000,
		PnL: math.Inf(1), Status: domain.StatusWin, EntryTime: baseTime, ExitTime: baseTime + 3600,
	})
	require.NoError(t, err)

	w := env.do(t, http.MethodGet, "/api/v1/strategies/"+st.ID+"/journal", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Body.String())
	assert.Contains(t, w.Body.String(), `"pnl":"Infinity"`)

	body := decode[journalBody](t, w)
	require.Len(t, body.Entries, 1)
	assert.True(t, math.IsInf(body.Entries[0].Trade.PnL, 1))
	assert.NotEmpty(t, body.Entries[0].LocalID)
	assert.True(t, math.IsInf(body.Stats.TotalPnL, 1))

	w = env.do(t, http.MethodGet, "/api/v1/strategies/"+st.ID+"/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_pnl":"Infinity"`)

	// The entry can still be removed.
	w = env.do(t, http.MethodDelete, "/api/v1/strategies/"+st.ID+"/journal/"+body.Entries[0].LocalID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCreateEntry(t *testing.T) {
	env := newTestEnv(t)
	st := env.createStrategy(t)
	path := "/api/v1/strategies/" + st.ID + "/journal"

	w := env.do(t, http.MethodPost, path, map[string]any{
		"side": "short", "entry_price": 100, "exit_price": 90, "size": 1000, "stop_loss": 105,
		"entry_time": baseTime, "exit_time": baseTime + 3600, "notes": "outside replay",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	e := decode[journal.Entry](t, w)
	assert.Equal(t, journal.StatusConfirmed, e.Status)
	assert.NotEmpty(t, e.Trade.ID)
	assert.Equal(t, "BTCUSDT", e.Trade.Symbol)
	assert.InDelta(t, 100.0, e.Trade.PnL, 1e-9)
	assert.InDelta(t, 2.0, e.Trade.RMultiple, 1e-9)
	assert.Equal(t, domain.StatusWin, e.Trade.Status)
	assert.Equal(t, domain.ExitReasonManual, e.Trade.ExitReason)

	for _, body := range []map[string]any{
		{"side": "flat", "entry_price": 100, "exit_price": 90, "size": 10},
		{"side": "long", "entry_price": 0, "exit_price": 90, "size": 10},
		{"side": "long", "entry_price": 100, "exit_price": -1, "size": 10},
		{"side": "long", "entry_price": 100, "exit_price": 90, "size": 10, "stop_loss": -5},
		{"side": "long", "entry_price": 100, "exit_price": 90, "size": 10, "entry_time": 10, "exit_time": 5},
	} {
		w := env.do(t, http.MethodPost, path, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %v", body)
	}

	w = env.do(t, http.MethodGet, path, nil)
	assert.Len(t, decode[journalBody](t, w).Entries, 1)
}

func TestSwitchSeries(t *testing.T) {
	env := newTestEnv(t)
	st := env.createStrategy(t)
	sess := env.createSession(t, st.ID)
	base := "/api/v1/sessions/" + sess.ID

	env.do(t, http.MethodPost, base+"/start", map[string]any{"time": baseTime + 2*3600})
	env.do(t, http.MethodPost, base+"/open", map[string]any{"side": "long", "size": 100})

	w := env.do(t, http.MethodPut, base+"/series", map[string]any{"symbol": "ethusdt", "interval": "15m"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	act := decode[actionResponse](t, w)
	assert.Equal(t, replay.ModeLive, act.State.Cursor.Mode)
	assert.Equal(t, domain.SeriesKey{Symbol: "ETHUSDT", Interval: "15m"}, act.State.Key)
	assert.Nil(t, act.State.Position)

	env.waitJournals()
	stored, err := env.trades.ListByStrategy(context.Background(), st.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, domain.ExitReasonReplayStopped, stored[0].ExitReason)

	// The new subscription feeds the switched series.
	env.live.push(domain.Candle{Time: baseTime + 20*3600, Close: 1})
	w = env.do(t, http.MethodGet, base, nil)
	assert.Equal(t, 21, decode[sessionResponse](t, w).State.SeriesN)

	w = env.do(t, http.MethodPut, base+"/series", map[string]any{"symbol": "ETHUSDT", "interval": "7m"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStreamCandles(t *testing.T) {
	env := newTestEnv(t)
	st := env.createStrategy(t)
	sess := env.createSession(t, st.ID)

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/sessions/"+sess.ID+"/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	events := bufio.NewScanner(resp.Body)
	next := func() (string, string) {
		var event, data string
		for events.Scan() {
			line := events.Text()
			switch {
			case strings.HasPrefix(line, "event:"):
				event = strings.TrimPrefix(line, "event:")
			case strings.HasPrefix(line, "data:"):
				data = strings.TrimPrefix(line, "data:")
			case line == "" && event != "":
				return event, data
			}
		}
		return event, data
	}

	event, _ := next()
	require.Equal(t, "state", event)

	env.live.push(domain.Candle{Time: baseTime + 20*3600, Close: 120})
	event, data := next()
	require.Equal(t, "candle", event)

	var u candleUpdate
	require.NoError(t, json.Unmarshal([]byte(data), &u))
	assert.Equal(t, "appended", u.Result)
	assert.Equal(t, 120.0, u.Candle.Close)
}
