package replay

import (
	"sort"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
)

// Mode is the cursor mode.
type Mode string

// Cursor modes.
const (
	ModeLive   Mode = "live"
	ModeReplay Mode = "replay"
)

// CursorState is the observable cursor position.
// In live mode both indices are -1.
type CursorState struct {
	Mode         Mode `json:"mode"`
	StartIndex   int  `json:"start_index"`
	CurrentIndex int  `json:"current_index"`
}

// Cursor reveals a fixed series one candle at a time.
// Revealed history only grows; there is no rewind.
type Cursor struct {
	series []domain.Candle
	state  CursorState
}

// NewCursor creates a live cursor over series, which must be ordered by time.
func NewCursor(series []domain.Candle) *Cursor {
	return &Cursor{
		series: series,
		state:  CursorState{Mode: ModeLive, StartIndex: -1, CurrentIndex: -1},
	}
}

// Start enters replay at the candle whose time equals atTime exactly.
// It is a no-op returning false when atTime is not in the series or the
// cursor is already replaying.
func (c *Cursor) Start(atTime int64) bool {
	if c.state.Mode == ModeReplay {
		return false
	}

	i := sort.Search(len(c.series), func(i int) bool { return c.series[i].Time >= atTime })
	if i == len(c.series) || c.series[i].Time != atTime {
		return false
	}

	c.state = CursorState{Mode: ModeReplay, StartIndex: i, CurrentIndex: i}
	return true
}

// Advance reveals the next candle. It is a no-op returning false in live
// mode and at the end of history.
func (c *Cursor) Advance() (domain.Candle, bool) {
	if c.state.Mode != ModeReplay || c.state.CurrentIndex+1 >= len(c.series) {
		return domain.Candle{}, false
	}
	c.state.CurrentIndex++
	return c.series[c.state.CurrentIndex], true
}

// Stop returns to live mode. Returns false if already live.
func (c *Cursor) Stop() bool {
	if c.state.Mode != ModeReplay {
		return false
	}
	c.state = CursorState{Mode: ModeLive, StartIndex: -1, CurrentIndex: -1}
	return true
}

// State returns the current cursor state.
func (c *Cursor) State() CursorState {
	return c.state
}

// Current returns the candle at the cursor. ok is false in live mode.
func (c *Cursor) Current() (domain.Candle, bool) {
	if c.state.Mode != ModeReplay {
		return domain.Candle{}, false
	}
	return c.series[c.state.CurrentIndex], true
}

// Visible returns a copy of the revealed prefix, or the whole series in live mode.
func (c *Cursor) Visible() []domain.Candle {
	n := len(c.series)
	if c.state.Mode == ModeReplay {
		n = c.state.CurrentIndex + 1
	}
	return append([]domain.Candle(nil), c.series[:n]...)
}

// Len returns the length of the underlying series.
func (c *Cursor) Len() int {
	return len(c.series)
}
