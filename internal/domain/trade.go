package domain

import "encoding/json"

// Side is the direction of a position.
type Side string

// Side constants.
const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Valid reports whether s is long or short.
func (s Side) Valid() bool {
	return s == SideLong || s == SideShort
}

// Direction returns +1 for long and -1 for short.
func (s Side) Direction() float64 {
	if s == SideShort {
		return -1
	}
	return 1
}

// TradeStatus classifies a closed trade by its PnL.
type TradeStatus string

// Trade status constants.
const (
	StatusWin       TradeStatus = "win"
	StatusLoss      TradeStatus = "loss"
	StatusBreakeven TradeStatus = "breakeven"
)

// BreakevenEpsilon is the absolute PnL band classified as breakeven.
const BreakevenEpsilon = 0.001

// ExitReason records what closed a position.
type ExitReason string

// Exit reason codes
const (
	ExitReasonManual        ExitReason = "manual"
	ExitReasonStopLoss      ExitReason = "stop_loss"
	ExitReasonTakeProfit    ExitReason = "take_profit"
	ExitReasonReplayStopped ExitReason = "replay_stopped"
)

// Trade is a closed simulated position. Immutable once created except for an
// explicit user edit or delete through the journal.
type Trade struct {
	ID         string `json:"id,omitempty"` // assigned by the store
	OwnerID    string `json:"owner_id,omitempty"`
	StrategyID string `json:"strategy_id,omitempty"`
	Symbol     string `json:"symbol,omitempty"`
	Interval   string `json:"interval,omitempty"`

	Side       Side     `json:"side"`
	EntryPrice float64  `json:"entry_price"`
	ExitPrice  float64  `json:"exit_price"`
	StopLoss   *float64 `json:"stop_loss,omitempty"`
	TakeProfit *float64 `json:"take_profit,omitempty"`
	Size       float64  `json:"size"` // notional, quote currency units

	PnL       float64     `json:"pnl"`
	RMultiple float64     `json:"r_multiple"`
	Status    TradeStatus `json:"status"`

	EntryTime  int64      `json:"entry_time"` // Unix seconds
	ExitTime   int64      `json:"exit_time"`  // Unix seconds
	ExitReason ExitReason `json:"exit_reason,omitempty"`
	Notes      string     `json:"notes,omitempty"`
}

// Clone returns a deep copy of t.
func (t *Trade) Clone() *Trade {
	if t == nil {
		return nil
	}
	c := *t
	if t.StopLoss != nil {
		v := *t.StopLoss
		c.StopLoss = &v
	}
	if t.TakeProfit != nil {
		v := *t.TakeProfit
		c.TakeProfit = &v
	}
	return &c
}

// tradeJSON is Trade without its methods, so the custom codecs below can
// embed it without recursing.
type tradeJSON Trade

// MarshalJSON implements json.Marshaler. Non-finite prices, PnL and
// R-multiples from degenerate input encode as "Infinity", "-Infinity" or "NaN".
func (t Trade) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		tradeJSON
		EntryPrice Ratio `json:"entry_price"`
		ExitPrice  Ratio `json:"exit_price"`
		Size       Ratio `json:"size"`
		PnL        Ratio `json:"pnl"`
		RMultiple  Ratio `json:"r_multiple"`
	}{
		tradeJSON:  tradeJSON(t),
		EntryPrice: Ratio(t.EntryPrice),
		ExitPrice:  Ratio(t.ExitPrice),
		Size:       Ratio(t.Size),
		PnL:        Ratio(t.PnL),
		RMultiple:  Ratio(t.RMultiple),
	})
}

// UnmarshalJSON implements json.Unmarshaler and accepts the sentinel strings
// written by MarshalJSON.
func (t *Trade) UnmarshalJSON(data []byte) error {
	aux := struct {
		*tradeJSON
		EntryPrice Ratio `json:"entry_price"`
		ExitPrice  Ratio `json:"exit_price"`
		Size       Ratio `json:"size"`
		PnL        Ratio `json:"pnl"`
		RMultiple  Ratio `json:"r_multiple"`
	}{
		tradeJSON:  (*tradeJSON)(t),
		EntryPrice: Ratio(t.EntryPrice),
		ExitPrice:  Ratio(t.ExitPrice),
		Size:       Ratio(t.Size),
		PnL:        Ratio(t.PnL),
		RMultiple:  Ratio(t.RMultiple),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t.EntryPrice = float64(aux.EntryPrice)
	t.ExitPrice = float64(aux.ExitPrice)
	t.Size = float64(aux.Size)
	t.PnL = float64(aux.PnL)
	t.RMultiple = float64(aux.RMultiple)
	return nil
}

// TradePatch carries the fields of a partial trade update. Nil fields are left unchanged.
// ClearStopLoss/ClearTakeProfit remove the bracket level entirely.
type TradePatch struct {
	Side            *Side        `json:"side,omitempty"`
	EntryPrice      *float64     `json:"entry_price,omitempty"`
	ExitPrice       *float64     `json:"exit_price,omitempty"`
	StopLoss        *float64     `json:"stop_loss,omitempty"`
	TakeProfit      *float64     `json:"take_profit,omitempty"`
	ClearStopLoss   bool         `json:"clear_stop_loss,omitempty"`
	ClearTakeProfit bool         `json:"clear_take_profit,omitempty"`
	Size            *float64     `json:"size,omitempty"`
	PnL             *float64     `json:"pnl,omitempty"`
	RMultiple       *float64     `json:"r_multiple,omitempty"`
	Status          *TradeStatus `json:"status,omitempty"`
	EntryTime       *int64       `json:"entry_time,omitempty"`
	ExitTime        *int64       `json:"exit_time,omitempty"`
	Notes           *string      `json:"notes,omitempty"`
}

// Apply writes the non-nil patch fields into t.
func (p TradePatch) Apply(t *Trade) {
	if p.Side != nil {
		t.Side = *p.Side
	}
	if p.EntryPrice != nil {
		t.EntryPrice = *p.EntryPrice
	}
	if p.ExitPrice != nil {
		t.ExitPrice = *p.ExitPrice
	}
	if p.ClearStopLoss {
		t.StopLoss = nil
	} else if p.StopLoss != nil {
		v := *p.StopLoss
		t.StopLoss = &v
	}
	if p.ClearTakeProfit {
		t.TakeProfit = nil
	} else if p.TakeProfit != nil {
		v := *p.TakeProfit
		t.TakeProfit = &v
	}
	if p.Size != nil {
		t.Size = *p.Size
	}
	if p.PnL != nil {
		t.PnL = *p.PnL
	}
	if p.RMultiple != nil {
		t.RMultiple = *p.RMultiple
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.EntryTime != nil {
		t.EntryTime = *p.EntryTime
	}
	if p.ExitTime != nil {
		t.ExitTime = *p.ExitTime
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
}

// Empty reports whether the patch changes nothing.
func (p TradePatch) Empty() bool {
	return p == TradePatch{}
}
