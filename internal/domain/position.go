package domain

// Position is the single open simulated position of a replay session.
// Callers are expected to bracket EntryPrice consistently with Side
// (long: StopLoss < EntryPrice < TakeProfit, short reversed); the engine does not enforce it.
type Position struct {
	Side       Side     `json:"side"`
	EntryPrice float64  `json:"entry_price"`
	Size       float64  `json:"size"`
	StopLoss   *float64 `json:"stop_loss,omitempty"`
	TakeProfit *float64 `json:"take_profit,omitempty"`
	EntryTime  int64    `json:"entry_time"`
}

// Clone returns a deep copy of p.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	c := *p
	if p.StopLoss != nil {
		v := *p.StopLoss
		c.StopLoss = &v
	}
	if p.TakeProfit != nil {
		v := *p.TakeProfit
		c.TakeProfit = &v
	}
	return &c
}
