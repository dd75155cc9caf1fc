package domain

// EffectKind names a rendering side effect produced by a replay state transition.
type EffectKind string

// Effect kinds consumed by the chart layer.
const (
	EffectShowSeries      EffectKind = "show_series"       // live mode: render the full series
	EffectRevealCandle    EffectKind = "reveal_candle"     // replay: show series[0..Index]
	EffectEntryMarker     EffectKind = "entry_marker"      // marker at Time/Price for Side
	EffectExitMarker      EffectKind = "exit_marker"       // marker at Time/Price for Side
	EffectAddPriceLine    EffectKind = "add_price_line"    // horizontal line Line at Price
	EffectRemovePriceLine EffectKind = "remove_price_line" // remove line Line
	EffectTradeClosed     EffectKind = "trade_closed"      // Trade was produced
)

// PriceLine identifies one of the reference lines drawn for an open position.
type PriceLine string

// Price line identifiers.
const (
	LineEntry      PriceLine = "entry"
	LineStopLoss   PriceLine = "stop_loss"
	LineTakeProfit PriceLine = "take_profit"
)

// Effect is a single instruction for the rendering layer. Only the fields
// relevant to Kind are set.
type Effect struct {
	Kind   EffectKind `json:"kind"`
	Index  int        `json:"index,omitempty"`
	Candle *Candle    `json:"candle,omitempty"`
	Line   PriceLine  `json:"line,omitempty"`
	Price  float64    `json:"price,omitempty"`
	Side   Side       `json:"side,omitempty"`
	Time   int64      `json:"time,omitempty"`
	Trade  *Trade     `json:"trade,omitempty"`
}
