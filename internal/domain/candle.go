package domain

// Candle is one OHLC interval of a price series.
// Time is the interval open time in Unix seconds and is unique within a series.
type Candle struct {
	Time  int64   `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// SeriesKey identifies a candle series.
type SeriesKey struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"` // exchange notation: "1m", "15m", "1h", "1d"
}

// String returns "SYMBOL/interval".
func (k SeriesKey) String() string {
	return k.Symbol + "/" + k.Interval
}

// Supported intervals, in Binance kline notation.
var Intervals = []string{"1m", "3m", "5m", "15m", "30m", "1h", "2h", "4h", "6h", "8h", "12h", "1d", "3d", "1w"}

var intervalSeconds = map[string]int64{
	"1m": 60, "3m": 180, "5m": 300, "15m": 900, "30m": 1800,
	"1h": 3600, "2h": 7200, "4h": 14400, "6h": 21600, "8h": 28800, "12h": 43200,
	"1d": 86400, "3d": 259200, "1w": 604800,
}

// ValidInterval reports whether interval is one of Intervals.
func ValidInterval(interval string) bool {
	_, ok := intervalSeconds[interval]
	return ok
}

// IntervalSeconds returns the candle period length, or 0 for an unknown interval.
func IntervalSeconds(interval string) int64 {
	return intervalSeconds[interval]
}
