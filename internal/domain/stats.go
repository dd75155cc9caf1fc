package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Stats is a derived performance snapshot of a trade list. Never stored.
type Stats struct {
	TotalTrades int `json:"total_trades"`
	Wins        int `json:"wins"`
	Losses      int `json:"losses"`
	Breakevens  int `json:"breakevens"`

	WinRate      float64 `json:"win_rate"` // percent, 0..100
	GrossProfit  float64 `json:"gross_profit"`
	GrossLoss    float64 `json:"gross_loss"` // absolute value
	ProfitFactor Ratio   `json:"profit_factor"`
	TotalPnL     float64 `json:"total_pnl"` // rounded to cents

	AvgRMultiple float64 `json:"avg_r_multiple"`
	MaxDrawdown  float64 `json:"max_drawdown"` // <= 0

	AvgWin               float64 `json:"avg_win"`
	AvgLoss              float64 `json:"avg_loss"` // <= 0
	LargestWin           float64 `json:"largest_win"`
	LargestLoss          float64 `json:"largest_loss"` // <= 0
	Expectancy           float64 `json:"expectancy"`   // mean PnL per trade
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`

	EquityCurve []EquityPoint `json:"equity_curve"`
}

// EquityPoint is one step of the cumulative PnL curve. Index 0 is the origin.
type EquityPoint struct {
	Index  int     `json:"index"`
	CumPnL float64 `json:"cum_pnl"`
}

// statsJSON is Stats without its methods.
type statsJSON Stats

// statsWire shadows the float fields of Stats with Ratio so that NaN and
// ±Inf from degenerate trades still encode.
type statsWire struct {
	statsJSON
	WinRate      Ratio `json:"win_rate"`
	GrossProfit  Ratio `json:"gross_profit"`
	GrossLoss    Ratio `json:"gross_loss"`
	TotalPnL     Ratio `json:"total_pnl"`
	AvgRMultiple Ratio `json:"avg_r_multiple"`
	MaxDrawdown  Ratio `json:"max_drawdown"`
	AvgWin       Ratio `json:"avg_win"`
	AvgLoss      Ratio `json:"avg_loss"`
	LargestWin   Ratio `json:"largest_win"`
	LargestLoss  Ratio `json:"largest_loss"`
	Expectancy   Ratio `json:"expectancy"`
}

func (s Stats) wire() statsWire {
	return statsWire{
		statsJSON:    statsJSON(s),
		WinRate:      Ratio(s.WinRate),
		GrossProfit:  Ratio(s.GrossProfit),
		GrossLoss:    Ratio(s.GrossLoss),
		TotalPnL:     Ratio(s.TotalPnL),
		AvgRMultiple: Ratio(s.AvgRMultiple),
		MaxDrawdown:  Ratio(s.MaxDrawdown),
		AvgWin:       Ratio(s.AvgWin),
		AvgLoss:      Ratio(s.AvgLoss),
		LargestWin:   Ratio(s.LargestWin),
		LargestLoss:  Ratio(s.LargestLoss),
		Expectancy:   Ratio(s.Expectancy),
	}
}

// MarshalJSON implements json.Marshaler.
func (s Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.wire())
}

// UnmarshalJSON implements json.Unmarshaler and accepts the sentinel strings.
func (s *Stats) UnmarshalJSON(data []byte) error {
	w := s.wire()
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = Stats(w.statsJSON)
	s.WinRate = float64(w.WinRate)
	s.GrossProfit = float64(w.GrossProfit)
	s.GrossLoss = float64(w.GrossLoss)
	s.TotalPnL = float64(w.TotalPnL)
	s.AvgRMultiple = float64(w.AvgRMultiple)
	s.MaxDrawdown = float64(w.MaxDrawdown)
	s.AvgWin = float64(w.AvgWin)
	s.AvgLoss = float64(w.AvgLoss)
	s.LargestWin = float64(w.LargestWin)
	s.LargestLoss = float64(w.LargestLoss)
	s.Expectancy = float64(w.Expectancy)
	return nil
}

// MarshalJSON implements json.Marshaler; CumPnL may be non-finite.
func (p EquityPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Index  int   `json:"index"`
		CumPnL Ratio `json:"cum_pnl"`
	}{p.Index, Ratio(p.CumPnL)})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *EquityPoint) UnmarshalJSON(data []byte) error {
	var aux struct {
		Index  int   `json:"index"`
		CumPnL Ratio `json:"cum_pnl"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.Index = aux.Index
	p.CumPnL = float64(aux.CumPnL)
	return nil
}

// Ratio is a float64 whose JSON form survives non-finite values.
// +Inf, -Inf and NaN encode as the strings "Infinity", "-Infinity" and "NaN".
type Ratio float64

// IsInf reports whether r is +Inf.
func (r Ratio) IsInf() bool {
	return math.IsInf(float64(r), 1)
}

// String renders r for display; +Inf renders as "∞".
func (r Ratio) String() string {
	f := float64(r)
	switch {
	case math.IsInf(f, 1):
		return "∞"
	case math.IsInf(f, -1):
		return "-∞"
	case math.IsNaN(f):
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// MarshalJSON implements json.Marshaler.
func (r Ratio) MarshalJSON() ([]byte, error) {
	f := float64(r)
	switch {
	case math.IsInf(f, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Infinity"`), nil
	case math.IsNaN(f):
		return []byte(`"NaN"`), nil
	}
	return []byte(strconv.FormatFloat(f, 'g', -1, 64)), nil
}

// UnmarshalJSON implements json.Unmarshaler. Accepts numbers and the sentinel strings.
func (r *Ratio) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch s {
		case "Infinity", "+Infinity", "∞":
			*r = Ratio(math.Inf(1))
		case "-Infinity", "-∞":
			*r = Ratio(math.Inf(-1))
		case "NaN":
			*r = Ratio(math.NaN())
		default:
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("parse ratio %q: %w", s, err)
			}
			*r = Ratio(f)
		}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*r = Ratio(f)
	return nil
}
