// Package reporting renders a strategy's journal and statistics as Markdown or CSV.
package reporting

import (
	"time"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
)

// Report is everything rendered for one strategy.
type Report struct {
	GeneratedAt time.Time
	Strategy    *domain.Strategy
	Stats       domain.Stats
	Trades      []*domain.Trade // entry time order
}

// Period returns the first entry time and last exit time of the trades
// (Unix seconds), or zeros without trades.
func (r *Report) Period() (from, to int64) {
	for i, t := range r.Trades {
		if i == 0 || t.EntryTime < from {
			from = t.EntryTime
		}
		if t.ExitTime > to {
			to = t.ExitTime
		}
	}
	return from, to
}
