// Package candles assembles and owns the candle series a replay runs over.
package candles

import (
	"errors"
	"fmt"
	"sort"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
)

// ErrInvalidOrdering is returned when candle times are not strictly increasing.
var ErrInvalidOrdering = errors.New("candles are not in strictly increasing time order")

// Merge combines pages into one series ordered by time ASC.
// Candles sharing a time collapse to one; a later page wins over an earlier one.
func Merge(pages ...[]domain.Candle) []domain.Candle {
	total := 0
	for _, p := range pages {
		total += len(p)
	}

	byTime := make(map[int64]domain.Candle, total)
	for _, p := range pages {
		for _, c := range p {
			byTime[c.Time] = c
		}
	}

	merged := make([]domain.Candle, 0, len(byTime))
	for _, c := range byTime {
		merged = append(merged, c)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Time < merged[j].Time
	})
	return merged
}

// ValidateOrdering checks that times are strictly increasing.
func ValidateOrdering(candles []domain.Candle) error {
	for i := 1; i < len(candles); i++ {
		if candles[i].Time <= candles[i-1].Time {
			return fmt.Errorf("%w: index %d time %d after %d",
				ErrInvalidOrdering, i, candles[i].Time, candles[i-1].Time)
		}
	}
	return nil
}
