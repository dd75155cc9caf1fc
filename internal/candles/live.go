package candles

import (
	"context"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
)

// LiveSource pushes in-progress and newly opened candles.
type LiveSource interface {
	// Subscribe starts delivering updates for key to onCandle until the
	// returned unsubscribe is called or ctx is done. Unsubscribe is idempotent.
	Subscribe(ctx context.Context, key domain.SeriesKey, onCandle func(domain.Candle)) (unsubscribe func(), err error)
}

// Follow feeds live updates for the series' current key into it.
// Updates arriving while the series is frozen are ignored by Apply.
func Follow(ctx context.Context, live LiveSource, s *Series) (unsubscribe func(), err error) {
	return live.Subscribe(ctx, s.Key(), func(c domain.Candle) {
		s.Apply(c)
	})
}
