package candles

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/observability"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/storage"
)

// CachedSource serves history pages from a CandleStore when the store holds
// the complete page, and otherwise fetches upstream and writes the page back.
//
// Pages requested with endTime <= 0 always go upstream: the newest candle is
// still forming and must not be cached.
type CachedSource struct {
	upstream HistorySource
	store    storage.CandleStore
	database string
	logger   *zap.Logger
}

// NewCachedSource wraps upstream with store. database labels query metrics.
func NewCachedSource(upstream HistorySource, store storage.CandleStore, database string, logger *zap.Logger) *CachedSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSource{
		upstream: upstream,
		store:    store,
		database: database,
		logger:   logger,
	}
}

var _ HistorySource = (*CachedSource)(nil)

// FetchPage implements HistorySource.
func (s *CachedSource) FetchPage(ctx context.Context, key domain.SeriesKey, endTime int64, limit int) ([]domain.Candle, error) {
	if endTime > 0 {
		if page, ok := s.lookup(ctx, key, endTime, limit); ok {
			observability.RecordCacheLookup(true)
			return page, nil
		}
		observability.RecordCacheLookup(false)
	}

	page, err := s.upstream.FetchPage(ctx, key, endTime, limit)
	if err != nil {
		return nil, err
	}

	toCache := page
	if endTime <= 0 && len(toCache) > 0 {
		toCache = toCache[:len(toCache)-1]
	}
	if len(toCache) > 0 {
		start := time.Now()
		err := s.store.InsertBulk(ctx, key, toCache)
		observability.RecordDBQuery(s.database, "insert_candles", time.Since(start).Seconds(), err)
		if err != nil {
			// The page is still usable without the cache.
			s.logger.Warn("candle cache write failed",
				zap.String("series", key.String()),
				zap.Error(err))
		}
	}

	return page, nil
}

// lookup returns the cached page ending at endTime if it is complete:
// limit candles spaced exactly one interval apart.
func (s *CachedSource) lookup(ctx context.Context, key domain.SeriesKey, endTime int64, limit int) ([]domain.Candle, bool) {
	step := domain.IntervalSeconds(key.Interval)
	if step == 0 || limit <= 0 {
		return nil, false
	}

	from := endTime - int64(limit-1)*step
	start := time.Now()
	cached, err := s.store.GetRange(ctx, key, from, endTime)
	observability.RecordDBQuery(s.database, "get_candle_range", time.Since(start).Seconds(), err)
	if err != nil {
		s.logger.Warn("candle cache read failed",
			zap.String("series", key.String()),
			zap.Error(err))
		return nil, false
	}

	if len(cached) != limit || cached[0].Time != from || cached[len(cached)-1].Time != endTime {
		return nil, false
	}
	return cached, true
}

// Backfill assembles the full history for key through the cache and reports
// how many candles the store now holds.
func Backfill(ctx context.Context, assembler *Assembler, store storage.CandleStore, key domain.SeriesKey) (fetched, cached int, err error) {
	series, err := assembler.FetchHistory(ctx, key)
	if err != nil {
		return 0, 0, err
	}

	cached, err = store.Count(ctx, key)
	if err != nil {
		return len(series), 0, fmt.Errorf("count cached %s: %w", key, err)
	}
	return len(series), cached, nil
}
