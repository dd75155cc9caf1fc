package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/storage"
)

// CandleStore is an in-memory implementation of storage.CandleStore.
type CandleStore struct {
	mu   sync.RWMutex
	data map[domain.SeriesKey]map[int64]domain.Candle // keyed by series, then time
}

// NewCandleStore creates a new in-memory candle store.
func NewCandleStore() *CandleStore {
	return &CandleStore{
		data: make(map[domain.SeriesKey]map[int64]domain.Candle),
	}
}

// InsertBulk stores candles for a series, skipping times already stored.
func (s *CandleStore) InsertBulk(_ context.Context, key domain.SeriesKey, candles []domain.Candle) error {
	if key.Symbol == "" || key.Interval == "" {
		return storage.ErrInvalidInput
	}
	if len(candles) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	series, ok := s.data[key]
	if !ok {
		series = make(map[int64]domain.Candle, len(candles))
		s.data[key] = series
	}
	for _, c := range candles {
		if _, exists := series[c.Time]; exists {
			continue
		}
		series[c.Time] = c
	}
	return nil
}

// GetRange retrieves candles within [from, to] (inclusive), ordered by time ASC.
func (s *CandleStore) GetRange(_ context.Context, key domain.SeriesKey, from, to int64) ([]domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Candle
	for t, c := range s.data[key] {
		if t >= from && t <= to {
			result = append(result, c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Time < result[j].Time
	})

	return result, nil
}

// Count returns the number of cached candles for a series.
func (s *CandleStore) Count(_ context.Context, key domain.SeriesKey) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.data[key]), nil
}

var _ storage.CandleStore = (*CandleStore)(nil)
