package candles

import (
	"context"
	"errors"
	"sync"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
)

// fakeSource serves pages out of a fixed history like an exchange would:
// the newest limit candles with time <= endTime.
type fakeSource struct {
	mu      sync.Mutex
	history []domain.Candle
	calls   []int64
	err     error
	stuck   bool // ignore endTime and always return the newest page
}

func newFakeSource(n int, step int64) *fakeSource {
	h := make([]domain.Candle, n)
	for i := range h {
		h[i] = domain.Candle{Time: int64(i+1) * step, Close: float64(i + 1)}
	}
	return &fakeSource{history: h}
}

func (f *fakeSource) FetchPage(_ context.Context, _ domain.SeriesKey, endTime int64, limit int) ([]domain.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, endTime)
	if f.err != nil {
		return nil, f.err
	}

	end := len(f.history)
	if endTime > 0 && !f.stuck {
		end = 0
		for end < len(f.history) && f.history[end].Time <= endTime {
			end++
		}
	}
	start := max(0, end-limit)
	return append([]domain.Candle(nil), f.history[start:end]...), nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var errUpstream = errors.New("upstream down")
