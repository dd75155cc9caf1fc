package candles

import (
	"sort"
	"sync"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/observability"
)

// UpdateResult describes what Apply did with a live candle.
type UpdateResult int

const (
	// Ignored: the series is frozen or the candle is older than the last one.
	Ignored UpdateResult = iota
	// Appended: the candle opened a new period.
	Appended
	// Replaced: the candle updated the in-progress last period.
	Replaced
)

// String returns the lowercase outcome name.
func (r UpdateResult) String() string {
	switch r {
	case Appended:
		return "appended"
	case Replaced:
		return "replaced"
	default:
		return "ignored"
	}
}

// UpdateFunc receives every candle that changed the series.
type UpdateFunc func(c domain.Candle, result UpdateResult)

// Series is the ordered candle list of the active (symbol, interval)
// selection. It is safe for concurrent use.
type Series struct {
	mu      sync.RWMutex
	key     domain.SeriesKey
	candles []domain.Candle
	frozen  bool

	subs    map[int]UpdateFunc
	nextSub int
}

// NewSeries creates a series from history. The input is merged, so
// unsorted or overlapping input is accepted.
func NewSeries(key domain.SeriesKey, history []domain.Candle) *Series {
	return &Series{
		key:     key,
		candles: Merge(history),
		subs:    make(map[int]UpdateFunc),
	}
}

// Key returns the current series key.
func (s *Series) Key() domain.SeriesKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key
}

// Len returns the number of candles.
func (s *Series) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.candles)
}

// Candles returns a copy of the full series.
func (s *Series) Candles() []domain.Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Candle(nil), s.candles...)
}

// Last returns the newest candle.
func (s *Series) Last() (domain.Candle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.candles) == 0 {
		return domain.Candle{}, false
	}
	return s.candles[len(s.candles)-1], true
}

// IndexOf returns the index of the candle whose time equals t exactly, or -1.
func (s *Series) IndexOf(t int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexOf(s.candles, t)
}

func indexOf(candles []domain.Candle, t int64) int {
	i := sort.Search(len(candles), func(i int) bool { return candles[i].Time >= t })
	if i < len(candles) && candles[i].Time == t {
		return i
	}
	return -1
}

// Replace swaps in a new selection wholesale. A frozen series stays frozen.
func (s *Series) Replace(key domain.SeriesKey, history []domain.Candle) {
	merged := Merge(history)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = key
	s.candles = merged
}

// Apply merges one live update: a newer time appends, the last time
// replaces the in-progress candle, anything else is ignored. Every update is
// ignored while the series is frozen.
func (s *Series) Apply(c domain.Candle) UpdateResult {
	s.mu.Lock()
	result := Ignored
	n := len(s.candles)
	switch {
	case s.frozen:
	case n == 0 || c.Time > s.candles[n-1].Time:
		s.candles = append(s.candles, c)
		result = Appended
	case c.Time == s.candles[n-1].Time:
		s.candles[n-1] = c
		result = Replaced
	}

	var subs []UpdateFunc
	if result != Ignored {
		subs = make([]UpdateFunc, 0, len(s.subs))
		for _, fn := range s.subs {
			subs = append(subs, fn)
		}
	}
	s.mu.Unlock()

	observability.RecordLiveUpdate(result.String())
	for _, fn := range subs {
		fn(c, result)
	}
	return result
}

// Freeze stops Apply from changing the series and returns a snapshot of it.
func (s *Series) Freeze() []domain.Candle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frozen = true
	return append([]domain.Candle(nil), s.candles...)
}

// Unfreeze lets Apply change the series again.
func (s *Series) Unfreeze() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frozen = false
}

// Frozen reports whether live updates are being ignored.
func (s *Series) Frozen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frozen
}

// Subscribe registers fn for appended and replaced candles. Callbacks run
// on the goroutine calling Apply, after the series lock is released.
func (s *Series) Subscribe(fn UpdateFunc) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}
