// Package journal is the per-strategy trade log. New trades appear
// immediately as pending entries and are reconciled once the store answers.
package journal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/metrics"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/observability"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/position"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/storage"
)

// Options configures a Journal.
type Options struct {
	Store      storage.TradeStore
	OwnerID    string
	StrategyID string
	Listeners  []Listener
	Logger     *zap.Logger
}

// Journal is the trade log of one strategy. It is safe for concurrent use.
// There is no automatic retry: a failed entry stays failed until Retry or Discard.
type Journal struct {
	store      storage.TradeStore
	ownerID    string
	strategyID string
	listeners  []Listener
	logger     *zap.Logger
	now        func() time.Time

	mu      sync.Mutex
	entries []*Entry // submission order
	wg      sync.WaitGroup
}

// New creates an empty journal.
func New(opts Options) *Journal {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Journal{
		store:      opts.Store,
		ownerID:    opts.OwnerID,
		strategyID: opts.StrategyID,
		listeners:  opts.Listeners,
		logger:     logger.With(zap.String("strategy_id", opts.StrategyID)),
		now:        time.Now,
	}
}

// StrategyID returns the strategy this journal belongs to.
func (j *Journal) StrategyID() string {
	return j.strategyID
}

// Load replaces the log with the strategy's persisted trades, all confirmed.
func (j *Journal) Load(ctx context.Context) error {
	trades, err := j.store.ListByStrategy(ctx, j.strategyID)
	if err != nil {
		return fmt.Errorf("load journal %s: %w", j.strategyID, err)
	}

	entries := make([]*Entry, len(trades))
	for i, t := range trades {
		entries[i] = &Entry{LocalID: t.ID, Status: StatusConfirmed, Trade: t}
	}

	j.mu.Lock()
	j.entries = entries
	j.mu.Unlock()

	j.logger.Debug("journal loaded", zap.Int("trades", len(trades)))
	return nil
}

// Submit appends t as a pending entry and persists it in the background.
// Returns the entry's local ID. Submit never blocks on the store.
func (j *Journal) Submit(ctx context.Context, t *domain.Trade) string {
	e := j.appendPending(t)

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		j.persist(context.WithoutCancel(ctx), e.LocalID, e.Trade)
	}()
	return e.LocalID
}

// Record appends t and persists it synchronously.
func (j *Journal) Record(ctx context.Context, t *domain.Trade) (Entry, error) {
	e := j.appendPending(t)
	return j.persist(ctx, e.LocalID, e.Trade)
}

// Wait blocks until all background persistence started by Submit has finished.
func (j *Journal) Wait() {
	j.wg.Wait()
}

// Retry persists a failed entry again.
func (j *Journal) Retry(ctx context.Context, localID string) (Entry, error) {
	j.mu.Lock()
	e := j.find(localID)
	if e == nil {
		j.mu.Unlock()
		return Entry{}, ErrUnknownEntry
	}
	if e.Status != StatusFailed {
		j.mu.Unlock()
		return Entry{}, ErrNotFailed
	}
	e.Status = StatusPending
	e.Error = ""
	trade := e.Trade.Clone()
	j.mu.Unlock()

	observability.AddPending(1)
	return j.persist(ctx, localID, trade)
}

// Discard drops a failed entry from the log.
func (j *Journal) Discard(localID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	e := j.find(localID)
	if e == nil {
		return ErrUnknownEntry
	}
	if e.Status != StatusFailed {
		return ErrNotFailed
	}
	j.remove(localID)
	j.logger.Debug("failed entry discarded", zap.String("local_id", localID))
	return nil
}

// Update edits a confirmed trade. When the patch changes side, prices, size
// or stop, PnL, R-multiple and status are recomputed. The local entry
// changes only after the store accepts the update.
func (j *Journal) Update(ctx context.Context, localID string, patch domain.TradePatch) (Entry, error) {
	j.mu.Lock()
	e := j.find(localID)
	if e == nil {
		j.mu.Unlock()
		return Entry{}, ErrUnknownEntry
	}
	if e.Status != StatusConfirmed {
		j.mu.Unlock()
		return Entry{}, ErrEntryPending
	}
	updated := e.Trade.Clone()
	j.mu.Unlock()

	patch.Apply(updated)
	if touchesInputs(patch) {
		position.Recompute(updated)
		patch.PnL = &updated.PnL
		patch.RMultiple = &updated.RMultiple
		patch.Status = &updated.Status
	}

	if err := j.store.Update(ctx, updated.ID, patch); err != nil {
		observability.RecordPersist("update", err)
		return Entry{}, fmt.Errorf("update trade %s: %w", updated.ID, err)
	}
	observability.RecordPersist("update", nil)

	j.mu.Lock()
	e = j.find(localID)
	if e == nil {
		j.mu.Unlock()
		return Entry{}, ErrUnknownEntry
	}
	e.Trade = updated
	out := e.clone()
	j.mu.Unlock()

	j.notify(ctx, EventUpdated, out)
	return out, nil
}

// Delete removes an entry. Confirmed trades are deleted from the store first;
// a trade the store no longer has is still removed locally. Failed entries
// are dropped without touching the store.
func (j *Journal) Delete(ctx context.Context, localID string) error {
	j.mu.Lock()
	e := j.find(localID)
	if e == nil {
		j.mu.Unlock()
		return ErrUnknownEntry
	}
	switch e.Status {
	case StatusPending:
		j.mu.Unlock()
		return ErrEntryPending
	case StatusFailed:
		j.remove(localID)
		j.mu.Unlock()
		return nil
	}
	snapshot := e.clone()
	j.mu.Unlock()

	err := j.store.Delete(ctx, snapshot.Trade.ID)
	observability.RecordPersist("delete", err)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		j.logger.Warn("trade already gone from store", zap.String("trade_id", snapshot.Trade.ID))
	case err != nil:
		return fmt.Errorf("delete trade %s: %w", snapshot.Trade.ID, err)
	}

	j.mu.Lock()
	j.remove(localID)
	j.mu.Unlock()

	j.notify(ctx, EventDeleted, snapshot)
	return nil
}

// Entry returns one entry by local ID.
func (j *Journal) Entry(localID string) (Entry, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	e := j.find(localID)
	if e == nil {
		return Entry{}, false
	}
	return e.clone(), true
}

// Entries returns copies of all entries, including failed ones, ordered by
// entry time and then submission.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	out := make([]Entry, len(j.entries))
	for i, e := range j.entries {
		out[i] = e.clone()
	}
	j.mu.Unlock()

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Trade.EntryTime < out[b].Trade.EntryTime
	})
	return out
}

// Trades returns the confirmed and pending trades ordered by entry time.
func (j *Journal) Trades() []*domain.Trade {
	entries := j.Entries()
	out := make([]*domain.Trade, 0, len(entries))
	for _, e := range entries {
		if e.Status != StatusFailed {
			out = append(out, e.Trade)
		}
	}
	return out
}

// Stats recomputes the statistics over Trades.
func (j *Journal) Stats() domain.Stats {
	stats := metrics.Compute(j.Trades())
	observability.RecordStatsComputed()
	return stats
}

func (j *Journal) appendPending(t *domain.Trade) *Entry {
	trade := t.Clone()
	if trade == nil {
		trade = &domain.Trade{}
	}
	trade.ID = ""
	trade.OwnerID = j.ownerID
	trade.StrategyID = j.strategyID

	e := &Entry{
		LocalID:     uuid.NewString(),
		Status:      StatusPending,
		SubmittedAt: j.now(),
		Trade:       trade,
	}

	j.mu.Lock()
	j.entries = append(j.entries, e)
	j.mu.Unlock()

	observability.AddPending(1)
	return &Entry{LocalID: e.LocalID, Trade: trade.Clone()}
}

// persist writes trade and reconciles the entry with the outcome.
func (j *Journal) persist(ctx context.Context, localID string, trade *domain.Trade) (Entry, error) {
	stored, err := j.store.Create(ctx, j.ownerID, j.strategyID, trade)
	observability.RecordPersist("create", err)
	observability.AddPending(-1)

	j.mu.Lock()
	e := j.find(localID)
	if e == nil {
		j.mu.Unlock()
		return Entry{}, ErrUnknownEntry
	}
	kind := EventConfirmed
	if err != nil {
		e.Status = StatusFailed
		e.Error = err.Error()
		kind = EventFailed
	} else {
		e.Status = StatusConfirmed
		e.Trade = stored
	}
	out := e.clone()
	j.mu.Unlock()

	if err != nil {
		j.logger.Warn("trade persistence failed", zap.String("local_id", localID), zap.Error(err))
		j.notify(ctx, kind, out)
		return out, fmt.Errorf("persist trade: %w", err)
	}
	j.logger.Debug("trade persisted", zap.String("local_id", localID), zap.String("trade_id", stored.ID))
	j.notify(ctx, kind, out)
	return out, nil
}

func (j *Journal) notify(ctx context.Context, kind EventKind, e Entry) {
	ev := Event{Kind: kind, StrategyID: j.strategyID, Entry: e}
	for _, l := range j.listeners {
		l.OnJournalEvent(ctx, ev)
	}
}

func (j *Journal) find(localID string) *Entry {
	for _, e := range j.entries {
		if e.LocalID == localID {
			return e
		}
	}
	return nil
}

func (j *Journal) remove(localID string) {
	for i, e := range j.entries {
		if e.LocalID == localID {
			j.entries = append(j.entries[:i], j.entries[i+1:]...)
			return
		}
	}
}

func touchesInputs(p domain.TradePatch) bool {
	return p.Side != nil || p.EntryPrice != nil || p.ExitPrice != nil ||
		p.StopLoss != nil || p.ClearStopLoss || p.Size != nil
}
