package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Trade // keyed by id
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string]*domain.Trade),
	}
}

// Create persists a trade and returns the stored copy with a generated ID.
func (s *TradeStore) Create(_ context.Context, ownerID, strategyID string, t *domain.Trade) (*domain.Trade, error) {
	if t == nil || strategyID == "" {
		return nil, storage.ErrInvalidInput
	}

	stored := t.Clone()
	stored.ID = uuid.NewString()
	stored.OwnerID = ownerID
	stored.StrategyID = strategyID

	s.mu.Lock()
	s.data[stored.ID] = stored
	s.mu.Unlock()

	return stored.Clone(), nil
}

// Update applies a partial update. Returns ErrNotFound if the trade does not exist.
func (s *TradeStore) Update(_ context.Context, id string, patch domain.TradePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}

	updated := t.Clone()
	patch.Apply(updated)
	s.data[id] = updated
	return nil
}

// Delete removes a trade. Returns ErrNotFound if the trade does not exist.
func (s *TradeStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[id]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, id)
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(_ context.Context, id string) (*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return t.Clone(), nil
}

// ListByStrategy retrieves all trades of a strategy, ordered by entry_time ASC, id ASC.
func (s *TradeStore) ListByStrategy(_ context.Context, strategyID string) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, t := range s.data {
		if t.StrategyID == strategyID {
			result = append(result, t.Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].EntryTime != result[j].EntryTime {
			return result[i].EntryTime < result[j].EntryTime
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

var _ storage.TradeStore = (*TradeStore)(nil)
