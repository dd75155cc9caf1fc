package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/storage"
)

// StrategyStore is an in-memory implementation of storage.StrategyStore.
type StrategyStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Strategy
	now  func() time.Time
}

// NewStrategyStore creates a new in-memory strategy store.
func NewStrategyStore() *StrategyStore {
	return &StrategyStore{
		data: make(map[string]*domain.Strategy),
		now:  time.Now,
	}
}

// Create persists a strategy. An empty ID is generated.
func (s *StrategyStore) Create(_ context.Context, st *domain.Strategy) (*domain.Strategy, error) {
	if st == nil || st.OwnerID == "" || st.Name == "" {
		return nil, storage.ErrInvalidInput
	}

	stored := *st
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[stored.ID]; exists {
		return nil, storage.ErrDuplicateKey
	}
	s.data[stored.ID] = &stored

	out := stored
	return &out, nil
}

// GetByID retrieves a strategy. Returns ErrNotFound if not exists.
func (s *StrategyStore) GetByID(_ context.Context, id string) (*domain.Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	out := *st
	return &out, nil
}

// ListByOwner retrieves all strategies of an owner, ordered by created_at ASC.
func (s *StrategyStore) ListByOwner(_ context.Context, ownerID string) ([]*domain.Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Strategy
	for _, st := range s.data {
		if st.OwnerID == ownerID {
			out := *st
			result = append(result, &out)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// Delete removes a strategy. Returns ErrNotFound if not exists.
func (s *StrategyStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[id]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, id)
	return nil
}

var _ storage.StrategyStore = (*StrategyStore)(nil)
