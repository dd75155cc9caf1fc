package storage

import (
	"context"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
)

// TradeStore provides access to the trade journal.
type TradeStore interface {
	// Create persists a trade for (ownerID, strategyID) and returns the stored copy
	// with a generated ID. Returns ErrInvalidInput on a nil trade or empty strategy ID.
	Create(ctx context.Context, ownerID, strategyID string, t *domain.Trade) (*domain.Trade, error)

	// Update applies a partial update. Returns ErrNotFound if the trade does not exist.
	Update(ctx context.Context, id string, patch domain.TradePatch) error

	// Delete removes a trade. Returns ErrNotFound if the trade does not exist.
	Delete(ctx context.Context, id string) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Trade, error)

	// ListByStrategy retrieves all trades of a strategy, ordered by entry_time ASC, id ASC.
	ListByStrategy(ctx context.Context, strategyID string) ([]*domain.Trade, error)
}

// StrategyStore provides access to strategies.
type StrategyStore interface {
	// Create persists a strategy. An empty ID is generated.
	// Returns ErrDuplicateKey if the ID exists.
	Create(ctx context.Context, s *domain.Strategy) (*domain.Strategy, error)

	// GetByID retrieves a strategy. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Strategy, error)

	// ListByOwner retrieves all strategies of an owner, ordered by created_at ASC.
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Strategy, error)

	// Delete removes a strategy. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, id string) error
}

// CandleStore caches historical candles per series.
type CandleStore interface {
	// InsertBulk stores candles for a series. Candles whose time is already stored are skipped.
	InsertBulk(ctx context.Context, key domain.SeriesKey, candles []domain.Candle) error

	// GetRange retrieves candles within [from, to] (inclusive, Unix seconds), ordered by time ASC.
	GetRange(ctx context.Context, key domain.SeriesKey, from, to int64) ([]domain.Candle, error)

	// Count returns the number of cached candles for a series.
	Count(ctx context.Context, key domain.SeriesKey) (int, error)
}
