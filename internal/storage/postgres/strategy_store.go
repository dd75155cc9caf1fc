package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/storage"
)

// StrategyStore implements storage.StrategyStore using PostgreSQL.
type StrategyStore struct {
	pool *Pool
}

// NewStrategyStore creates a new StrategyStore.
func NewStrategyStore(pool *Pool) *StrategyStore {
	return &StrategyStore{pool: pool}
}

var _ storage.StrategyStore = (*StrategyStore)(nil)

// Create inserts a strategy. Returns ErrDuplicateKey if the id exists.
func (s *StrategyStore) Create(ctx context.Context, st *domain.Strategy) (*domain.Strategy, error) {
	if st == nil || st.OwnerID == "" || st.Name == "" {
		return nil, storage.ErrInvalidInput
	}

	stored := *st
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO strategies (id, owner_id, name, symbol, candle_interval, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.pool.Exec(ctx, query,
		stored.ID, stored.OwnerID, stored.Name, stored.Symbol,
		stored.Interval, stored.Description, stored.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, storage.ErrDuplicateKey
		}
		return nil, fmt.Errorf("insert strategy: %w", err)
	}
	return &stored, nil
}

// GetByID retrieves a strategy. Returns ErrNotFound if not exists.
func (s *StrategyStore) GetByID(ctx context.Context, id string) (*domain.Strategy, error) {
	query := `
		SELECT id, owner_id, name, symbol, candle_interval, description, created_at
		FROM strategies
		WHERE id = $1
	`
	st, err := scanStrategy(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get strategy by id: %w", err)
	}
	return st, nil
}

// ListByOwner retrieves all strategies of an owner ordered by created_at ASC.
func (s *StrategyStore) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Strategy, error) {
	query := `
		SELECT id, owner_id, name, symbol, candle_interval, description, created_at
		FROM strategies
		WHERE owner_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list strategies by owner: %w", err)
	}
	defer rows.Close()

	var result []*domain.Strategy
	for rows.Next() {
		st, err := scanStrategy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan strategy row: %w", err)
		}
		result = append(result, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate strategy rows: %w", err)
	}
	return result, nil
}

// Delete removes a strategy and, through the foreign key, its trades.
func (s *StrategyStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM strategies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete strategy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanStrategy(row rowScanner) (*domain.Strategy, error) {
	var st domain.Strategy
	if err := row.Scan(
		&st.ID, &st.OwnerID, &st.Name, &st.Symbol,
		&st.Interval, &st.Description, &st.CreatedAt,
	); err != nil {
		return nil, err
	}
	st.CreatedAt = st.CreatedAt.UTC()
	return &st, nil
}
