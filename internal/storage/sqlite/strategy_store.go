package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/storage"
)

// StrategyStore implements storage.StrategyStore on SQLite.
// created_at is stored as unix milliseconds.
type StrategyStore struct {
	db *DB
}

// NewStrategyStore creates a new StrategyStore.
func NewStrategyStore(db *DB) *StrategyStore {
	return &StrategyStore{db: db}
}

var _ storage.StrategyStore = (*StrategyStore)(nil)

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
	stored.CreatedAt = stored.CreatedAt.Truncate(time.Millisecond)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO strategies (id, owner_id, name, symbol, candle_interval, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.OwnerID, stored.Name, stored.Symbol,
		stored.Interval, stored.Description, stored.CreatedAt.UnixMilli(),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, storage.ErrDuplicateKey
		}
		return nil, fmt.Errorf("insert strategy: %w", err)
	}
	return &stored, nil
}

func (s *StrategyStore) GetByID(ctx context.Context, id string) (*domain.Strategy, error) {
	st, err := scanStrategy(s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, symbol, candle_interval, description, created_at
		FROM strategies WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get strategy by id: %w", err)
	}
	return st, nil
}

func (s *StrategyStore) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Strategy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, symbol, candle_interval, description, created_at
		FROM strategies
		WHERE owner_id = ?
		ORDER BY created_at ASC, id ASC`, ownerID)
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

func (s *StrategyStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM strategies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete strategy: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanStrategy(row rowScanner) (*domain.Strategy, error) {
	var (
		st        domain.Strategy
		createdMs int64
	)
	if err := row.Scan(
		&st.ID, &st.OwnerID, &st.Name, &st.Symbol,
		&st.Interval, &st.Description, &createdMs,
	); err != nil {
		return nil, err
	}
	st.CreatedAt = time.UnixMilli(createdMs).UTC()
	return &st, nil
}
