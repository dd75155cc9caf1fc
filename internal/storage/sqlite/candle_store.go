package sqlite

import (
	"context"
	"fmt"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/storage"
)

// CandleStore implements storage.CandleStore on SQLite.
type CandleStore struct {
	db *DB
}

// NewCandleStore creates a new CandleStore.
func NewCandleStore(db *DB) *CandleStore {
	return &CandleStore{db: db}
}

var _ storage.CandleStore = (*CandleStore)(nil)

// InsertBulk inserts candles in one transaction, ignoring periods already cached.
func (s *CandleStore) InsertBulk(ctx context.Context, key domain.SeriesKey, candles []domain.Candle) error {
	if key.Symbol == "" || key.Interval == "" {
		return storage.ErrInvalidInput
	}
	if len(candles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO candles (symbol, candle_interval, time, open, high, low, close)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, key.Symbol, key.Interval, c.Time, c.Open, c.High, c.Low, c.Close); err != nil {
			return fmt.Errorf("insert candle %d: %w", c.Time, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetRange retrieves candles within [from, to] (inclusive), ordered by time ASC.
func (s *CandleStore) GetRange(ctx context.Context, key domain.SeriesKey, from, to int64) ([]domain.Candle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT time, open, high, low, close
		FROM candles
		WHERE symbol = ? AND candle_interval = ? AND time >= ? AND time <= ?
		ORDER BY time ASC`,
		key.Symbol, key.Interval, from, to)
	if err != nil {
		return nil, fmt.Errorf("query candle range: %w", err)
	}
	defer rows.Close()

	var candles []domain.Candle
	for rows.Next() {
		var c domain.Candle
		if err := rows.Scan(&c.Time, &c.Open, &c.High, &c.Low, &c.Close); err != nil {
			return nil, fmt.Errorf("scan candle row: %w", err)
		}
		candles = append(candles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candle rows: %w", err)
	}
	return candles, nil
}

// Count returns the number of cached candles of a series.
func (s *CandleStore) Count(ctx context.Context, key domain.SeriesKey) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM candles WHERE symbol = ? AND candle_interval = ?`,
		key.Symbol, key.Interval,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count candles: %w", err)
	}
	return n, nil
}
