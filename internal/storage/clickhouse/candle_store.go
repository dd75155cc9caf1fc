package clickhouse

import (
	"context"
	"fmt"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/storage"
)

// CandleStore implements storage.CandleStore using ClickHouse.
type CandleStore struct {
	conn *Conn
}

// NewCandleStore creates a new CandleStore.
func NewCandleStore(conn *Conn) *CandleStore {
	return &CandleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CandleStore = (*CandleStore)(nil)

// InsertBulk appends candles whose time is not cached yet. Within one batch
// the first candle for a time wins.
func (s *CandleStore) InsertBulk(ctx context.Context, key domain.SeriesKey, candles []domain.Candle) error {
	if key.Symbol == "" || key.Interval == "" {
		return storage.ErrInvalidInput
	}
	if len(candles) == 0 {
		return nil
	}

	from, to := candles[0].Time, candles[0].Time
	for _, c := range candles {
		from = min(from, c.Time)
		to = max(to, c.Time)
	}

	existing, err := s.existingTimes(ctx, key, from, to)
	if err != nil {
		return fmt.Errorf("check existing: %w", err)
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO candles (symbol, candle_interval, time, open, high, low, close)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	pending := 0
	for _, c := range candles {
		if _, ok := existing[c.Time]; ok {
			continue
		}
		existing[c.Time] = struct{}{}

		if err := batch.Append(key.Symbol, key.Interval, c.Time, c.Open, c.High, c.Low, c.Close); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
		pending++
	}

	if pending == 0 {
		return batch.Abort()
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetRange retrieves candles within [from, to] (inclusive), ordered by time ASC.
func (s *CandleStore) GetRange(ctx context.Context, key domain.SeriesKey, from, to int64) ([]domain.Candle, error) {
	query := `
		SELECT time, open, high, low, close
		FROM candles FINAL
		WHERE symbol = ? AND candle_interval = ? AND time >= ? AND time <= ?
		ORDER BY time ASC
	`

	rows, err := s.conn.Query(ctx, query, key.Symbol, key.Interval, from, to)
	if err != nil {
		return nil, fmt.Errorf("query candle range: %w", err)
	}
	defer rows.Close()

	return scanCandles(rows)
}

// Count returns the number of distinct cached periods of a series.
func (s *CandleStore) Count(ctx context.Context, key domain.SeriesKey) (int, error) {
	query := `
		SELECT count() FROM candles FINAL
		WHERE symbol = ? AND candle_interval = ?
	`

	var n uint64
	if err := s.conn.QueryRow(ctx, query, key.Symbol, key.Interval).Scan(&n); err != nil {
		return 0, fmt.Errorf("count candles: %w", err)
	}
	return int(n), nil
}

func (s *CandleStore) existingTimes(ctx context.Context, key domain.SeriesKey, from, to int64) (map[int64]struct{}, error) {
	query := `
		SELECT DISTINCT time FROM candles
		WHERE symbol = ? AND candle_interval = ? AND time >= ? AND time <= ?
	`

	rows, err := s.conn.Query(ctx, query, key.Symbol, key.Interval, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[int64]struct{})
	for rows.Next() {
		var t int64
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		seen[t] = struct{}{}
	}
	return seen, rows.Err()
}

func scanCandles(rows chRows) ([]domain.Candle, error) {
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
