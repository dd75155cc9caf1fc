package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/storage"
)

const tradeColumns = `
	id, owner_id, strategy_id, symbol, candle_interval, side,
	entry_price, exit_price, stop_loss, take_profit, size,
	pnl, r_multiple, status, entry_time, exit_time, exit_reason, notes`

// TradeStore implements storage.TradeStore on SQLite.
type TradeStore struct {
	db *DB
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(db *DB) *TradeStore {
	return &TradeStore{db: db}
}

var _ storage.TradeStore = (*TradeStore)(nil)

// Create inserts a trade under a freshly generated ID.
func (s *TradeStore) Create(ctx context.Context, ownerID, strategyID string, t *domain.Trade) (*domain.Trade, error) {
	if t == nil || strategyID == "" {
		return nil, storage.ErrInvalidInput
	}

	stored := t.Clone()
	stored.ID = uuid.NewString()
	stored.OwnerID = ownerID
	stored.StrategyID = strategyID

	query := `INSERT INTO trades (` + tradeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		stored.ID, stored.OwnerID, stored.StrategyID, stored.Symbol, stored.Interval, string(stored.Side),
		stored.EntryPrice, stored.ExitPrice, stored.StopLoss, stored.TakeProfit, stored.Size,
		nullableFloat(stored.PnL), nullableFloat(stored.RMultiple), string(stored.Status),
		stored.EntryTime, stored.ExitTime, string(stored.ExitReason), stored.Notes,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, storage.ErrDuplicateKey
		}
		if isForeignKeyError(err) {
			return nil, fmt.Errorf("strategy %s: %w", strategyID, storage.ErrInvalidInput)
		}
		return nil, fmt.Errorf("insert trade: %w", err)
	}
	return stored.Clone(), nil
}

// Update applies a partial update inside a transaction.
func (s *TradeStore) Update(ctx context.Context, id string, patch domain.TradePatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	t, err := scanTrade(tx.QueryRowContext(ctx, `SELECT `+tradeColumns+` FROM trades WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("load trade: %w", err)
	}

	patch.Apply(t)

	_, err = tx.ExecContext(ctx, `
		UPDATE trades SET
			side = ?, entry_price = ?, exit_price = ?,
			stop_loss = ?, take_profit = ?, size = ?,
			pnl = ?, r_multiple = ?, status = ?,
			entry_time = ?, exit_time = ?, notes = ?
		WHERE id = ?`,
		string(t.Side), t.EntryPrice, t.ExitPrice,
		t.StopLoss, t.TakeProfit, t.Size,
		nullableFloat(t.PnL), nullableFloat(t.RMultiple), string(t.Status),
		t.EntryTime, t.ExitTime, t.Notes,
		id,
	)
	if err != nil {
		return fmt.Errorf("update trade: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Delete removes a trade. Returns ErrNotFound if no row was deleted.
func (s *TradeStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM trades WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete trade: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete trade: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, id string) (*domain.Trade, error) {
	t, err := scanTrade(s.db.QueryRowContext(ctx, `SELECT `+tradeColumns+` FROM trades WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade by id: %w", err)
	}
	return t, nil
}

// ListByStrategy retrieves all trades of a strategy ordered by entry_time ASC, id ASC.
func (s *TradeStore) ListByStrategy(ctx context.Context, strategyID string) ([]*domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+tradeColumns+`
		FROM trades
		WHERE strategy_id = ?
		ORDER BY entry_time ASC, id ASC`, strategyID)
	if err != nil {
		return nil, fmt.Errorf("list trades by strategy: %w", err)
	}
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}
	return trades, nil
}

func scanTrade(row rowScanner) (*domain.Trade, error) {
	var (
		t                        domain.Trade
		side, status, exitReason string
		stop, target             sql.NullFloat64
		pnl, r                   sql.NullFloat64
	)

	err := row.Scan(
		&t.ID, &t.OwnerID, &t.StrategyID, &t.Symbol, &t.Interval, &side,
		&t.EntryPrice, &t.ExitPrice, &stop, &target, &t.Size,
		&pnl, &r, &status, &t.EntryTime, &t.ExitTime, &exitReason, &t.Notes,
	)
	if err != nil {
		return nil, err
	}

	t.Side = domain.Side(side)
	t.Status = domain.TradeStatus(status)
	t.ExitReason = domain.ExitReason(exitReason)
	t.PnL = floatOrNaN(pnl)
	t.RMultiple = floatOrNaN(r)
	if stop.Valid {
		t.StopLoss = &stop.Float64
	}
	if target.Valid {
		t.TakeProfit = &target.Float64
	}
	return &t, nil
}
