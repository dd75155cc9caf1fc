package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/storage"
)

const tradeColumns = `
	id, owner_id, strategy_id, symbol, candle_interval, side,
	entry_price, exit_price, stop_loss, take_profit, size,
	pnl, r_multiple, status, entry_time, exit_time, exit_reason, notes`

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
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

	query := `INSERT INTO trades (` + tradeColumns + `) VALUES (
		$1, $2, $3, $4, $5, $6,
		$7, $8, $9, $10, $11,
		$12, $13, $14, $15, $16, $17, $18
	)`

	if _, err := s.pool.Exec(ctx, query, tradeArgs(stored)...); err != nil {
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

// Update applies a partial update under a row lock.
func (s *TradeStore) Update(ctx context.Context, id string, patch domain.TradePatch) error {
	return s.pool.inTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+tradeColumns+` FROM trades WHERE id = $1 FOR UPDATE`, id)
		t, err := scanTrade(row)
		if err != nil {
			if isNotFoundError(err) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("lock trade: %w", err)
		}

		patch.Apply(t)

		query := `
			UPDATE trades SET
				side = $2, entry_price = $3, exit_price = $4,
				stop_loss = $5, take_profit = $6, size = $7,
				pnl = $8, r_multiple = $9, status = $10,
				entry_time = $11, exit_time = $12, notes = $13
			WHERE id = $1
		`
		_, err = tx.Exec(ctx, query,
			t.ID, string(t.Side), t.EntryPrice, t.ExitPrice,
			t.StopLoss, t.TakeProfit, t.Size,
			t.PnL, t.RMultiple, string(t.Status),
			t.EntryTime, t.ExitTime, t.Notes,
		)
		if err != nil {
			return fmt.Errorf("update trade: %w", err)
		}
		return nil
	})
}

// Delete removes a trade. Returns ErrNotFound if no row was deleted.
func (s *TradeStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM trades WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete trade: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, id string) (*domain.Trade, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+tradeColumns+` FROM trades WHERE id = $1`, id)
	t, err := scanTrade(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade by id: %w", err)
	}
	return t, nil
}

// ListByStrategy retrieves all trades of a strategy ordered by entry_time ASC, id ASC.
func (s *TradeStore) ListByStrategy(ctx context.Context, strategyID string) ([]*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + `
		FROM trades
		WHERE strategy_id = $1
		ORDER BY entry_time ASC, id ASC`

	rows, err := s.pool.Query(ctx, query, strategyID)
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

func tradeArgs(t *domain.Trade) []any {
	return []any{
		t.ID, t.OwnerID, t.StrategyID, t.Symbol, t.Interval, string(t.Side),
		t.EntryPrice, t.ExitPrice, t.StopLoss, t.TakeProfit, t.Size,
		t.PnL, t.RMultiple, string(t.Status), t.EntryTime, t.ExitTime, string(t.ExitReason), t.Notes,
	}
}

func scanTrade(row rowScanner) (*domain.Trade, error) {
	var (
		t                        domain.Trade
		side, status, exitReason string
	)

	err := row.Scan(
		&t.ID, &t.OwnerID, &t.StrategyID, &t.Symbol, &t.Interval, &side,
		&t.EntryPrice, &t.ExitPrice, &t.StopLoss, &t.TakeProfit, &t.Size,
		&t.PnL, &t.RMultiple, &status, &t.EntryTime, &t.ExitTime, &exitReason, &t.Notes,
	)
	if err != nil {
		return nil, err
	}

	t.Side = domain.Side(side)
	t.Status = domain.TradeStatus(status)
	t.ExitReason = domain.ExitReason(exitReason)
	return &t, nil
}
