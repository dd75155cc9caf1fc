package sqlite

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/storage"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr[T any](v T) *T {
	return &v
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	db, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = NewStrategyStore(db).Create(ctx, &domain.Strategy{OwnerID: "o", Name: "kept"})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	list, err := NewStrategyStore(db).ListByOwner(ctx, "o")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "kept", list[0].Name)
}

func TestStrategyStore(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	store := NewStrategyStore(db)

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	b, err := store.Create(ctx, &domain.Strategy{OwnerID: "o", Name: "b", CreatedAt: base.Add(time.Second)})
	require.NoError(t, err)
	a, err := store.Create(ctx, &domain.Strategy{OwnerID: "o", Name: "a", CreatedAt: base})
	require.NoError(t, err)

	list, err := store.ListByOwner(ctx, "o")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, b.ID, list[1].ID)
	assert.True(t, base.Equal(list[0].CreatedAt))

	_, err = store.Create(ctx, &domain.Strategy{ID: a.ID, OwnerID: "o", Name: "dup"})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	require.NoError(t, store.Delete(ctx, a.ID))
	assert.ErrorIs(t, store.Delete(ctx, a.ID), storage.ErrNotFound)
	_, err = store.GetByID(ctx, a.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTradeStore(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	st, err := NewStrategyStore(db).Create(ctx, &domain.Strategy{OwnerID: "o", Name: "s"})
	require.NoError(t, err)

	store := NewTradeStore(db)
	_, err = store.Create(ctx, "o", "missing", &domain.Trade{Side: domain.SideLong})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	late, err := store.Create(ctx, "o", st.ID, &domain.Trade{
		Side: domain.SideShort, EntryPrice: 100, ExitPrice: 90, Size: 10,
		PnL: 1, Status: domain.StatusWin, EntryTime: 2000, TakeProfit: ptr(90.0),
	})
	require.NoError(t, err)
	early, err := store.Create(ctx, "o", st.ID, &domain.Trade{
		Side: domain.SideLong, EntryPrice: 0, ExitPrice: 0, Size: 10,
		PnL: math.NaN(), Status: domain.StatusBreakeven, EntryTime: 1000,
	})
	require.NoError(t, err)

	list, err := store.ListByStrategy(ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, early.ID, list[0].ID)
	assert.True(t, math.IsNaN(list[0].PnL))
	assert.Equal(t, late.ID, list[1].ID)
	require.NotNil(t, list[1].TakeProfit)
	assert.Equal(t, 90.0, *list[1].TakeProfit)
	assert.Nil(t, list[1].StopLoss)

	require.NoError(t, store.Update(ctx, late.ID, domain.TradePatch{
		Notes:           ptr("faded"),
		ClearTakeProfit: true,
		StopLoss:        ptr(105.0),
	}))
	got, err := store.GetByID(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, "faded", got.Notes)
	assert.Nil(t, got.TakeProfit)
	require.NotNil(t, got.StopLoss)
	assert.Equal(t, 105.0, *got.StopLoss)

	assert.ErrorIs(t, store.Update(ctx, "missing", domain.TradePatch{Notes: ptr("x")}), storage.ErrNotFound)

	// Deleting the strategy cascades.
	require.NoError(t, NewStrategyStore(db).Delete(ctx, st.ID))
	_, err = store.GetByID(ctx, late.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCandleStore(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	store := NewCandleStore(db)
	key := domain.SeriesKey{Symbol: "ETHUSDT", Interval: "15m"}

	require.NoError(t, store.InsertBulk(ctx, key, []domain.Candle{
		{Time: 900, Close: 1},
		{Time: 1800, Close: 2},
	}))
	require.NoError(t, store.InsertBulk(ctx, key, []domain.Candle{
		{Time: 1800, Close: 99},
		{Time: 2700, Close: 3},
	}))

	n, err := store.Count(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := store.GetRange(ctx, key, 1800, 2700)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2.0, got[0].Close)
	assert.Equal(t, int64(2700), got[1].Time)

	assert.ErrorIs(t, store.InsertBulk(ctx, domain.SeriesKey{}, []domain.Candle{{Time: 1}}), storage.ErrInvalidInput)
}
