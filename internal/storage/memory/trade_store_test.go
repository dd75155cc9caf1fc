package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/storage"
)

func TestTradeStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewTradeStore()

	stop := 95.0
	created, err := store.Create(ctx, "owner-1", "strat-1", &domain.Trade{
		Symbol:     "BTCUSDT",
		Side:       domain.SideLong,
		EntryPrice: 100,
		ExitPrice:  110,
		StopLoss:   &stop,
		Size:       1000,
		EntryTime:  1000,
		ExitTime:   2000,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated ID")
	}
	if created.OwnerID != "owner-1" || created.StrategyID != "strat-1" {
		t.Errorf("owner/strategy not stamped: %+v", created)
	}

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.EntryPrice != 100 || *got.StopLoss != 95 {
		t.Errorf("unexpected trade: %+v", got)
	}

	// Mutating the returned copy must not affect the store.
	*got.StopLoss = 1
	again, _ := store.GetByID(ctx, created.ID)
	if *again.StopLoss != 95 {
		t.Errorf("store leaked internal pointer, stop = %v", *again.StopLoss)
	}
}

func TestTradeStore_CreateInvalid(t *testing.T) {
	store := NewTradeStore()
	_, err := store.Create(context.Background(), "owner-1", "", &domain.Trade{})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestTradeStore_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewTradeStore()

	created, err := store.Create(ctx, "o", "s", &domain.Trade{EntryPrice: 100, Notes: "a"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	notes := "b"
	if err := store.Update(ctx, created.ID, domain.TradePatch{Notes: &notes}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, _ := store.GetByID(ctx, created.ID)
	if got.Notes != "b" || got.EntryPrice != 100 {
		t.Errorf("unexpected trade after update: %+v", got)
	}

	if err := store.Update(ctx, "missing", domain.TradePatch{Notes: &notes}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := store.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.GetByID(ctx, created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestTradeStore_ListByStrategyOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewTradeStore()

	for _, ts := range []int64{3000, 1000, 2000} {
		if _, err := store.Create(ctx, "o", "s1", &domain.Trade{EntryTime: ts}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	if _, err := store.Create(ctx, "o", "s2", &domain.Trade{EntryTime: 500}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	list, err := store.ListByStrategy(ctx, "s1")
	if err != nil {
		t.Fatalf("ListByStrategy failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 trades, got %d", len(list))
	}
	for i, want := range []int64{1000, 2000, 3000} {
		if list[i].EntryTime != want {
			t.Errorf("list[%d].EntryTime = %d, want %d", i, list[i].EntryTime, want)
		}
	}
}
