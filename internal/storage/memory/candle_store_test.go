package memory

import (
	"context"
	"testing"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
)

func TestCandleStore_InsertBulkSkipsExisting(t *testing.T) {
	ctx := context.Background()
	store := NewCandleStore()
	key := domain.SeriesKey{Symbol: "BTCUSDT", Interval: "1h"}

	if err := store.InsertBulk(ctx, key, []domain.Candle{
		{Time: 3600, Close: 1},
		{Time: 7200, Close: 2},
	}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	if err := store.InsertBulk(ctx, key, []domain.Candle{
		{Time: 7200, Close: 99},
		{Time: 10800, Close: 3},
	}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	n, err := store.Count(ctx, key)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 candles, got %d", n)
	}

	got, err := store.GetRange(ctx, key, 7200, 10800)
	if err != nil {
		t.Fatalf("GetRange failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(got))
	}
	if got[0].Time != 7200 || got[0].Close != 2 {
		t.Errorf("existing candle was overwritten: %+v", got[0])
	}
	if got[1].Time != 10800 {
		t.Errorf("unexpected order: %+v", got)
	}
}

func TestCandleStore_SeriesIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewCandleStore()

	btc := domain.SeriesKey{Symbol: "BTCUSDT", Interval: "1h"}
	eth := domain.SeriesKey{Symbol: "ETHUSDT", Interval: "1h"}
	if err := store.InsertBulk(ctx, btc, []domain.Candle{{Time: 1}}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	n, _ := store.Count(ctx, eth)
	if n != 0 {
		t.Errorf("expected empty series, got %d", n)
	}
}
