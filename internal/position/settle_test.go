package position

import (
	"math"
	"testing"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
)

func ptr[T any](v T) *T {
	return &v
}

func TestSettle_LongWithStop(t *testing.T) {
	p := &domain.Position{Side: domain.SideLong, EntryPrice: 100, Size: 1000, StopLoss: ptr(95.0), EntryTime: 10}

	tr := Settle(p, 110, 20, "", domain.ExitReasonManual)

	if math.Abs(tr.PnL-100) > 1e-9 {
		t.Errorf("expected pnl 100, got %f", tr.PnL)
	}
	if math.Abs(tr.RMultiple-2.0) > 1e-9 {
		t.Errorf("expected rMultiple 2.0, got %f", tr.RMultiple)
	}
	if tr.Status != domain.StatusWin {
		t.Errorf("expected win, got %s", tr.Status)
	}
	if tr.EntryTime != 10 || tr.ExitTime != 20 {
		t.Errorf("unexpected times: entry=%d exit=%d", tr.EntryTime, tr.ExitTime)
	}
}

func TestSettle_ShortProfitsOnDecline(t *testing.T) {
	p := &domain.Position{Side: domain.SideShort, EntryPrice: 100, Size: 1000}

	tr := Settle(p, 90, 0, "", domain.ExitReasonManual)

	if math.Abs(tr.PnL-100) > 1e-9 {
		t.Errorf("expected pnl 100, got %f", tr.PnL)
	}
	// No stop: risk is 0, rMultiple reported as 0.
	if tr.RMultiple != 0 {
		t.Errorf("expected rMultiple 0 without stop, got %f", tr.RMultiple)
	}
}

func TestSettle_StopLossCopiedNotShared(t *testing.T) {
	sl := 95.0
	p := &domain.Position{Side: domain.SideLong, EntryPrice: 100, Size: 10, StopLoss: &sl}

	tr := Settle(p, 101, 0, "", domain.ExitReasonManual)
	sl = 1

	if *tr.StopLoss != 95 {
		t.Errorf("trade stop loss aliased position field: %f", *tr.StopLoss)
	}
}

func TestPnLSignMatchesDirection(t *testing.T) {
	cases := []struct {
		side        domain.Side
		entry, exit float64
	}{
		{domain.SideLong, 100, 120},
		{domain.SideLong, 100, 80},
		{domain.SideShort, 100, 80},
		{domain.SideShort, 100, 120},
		{domain.SideLong, 0.5, 0.51},
		{domain.SideShort, 42000, 41000},
	}

	for _, c := range cases {
		pnl := PnL(c.side, c.entry, c.exit, 250)
		want := math.Copysign(1, c.side.Direction()*(c.exit-c.entry))
		if math.Copysign(1, pnl) != want {
			t.Errorf("%s %v->%v: pnl %f has wrong sign", c.side, c.entry, c.exit, pnl)
		}

		r := RMultiple(c.side, c.entry, c.exit, ptr(c.entry*0.97))
		if math.Copysign(1, r) != math.Copysign(1, pnl) {
			t.Errorf("%s %v->%v: r %f and pnl %f disagree in sign", c.side, c.entry, c.exit, r, pnl)
		}
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		pnl  float64
		want domain.TradeStatus
	}{
		{0.0011, domain.StatusWin},
		{0.001, domain.StatusBreakeven},
		{0, domain.StatusBreakeven},
		{-0.001, domain.StatusBreakeven},
		{-0.0011, domain.StatusLoss},
		{math.NaN(), domain.StatusBreakeven},
		{math.Inf(1), domain.StatusWin},
	}
	for _, c := range cases {
		if got := Classify(c.pnl); got != c.want {
			t.Errorf("Classify(%v) = %s, want %s", c.pnl, got, c.want)
		}
	}
}

func TestSettle_ZeroEntryPriceDoesNotPanic(t *testing.T) {
	p := &domain.Position{Side: domain.SideLong, EntryPrice: 0, Size: 100, StopLoss: ptr(0.0)}

	tr := Settle(p, 10, 0, "", domain.ExitReasonManual)

	if !math.IsInf(tr.PnL, 1) {
		t.Errorf("expected +Inf pnl for zero entry, got %f", tr.PnL)
	}
	if tr.RMultiple != 0 {
		t.Errorf("expected rMultiple 0 for zero risk, got %f", tr.RMultiple)
	}

	flat := Settle(p, 0, 0, "", domain.ExitReasonManual)
	if !math.IsNaN(flat.PnL) {
		t.Errorf("expected NaN pnl for 0/0, got %f", flat.PnL)
	}
}
