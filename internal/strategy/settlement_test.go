package strategy

import (
	"testing"
	"time"
)

func tradedMarket(endTime time.Time) *MarketState {
	return &MarketState{
		Slug:       "btc-updown-15m-1",
		Strike:     65000,
		Traded:     true,
		Side:       SideUp,
		EntryPrice: 0.60,
		AmountUSD:  60,
		EndTime:    endTime,
	}
}

func TestSettleNotYetExpiredReturnsNil(t *testing.T) {
	ms := tradedMarket(time.Now().Add(5 * time.Minute))
	if got := Settle(ms, 66000, time.Now()); got != nil {
		t.Fatalf("expected nil before expiry, got %+v", got)
	}
}

func TestSettleWin(t *testing.T) {
	ms := tradedMarket(time.Now().Add(-time.Minute))
	trade := Settle(ms, 66000, time.Now())
	if trade == nil || !trade.Won || trade.Void {
		t.Fatalf("expected a win, got %+v", trade)
	}
	if !ms.Settled {
		t.Fatalf("expected MarketState.Settled = true")
	}
}

func TestSettleLoss(t *testing.T) {
	ms := tradedMarket(time.Now().Add(-time.Minute))
	trade := Settle(ms, 64000, time.Now())
	if trade == nil || trade.Won || trade.Void {
		t.Fatalf("expected a loss, got %+v", trade)
	}
	if trade.PnLUSD != -60 {
		t.Fatalf("expected PnL -60, got %v", trade.PnLUSD)
	}
}

func TestSettleLateVoidsInsteadOfSettling(t *testing.T) {
	ms := tradedMarket(time.Now().Add(-10 * time.Minute))
	trade := Settle(ms, 66000, time.Now())
	if trade == nil || !trade.Void {
		t.Fatalf("expected a void after the late window, got %+v", trade)
	}
	if trade.PnLUSD != 0 {
		t.Fatalf("expected void PnL 0, got %v", trade.PnLUSD)
	}
}

func TestShouldSweepFreshnessGate(t *testing.T) {
	now := time.Now()
	if !ShouldSweep(now.Add(-10*time.Second), now) {
		t.Fatalf("expected fresh composite to allow sweep")
	}
	if ShouldSweep(now.Add(-time.Minute), now) {
		t.Fatalf("expected stale composite to block sweep")
	}
}

func TestIsValidCompositePrice(t *testing.T) {
	if IsValidCompositePrice(500) {
		t.Fatalf("500 should be below the validity floor")
	}
	if !IsValidCompositePrice(65000) {
		t.Fatalf("65000 should be a valid composite price")
	}
}
