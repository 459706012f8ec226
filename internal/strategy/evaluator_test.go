package strategy

import (
	"testing"
	"time"
)

func freshMarket(secsToExpiry float64) *MarketState {
	now := time.Now()
	return &MarketState{
		Slug:          "btc-updown-15m-123",
		Strike:        65000,
		StrikeFetched: true,
		EndTime:       now.Add(time.Duration(secsToExpiry) * time.Second),
	}
}

func TestEvaluateRejectsWideSpread(t *testing.T) {
	e := NewEvaluator(0.10)
	ms := freshMarket(300)
	_, reason := e.Evaluate(ms, Quote{Bid: 0.50, Ask: 0.60}, Quote{Bid: 0.40, Ask: 0.50}, 0.80, 50, TrendFlat, 10000, time.Now())
	if reason == "" {
		t.Fatalf("expected rejection for wide spread")
	}
}

func TestEvaluateRejectsOutsideEntryWindow(t *testing.T) {
	e := NewEvaluator(0.10)
	ms := freshMarket(5) // too close to expiry
	_, reason := e.Evaluate(ms, Quote{Bid: 0.55, Ask: 0.57}, Quote{Bid: 0.43, Ask: 0.45}, 0.80, 50, TrendFlat, 10000, time.Now())
	if reason == "" {
		t.Fatalf("expected rejection for time window")
	}
}

func TestEvaluateRejectsConfidenceDeadZone(t *testing.T) {
	e := NewEvaluator(0.10)
	ms := freshMarket(300)
	_, reason := e.Evaluate(ms, Quote{Bid: 0.49, Ask: 0.51}, Quote{Bid: 0.48, Ask: 0.50}, 0.50, 50, TrendFlat, 10000, time.Now())
	if reason == "" {
		t.Fatalf("expected rejection inside confidence dead zone")
	}
}

func TestEvaluateRejectsFightingTrend(t *testing.T) {
	e := NewEvaluator(0.10)
	ms := freshMarket(300)
	// fair value favors up side strongly, but trend is down.
	_, reason := e.Evaluate(ms, Quote{Bid: 0.55, Ask: 0.57}, Quote{Bid: 0.41, Ask: 0.43}, 0.85, 50, TrendDown, 10000, time.Now())
	if reason == "" {
		t.Fatalf("expected rejection for fighting the trend")
	}
}

func TestEvaluateRejectsBelowMinEdge(t *testing.T) {
	e := NewEvaluator(0.30) // unreasonably high bar
	ms := freshMarket(300)
	_, reason := e.Evaluate(ms, Quote{Bid: 0.68, Ask: 0.70}, Quote{Bid: 0.29, Ask: 0.31}, 0.80, 50, TrendFlat, 10000, time.Now())
	if reason == "" {
		t.Fatalf("expected rejection below min edge")
	}
}

func TestEvaluateAcceptsGoodOpportunity(t *testing.T) {
	e := NewEvaluator(0.10)
	ms := freshMarket(300)
	sig, reason := e.Evaluate(ms, Quote{Bid: 0.55, Ask: 0.57}, Quote{Bid: 0.41, Ask: 0.43}, 0.85, 50, TrendFlat, 10000, time.Now())
	if reason != "" {
		t.Fatalf("expected acceptance, got rejection: %s", reason)
	}
	if sig.Side != SideUp {
		t.Fatalf("expected SideUp, got %s", sig.Side)
	}
	if sig.AmountUSD <= 0 || sig.AmountUSD > 10000 {
		t.Fatalf("position size out of bounds: %v", sig.AmountUSD)
	}
}

func TestPositionSizeClampedToBalance(t *testing.T) {
	size := PositionSize(100, 0.99)
	if size > 100 {
		t.Fatalf("PositionSize should never exceed balance: got %v", size)
	}
}

func TestPositionSizeGrowsWithDistanceFromHalf(t *testing.T) {
	near := PositionSize(10000, 0.51)
	far := PositionSize(10000, 0.90)
	if !(far > near) {
		t.Fatalf("expected size to grow further from 0.5: near=%v far=%v", near, far)
	}
}
