package strategy

import (
	"math"
	"testing"
)

func TestFairValueSpotAboveStrikeIsAboveHalf(t *testing.T) {
	p := FairValue(65500, 65000, 0.80, 600)
	if p <= 0.5 {
		t.Fatalf("FairValue() = %v, want > 0.5 when spot > strike", p)
	}
}

func TestFairValueSpotBelowStrikeIsBelowHalf(t *testing.T) {
	p := FairValue(64500, 65000, 0.80, 600)
	if p >= 0.5 {
		t.Fatalf("FairValue() = %v, want < 0.5 when spot < strike", p)
	}
}

func TestFairValueAtStrikeIsHalf(t *testing.T) {
	p := FairValue(65000, 65000, 0.80, 600)
	if math.Abs(p-0.5) > 1e-9 {
		t.Fatalf("FairValue() at strike = %v, want 0.5", p)
	}
}

func TestFairValueIsClipped(t *testing.T) {
	// Huge spot/strike ratio with tiny time-to-expiry should saturate, not
	// claim certainty.
	p := FairValue(200000, 10000, 0.80, 1)
	if p > 0.99 {
		t.Fatalf("FairValue() = %v, want <= 0.99", p)
	}
	p = FairValue(10000, 200000, 0.80, 1)
	if p < 0.01 {
		t.Fatalf("FairValue() = %v, want >= 0.01", p)
	}
}

func TestFairValueReturnsExactOutcomeWhenStrikeIsNotPositive(t *testing.T) {
	if p := FairValue(65000, 0, 0.80, 600); p != 1.0 {
		t.Fatalf("FairValue() with non-positive strike and spot>strike = %v, want 1.0", p)
	}
	if p := FairValue(65000, -100, 0.80, 600); p != 1.0 {
		t.Fatalf("FairValue() with negative strike and spot>strike = %v, want 1.0", p)
	}
}

func TestFairValueReturnsExactOutcomeWhenVolCollapsesToZero(t *testing.T) {
	if p := FairValue(65500, 65000, 0, 600); p != 1.0 {
		t.Fatalf("FairValue() with zero vol and spot>strike = %v, want 1.0", p)
	}
	if p := FairValue(64500, 65000, 0, 600); p != 0.0 {
		t.Fatalf("FairValue() with zero vol and spot<strike = %v, want 0.0", p)
	}
}

func TestFairValueReturnsExactOutcomeAtExpiry(t *testing.T) {
	if p := FairValue(65500, 65000, 0.80, 0); p != 1.0 {
		t.Fatalf("FairValue() at expiry with spot>strike = %v, want 1.0", p)
	}
	if p := FairValue(64500, 65000, 0.80, 0); p != 0.0 {
		t.Fatalf("FairValue() at expiry with spot<strike = %v, want 0.0", p)
	}
}

func TestFairValueMonotonicInSpot(t *testing.T) {
	low := FairValue(64000, 65000, 0.80, 600)
	high := FairValue(66000, 65000, 0.80, 600)
	if !(low < high) {
		t.Fatalf("FairValue should increase with spot: low=%v high=%v", low, high)
	}
}

