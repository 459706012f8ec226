package risk

import "testing"

func defaultLimits() Limits {
	return Limits{
		MaxSingleTradeUSD: 250,
		MaxPositionUSD:    500,
		MaxDailyLossUSD:   500,
		MaxOpenPositions:  1,
	}
}

func TestValidateTradeAcceptsWithinLimits(t *testing.T) {
	m := New(defaultLimits())
	ok, reason := m.ValidateTrade(0.60, 100, 1.5)
	if !ok {
		t.Fatalf("expected trade to pass, got reason: %s", reason)
	}
}

func TestValidateTradeRejectsPriceOutOfRange(t *testing.T) {
	tt := []struct {
		name  string
		price float64
	}{
		{"too low", 0.005},
		{"too high", 0.995},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			m := New(defaultLimits())
			if ok, _ := m.ValidateTrade(tc.price, 100, 1); ok {
				t.Fatalf("expected price %v to be rejected", tc.price)
			}
		})
	}
}

func TestValidateTradeRejectsOversizedTrade(t *testing.T) {
	m := New(defaultLimits())
	if ok, _ := m.ValidateTrade(0.5, 300, 1); ok {
		t.Fatalf("expected oversized trade to be rejected")
	}
}

func TestValidateTradeRejectsWhenFeePushesEffectiveCostOverLimit(t *testing.T) {
	m := New(defaultLimits())
	if ok, _ := m.ValidateTrade(0.5, 249, 5); ok {
		t.Fatalf("expected size+fee (254) exceeding max single trade (250) to be rejected")
	}
}

func TestValidateTradeRejectsWhenOpenPositionsAtLimit(t *testing.T) {
	m := New(defaultLimits())
	m.RecordTradeOpened()
	if ok, reason := m.ValidateTrade(0.5, 100, 1); ok {
		t.Fatalf("expected single-position cap to reject, got ok with reason %q", reason)
	}
}

func TestDailyLossHaltsTrading(t *testing.T) {
	m := New(defaultLimits())
	m.RecordTradeOpened()
	m.RecordSettlement(-600)

	if ok, reason := m.ValidateTrade(0.5, 50, 1); ok {
		t.Fatalf("expected trading to be halted after breaching daily loss limit")
	} else if reason == "" {
		t.Fatalf("expected a halt reason")
	}
	if snap := m.Snapshot(); !snap.Halted {
		t.Fatalf("expected Snapshot().Halted = true")
	}
}

func TestManualHaltIsNotReasonMatchedAsDailyLoss(t *testing.T) {
	m := New(defaultLimits())
	m.Halt("operator requested stop")
	m.day = "2020-01-01" // force rollover on next check
	if ok, _ := m.ValidateTrade(0.5, 50, 1); ok {
		t.Fatalf("manual halt should survive a day rollover")
	}
}
