package strategy

import "time"

// SettlementStaleness is how stale the composite oracle price can be
// before a settlement sweep is skipped entirely rather than settle against
// a price nobody trusts anymore.
const SettlementStaleness = 30 * time.Second

// MinValidCompositePrice is the floor below which a composite price is
// treated as corrupt data rather than a real BTC quote.
const MinValidCompositePrice = 1000.0

// LateVoidWindow is how long past a market's end time the engine will
// still attempt a real settlement before giving up and voiding (refunding)
// the position instead — the venue's own settlement oracle is assumed to
// have failed to report by then.
const LateVoidWindow = 300 * time.Second

// ShouldSweep is the freshness gate: don't settle anything against a
// composite price older than SettlementStaleness.
func ShouldSweep(compositeAt, now time.Time) bool {
	return now.Sub(compositeAt) <= SettlementStaleness
}

// IsValidCompositePrice is the validity gate: refuse to settle against an
// implausible price.
func IsValidCompositePrice(price float64) bool {
	return price >= MinValidCompositePrice
}

// Settle resolves one expired position against the composite price at
// `now`. Returns nil if ms isn't due for settlement yet (hasn't expired).
// If the market expired more than LateVoidWindow ago, the position is
// voided (refunded) rather than settled, on the assumption the venue's own
// settlement data is never coming.
func Settle(ms *MarketState, compositePrice float64, now time.Time) *Trade {
	if !ms.Traded || ms.Settled || now.Before(ms.EndTime) {
		return nil
	}

	if now.Sub(ms.EndTime) > LateVoidWindow {
		ms.Settled = true
		ms.Void = true
		return &Trade{
			Slug:       ms.Slug,
			Side:       ms.Side,
			EntryPrice: ms.EntryPrice,
			AmountUSD:  ms.AmountUSD,
			FeeUSD:     ms.FeeUSD,
			Strike:     ms.Strike,
			Void:       true,
			PnLUSD:     0,
			SettledAt:  now,
		}
	}

	won := (ms.Side == SideUp && compositePrice > ms.Strike) ||
		(ms.Side == SideDown && compositePrice < ms.Strike)

	pnl := ComputePnL(won, ms.EntryPrice, ms.AmountUSD)

	ms.Settled = true
	return &Trade{
		Slug:            ms.Slug,
		Side:            ms.Side,
		EntryPrice:      ms.EntryPrice,
		AmountUSD:       ms.AmountUSD,
		FeeUSD:          ms.FeeUSD,
		Strike:          ms.Strike,
		SettlementPrice: compositePrice,
		Won:             won,
		PnLUSD:          pnl,
		SettledAt:       now,
	}
}
