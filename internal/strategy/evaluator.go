package strategy

import (
	"fmt"
	"math"
	"time"
)

// Signal is what the evaluator recommends: which side to buy, at what
// limit price, and how much to risk.
type Signal struct {
	Side       Side
	LimitPrice float64
	AmountUSD  float64
}

// MinEntrySeconds and MaxEntrySeconds bound the entry window: too close to
// expiry and there's no time for the edge to realize, too far out and the
// strike/fair-value estimate is too uncertain to trust.
const (
	MinEntrySeconds = 60.0
	MaxEntrySeconds = 12 * 60.0
)

// MaxSpread is the widest bid/ask spread the evaluator will trade through.
const MaxSpread = 0.05

// ConfidenceLow and ConfidenceHigh bound the open (0.40, 0.60) dead zone
// the fair-value model isn't trusted to call a direction in; the endpoints
// themselves are tradeable.
const (
	ConfidenceLow  = 0.40
	ConfidenceHigh = 0.60
)

// RSIOverbought and RSIOversold gate trades that would fight an already
// extended move.
const (
	RSIOverbought = 70.0
	RSIOversold   = 30.0
)

// Evaluator turns a market's current quotes, the composite spot's fair
// value, and technical context into a trade Signal, or a rejection reason.
type Evaluator struct {
	minEdge float64
}

// NewEvaluator builds an Evaluator requiring at least minEdge expected
// value (as a fraction, e.g. 0.10 for 10%) to trade.
func NewEvaluator(minEdge float64) *Evaluator {
	return &Evaluator{minEdge: minEdge}
}

// Quote is one side's current best bid/ask.
type Quote struct {
	Bid float64
	Ask float64
}

// Evaluate runs the full gate sequence and, if every gate passes, sizes
// and returns a Signal. Gates run in a fixed order so the rejection reason
// reported is always the first one that actually applies.
func (e *Evaluator) Evaluate(
	ms *MarketState,
	up, down Quote,
	fairValueUp float64,
	rsi float64,
	trend Trend,
	balanceUSD float64,
	now time.Time,
) (*Signal, string) {
	if spread := up.Ask - up.Bid; spread > MaxSpread {
		return nil, fmt.Sprintf("spread %.4f exceeds max %.4f", spread, MaxSpread)
	}

	secs := ms.SecondsToExpiry(now)
	if secs < MinEntrySeconds || secs > MaxEntrySeconds {
		return nil, fmt.Sprintf("seconds to expiry %.0f outside entry window [%.0f, %.0f]", secs, MinEntrySeconds, MaxEntrySeconds)
	}

	if !ms.StrikeFetched || ms.Strike <= 0 {
		return nil, "strike price not available"
	}

	if fairValueUp > ConfidenceLow && fairValueUp < ConfidenceHigh {
		return nil, fmt.Sprintf("fair value %.4f inside confidence dead zone (%.2f, %.2f)", fairValueUp, ConfidenceLow, ConfidenceHigh)
	}

	if up.Ask <= 0 || up.Ask >= 1 || down.Ask <= 0 || down.Ask >= 1 {
		return nil, "quote outside sane range (0, 1)"
	}

	side := SideUp
	entry := up.Ask
	fairValue := fairValueUp
	if fairValueUp < 0.5 {
		side = SideDown
		entry = down.Ask
		fairValue = 1 - fairValueUp
	}

	if side == SideUp && trend == TrendDown {
		return nil, "would fight a confirmed downtrend"
	}
	if side == SideDown && trend == TrendUp {
		return nil, "would fight a confirmed uptrend"
	}
	if side == SideUp && rsi >= RSIOverbought {
		return nil, fmt.Sprintf("RSI %.1f overbought, avoiding up-side chase", rsi)
	}
	if side == SideDown && rsi <= RSIOversold {
		return nil, fmt.Sprintf("RSI %.1f oversold, avoiding down-side chase", rsi)
	}

	edge := fairValue - entry
	if edge < e.minEdge {
		return nil, fmt.Sprintf("edge %.4f below minimum %.4f", edge, e.minEdge)
	}

	amount := PositionSize(balanceUSD, entry)

	return &Signal{Side: side, LimitPrice: entry, AmountUSD: amount}, ""
}

// PositionSize implements the fixed sizing rule: risk more as the entry
// price moves away from a coin-flip, scaled to the account balance, never
// more than the whole balance.
func PositionSize(balanceUSD, entryPrice float64) float64 {
	fraction := 0.05 + 0.3*math.Abs(0.5-entryPrice)
	size := balanceUSD * fraction
	if size > balanceUSD {
		return balanceUSD
	}
	return size
}
