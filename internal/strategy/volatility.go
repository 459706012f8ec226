package strategy

import (
	"context"
	"math"
	"net/http"
	"sync"

	"github.com/sdibella/btc15m/internal/oracle"
)

// minutesPerYear annualizes a one-minute log-return stddev.
const minutesPerYear = 525600.0

// VolatilityFloor and VolatilityCeiling bound the annualized volatility
// estimate to a plausible range for BTC, guarding the fair-value model
// against a single bad klines fetch producing a nonsense number.
const (
	VolatilityFloor   = 0.20
	VolatilityCeiling = 2.00
)

// VolatilityFallback is the starting estimate when the caller supplies no
// positive initial value. A failed or too-short klines fetch does not reset
// the estimate to it; Update keeps the previous value instead.
const VolatilityFallback = 0.80

// VolatilityWindow is how many one-minute klines feed the estimate.
const VolatilityWindow = 60

// VolatilityEstimator periodically recomputes BTC's annualized volatility
// from recent one-minute Binance klines. Unlike the teacher's original
// vol filter (which tailed a local data-collector's JSONL file), this
// pulls klines directly through the oracle package's klines fetcher, using
// the HTTP client passed to NewVolatilityEstimator — spec's venue has no
// side-car data file to tail.
type VolatilityEstimator struct {
	client *http.Client

	mu    sync.RWMutex
	value float64
}

// NewVolatilityEstimator builds an estimator that starts at initial
// (typically the configured ANNUAL_VOLATILITY, or VolatilityFallback if the
// caller has no better prior) until its first successful Update.
func NewVolatilityEstimator(client *http.Client, initial float64) *VolatilityEstimator {
	if initial <= 0 {
		initial = VolatilityFallback
	}
	return &VolatilityEstimator{client: client, value: clip(initial, VolatilityFloor, VolatilityCeiling)}
}

// Update fetches fresh klines and recomputes the estimate. On any error it
// leaves the previous estimate in place rather than resetting to fallback.
func (v *VolatilityEstimator) Update(ctx context.Context) error {
	klines, err := oracle.RecentKlines(ctx, v.client, VolatilityWindow)
	if err != nil {
		return err
	}

	sigma, ok := AnnualizedVolatility(klines)
	if !ok {
		return nil
	}

	v.mu.Lock()
	v.value = sigma
	v.mu.Unlock()
	return nil
}

// Value returns the current annualized volatility estimate.
func (v *VolatilityEstimator) Value() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// AnnualizedVolatility computes the annualized stddev of one-minute log
// returns over the given klines, clamped to [VolatilityFloor,
// VolatilityCeiling]. Returns false if there isn't enough history (fewer
// than 2 usable returns) to compute an estimate.
func AnnualizedVolatility(klines []oracle.Kline) (float64, bool) {
	if len(klines) < 2 {
		return 0, false
	}

	returns := make([]float64, 0, len(klines)-1)
	for i := 1; i < len(klines); i++ {
		prev, cur := klines[i-1].Close, klines[i].Close
		if prev <= 0 || cur <= 0 {
			continue
		}
		returns = append(returns, math.Log(cur/prev))
	}
	if len(returns) < 2 {
		return 0, false
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)
	stddev := math.Sqrt(variance)

	annualized := stddev * math.Sqrt(minutesPerYear)
	return clip(annualized, VolatilityFloor, VolatilityCeiling), true
}
