package strategy

import "math"

const secondsPerYear = 365.25 * 86400

// FairValue prices a "will spot finish above strike" binary using the
// log-normal model: P(S_T > K) = Φ(ln(S/K) / (σ·√T)).
//
// spot and strike are dollar prices, annualVol is the annualized volatility
// (e.g. 0.80 for 80%), secondsToExpiry is time remaining until settlement.
// The result is clipped to [0.01, 0.99] — the model never claims certainty —
// except in the degenerate cases below, where the outcome is already known
// and the exact binary result is returned instead.
func FairValue(spot, strike, annualVol float64, secondsToExpiry float64) float64 {
	if strike <= 0 {
		if spot > strike {
			return 1.0
		}
		return 0.0
	}
	if spot <= 0 {
		return 0.0
	}

	tYears := secondsToExpiry / secondsPerYear
	if tYears < 0 {
		tYears = 0
	}
	sigmaT := annualVol * math.Sqrt(tYears)
	if sigmaT < 1e-4 {
		if spot > strike {
			return 1.0
		}
		return 0.0
	}

	d := math.Log(spot/strike) / sigmaT
	p := standardNormalCDF(d)

	return clip(p, 0.01, 0.99)
}

// standardNormalCDF is Φ(x), the standard normal CDF, computed via the
// error function (math.Erf is the stdlib's closed-form substitute for
// scipy's norm.cdf).
func standardNormalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

func clip(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
