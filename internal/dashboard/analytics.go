package dashboard

import (
	"time"

	"github.com/sdibella/btc15m/internal/journal"
)

// Analyzer aggregates journal events into dashboard views.
type Analyzer struct {
	trades      map[string]*tradeAggregator
	settlements []journal.Settlement

	lastSessionBalance float64
	postSessionPnL     float64
	hasSession         bool

	equityCurve []EquityPoint
	startTime   time.Time
}

// tradeAggregator accumulates the opening fill and eventual settlement for
// a single market, keyed by slug.
type tradeAggregator struct {
	slug       string
	side       string
	time       string
	amountUSD  float64
	entryPrice float64
	fees       float64
	settled    bool
	won        bool
	void       bool
	pnl        float64
}

// NewAnalyzer creates a new Analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		trades:      make(map[string]*tradeAggregator),
		settlements: make([]journal.Settlement, 0),
		equityCurve: make([]EquityPoint, 0),
	}
}

// ProcessEvents processes a slice of journal events and aggregates trade data.
func (a *Analyzer) ProcessEvents(events []interface{}) {
	for _, event := range events {
		switch e := event.(type) {
		case journal.SessionStart:
			a.processSessionStart(e)
		case journal.Trade:
			a.processTrade(e)
		case journal.Settlement:
			a.processSettlement(e)
		}
	}
}

func (a *Analyzer) processSessionStart(s journal.SessionStart) {
	t, err := time.Parse(time.RFC3339Nano, s.Time)
	if err != nil {
		t = time.Now()
	}

	if !a.hasSession {
		a.startTime = t
		a.equityCurve = append(a.equityCurve, EquityPoint{
			Time:       t,
			BalanceUSD: s.BalanceUSD,
		})
	}

	a.lastSessionBalance = s.BalanceUSD
	a.postSessionPnL = 0
	a.hasSession = true
}

func (a *Analyzer) processTrade(t journal.Trade) {
	agg, exists := a.trades[t.Slug]
	if !exists {
		agg = &tradeAggregator{
			slug: t.Slug,
			side: t.Side,
			time: t.Time,
		}
		a.trades[t.Slug] = agg
	}

	agg.amountUSD += t.AmountUSD
	agg.entryPrice = t.EntryPrice
	agg.fees += t.FeeUSD
}

func (a *Analyzer) processSettlement(s journal.Settlement) {
	a.settlements = append(a.settlements, s)
	a.postSessionPnL += s.PnLUSD

	if a.hasSession {
		currentBal := a.lastSessionBalance + a.postSessionPnL
		t, err := time.Parse(time.RFC3339Nano, s.Time)
		if err != nil {
			t = time.Now()
		}
		a.equityCurve = append(a.equityCurve, EquityPoint{
			Time:       t,
			BalanceUSD: currentBal,
		})
	}

	agg, exists := a.trades[s.Slug]
	if !exists {
		agg = &tradeAggregator{
			slug: s.Slug,
			side: s.Side,
			time: s.Time,
		}
		a.trades[s.Slug] = agg
	}

	agg.settled = true
	agg.won = s.Won
	agg.void = s.Void
	agg.pnl = s.PnLUSD
}

func (a *Analyzer) currentBalance() float64 {
	return a.lastSessionBalance + a.postSessionPnL
}

// GetTrades returns all aggregated trades as TradeView objects.
func (a *Analyzer) GetTrades() []TradeView {
	trades := make([]TradeView, 0, len(a.trades))

	for _, agg := range a.trades {
		result := "open"
		if agg.settled {
			switch {
			case agg.void:
				result = "void"
			case agg.won:
				result = "win"
			default:
				result = "loss"
			}
		}

		trades = append(trades, TradeView{
			Time:       agg.time,
			Slug:       agg.slug,
			Side:       agg.side,
			AmountUSD:  agg.amountUSD,
			EntryPrice: agg.entryPrice,
			Result:     result,
			PnL:        agg.pnl,
			Fees:       agg.fees,
		})
	}

	return trades
}

// ComputeSummary returns summary statistics for the journal.
func (a *Analyzer) ComputeSummary() Summary {
	var totalNetPnL, totalFees float64
	var winCount, lossCount, voidCount int

	for _, s := range a.settlements {
		totalNetPnL += s.PnLUSD
		totalFees += s.FeeUSD
		switch {
		case s.Void:
			voidCount++
		case s.Won:
			winCount++
		default:
			lossCount++
		}
	}

	totalMarkets := winCount + lossCount + voidCount

	winRate := 0.0
	if winCount+lossCount > 0 {
		winRate = float64(winCount) / float64(winCount+lossCount)
	}

	curBal := a.currentBalance()

	roi := 0.0
	if a.lastSessionBalance > 0 {
		roi = totalNetPnL / a.lastSessionBalance * 100
	}

	peakBal := curBal
	for _, ep := range a.equityCurve {
		if ep.BalanceUSD > peakBal {
			peakBal = ep.BalanceUSD
		}
	}
	currentDrawdown := 0.0
	if peakBal > 0 {
		currentDrawdown = (peakBal - curBal) / peakBal * 100
	}

	// Compute current streak (wins/losses only; voids don't break a streak).
	streak := 0
	for i := len(a.settlements) - 1; i >= 0; i-- {
		s := a.settlements[i]
		if s.Void {
			continue
		}
		if s.Won {
			if streak < 0 {
				break
			}
			streak++
		} else {
			if streak > 0 {
				break
			}
			streak--
		}
	}

	// Compute max drawdown from equity curve.
	maxDrawdown := 0.0
	peak := 0.0
	for _, ep := range a.equityCurve {
		if ep.BalanceUSD > peak {
			peak = ep.BalanceUSD
		}
		if peak > 0 {
			dd := (peak - ep.BalanceUSD) / peak * 100
			if dd > maxDrawdown {
				maxDrawdown = dd
			}
		}
	}

	return Summary{
		BalanceUSD:      curBal,
		SessionPnL:      totalNetPnL,
		TotalPnL:        totalNetPnL,
		WinCount:        winCount,
		LossCount:       lossCount,
		VoidCount:       voidCount,
		WinRate:         winRate,
		TotalFees:       totalFees,
		ROI:             roi,
		CurrentDrawdown: currentDrawdown,
		MaxDrawdown:     maxDrawdown,
		TotalMarkets:    totalMarkets,
		Streak:          streak,
	}
}

// ComputePerformance returns performance breakdown by side and entry price.
func (a *Analyzer) ComputePerformance() PerformanceBreakdown {
	bySide := make(map[string]SideStats)

	// Entry-price buckets, in probability terms (0 to 1).
	type bucket struct {
		label  string
		lo, hi float64 // inclusive
	}
	buckets := []bucket{
		{"0.50-0.64", 0.50, 0.6499},
		{"0.65-0.79", 0.65, 0.7999},
		{"0.80-0.89", 0.80, 0.8999},
		{"0.90-0.99", 0.90, 0.9999},
	}
	priceStats := make([]PriceRangeStats, len(buckets))
	for i, b := range buckets {
		priceStats[i].Label = b.label
	}

	var totalWinPnL, totalLossPnL float64
	var winCount, lossCount int
	var totalFees float64

	for _, agg := range a.trades {
		if !agg.settled || agg.void {
			continue
		}

		if agg.side != "" {
			sideStats := bySide[agg.side]
			sideStats.Trades++
			if agg.won {
				sideStats.Wins++
			}
			sideStats.TotalPnL += agg.pnl
			bySide[agg.side] = sideStats
		}

		for i, b := range buckets {
			if agg.entryPrice >= b.lo && agg.entryPrice <= b.hi {
				priceStats[i].Trades++
				if agg.won {
					priceStats[i].Wins++
				}
				priceStats[i].TotalPnL += agg.pnl
				break
			}
		}

		totalFees += agg.fees
		if agg.won {
			totalWinPnL += agg.pnl
			winCount++
		} else {
			totalLossPnL += agg.pnl
			lossCount++
		}
	}

	for side, stats := range bySide {
		if stats.Trades > 0 {
			stats.WinRate = float64(stats.Wins) / float64(stats.Trades)
			stats.AvgPnL = stats.TotalPnL / float64(stats.Trades)
			bySide[side] = stats
		}
	}

	for i := range priceStats {
		if priceStats[i].Trades > 0 {
			priceStats[i].WinRate = float64(priceStats[i].Wins) / float64(priceStats[i].Trades)
			priceStats[i].AvgPnL = priceStats[i].TotalPnL / float64(priceStats[i].Trades)
		}
	}

	avgWin := 0.0
	if winCount > 0 {
		avgWin = totalWinPnL / float64(winCount)
	}
	avgLoss := 0.0
	if lossCount > 0 {
		avgLoss = totalLossPnL / float64(lossCount)
	}

	total := winCount + lossCount
	expectancy := 0.0
	if total > 0 {
		wr := float64(winCount) / float64(total)
		expectancy = avgWin*wr + avgLoss*(1-wr) // avgLoss is already negative
	}

	return PerformanceBreakdown{
		BySide:     bySide,
		ByPrice:    priceStats,
		AvgWin:     avgWin,
		AvgLoss:    avgLoss,
		Expectancy: expectancy,
		TotalFees:  totalFees,
	}
}

// GetEquityCurve returns the equity curve, sampled to 1000 points if longer.
func (a *Analyzer) GetEquityCurve() []EquityPoint {
	if len(a.equityCurve) <= 1000 {
		return a.equityCurve
	}

	sampled := make([]EquityPoint, 1000)
	step := float64(len(a.equityCurve)-1) / 999.0

	for i := 0; i < 1000; i++ {
		idx := int(float64(i) * step)
		sampled[i] = a.equityCurve[idx]
	}

	return sampled
}
