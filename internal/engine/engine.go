// Package engine is the ticker-driven orchestrator: it owns the discovery,
// evaluation, execution, and settlement loop the teacher's original
// strategy.Engine ran directly, split into its own package because the
// orchestrator depends on internal/execution, which itself depends on
// internal/strategy for fee math — internal/strategy stays a leaf package
// of pure trading logic with no knowledge of the venue client or executor.
package engine

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sdibella/btc15m/internal/config"
	"github.com/sdibella/btc15m/internal/eventbus"
	"github.com/sdibella/btc15m/internal/execution"
	"github.com/sdibella/btc15m/internal/journal"
	"github.com/sdibella/btc15m/internal/oracle"
	"github.com/sdibella/btc15m/internal/persistence"
	"github.com/sdibella/btc15m/internal/polymarket"
	"github.com/sdibella/btc15m/internal/risk"
	"github.com/sdibella/btc15m/internal/strategy"
)

const (
	discoveryInterval  = 3 * time.Second
	settlementInterval = 5 * time.Second
	volatilityInterval = 60 * time.Second
	snapshotInterval   = 10 * time.Second
)

// Engine ties the composite price oracle, market discovery, the
// opportunity evaluator, order execution, settlement, and the persisted
// win-rate posterior into one ticker-driven loop, mirroring the teacher's
// Run(ctx)/tick() 1-second-ticker shape and its single mutex serializing
// access to the tracked-markets map.
type Engine struct {
	cfg        *config.Config
	client     *polymarket.Client
	ws         *polymarket.WSClient
	httpClient *http.Client
	oracle     *oracle.Oracle
	vol        *strategy.VolatilityEstimator
	evaluator  *strategy.Evaluator
	executor   *execution.Executor
	riskMgr    *risk.Manager
	posterior  *strategy.WinRatePosterior
	journal    *journal.Journal
	bus        *eventbus.Bus

	mu       sync.Mutex
	markets  map[string]*strategy.MarketState
	balance  float64
	totalTr  int
	winTr    int

	lastDiscovery  time.Time
	lastVolUpdate  time.Time
	lastSettlement time.Time
	lastSnapshot   time.Time

	paused atomic.Bool
}

// New builds an Engine from its already-constructed collaborators.
func New(
	cfg *config.Config,
	client *polymarket.Client,
	ws *polymarket.WSClient,
	httpClient *http.Client,
	o *oracle.Oracle,
	vol *strategy.VolatilityEstimator,
	evaluator *strategy.Evaluator,
	executor *execution.Executor,
	riskMgr *risk.Manager,
	posterior *strategy.WinRatePosterior,
	j *journal.Journal,
	bus *eventbus.Bus,
) *Engine {
	return &Engine{
		cfg:        cfg,
		client:     client,
		ws:         ws,
		httpClient: httpClient,
		oracle:     o,
		vol:        vol,
		evaluator:  evaluator,
		executor:   executor,
		riskMgr:    riskMgr,
		posterior:  posterior,
		journal:    j,
		bus:        bus,
		markets:    make(map[string]*strategy.MarketState),
		balance:    config.StartingBalanceUSD,
	}
}

// Resume seeds the engine's balance, trade counters, win-rate posterior,
// and any still-open position from a persisted snapshot.
func (e *Engine) Resume(snap persistence.Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if snap.Portfolio.BalanceUSD > 0 {
		e.balance = snap.Portfolio.BalanceUSD
	}
	e.totalTr = snap.Portfolio.TotalTrades
	e.winTr = snap.Portfolio.WinningTrades
	e.posterior.Alpha = snap.Alpha
	e.posterior.Beta = snap.Beta
	if e.posterior.Alpha == 0 && e.posterior.Beta == 0 {
		e.posterior.Alpha, e.posterior.Beta = 1, 1
	}

	if snap.Open != nil {
		ms := &strategy.MarketState{
			Slug:          snap.Open.Slug,
			Strike:        snap.Open.Strike,
			StrikeFetched: true,
			EndTime:       snap.Open.EndTime,
			Evaluated:     true,
			Traded:        true,
			Side:          snap.Open.Side,
			EntryPrice:    snap.Open.EntryPrice,
			AmountUSD:     snap.Open.AmountUSD,
			FeeUSD:        snap.Open.FeeUSD,
		}
		e.markets[ms.Slug] = ms
		e.riskMgr.RecordTradeOpened()
		slog.Info("resumed open position from snapshot", "slug", ms.Slug, "side", ms.Side)
	}
}

// Run starts the engine's main loop with a 1-second ticker.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	slog.Info("trading engine started")
	e.bus.Publish(eventbus.KindBotStatus, "running")

	for {
		select {
		case <-ctx.Done():
			e.bus.Publish(eventbus.KindBotStatus, "stopped")
			return ctx.Err()
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

func (e *Engine) tick(ctx context.Context) {
	now := time.Now()

	if composite, err := e.oracle.Tick(ctx); err != nil {
		slog.Warn("oracle tick failed", "err", err)
	} else {
		e.bus.Publish(eventbus.KindPriceUpdate, composite)
	}

	if time.Since(e.lastVolUpdate) > volatilityInterval {
		e.lastVolUpdate = now
		if err := e.vol.Update(ctx); err != nil {
			slog.Warn("volatility update failed", "err", err)
		}
	}

	if !e.paused.Load() {
		if time.Since(e.lastDiscovery) > discoveryInterval {
			e.lastDiscovery = now
			e.discoverMarkets(ctx)
		}

		e.mu.Lock()
		slugs := make([]string, 0, len(e.markets))
		for s := range e.markets {
			slugs = append(slugs, s)
		}
		e.mu.Unlock()

		for _, slug := range slugs {
			e.mu.Lock()
			ms := e.markets[slug]
			e.mu.Unlock()
			if ms == nil {
				continue
			}
			e.processMarket(ctx, ms, now)
		}
	}

	if time.Since(e.lastSettlement) > settlementInterval {
		e.lastSettlement = now
		e.sweepSettlements(now)
	}

	if time.Since(e.lastSnapshot) > snapshotInterval {
		e.lastSnapshot = now
		e.saveSnapshot()
	}

	e.bus.Publish(eventbus.KindPortfolio, e.portfolioLocked())
}

func (e *Engine) discoverMarkets(ctx context.Context) {
	resolved, err := polymarket.Discover(ctx, e.client, e.httpClient)
	if err != nil {
		slog.Warn("market discovery failed", "err", err)
		return
	}

	discovered := make([]string, 0)
	for _, rm := range resolved {
		e.mu.Lock()
		_, exists := e.markets[rm.Slug]
		e.mu.Unlock()
		if exists {
			continue
		}

		ms := &strategy.MarketState{
			Slug:          rm.Slug,
			Question:      rm.Question,
			ConditionID:   rm.ConditionID,
			UpTokenID:     rm.UpTokenID,
			DownTokenID:   rm.DownTokenID,
			Strike:        rm.Strike,
			StrikeFetched: rm.StrikeFetched,
			StartTime:     rm.StartTime,
			EndTime:       rm.EndTime,
		}

		e.mu.Lock()
		e.markets[rm.Slug] = ms
		e.mu.Unlock()

		e.ws.Subscribe(rm.UpTokenID)
		e.ws.Subscribe(rm.DownTokenID)

		discovered = append(discovered, rm.Slug)
		slog.Info("market discovered", "slug", rm.Slug, "strike", rm.Strike, "endTime", rm.EndTime.Format(time.RFC3339))
	}

	if len(discovered) > 0 {
		e.bus.Publish(eventbus.KindMarketsUpdate, discovered)
	}
}

func (e *Engine) processMarket(ctx context.Context, ms *strategy.MarketState, now time.Time) {
	if ms.Traded || ms.Evaluated {
		return
	}

	upBook, ok := e.ws.GetOrderbook(ms.UpTokenID)
	if !ok {
		return
	}
	downBook, ok := e.ws.GetOrderbook(ms.DownTokenID)
	if !ok {
		return
	}

	upBid, upBidOK := upBook.BestBid()
	upAsk, upAskOK := upBook.BestAsk()
	downBid, downBidOK := downBook.BestBid()
	downAsk, downAskOK := downBook.BestAsk()
	if !upBidOK || !upAskOK || !downBidOK || !downAskOK {
		return
	}

	composite, ok := e.oracle.Latest()
	if !ok || !ms.StrikeFetched {
		return
	}

	closes := closePrices(e.oracle.History())
	rsi := strategy.RSI(closes)
	trend := strategy.TrendState(closes)
	fairValueUp := strategy.FairValue(composite.Price, ms.Strike, e.vol.Value(), ms.SecondsToExpiry(now))

	e.mu.Lock()
	balance := e.balance
	e.mu.Unlock()

	signal, reason := e.evaluator.Evaluate(
		ms,
		strategy.Quote{Bid: upBid, Ask: upAsk},
		strategy.Quote{Bid: downBid, Ask: downAsk},
		fairValueUp,
		rsi,
		trend,
		balance,
		now,
	)

	if signal == nil {
		slog.Debug("no trade", "slug", ms.Slug, "reason", reason)
		return
	}

	e.enterPosition(ctx, ms, *signal)
}

func (e *Engine) enterPosition(ctx context.Context, ms *strategy.MarketState, sig strategy.Signal) {
	if !e.executor.TryAcquireSlot() {
		slog.Warn("skipping entry, order rate limit exhausted", "slug", ms.Slug)
		return
	}

	tokenID := ms.UpTokenID
	if sig.Side == strategy.SideDown {
		tokenID = ms.DownTokenID
	}

	result, err := e.executor.PlaceMarketOrder(ctx, tokenID, execution.Buy, sig.AmountUSD)
	if err != nil {
		slog.Warn("order placement failed", "slug", ms.Slug, "side", sig.Side, "err", err)
		return
	}
	if !result.Filled {
		slog.Info("order did not fill", "slug", ms.Slug, "side", sig.Side)
		return
	}

	ms.Traded = true
	ms.Side = sig.Side
	ms.EntryPrice = result.FillPrice
	ms.AmountUSD = sig.AmountUSD
	ms.FeeUSD = result.Fee
	ms.OrderID = result.OrderID
	ms.OrderPlacedAt = time.Now()

	e.riskMgr.RecordTradeOpened()

	e.mu.Lock()
	e.balance -= sig.AmountUSD + result.Fee
	balanceAfter := e.balance
	e.mu.Unlock()

	_ = e.journal.Log(journal.NewTrade(
		ms.Slug, string(ms.Side), ms.EntryPrice, ms.AmountUSD, ms.FeeUSD, ms.Strike,
		result.OrderID, result.Filled, e.cfg.DryRun,
	))

	slog.Info("position opened",
		"slug", ms.Slug, "side", ms.Side, "entry", ms.EntryPrice,
		"amount", ms.AmountUSD, "fee", ms.FeeUSD, "balance", balanceAfter,
	)

	e.bus.Publish(eventbus.KindNewTrade, ms)
}

func (e *Engine) sweepSettlements(now time.Time) {
	composite, ok := e.oracle.Latest()
	if !ok {
		return
	}
	if !strategy.ShouldSweep(composite.At, now) || !strategy.IsValidCompositePrice(composite.Price) {
		return
	}

	e.mu.Lock()
	slugs := make([]string, 0, len(e.markets))
	for s, ms := range e.markets {
		if ms.Traded && !ms.Settled {
			slugs = append(slugs, s)
		}
	}
	e.mu.Unlock()

	for _, slug := range slugs {
		e.mu.Lock()
		ms := e.markets[slug]
		e.mu.Unlock()
		if ms == nil {
			continue
		}

		trade := strategy.Settle(ms, composite.Price, now)
		if trade == nil {
			continue
		}

		e.applySettlement(ms, trade)
	}
}

func (e *Engine) applySettlement(ms *strategy.MarketState, trade *strategy.Trade) {
	e.mu.Lock()
	if trade.Void {
		e.balance += trade.AmountUSD + trade.FeeUSD
	} else {
		e.balance += trade.AmountUSD + trade.PnLUSD
		e.totalTr++
		if trade.Won {
			e.winTr++
		}
	}
	e.mu.Unlock()

	if !trade.Void {
		e.posterior.Update(trade.Won)
		e.riskMgr.RecordSettlement(trade.PnLUSD)
	}

	_ = e.journal.Log(journal.NewSettlement(
		trade.Slug, trade.Strike, trade.SettlementPrice, trade.Won, trade.Void,
		trade.PnLUSD, trade.FeeUSD, string(trade.Side), trade.EntryPrice, trade.AmountUSD, e.cfg.DryRun,
	))

	e.mu.Lock()
	delete(e.markets, ms.Slug)
	e.mu.Unlock()

	slog.Info("settlement",
		"slug", trade.Slug, "side", trade.Side, "won", trade.Won, "void", trade.Void,
		"pnl", trade.PnLUSD, "settlementPrice", trade.SettlementPrice,
	)

	e.bus.Publish(eventbus.KindPortfolio, e.portfolioLocked())
}

func (e *Engine) portfolioLocked() strategy.Portfolio {
	e.mu.Lock()
	defer e.mu.Unlock()
	return strategy.Portfolio{
		BalanceUSD:    e.balance,
		InitialUSD:    config.StartingBalanceUSD,
		TotalTrades:   e.totalTr,
		WinningTrades: e.winTr,
	}
}

func (e *Engine) saveSnapshot() {
	e.mu.Lock()
	portfolio := strategy.Portfolio{
		BalanceUSD:    e.balance,
		InitialUSD:    config.StartingBalanceUSD,
		TotalTrades:   e.totalTr,
		WinningTrades: e.winTr,
	}
	var open *strategy.Position
	for _, ms := range e.markets {
		if ms.Traded && !ms.Settled {
			open = &strategy.Position{
				Slug:       ms.Slug,
				Side:       ms.Side,
				EntryPrice: ms.EntryPrice,
				AmountUSD:  ms.AmountUSD,
				FeeUSD:     ms.FeeUSD,
				Strike:     ms.Strike,
				EndTime:    ms.EndTime,
				OpenedAt:   ms.OrderPlacedAt,
			}
			break
		}
	}
	alpha, beta := e.posterior.Alpha, e.posterior.Beta
	e.mu.Unlock()

	snap := persistence.Snapshot{
		SavedAt:   time.Now(),
		Portfolio: portfolio,
		Open:      open,
		Alpha:     alpha,
		Beta:      beta,
	}
	if err := persistence.Save(e.cfg.SnapshotPath, snap); err != nil {
		slog.Warn("snapshot save failed", "err", err)
	}
}

// StopTrading pauses discovery and new entries; positions already open
// still settle normally.
func (e *Engine) StopTrading() {
	e.paused.Store(true)
	e.bus.Publish(eventbus.KindBotStatus, "paused")
	slog.Info("trading paused")
}

// StartTrading resumes discovery and new entries.
func (e *Engine) StartTrading() {
	e.paused.Store(false)
	e.bus.Publish(eventbus.KindBotStatus, "running")
	slog.Info("trading resumed")
}

// IsPaused reports whether the engine is currently paused.
func (e *Engine) IsPaused() bool {
	return e.paused.Load()
}

// SetDryRun switches the executor between paper and live mode.
func (e *Engine) SetDryRun(dryRun bool) {
	e.executor.SetDryRun(dryRun)
}

// DryRun reports whether the executor is currently in paper mode.
func (e *Engine) DryRun() bool {
	return e.executor.DryRun()
}

// Portfolio returns the current account rollup, for the control surface.
func (e *Engine) Portfolio() strategy.Portfolio {
	return e.portfolioLocked()
}

// Markets returns a snapshot copy of every currently tracked market, for
// the control surface.
func (e *Engine) Markets() []strategy.MarketState {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]strategy.MarketState, 0, len(e.markets))
	for _, ms := range e.markets {
		out = append(out, *ms)
	}
	return out
}

// RiskState returns the risk manager's current snapshot, for the control
// surface.
func (e *Engine) RiskState() risk.State {
	return e.riskMgr.Snapshot()
}

func closePrices(history []oracle.Composite) []float64 {
	closes := make([]float64, len(history))
	for i, c := range history {
		closes[i] = c.Price
	}
	return closes
}
