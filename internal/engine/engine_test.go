package engine

import (
	"path/filepath"
	"testing"
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
	"github.com/sdibella/btc15m/internal/wallet"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	cfg := &config.Config{DryRun: true, SnapshotPath: filepath.Join(t.TempDir(), "state.json")}
	client := polymarket.New("https://gamma.example", "https://clob.example", wallet.NullSigner{}, "0xfunder")
	ws := polymarket.NewWSClient("wss://ws.example")
	riskMgr := risk.New(risk.Limits{MaxSingleTradeUSD: 500, MaxPositionUSD: 500, MaxDailyLossUSD: 1000, MaxOpenPositions: 1})
	executor := execution.New(true, client, riskMgr, 50)

	j, err := journal.New(filepath.Join(t.TempDir(), "journal.jsonl"))
	if err != nil {
		t.Fatalf("journal.New() error: %v", err)
	}
	t.Cleanup(func() { j.Close() })

	return New(cfg, client, ws, nil, oracle.New(),
		strategy.NewVolatilityEstimator(nil, 0.8),
		strategy.NewEvaluator(0.10),
		executor, riskMgr, strategy.NewWinRatePosterior(), j, eventbus.New())
}

func TestResumeSeedsBalanceAndPosterior(t *testing.T) {
	e := newTestEngine(t)

	snap := persistence.Snapshot{
		Portfolio: strategy.Portfolio{BalanceUSD: 9500, TotalTrades: 4, WinningTrades: 3},
		Alpha:     4,
		Beta:      2,
	}
	e.Resume(snap)

	got := e.Portfolio()
	if got.BalanceUSD != 9500 {
		t.Fatalf("expected resumed balance 9500, got %v", got.BalanceUSD)
	}
	if got.TotalTrades != 4 || got.WinningTrades != 3 {
		t.Fatalf("expected resumed trade counters 4/3, got %d/%d", got.TotalTrades, got.WinningTrades)
	}
}

func TestResumeReseedsDefaultPriorWhenSnapshotHasNone(t *testing.T) {
	e := newTestEngine(t)
	e.Resume(persistence.Snapshot{})

	if e.posterior.Alpha != 1 || e.posterior.Beta != 1 {
		t.Fatalf("expected an uninformative Beta(1,1) prior, got Beta(%d,%d)", e.posterior.Alpha, e.posterior.Beta)
	}
}

func TestResumeRestoresOpenPosition(t *testing.T) {
	e := newTestEngine(t)

	snap := persistence.Snapshot{
		Portfolio: strategy.Portfolio{BalanceUSD: 9000},
		Open: &strategy.Position{
			Slug: "btc-updown-15m-1700000000", Side: strategy.SideUp,
			EntryPrice: 0.6, AmountUSD: 100, FeeUSD: 1.5,
			EndTime: time.Now().Add(5 * time.Minute),
		},
	}
	e.Resume(snap)

	markets := e.Markets()
	if len(markets) != 1 {
		t.Fatalf("expected one resumed market, got %d", len(markets))
	}
	if !markets[0].Traded || markets[0].Side != strategy.SideUp {
		t.Fatalf("expected the resumed position to be marked traded and up-sided, got %+v", markets[0])
	}
}

func TestStartStopTradingTogglesPaused(t *testing.T) {
	e := newTestEngine(t)
	if e.IsPaused() {
		t.Fatalf("expected a fresh engine to start unpaused")
	}

	e.StopTrading()
	if !e.IsPaused() {
		t.Fatalf("expected StopTrading() to pause the engine")
	}

	e.StartTrading()
	if e.IsPaused() {
		t.Fatalf("expected StartTrading() to unpause the engine")
	}
}

func TestSetDryRunDelegatesToExecutor(t *testing.T) {
	e := newTestEngine(t)
	if !e.DryRun() {
		t.Fatalf("expected the engine to start in dry-run mode")
	}

	e.SetDryRun(false)
	if e.DryRun() {
		t.Fatalf("expected SetDryRun(false) to flip the executor to live mode")
	}
}

func TestClosePricesExtractsCompositePrices(t *testing.T) {
	history := []oracle.Composite{{Price: 100}, {Price: 101.5}, {Price: 99}}
	got := closePrices(history)
	want := []float64{100, 101.5, 99}
	if len(got) != len(want) {
		t.Fatalf("expected %d prices, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}
