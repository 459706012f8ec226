package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sdibella/btc15m/internal/config"
	"github.com/sdibella/btc15m/internal/control"
	"github.com/sdibella/btc15m/internal/engine"
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

func main() {
	dryRun := flag.Bool("dry-run", false, "paper trade only (no real orders)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}
	if *dryRun {
		cfg.DryRun = true
	}

	slog.Info("btc15m bot starting", "dryRun", cfg.DryRun)

	var signer wallet.Signer
	if cfg.DryRun {
		signer = wallet.NullSigner{FunderAddress: cfg.FunderAddress}
	} else {
		signer, err = wallet.NewSigner(cfg.PrivateKeyHex)
		if err != nil {
			slog.Error("wallet init failed", "err", err)
			os.Exit(1)
		}
	}

	client := polymarket.New(cfg.GammaBaseURL, cfg.ClobBaseURL, signer, cfg.FunderAddress)
	wsClient := polymarket.NewWSClient(cfg.WSMarketURL)
	httpClient := &http.Client{Timeout: 10 * time.Second}

	o := oracle.New()
	vol := strategy.NewVolatilityEstimator(httpClient, cfg.AnnualVolatility)
	evaluator := strategy.NewEvaluator(cfg.MinEdgePercent)

	riskMgr := risk.New(risk.Limits{
		MaxSingleTradeUSD: cfg.MaxSingleTradeUSD,
		MaxPositionUSD:    cfg.MaxPositionUSD,
		MaxDailyLossUSD:   cfg.MaxDailyLossUSD,
		MaxOpenPositions:  cfg.MaxOpenPositions,
	})
	executor := execution.New(cfg.DryRun, client, riskMgr, cfg.MaxOrdersPerSecond)
	posterior := strategy.NewWinRatePosterior()
	bus := eventbus.New()

	journalPath := cfg.JournalPath
	if journalPath == "" {
		if err := os.MkdirAll(cfg.JournalDir, 0755); err != nil {
			slog.Error("journal dir create failed", "err", err)
			os.Exit(1)
		}
		journalPath = filepath.Join(cfg.JournalDir, fmt.Sprintf("journal-%s.jsonl", time.Now().Format("20060102-150405")))
	}
	j, err := journal.New(journalPath)
	if err != nil {
		slog.Error("journal init failed", "err", err)
		os.Exit(1)
	}
	defer j.Close()
	slog.Info("journal opened", "path", journalPath)

	snap, resumed, err := persistence.Load(cfg.SnapshotPath)
	if err != nil {
		slog.Warn("snapshot load failed, starting fresh", "err", err)
	}

	eng := engine.New(cfg, client, wsClient, httpClient, o, vol, evaluator, executor, riskMgr, posterior, j, bus)
	if resumed {
		eng.Resume(snap)
		slog.Info("resumed from snapshot", "balance", snap.Portfolio.BalanceUSD, "trades", snap.Portfolio.TotalTrades)
	}

	startingBalance := config.StartingBalanceUSD
	if resumed {
		startingBalance = snap.Portfolio.BalanceUSD
	}
	_ = j.Log(journal.NewSessionStart("polymarket", cfg.DryRun, startingBalance))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	dashboardCmd := startDashboard()

	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		if dashboardCmd != nil && dashboardCmd.Process != nil {
			dashboardCmd.Process.Signal(syscall.SIGTERM)
		}
		cancel()
	}()

	go wsClient.Run(ctx)

	controlSrv := control.New(eng, bus, journalPath,
		func() any { return eng.Portfolio() },
		func() any { return eng.Markets() },
		func() any { return eng.RiskState() },
	)
	httpSrv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.ControlPort), Handler: controlSrv.Handler()}
	go func() {
		slog.Info("control surface listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("control surface error", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	if err := eng.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("engine error", "err", err)
		os.Exit(1)
	}

	slog.Info("bot stopped")
}

func startDashboard() *exec.Cmd {
	exePath, err := os.Executable()
	if err != nil {
		slog.Error("failed to get executable path", "err", err)
		return nil
	}

	dashboardBinary := filepath.Join(filepath.Dir(exePath), "dashboard")
	if _, err := os.Stat(dashboardBinary); err != nil {
		slog.Warn("dashboard binary not found", "path", dashboardBinary)
		return nil
	}

	cmd := exec.Command(dashboardBinary)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		slog.Error("failed to start dashboard", "err", err)
		return nil
	}

	slog.Info("dashboard started", "pid", cmd.Process.Pid)
	return cmd
}
