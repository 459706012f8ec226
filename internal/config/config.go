// Package config loads runtime configuration for the BTC 15-minute binary
// market engine from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every tunable the engine needs, loaded from the environment.
type Config struct {
	DryRun bool

	// Wallet. An EOA private key and the on-chain funder address used to
	// sign and fund CLOB orders on Polygon. Credentials only; the signer
	// and on-chain wallet contract live in internal/wallet.
	PrivateKeyHex string
	FunderAddress string
	ChainID       int
	SignatureType int

	// Venue endpoints.
	ClobBaseURL  string
	GammaBaseURL string
	WSMarketURL  string
	RPCURL       string

	// Oracle.
	BinanceBaseURL   string
	StalenessSeconds float64

	// Strategy tuning.
	MinEdgePercent    float64
	MaxPositionUSD    float64
	AnnualVolatility  float64
	SnipeCooldownSecs int

	// Risk.
	MaxSingleTradeUSD float64
	MaxDailyLossUSD   float64
	MaxOpenPositions  int

	// Execution.
	MaxOrdersPerSecond int
	OrderLifetimeMS    int

	// Persistence / audit.
	JournalPath   string
	JournalDir    string
	SnapshotPath  string
	DashboardPort int
	DashboardHost string
	ControlPort   int
	MetricsPort   int
	LogLevel      string
}

// StartingBalanceUSD is the paper-trading balance used when no snapshot
// file exists yet.
const StartingBalanceUSD = 10000.00

// Load reads .env (if present) and the process environment into a Config,
// validating the fields the engine cannot run without.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DryRun:             getEnvBool("DRY_RUN", true),
		PrivateKeyHex:      getEnvDefault("PRIVATE_KEY", ""),
		FunderAddress:      getEnvDefault("FUNDER_ADDRESS", ""),
		ChainID:            getEnvInt("CHAIN_ID", 137),
		SignatureType:      getEnvInt("SIGNATURE_TYPE", 0),
		ClobBaseURL:        getEnvDefault("CLOB_BASE_URL", "https://clob.polymarket.com"),
		GammaBaseURL:       getEnvDefault("GAMMA_BASE_URL", "https://gamma-api.polymarket.com"),
		WSMarketURL:        getEnvDefault("WS_MARKET_URL", "wss://ws-subscriptions-clob.polymarket.com/ws/market"),
		RPCURL:             getEnvDefault("RPC_URL", "https://polygon-rpc.com"),
		BinanceBaseURL:     getEnvDefault("BINANCE_BASE_URL", "https://api.binance.com"),
		StalenessSeconds:   getEnvFloat("STALENESS_SECONDS", 30.0),
		MinEdgePercent:     getEnvFloat("MIN_EDGE_PERCENT", 0.10),
		MaxPositionUSD:     getEnvFloat("MAX_POSITION_USD", 500.0),
		AnnualVolatility:   getEnvFloat("ANNUAL_VOLATILITY", 0.80),
		SnipeCooldownSecs:  getEnvInt("SNIPE_COOLDOWN_SECONDS", 0),
		MaxSingleTradeUSD:  getEnvFloat("MAX_SINGLE_TRADE_USD", 250.0),
		MaxDailyLossUSD:    getEnvFloat("MAX_DAILY_LOSS_USD", 500.0),
		MaxOpenPositions:   getEnvInt("MAX_OPEN_POSITIONS", 1),
		MaxOrdersPerSecond: getEnvInt("MAX_ORDERS_PER_SECOND", 50),
		OrderLifetimeMS:    getEnvInt("ORDER_LIFETIME_MS", 30000),
		JournalPath:        getEnvDefault("JOURNAL_PATH", ""),
		JournalDir:         getEnvDefault("JOURNAL_DIR", "./journal"),
		SnapshotPath:       getEnvDefault("SNAPSHOT_PATH", "./journal/state.json"),
		DashboardPort:      getEnvInt("DASHBOARD_PORT", 8090),
		DashboardHost:      getEnvDefault("DASHBOARD_HOST", "0.0.0.0"),
		ControlPort:        getEnvInt("CONTROL_PORT", 8080),
		MetricsPort:        getEnvInt("METRICS_PORT", 9090),
		LogLevel:           strings.ToUpper(getEnvDefault("LOG_LEVEL", "INFO")),
	}

	if !cfg.DryRun {
		if cfg.PrivateKeyHex == "" {
			return nil, fmt.Errorf("PRIVATE_KEY is required when DRY_RUN=false")
		}
		if cfg.FunderAddress == "" {
			return nil, fmt.Errorf("FUNDER_ADDRESS is required when DRY_RUN=false")
		}
	}

	return cfg, nil
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
