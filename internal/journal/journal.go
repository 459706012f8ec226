// Package journal is an append-only JSONL audit trail of everything the
// engine does: trades placed, settlements resolved, sessions started.
package journal

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// Journal is an append-only JSONL writer for trade events.
type Journal struct {
	f  *os.File
	mu sync.Mutex
}

// New opens (or creates) the journal file in append mode.
func New(path string) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &Journal{f: f}, nil
}

// Log marshals event to JSON and appends it as a single line.
func (j *Journal) Log(event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err = j.f.Write(data); err != nil {
		return err
	}
	return j.f.Sync()
}

// Close flushes and closes the underlying file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.f.Close()
}

// SessionStart marks when the engine came up, and with what starting state.
type SessionStart struct {
	Type       string  `json:"type"`
	Time       string  `json:"time"`
	DryRun     bool    `json:"dry_run"`
	Env        string  `json:"env"`
	BalanceUSD float64 `json:"balance_usd"`
}

// NewSessionStart builds a SessionStart event.
func NewSessionStart(env string, dryRun bool, balanceUSD float64) SessionStart {
	return SessionStart{
		Type:       "session_start",
		Time:       time.Now().UTC().Format(time.RFC3339Nano),
		DryRun:     dryRun,
		Env:        env,
		BalanceUSD: balanceUSD,
	}
}

// Trade records an order placed (dry-run simulated fill or live order ack).
type Trade struct {
	Type       string  `json:"type"`
	Time       string  `json:"time"`
	Slug       string  `json:"slug"`
	Side       string  `json:"side"`
	EntryPrice float64 `json:"entry_price"`
	AmountUSD  float64 `json:"amount_usd"`
	FeeUSD     float64 `json:"fee_usd"`
	Strike     float64 `json:"strike_price"`
	OrderID    string  `json:"order_id"`
	Filled     bool    `json:"filled"`
	DryRun     bool    `json:"dry_run"`
}

// NewTrade builds a Trade event.
func NewTrade(slug, side string, entryPrice, amountUSD, feeUSD, strike float64, orderID string, filled, dryRun bool) Trade {
	return Trade{
		Type:       "trade",
		Time:       time.Now().UTC().Format(time.RFC3339Nano),
		Slug:       slug,
		Side:       side,
		EntryPrice: entryPrice,
		AmountUSD:  amountUSD,
		FeeUSD:     feeUSD,
		Strike:     strike,
		OrderID:    orderID,
		Filled:     filled,
		DryRun:     dryRun,
	}
}

// Settlement records a resolved position, win, loss, or void.
type Settlement struct {
	Type            string  `json:"type"`
	Time            string  `json:"time"`
	Slug            string  `json:"slug"`
	Strike          float64 `json:"strike_price"`
	SettlementPrice float64 `json:"settlement_price"`
	Won             bool    `json:"won"`
	Void            bool    `json:"void"`
	PnLUSD          float64 `json:"pnl_usd"`
	FeeUSD          float64 `json:"fee_usd"`
	Side            string  `json:"side"`
	EntryPrice      float64 `json:"entry_price"`
	AmountUSD       float64 `json:"amount_usd"`
	DryRun          bool    `json:"dry_run"`
}

// NewSettlement builds a Settlement event from a resolved strategy.Trade.
func NewSettlement(slug string, strike, settlementPrice float64, won, void bool, pnlUSD, feeUSD float64, side string, entryPrice, amountUSD float64, dryRun bool) Settlement {
	return Settlement{
		Type:            "settlement",
		Time:            time.Now().UTC().Format(time.RFC3339Nano),
		Slug:            slug,
		Strike:          strike,
		SettlementPrice: settlementPrice,
		Won:             won,
		Void:            void,
		PnLUSD:          pnlUSD,
		FeeUSD:          feeUSD,
		Side:            side,
		EntryPrice:      entryPrice,
		AmountUSD:       amountUSD,
		DryRun:          dryRun,
	}
}
