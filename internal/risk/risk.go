// Package risk enforces the trade-level and account-level limits the
// engine must never cross, independent of whatever the opportunity
// evaluator thinks is a good trade.
package risk

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Limits are the configured ceilings the Manager enforces.
type Limits struct {
	MaxSingleTradeUSD float64
	MaxPositionUSD    float64
	MaxDailyLossUSD   float64
	MaxOpenPositions  int
}

// Manager tracks the mutable risk state (today's PnL, open position count,
// halt status) against a fixed set of Limits.
type Manager struct {
	limits Limits

	mu            sync.Mutex
	dailyPnL      float64
	openPositions int
	halted        bool
	haltReason    string
	day           string
}

// New creates a Manager with the given limits, starting unhalted.
func New(limits Limits) *Manager {
	return &Manager{limits: limits, day: today()}
}

func today() string {
	return time.Now().UTC().Format("2006-01-02")
}

// ValidateTrade checks a proposed trade of `price` per contract, `size`
// dollars notional, and `fee` dollars, against every limit. The effective
// cost (size+fee) is what's actually debited from the account, so it's
// what gets checked against MaxSingleTradeUSD and MaxPositionUSD, not size
// alone. Returns false and a human-readable reason on the first violation.
func (m *Manager) ValidateTrade(price, size, fee float64) (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetDailyIfNeeded()

	if m.halted {
		return false, fmt.Sprintf("trading halted: %s", m.haltReason)
	}
	if price < 0.01 || price > 0.99 {
		return false, fmt.Sprintf("price %.4f outside sane range [0.01, 0.99]", price)
	}
	if size <= 0 || size > 10000 {
		return false, fmt.Sprintf("size %.2f outside sane range (0, 10000]", size)
	}

	effectiveCost := size + fee
	if effectiveCost > m.limits.MaxSingleTradeUSD {
		return false, fmt.Sprintf("effective cost %.2f exceeds max single trade %.2f", effectiveCost, m.limits.MaxSingleTradeUSD)
	}
	if effectiveCost > m.limits.MaxPositionUSD {
		return false, fmt.Sprintf("effective cost %.2f exceeds max position %.2f", effectiveCost, m.limits.MaxPositionUSD)
	}
	if m.openPositions >= m.limits.MaxOpenPositions {
		return false, fmt.Sprintf("open positions %d at limit %d", m.openPositions, m.limits.MaxOpenPositions)
	}

	return true, ""
}

// RecordTradeOpened increments the open-position counter.
func (m *Manager) RecordTradeOpened() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openPositions++
}

// RecordSettlement applies a realized PnL to today's running total and
// decrements the open-position counter. If the new running total breaches
// MaxDailyLossUSD, trading halts until the next UTC day.
func (m *Manager) RecordSettlement(pnl float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetDailyIfNeeded()

	if m.openPositions > 0 {
		m.openPositions--
	}
	m.dailyPnL += pnl

	if -m.dailyPnL >= m.limits.MaxDailyLossUSD {
		m.halted = true
		m.haltReason = fmt.Sprintf("daily loss %.2f reached limit %.2f", -m.dailyPnL, m.limits.MaxDailyLossUSD)
	}
}

// Halt manually halts trading with an operator-supplied reason.
func (m *Manager) Halt(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.halted = true
	m.haltReason = reason
}

// Resume clears the current halt, whatever its reason (manual or daily loss).
func (m *Manager) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.halted = false
	m.haltReason = ""
}

// resetDailyIfNeeded rolls daily counters over at UTC midnight and, if the
// halt in effect was only a daily-loss halt, clears it along with the
// rollover. A manually-set halt for any other reason survives the
// rollover — only "daily loss" halts are understood to be day-scoped.
func (m *Manager) resetDailyIfNeeded() {
	d := today()
	if d == m.day {
		return
	}
	m.day = d
	m.dailyPnL = 0
	if m.halted && strings.Contains(strings.ToLower(m.haltReason), "daily loss") {
		m.halted = false
		m.haltReason = ""
	}
}

// State is a read-only snapshot of the Manager's mutable risk state, for
// persistence and the control surface.
type State struct {
	DailyPnL      float64 `json:"daily_pnl"`
	OpenPositions int     `json:"open_positions"`
	Halted        bool    `json:"halted"`
	HaltReason    string  `json:"halt_reason,omitempty"`
}

// Snapshot returns the current risk state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetDailyIfNeeded()
	return State{
		DailyPnL:      m.dailyPnL,
		OpenPositions: m.openPositions,
		Halted:        m.halted,
		HaltReason:    m.haltReason,
	}
}
