package execution

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/sdibella/btc15m/internal/polymarket"
	"github.com/sdibella/btc15m/internal/risk"
	"github.com/sdibella/btc15m/internal/strategy"
)

// Side is BUY or SELL, matching the venue's order side enum.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// OrderResult is what the caller needs to journal and to update position
// state: whether and at what price the order filled, and its fee.
type OrderResult struct {
	OrderID   string
	Filled    bool
	FillPrice float64
	Fee       float64
}

// PaperFillProbability is the chance a paper-mode limit order fills on a
// given check, matching the original paper-trading engine's simulated
// maker fill rate.
const PaperFillProbability = 0.80

// EstimatedMarketMid is the assumed mid-price used to size a market order's
// risk check before it's actually routed, since the true fill price isn't
// known until the FOK order either fills or doesn't.
const EstimatedMarketMid = 0.50

// EstimatedMarketFeeRate is the conservative taker-fee estimate used for
// the same pre-trade risk check.
const EstimatedMarketFeeRate = 0.015

// Executor places and cancels orders, in either paper or live mode. dryRun
// is an atomic.Bool rather than a plain bool so the control surface can
// flip paper/live mode at runtime without a data race against an in-flight
// order.
type Executor struct {
	dryRun  atomic.Bool
	client  *polymarket.Client
	riskMgr *risk.Manager
	limiter *RateLimiter
}

// New builds an Executor. client may be nil in dry-run mode.
func New(dryRun bool, client *polymarket.Client, riskMgr *risk.Manager, maxOrdersPerSecond int) *Executor {
	e := &Executor{
		client:  client,
		riskMgr: riskMgr,
		limiter: NewRateLimiter(float64(maxOrdersPerSecond), maxOrdersPerSecond),
	}
	e.dryRun.Store(dryRun)
	return e
}

// SetDryRun switches between paper and live mode.
func (e *Executor) SetDryRun(dryRun bool) {
	e.dryRun.Store(dryRun)
}

// DryRun reports whether the executor is currently in paper mode.
func (e *Executor) DryRun() bool {
	return e.dryRun.Load()
}

// PlaceLimitOrder places a maker (zero-fee) limit order. In paper mode the
// fill is simulated with PaperFillProbability; in live mode it's routed
// GTC to the CLOB.
func (e *Executor) PlaceLimitOrder(ctx context.Context, tokenID string, side Side, price, size float64) (OrderResult, error) {
	if ok, reason := e.riskMgr.ValidateTrade(price, size, 0); !ok {
		return OrderResult{}, fmt.Errorf("execution: order rejected by risk manager: %s", reason)
	}

	if err := e.limiter.Acquire(ctx); err != nil {
		return OrderResult{}, fmt.Errorf("execution: rate limit: %w", err)
	}

	if e.dryRun.Load() {
		orderID := "DRY_" + uuid.NewString()
		filled := rand.Float64() < PaperFillProbability
		slog.Info("paper limit order", "order_id", orderID, "side", side, "price", price, "size", size, "filled", filled)
		return OrderResult{OrderID: orderID, Filled: filled, FillPrice: price, Fee: 0}, nil
	}

	resp, err := e.client.CreateOrder(ctx, polymarket.OrderRequest{
		TokenID: tokenID,
		Side:    string(side),
		Price:   price,
		Size:    size,
		Type:    "GTC",
	})
	if err != nil {
		return OrderResult{}, err
	}
	return OrderResult{OrderID: resp.OrderID, Filled: resp.Success, FillPrice: price, Fee: 0}, nil
}

// PlaceMarketOrder places a taker (fee-bearing) market order for a dollar
// amount. In paper mode the fill is simulated with PaperFillProbability,
// same as a resting limit order, modeling a missed entry; on a fill the fee
// is the venue's parabolic fee applied at the estimated mid. In live mode
// it's routed FOK to the CLOB.
func (e *Executor) PlaceMarketOrder(ctx context.Context, tokenID string, side Side, amount float64) (OrderResult, error) {
	estimatedFee := amount * EstimatedMarketFeeRate
	if ok, reason := e.riskMgr.ValidateTrade(EstimatedMarketMid, amount, estimatedFee); !ok {
		return OrderResult{}, fmt.Errorf("execution: order rejected by risk manager: %s", reason)
	}

	if err := e.limiter.Acquire(ctx); err != nil {
		return OrderResult{}, fmt.Errorf("execution: rate limit: %w", err)
	}

	if e.dryRun.Load() {
		orderID := "DRY_MKT_" + uuid.NewString()
		filled := rand.Float64() < PaperFillProbability
		if !filled {
			slog.Info("paper market order missed", "order_id", orderID, "side", side, "amount", amount)
			return OrderResult{OrderID: orderID, Filled: false}, nil
		}
		fee := strategy.Fee(amount, EstimatedMarketMid)
		slog.Info("paper market order", "order_id", orderID, "side", side, "amount", amount, "fee", fee)
		return OrderResult{OrderID: orderID, Filled: true, FillPrice: EstimatedMarketMid, Fee: fee}, nil
	}

	resp, err := e.client.CreateOrder(ctx, polymarket.OrderRequest{
		TokenID: tokenID,
		Side:    string(side),
		Price:   EstimatedMarketMid,
		Size:    amount / EstimatedMarketMid,
		Type:    "FOK",
	})
	if err != nil {
		return OrderResult{}, err
	}
	fee := strategy.Fee(amount, EstimatedMarketMid)
	return OrderResult{OrderID: resp.OrderID, Filled: resp.Success, FillPrice: EstimatedMarketMid, Fee: fee}, nil
}

// CancelOrder cancels a resting order. In paper mode this is a no-op
// (paper orders never stay on a book).
func (e *Executor) CancelOrder(ctx context.Context, orderID string) error {
	if e.dryRun.Load() {
		return nil
	}
	return e.client.CancelOrder(ctx, orderID)
}

// TryAcquireSlot reports whether an order could be placed right now without
// blocking on the rate limit — used by the evaluator to skip a tick rather
// than stall the event loop waiting on the bucket.
func (e *Executor) TryAcquireSlot() bool {
	return e.limiter.WaitTime() == 0
}
