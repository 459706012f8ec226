// Package oracle computes a composite BTC/USD spot price from six exchanges
// and exposes a capped rolling history of it.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// maxHistory bounds the in-memory price history.
const maxHistory = 200

// fetchTimeout bounds a single exchange's per-tick round trip.
const fetchTimeout = 10 * time.Second

// Sample is one exchange's quote, captured at fetch time.
type Sample struct {
	Source string
	Price  float64
	At     time.Time
}

// Composite is the arithmetic mean of the exchanges that answered on a
// given tick, plus bookkeeping about which ones didn't.
type Composite struct {
	Price     float64
	At        time.Time
	Sources   []string
	Failed    []string
}

type source struct {
	name  string
	fetch func(ctx context.Context, client *http.Client) (float64, error)
}

// Oracle polls six spot exchanges in parallel on a fixed interval and keeps
// a capped history of the resulting composite price.
type Oracle struct {
	client  *http.Client
	sources []source

	mu      sync.RWMutex
	history []Composite
	latest  Composite
}

// New builds an Oracle wired to Binance, Coinbase, Kraken, Bitstamp, Gemini,
// and Bitfinex spot tickers.
func New() *Oracle {
	return &Oracle{
		client: &http.Client{Timeout: fetchTimeout},
		sources: []source{
			{"binance", fetchBinance},
			{"coinbase", fetchCoinbase},
			{"kraken", fetchKraken},
			{"bitstamp", fetchBitstamp},
			{"gemini", fetchGemini},
			{"bitfinex", fetchBitfinex},
		},
	}
}

// Tick fetches all sources concurrently, averages the ones that answered,
// and appends the result to history. A source erroring or timing out is
// logged and excluded; Tick only fails if every source fails.
func (o *Oracle) Tick(ctx context.Context) (Composite, error) {
	type result struct {
		name  string
		price float64
		err   error
	}

	results := make([]result, len(o.sources))
	g, gctx := errgroup.WithContext(context.Background())
	for i, src := range o.sources {
		i, src := i, src
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, fetchTimeout)
			defer cancel()
			price, err := src.fetch(fctx, o.client)
			results[i] = result{name: src.name, price: price, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var sum float64
	var ok []string
	var failed []string
	for _, r := range results {
		if r.err != nil {
			slog.Warn("oracle source failed", "source", r.name, "error", r.err)
			failed = append(failed, r.name)
			continue
		}
		sum += r.price
		ok = append(ok, r.name)
	}

	if len(ok) == 0 {
		return Composite{}, fmt.Errorf("oracle: all %d sources failed", len(o.sources))
	}

	c := Composite{
		Price:   sum / float64(len(ok)),
		At:      time.Now(),
		Sources: ok,
		Failed:  failed,
	}

	o.mu.Lock()
	o.latest = c
	o.history = append(o.history, c)
	if len(o.history) > maxHistory {
		o.history = o.history[len(o.history)-maxHistory:]
	}
	o.mu.Unlock()

	return c, nil
}

// Latest returns the most recent composite price and whether one exists.
func (o *Oracle) Latest() (Composite, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.latest.At.IsZero() {
		return Composite{}, false
	}
	return o.latest, true
}

// History returns a copy of the rolling price history, oldest first.
func (o *Oracle) History() []Composite {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]Composite, len(o.history))
	copy(out, o.history)
	return out
}

// IsStale reports whether the latest composite price is older than max.
func (o *Oracle) IsStale(max time.Duration) bool {
	latest, ok := o.Latest()
	if !ok {
		return true
	}
	return time.Since(latest.At) > max
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
