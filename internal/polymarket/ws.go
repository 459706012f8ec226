package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// PriceLevel is one level of an order book, price in [0,1] and size in
// shares.
type PriceLevel struct {
	Price float64
	Size  float64
}

// OrderbookState is the current best-known book for one CLOB token.
type OrderbookState struct {
	mu   sync.RWMutex
	Bids []PriceLevel
	Asks []PriceLevel
}

// BestBid returns the highest bid level, or (0, false) if the book is empty.
func (s *OrderbookState) BestBid() (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.Bids) == 0 {
		return 0, false
	}
	return s.Bids[0].Price, true
}

// BestAsk returns the lowest ask level, or (0, false) if the book is empty.
func (s *OrderbookState) BestAsk() (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.Asks) == 0 {
		return 0, false
	}
	return s.Asks[0].Price, true
}

func (s *OrderbookState) apply(bids, asks []PriceLevel) {
	sort.Slice(bids, func(i, j int) bool { return bids[i].Price > bids[j].Price })
	sort.Slice(asks, func(i, j int) bool { return asks[i].Price < asks[j].Price })
	s.mu.Lock()
	s.Bids = bids
	s.Asks = asks
	s.mu.Unlock()
}

type wsSubscribe struct {
	Type      string   `json:"type"`
	AssetsIDs []string `json:"assets_ids"`
}

type wsBookMessage struct {
	EventType string `json:"event_type"`
	AssetID   string `json:"asset_id"`
	Bids      []struct {
		Price string `json:"price"`
		Size  string `json:"size"`
	} `json:"bids"`
	Asks []struct {
		Price string `json:"price"`
		Size  string `json:"size"`
	} `json:"asks"`
}

// WSClient streams CLOB order-book updates over a single websocket
// connection, auto-resubscribing every tracked token ID on reconnect —
// the same reconnect-with-backoff + resubscribe shape a Kalshi-style
// venue client uses.
type WSClient struct {
	url string

	connMu sync.Mutex
	conn   *websocket.Conn

	booksMu sync.RWMutex
	books   map[string]*OrderbookState

	subMu sync.RWMutex
	subs  map[string]bool
}

// NewWSClient builds a WSClient targeting the given market-data WS URL.
func NewWSClient(url string) *WSClient {
	return &WSClient{
		url:   url,
		books: make(map[string]*OrderbookState),
		subs:  make(map[string]bool),
	}
}

// Subscribe tracks a token ID for streaming and, if currently connected,
// sends the subscription immediately.
func (c *WSClient) Subscribe(tokenID string) {
	c.subMu.Lock()
	c.subs[tokenID] = true
	c.subMu.Unlock()

	c.booksMu.Lock()
	if _, ok := c.books[tokenID]; !ok {
		c.books[tokenID] = &OrderbookState{}
	}
	c.booksMu.Unlock()

	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()
	if conn != nil {
		_ = c.sendSubscribe(conn, []string{tokenID})
	}
}

// GetOrderbook returns the tracked book for a token ID, if any.
func (c *WSClient) GetOrderbook(tokenID string) (*OrderbookState, bool) {
	c.booksMu.RLock()
	defer c.booksMu.RUnlock()
	ob, ok := c.books[tokenID]
	return ob, ok
}

// Run connects and reconnects with backoff until ctx is cancelled.
func (c *WSClient) Run(ctx context.Context) {
	backoff := 2 * time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		if err := c.connect(ctx); err != nil {
			slog.Warn("polymarket ws connection error", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

func (c *WSClient) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	defer func() {
		c.connMu.Lock()
		c.conn = nil
		c.connMu.Unlock()
	}()

	if tokens := c.subscribedTokens(); len(tokens) > 0 {
		if err := c.sendSubscribe(conn, tokens); err != nil {
			return err
		}
	}

	for {
		_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.handleMessage(data)

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *WSClient) subscribedTokens() []string {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	tokens := make([]string, 0, len(c.subs))
	for t := range c.subs {
		tokens = append(tokens, t)
	}
	return tokens
}

func (c *WSClient) sendSubscribe(conn *websocket.Conn, tokens []string) error {
	msg := wsSubscribe{Type: "market", AssetsIDs: tokens}
	return conn.WriteJSON(msg)
}

func (c *WSClient) handleMessage(data []byte) {
	var msg wsBookMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if msg.AssetID == "" {
		return
	}

	c.booksMu.Lock()
	ob, ok := c.books[msg.AssetID]
	if !ok {
		ob = &OrderbookState{}
		c.books[msg.AssetID] = ob
	}
	c.booksMu.Unlock()

	bids := make([]PriceLevel, 0, len(msg.Bids))
	for _, lvl := range msg.Bids {
		bids = append(bids, parseLevel(lvl.Price, lvl.Size))
	}
	asks := make([]PriceLevel, 0, len(msg.Asks))
	for _, lvl := range msg.Asks {
		asks = append(asks, parseLevel(lvl.Price, lvl.Size))
	}
	ob.apply(bids, asks)
}

func parseLevel(priceStr, sizeStr string) PriceLevel {
	var p, s float64
	_, _ = fmt.Sscanf(priceStr, "%f", &p)
	_, _ = fmt.Sscanf(sizeStr, "%f", &s)
	return PriceLevel{Price: p, Size: s}
}
