// Package polymarket is the venue client: Gamma API market discovery and
// CLOB order placement, mirroring the shape of a typical Kalshi-style REST
// client (signed requests, typed request/response structs, explicit
// get/post/delete helpers) but speaking Polymarket's wire format.
package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sdibella/btc15m/internal/wallet"
)

// Client wraps the Gamma discovery API and the CLOB trading API.
type Client struct {
	http         *http.Client
	gammaBaseURL string
	clobBaseURL  string
	signer       wallet.Signer
	funder       string
}

// New builds a Client. signer may be a wallet.NullSigner in dry-run mode.
func New(gammaBaseURL, clobBaseURL string, signer wallet.Signer, funderAddress string) *Client {
	return &Client{
		http:         &http.Client{Timeout: 10 * time.Second},
		gammaBaseURL: gammaBaseURL,
		clobBaseURL:  clobBaseURL,
		signer:       signer,
		funder:       funderAddress,
	}
}

// Event is a Gamma API grouping of one or more markets sharing a slug
// family (here, one 15-minute BTC up/down market per event).
type Event struct {
	Slug        string   `json:"slug"`
	Description string   `json:"description"`
	EndDate     string   `json:"endDate"`
	Tags        []Tag    `json:"tags"`
	Markets     []Market `json:"markets"`
}

// Tag is a Gamma event category tag, e.g. the "15M" cadence tag.
type Tag struct {
	Slug  string `json:"slug"`
	Label string `json:"label"`
}

// Market is a single binary market within an event.
type Market struct {
	ConditionID       string `json:"conditionId"`
	Question          string `json:"question"`
	Description       string `json:"description"`
	Slug              string `json:"slug"`
	EndDate           string `json:"endDateIso"`
	ClobTokenIDsRaw    string `json:"clobTokenIds"`
	OutcomesRaw        string `json:"outcomes"`
	OutcomePricesRaw   string `json:"outcomePrices"`
	Active            bool   `json:"active"`
	Closed            bool   `json:"closed"`
}

// ClobTokenIDs parses the JSON-string-encoded token ID list Gamma returns.
func (m Market) ClobTokenIDs() ([]string, error) {
	var ids []string
	if err := json.Unmarshal([]byte(m.ClobTokenIDsRaw), &ids); err != nil {
		return nil, fmt.Errorf("polymarket: parse clobTokenIds: %w", err)
	}
	return ids, nil
}

// Outcomes parses the JSON-string-encoded outcome label list.
func (m Market) Outcomes() ([]string, error) {
	var out []string
	if err := json.Unmarshal([]byte(m.OutcomesRaw), &out); err != nil {
		return nil, fmt.Errorf("polymarket: parse outcomes: %w", err)
	}
	return out, nil
}

// OutcomePrices parses the JSON-string-encoded outcome price list.
func (m Market) OutcomePrices() ([]float64, error) {
	var raw []string
	if err := json.Unmarshal([]byte(m.OutcomePricesRaw), &raw); err != nil {
		return nil, fmt.Errorf("polymarket: parse outcomePrices: %w", err)
	}
	prices := make([]float64, len(raw))
	for i, s := range raw {
		var p float64
		if _, err := fmt.Sscanf(s, "%f", &p); err != nil {
			return nil, fmt.Errorf("polymarket: parse outcome price %q: %w", s, err)
		}
		prices[i] = p
	}
	return prices, nil
}

// DiscoverEvents fetches 15-minute BTC up/down events tagged "15M".
func (c *Client) DiscoverEvents(ctx context.Context) ([]Event, error) {
	var events []Event
	path := "/events?tag_slug=15M&active=true&closed=false&limit=100"
	if err := c.get(ctx, c.gammaBaseURL, path, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Balance is the account's available USDC collateral.
type Balance struct {
	USDC float64 `json:"usdc"`
}

// GetBalance returns the funder's available collateral.
func (c *Client) GetBalance(ctx context.Context) (Balance, error) {
	var bal Balance
	err := c.get(ctx, c.clobBaseURL, fmt.Sprintf("/balance?address=%s", c.funder), &bal)
	return bal, err
}

// OrderRequest describes an order to submit.
type OrderRequest struct {
	TokenID string  `json:"tokenID"`
	Side    string  `json:"side"` // BUY or SELL
	Price   float64 `json:"price"`
	Size    float64 `json:"size"`
	Type    string  `json:"orderType"` // GTC or FOK
}

// OrderResponse is the venue's acknowledgement of a submitted order.
type OrderResponse struct {
	OrderID string `json:"orderID"`
	Success bool   `json:"success"`
	Status  string `json:"status"`
}

// CreateOrder signs and submits an order.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (OrderResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return OrderResponse{}, err
	}
	sig, err := c.signer.Sign(payload)
	if err != nil {
		return OrderResponse{}, fmt.Errorf("polymarket: sign order: %w", err)
	}

	signed := struct {
		OrderRequest
		Signature string `json:"signature"`
		Signer    string `json:"signer"`
	}{req, fmt.Sprintf("0x%x", sig), c.signer.Address()}

	var resp OrderResponse
	if err := c.post(ctx, c.clobBaseURL, "/order", signed, &resp); err != nil {
		return OrderResponse{}, err
	}
	return resp, nil
}

// CancelOrder cancels a previously-placed order.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	return c.delete(ctx, c.clobBaseURL, fmt.Sprintf("/order/%s", orderID))
}

func (c *Client) get(ctx context.Context, base, path string, out any) error {
	return c.doRequest(ctx, http.MethodGet, base, path, nil, out)
}

func (c *Client) post(ctx context.Context, base, path string, body, out any) error {
	return c.doRequest(ctx, http.MethodPost, base, path, body, out)
}

func (c *Client) delete(ctx context.Context, base, path string) error {
	return c.doRequest(ctx, http.MethodDelete, base, path, nil, nil)
}

func (c *Client) doRequest(ctx context.Context, method, base, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, base+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("polymarket: %s %s: status %d: %s", method, path, resp.StatusCode, string(data))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
