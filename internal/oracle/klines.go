package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Kline is a single Binance candle, reduced to its open time, open price
// (used by the strike-resolution fallback) and close price (used by the
// volatility estimator).
type Kline struct {
	OpenTime time.Time
	Open     float64
	Close    float64
}

// RecentKlines fetches the most recent `limit` one-minute BTCUSDT candles.
func RecentKlines(ctx context.Context, client *http.Client, limit int) ([]Kline, error) {
	url := fmt.Sprintf("https://api.binance.com/api/v3/klines?symbol=BTCUSDT&interval=1m&limit=%d", limit)
	return fetchKlines(ctx, client, url)
}

// KlineAt fetches the single one-minute candle covering t, used to recover
// a market's strike price when its description doesn't state one.
func KlineAt(ctx context.Context, client *http.Client, t time.Time) (Kline, error) {
	startMS := t.UnixMilli()
	url := fmt.Sprintf("https://api.binance.com/api/v3/klines?symbol=BTCUSDT&interval=1m&startTime=%d&limit=1", startMS)
	klines, err := fetchKlines(ctx, client, url)
	if err != nil {
		return Kline{}, err
	}
	if len(klines) == 0 {
		return Kline{}, fmt.Errorf("oracle: no kline at %s", t)
	}
	return klines[0], nil
}

func fetchKlines(ctx context.Context, client *http.Client, url string) ([]Kline, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oracle: klines status %d", resp.StatusCode)
	}

	var raw [][]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	klines := make([]Kline, 0, len(raw))
	for _, row := range raw {
		if len(row) < 5 {
			continue
		}
		openMS, ok := row[0].(float64)
		if !ok {
			continue
		}
		open, err := parseFloatField(row[1])
		if err != nil {
			continue
		}
		closePrice, err := parseFloatField(row[4])
		if err != nil {
			continue
		}
		klines = append(klines, Kline{
			OpenTime: time.UnixMilli(int64(openMS)),
			Open:     open,
			Close:    closePrice,
		})
	}
	return klines, nil
}

func parseFloatField(v any) (float64, error) {
	switch t := v.(type) {
	case string:
		return strconv.ParseFloat(t, 64)
	case float64:
		return t, nil
	default:
		return 0, fmt.Errorf("oracle: unexpected kline field type %T", v)
	}
}
