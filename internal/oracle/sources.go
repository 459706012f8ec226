package oracle

import (
	"context"
	"net/http"
	"strconv"
)

func fetchBinance(ctx context.Context, client *http.Client) (float64, error) {
	var body struct {
		Price string `json:"price"`
	}
	if err := getJSON(ctx, client, "https://api.binance.com/api/v3/ticker/price?symbol=BTCUSDT", &body); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(body.Price, 64)
}

func fetchCoinbase(ctx context.Context, client *http.Client) (float64, error) {
	var body struct {
		Amount string `json:"amount"`
	}
	if err := getJSON(ctx, client, "https://api.coinbase.com/v2/prices/BTC-USD/spot", &struct {
		Data *struct {
			Amount string `json:"amount"`
		} `json:"data"`
	}{Data: &body}); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(body.Amount, 64)
}

func fetchKraken(ctx context.Context, client *http.Client) (float64, error) {
	var body struct {
		Result map[string]struct {
			C []string `json:"c"`
		} `json:"result"`
	}
	if err := getJSON(ctx, client, "https://api.kraken.com/0/public/Ticker?pair=XBTUSD", &body); err != nil {
		return 0, err
	}
	for _, pair := range body.Result {
		if len(pair.C) > 0 {
			return strconv.ParseFloat(pair.C[0], 64)
		}
	}
	return 0, errNoData("kraken")
}

func fetchBitstamp(ctx context.Context, client *http.Client) (float64, error) {
	var body struct {
		Last string `json:"last"`
	}
	if err := getJSON(ctx, client, "https://www.bitstamp.net/api/v2/ticker/btcusd/", &body); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(body.Last, 64)
}

func fetchGemini(ctx context.Context, client *http.Client) (float64, error) {
	var body struct {
		Last string `json:"last"`
	}
	if err := getJSON(ctx, client, "https://api.gemini.com/v1/pubticker/btcusd", &body); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(body.Last, 64)
}

func fetchBitfinex(ctx context.Context, client *http.Client) (float64, error) {
	var body []float64
	if err := getJSON(ctx, client, "https://api-pub.bitfinex.com/v2/ticker/tBTCUSD", &body); err != nil {
		return 0, err
	}
	// [BID, BID_SIZE, ASK, ASK_SIZE, DAILY_CHANGE, DAILY_CHANGE_RELATIVE,
	//  LAST_PRICE, VOLUME, HIGH, LOW]
	if len(body) < 7 {
		return 0, errNoData("bitfinex")
	}
	return body[6], nil
}

type dataError string

func (e dataError) Error() string { return "oracle: no usable data from " + string(e) }

func errNoData(source string) error { return dataError(source) }
