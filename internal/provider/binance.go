package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cryptosignals/internal/model"
)

const defaultBinanceBaseURL = "https://api.binance.com"

// binanceIntervals maps engine timeframes to Binance kline intervals.
var binanceIntervals = map[model.Timeframe]string{
	model.Timeframe15m:   "15m",
	model.Timeframe1h:    "1h",
	model.TimeframeDaily: "1d",
}

// Binance fetches market data from the Binance public REST API.
type Binance struct {
	baseURL string
	client  *http.Client
}

// NewBinance creates a Binance source. An empty baseURL uses production.
func NewBinance(baseURL string) *Binance {
	if baseURL == "" {
		baseURL = defaultBinanceBaseURL
	}
	return &Binance{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (b *Binance) Name() string { return "binance" }

// binancePair maps a base symbol to Binance's USDT pair notation.
func binancePair(symbol string) string {
	return strings.ToUpper(symbol) + "USDT"
}

// SpotPrice fetches the 24h ticker for a symbol.
func (b *Binance) SpotPrice(ctx context.Context, symbol string) (model.SpotQuote, error) {
	var raw struct {
		LastPrice          string `json:"lastPrice"`
		OpenPrice          string `json:"openPrice"`
		HighPrice          string `json:"highPrice"`
		LowPrice           string `json:"lowPrice"`
		Volume             string `json:"volume"`
		PriceChangePercent string `json:"priceChangePercent"`
	}
	params := url.Values{"symbol": {binancePair(symbol)}}
	if err := b.getJSON(ctx, "/api/v3/ticker/24hr", params, &raw); err != nil {
		return model.SpotQuote{}, err
	}

	quote := model.SpotQuote{Symbol: symbol}
	for _, f := range []struct {
		dst *float64
		src string
	}{
		{&quote.Price, raw.LastPrice},
		{&quote.Open, raw.OpenPrice},
		{&quote.High, raw.HighPrice},
		{&quote.Low, raw.LowPrice},
		{&quote.Volume, raw.Volume},
		{&quote.ChangePercent, raw.PriceChangePercent},
	} {
		v, err := strconv.ParseFloat(f.src, 64)
		if err != nil {
			return model.SpotQuote{}, fmt.Errorf("binance ticker: parse %q: %w", f.src, err)
		}
		*f.dst = v
	}
	return quote, nil
}

// Candles fetches up to limit closed klines, oldest first.
func (b *Binance) Candles(ctx context.Context, symbol string, tf model.Timeframe, limit int) ([]model.Candle, error) {
	interval, ok := binanceIntervals[tf]
	if !ok {
		return nil, fmt.Errorf("binance: unsupported timeframe %q", tf)
	}

	params := url.Values{
		"symbol":   {binancePair(symbol)},
		"interval": {interval},
		"limit":    {strconv.Itoa(limit)},
	}
	// Kline rows are heterogenous arrays:
	// [openTime, open, high, low, close, volume, closeTime, ...]
	var rows [][]json.RawMessage
	if err := b.getJSON(ctx, "/api/v3/klines", params, &rows); err != nil {
		return nil, err
	}

	candles := make([]model.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 7 {
			return nil, fmt.Errorf("binance klines: short row (%d fields)", len(row))
		}
		var openMs, closeMs int64
		if err := json.Unmarshal(row[0], &openMs); err != nil {
			return nil, fmt.Errorf("binance klines: open time: %w", err)
		}
		if err := json.Unmarshal(row[6], &closeMs); err != nil {
			return nil, fmt.Errorf("binance klines: close time: %w", err)
		}

		c := model.Candle{
			OpenTime:  time.UnixMilli(openMs).UTC(),
			CloseTime: time.UnixMilli(closeMs).UTC(),
		}
		for _, f := range []struct {
			dst *float64
			src json.RawMessage
		}{
			{&c.Open, row[1]},
			{&c.High, row[2]},
			{&c.Low, row[3]},
			{&c.Close, row[4]},
			{&c.Volume, row[5]},
		} {
			var s string
			if err := json.Unmarshal(f.src, &s); err != nil {
				return nil, fmt.Errorf("binance klines: field: %w", err)
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("binance klines: parse %q: %w", s, err)
			}
			*f.dst = v
		}
		candles = append(candles, c)
	}
	return candles, nil
}

// OrderBook fetches the top 50 depth levels and aggregates them.
func (b *Binance) OrderBook(ctx context.Context, symbol string) (model.OrderBookSummary, error) {
	var raw struct {
		Bids [][]string `json:"bids"` // [price, qty]
		Asks [][]string `json:"asks"`
	}
	params := url.Values{"symbol": {binancePair(symbol)}, "limit": {"50"}}
	if err := b.getJSON(ctx, "/api/v3/depth", params, &raw); err != nil {
		return model.OrderBookSummary{}, err
	}

	sumQty := func(levels [][]string) (float64, error) {
		var total float64
		for _, lvl := range levels {
			if len(lvl) < 2 {
				continue
			}
			qty, err := strconv.ParseFloat(lvl[1], 64)
			if err != nil {
				return 0, fmt.Errorf("binance depth: parse qty %q: %w", lvl[1], err)
			}
			total += qty
		}
		return total, nil
	}

	bidVol, err := sumQty(raw.Bids)
	if err != nil {
		return model.OrderBookSummary{}, err
	}
	askVol, err := sumQty(raw.Asks)
	if err != nil {
		return model.OrderBookSummary{}, err
	}
	return model.NewOrderBookSummary(bidVol, askVol), nil
}

func (b *Binance) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	u := b.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("binance: create request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("binance: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("binance: %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("binance: %s: decode: %w", path, err)
	}
	return nil
}
