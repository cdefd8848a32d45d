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

const defaultKrakenBaseURL = "https://api.kraken.com"

// krakenPairs maps base symbols to Kraken pair notation. Kraken still calls
// Bitcoin XBT.
var krakenPairs = map[string]string{
	"BTC": "XBTUSD",
	"ETH": "ETHUSD",
	"SOL": "SOLUSD",
}

// krakenIntervals maps engine timeframes to Kraken OHLC intervals (minutes).
var krakenIntervals = map[model.Timeframe]int{
	model.Timeframe15m:   15,
	model.Timeframe1h:    60,
	model.TimeframeDaily: 1440,
}

// Kraken fetches market data from the Kraken public REST API. It sits behind
// Binance in the default fallback chain.
type Kraken struct {
	baseURL string
	client  *http.Client
}

// NewKraken creates a Kraken source. An empty baseURL uses production.
func NewKraken(baseURL string) *Kraken {
	if baseURL == "" {
		baseURL = defaultKrakenBaseURL
	}
	return &Kraken{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (k *Kraken) Name() string { return "kraken" }

func krakenPair(symbol string) string {
	if pair, ok := krakenPairs[strings.ToUpper(symbol)]; ok {
		return pair
	}
	return strings.ToUpper(symbol) + "USD"
}

// krakenEnvelope is the common {error, result} wrapper on every response.
type krakenEnvelope struct {
	Error  []string                   `json:"error"`
	Result map[string]json.RawMessage `json:"result"`
}

// SpotPrice fetches the ticker for a symbol.
func (k *Kraken) SpotPrice(ctx context.Context, symbol string) (model.SpotQuote, error) {
	params := url.Values{"pair": {krakenPair(symbol)}}
	result, err := k.getResult(ctx, "/0/public/Ticker", params)
	if err != nil {
		return model.SpotQuote{}, err
	}

	// c = last trade [price, lot], o = today's open,
	// h/l/v = [today, last 24h].
	var ticker struct {
		C []string `json:"c"`
		O string   `json:"o"`
		H []string `json:"h"`
		L []string `json:"l"`
		V []string `json:"v"`
	}
	raw, err := firstPairEntry(result)
	if err != nil {
		return model.SpotQuote{}, fmt.Errorf("kraken ticker: %w", err)
	}
	if err := json.Unmarshal(raw, &ticker); err != nil {
		return model.SpotQuote{}, fmt.Errorf("kraken ticker: decode: %w", err)
	}
	if len(ticker.C) == 0 || len(ticker.H) < 2 || len(ticker.L) < 2 || len(ticker.V) < 2 {
		return model.SpotQuote{}, fmt.Errorf("kraken ticker: truncated response")
	}

	quote := model.SpotQuote{Symbol: symbol}
	for _, f := range []struct {
		dst *float64
		src string
	}{
		{&quote.Price, ticker.C[0]},
		{&quote.Open, ticker.O},
		{&quote.High, ticker.H[1]},
		{&quote.Low, ticker.L[1]},
		{&quote.Volume, ticker.V[1]},
	} {
		v, err := strconv.ParseFloat(f.src, 64)
		if err != nil {
			return model.SpotQuote{}, fmt.Errorf("kraken ticker: parse %q: %w", f.src, err)
		}
		*f.dst = v
	}
	if quote.Open > 0 {
		quote.ChangePercent = (quote.Price - quote.Open) / quote.Open * 100
	}
	return quote, nil
}

// Candles fetches OHLC rows, oldest first. Kraken includes the currently
// forming candle as the final row; it is dropped so only closed candles
// reach the calculators.
func (k *Kraken) Candles(ctx context.Context, symbol string, tf model.Timeframe, limit int) ([]model.Candle, error) {
	interval, ok := krakenIntervals[tf]
	if !ok {
		return nil, fmt.Errorf("kraken: unsupported timeframe %q", tf)
	}

	params := url.Values{
		"pair":     {krakenPair(symbol)},
		"interval": {strconv.Itoa(interval)},
	}
	result, err := k.getResult(ctx, "/0/public/OHLC", params)
	if err != nil {
		return nil, err
	}

	raw, err := firstPairEntry(result)
	if err != nil {
		return nil, fmt.Errorf("kraken ohlc: %w", err)
	}
	// Rows: [time, open, high, low, close, vwap, volume, count].
	var rows [][]json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("kraken ohlc: decode: %w", err)
	}
	if len(rows) > 0 {
		rows = rows[:len(rows)-1] // drop the forming candle
	}
	if len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}

	span := time.Duration(interval) * time.Minute
	candles := make([]model.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 7 {
			return nil, fmt.Errorf("kraken ohlc: short row (%d fields)", len(row))
		}
		var ts int64
		if err := json.Unmarshal(row[0], &ts); err != nil {
			return nil, fmt.Errorf("kraken ohlc: timestamp: %w", err)
		}

		c := model.Candle{
			OpenTime:  time.Unix(ts, 0).UTC(),
			CloseTime: time.Unix(ts, 0).UTC().Add(span),
		}
		for _, f := range []struct {
			dst *float64
			src json.RawMessage
		}{
			{&c.Open, row[1]},
			{&c.High, row[2]},
			{&c.Low, row[3]},
			{&c.Close, row[4]},
			{&c.Volume, row[6]},
		} {
			var s string
			if err := json.Unmarshal(f.src, &s); err != nil {
				return nil, fmt.Errorf("kraken ohlc: field: %w", err)
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("kraken ohlc: parse %q: %w", s, err)
			}
			*f.dst = v
		}
		candles = append(candles, c)
	}
	return candles, nil
}

// OrderBook fetches the top 50 depth levels and aggregates them.
func (k *Kraken) OrderBook(ctx context.Context, symbol string) (model.OrderBookSummary, error) {
	params := url.Values{"pair": {krakenPair(symbol)}, "count": {"50"}}
	result, err := k.getResult(ctx, "/0/public/Depth", params)
	if err != nil {
		return model.OrderBookSummary{}, err
	}

	raw, err := firstPairEntry(result)
	if err != nil {
		return model.OrderBookSummary{}, fmt.Errorf("kraken depth: %w", err)
	}
	// Levels: [price, volume, timestamp].
	var book struct {
		Bids [][]json.RawMessage `json:"bids"`
		Asks [][]json.RawMessage `json:"asks"`
	}
	if err := json.Unmarshal(raw, &book); err != nil {
		return model.OrderBookSummary{}, fmt.Errorf("kraken depth: decode: %w", err)
	}

	sumVol := func(levels [][]json.RawMessage) (float64, error) {
		var total float64
		for _, lvl := range levels {
			if len(lvl) < 2 {
				continue
			}
			var s string
			if err := json.Unmarshal(lvl[1], &s); err != nil {
				return 0, fmt.Errorf("kraken depth: volume: %w", err)
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return 0, fmt.Errorf("kraken depth: parse %q: %w", s, err)
			}
			total += v
		}
		return total, nil
	}

	bidVol, err := sumVol(book.Bids)
	if err != nil {
		return model.OrderBookSummary{}, err
	}
	askVol, err := sumVol(book.Asks)
	if err != nil {
		return model.OrderBookSummary{}, err
	}
	return model.NewOrderBookSummary(bidVol, askVol), nil
}

// getResult performs a GET and unwraps Kraken's {error, result} envelope.
func (k *Kraken) getResult(ctx context.Context, path string, params url.Values) (map[string]json.RawMessage, error) {
	u := k.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("kraken: create request: %w", err)
	}

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kraken: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kraken: %s: unexpected status %d", path, resp.StatusCode)
	}

	var env krakenEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("kraken: %s: decode: %w", path, err)
	}
	if len(env.Error) > 0 {
		return nil, fmt.Errorf("kraken: %s: api error: %s", path, strings.Join(env.Error, "; "))
	}
	return env.Result, nil
}

// firstPairEntry returns the single pair payload from a result map,
// ignoring Kraken's "last" cursor key.
func firstPairEntry(result map[string]json.RawMessage) (json.RawMessage, error) {
	for key, raw := range result {
		if key == "last" {
			continue
		}
		return raw, nil
	}
	return nil, fmt.Errorf("no pair entry in result")
}
