package model

import (
	"encoding/json"
	"time"
)

// Candle represents one OHLCV candle for a single market.
// Prices are quoted in the market's quote currency (USD).
type Candle struct {
	OpenTime  time.Time `json:"open_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"` // base-asset volume in this candle
	CloseTime time.Time `json:"close_time"`
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

// Closes extracts the close-price series from a chronological candle slice.
func Closes(candles []Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

// SpotQuote is a point-in-time price summary for a symbol.
type SpotQuote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Volume        float64 `json:"volume"`
	ChangePercent float64 `json:"change_percent"` // 24h change
}
