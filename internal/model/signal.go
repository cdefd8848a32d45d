package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Direction is the discrete call a signal makes on a market.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
	DirectionFlat Direction = "FLAT"
)

// Timeframe is the horizon a signal predicts over.
type Timeframe string

const (
	Timeframe15m   Timeframe = "15m"
	Timeframe1h    Timeframe = "1h"
	TimeframeDaily Timeframe = "daily"
)

// Timeframes lists all supported timeframes in ascending horizon order.
func Timeframes() []Timeframe {
	return []Timeframe{Timeframe15m, Timeframe1h, TimeframeDaily}
}

// ParseTimeframe validates and normalizes a timeframe string.
func ParseTimeframe(s string) (Timeframe, error) {
	switch Timeframe(s) {
	case Timeframe15m, Timeframe1h, TimeframeDaily:
		return Timeframe(s), nil
	}
	return "", fmt.Errorf("unknown timeframe %q", s)
}

// Market is a tradeable market the engine generates signals for.
type Market struct {
	ID     string `json:"id" yaml:"id"`         // store key, e.g. "btc-usd"
	Symbol string `json:"symbol" yaml:"symbol"` // base asset, e.g. "BTC"
}

// DefaultMarkets returns the built-in market universe.
func DefaultMarkets() []Market {
	return []Market{
		{ID: "btc-usd", Symbol: "BTC"},
		{ID: "eth-usd", Symbol: "ETH"},
		{ID: "sol-usd", Symbol: "SOL"},
	}
}

// ComponentScores holds the three independent factor scores feeding a signal.
// OrderFlow and Momentum are bounded to [-30,30], Sentiment to [-20,20].
type ComponentScores struct {
	OrderFlow float64 `json:"order_flow"`
	Momentum  float64 `json:"momentum"`
	Sentiment float64 `json:"sentiment"`
}

// RiskGates carries the five informational pass/fail checks attached to a
// signal. Gates do not veto emission; they are risk metadata for consumers.
type RiskGates struct {
	VolatilityPass  bool `json:"volatility_pass"`
	LiquidityPass   bool `json:"liquidity_pass"`
	TimePass        bool `json:"time_pass"`
	ConflictPass    bool `json:"conflict_pass"`
	CorrelationPass bool `json:"correlation_pass"`
}

// Signal is one immutable trading signal for a (market, timeframe) key.
//
// Invariants:
//   - Tradeable is true iff Direction != FLAT.
//   - Confidence is nil iff Direction == FLAT.
//   - HoldUntil = GeneratedAt + the timeframe's hold period.
type Signal struct {
	ID          string          `json:"id"`
	MarketID    string          `json:"market_id"`
	Symbol      string          `json:"symbol"`
	Timeframe   Timeframe       `json:"timeframe"`
	Direction   Direction       `json:"direction"`
	Confidence  *int            `json:"confidence"` // 0–100, nil when FLAT
	Tradeable   bool            `json:"tradeable"`
	Scores      ComponentScores `json:"scores"` // rounded to 1 decimal
	Gates       RiskGates       `json:"gates"`
	Rationale   string          `json:"rationale"`
	GeneratedAt time.Time       `json:"generated_at"`
	HoldUntil   time.Time       `json:"hold_until"`
	ExpiresAt   *time.Time      `json:"expires_at"` // reserved, always nil
}

// Key returns the store key for this signal: "marketID:timeframe".
func (s *Signal) Key() string {
	return s.MarketID + ":" + string(s.Timeframe)
}

// JSON returns the JSON-encoded signal (ignoring errors for hot-path usage).
func (s *Signal) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}
