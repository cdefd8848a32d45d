package scoring

import (
	"cryptosignals/internal/indicator"
	"cryptosignals/internal/model"
)

// momentumMinCandles is the history floor below which momentum stays neutral.
const momentumMinCandles = 20

// Momentum scores price momentum in [-30,30] from three ingredients:
// RSI positioning, the MACD histogram, and 5-candle trend strength.
//
// The RSI contribution is asymmetric: overbought readings (>70) subtract,
// oversold readings (<30) add — a mean-reversion bias — while the neutral
// zone contributes a mild trend-following (RSI-50)*0.5.
//
// Returns 0 when fewer than 20 candles are available.
func Momentum(candles []model.Candle) float64 {
	if len(candles) < momentumMinCandles {
		return 0
	}

	closes := model.Closes(candles)
	rsi := indicator.RSI(closes, 14)
	macd := indicator.MACD(closes)

	last := closes[len(closes)-1]
	ref := closes[len(closes)-5]
	trendStrength := (last - ref) / ref * 100

	var score float64
	switch {
	case rsi > 70:
		score -= (rsi - 70) * 1.5
	case rsi < 30:
		score += (30 - rsi) * 1.5
	default:
		score += (rsi - 50) * 0.5
	}

	score += clamp(macd.Histogram*100, -20, 20)
	score += clamp(trendStrength*2, -10, 10)

	return clamp(score, -30, 30)
}
