// Package scoring maps raw market data to the three bounded factor scores
// feeding the confidence resolver: order-flow, momentum, and sentiment.
//
// Every calculator is pure and deterministic. When history is too short the
// calculators degrade to a neutral 0 instead of failing — missing data is a
// fetch-layer problem, not a scoring problem.
package scoring

import "cryptosignals/internal/model"

// Compute runs all three calculators over the same fetched inputs.
func Compute(candles []model.Candle, book model.OrderBookSummary) model.ComponentScores {
	return model.ComponentScores{
		OrderFlow: OrderFlow(book),
		Momentum:  Momentum(candles),
		Sentiment: Sentiment(candles),
	}
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
