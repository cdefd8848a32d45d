// Package riskgate evaluates the five pass/fail risk checks attached to
// every signal. Gates are computed from the same klines and order-book data
// the calculators already fetched — never from extra network calls — and are
// informational only: a failed gate is recorded on the signal, not enforced.
package riskgate

import (
	"cryptosignals/internal/indicator"
	"cryptosignals/internal/model"
)

const (
	// atrPeriod is the lookback for the volatility gate's true-range average.
	atrPeriod = 14

	// maxVolatilityPct fails the volatility gate when ATR exceeds this
	// percentage of the last close.
	maxVolatilityPct = 5.0

	// minBookDepth fails the liquidity gate when combined bid+ask depth
	// (provider units) is at or below this floor.
	minBookDepth = 10.0
)

// Evaluate computes all five gates for one generation attempt.
//
// The conflict gate is not derived from market data: it mirrors whether a
// tradeable direction was resolved. The time gate is always true (crypto
// markets trade continuously) and the correlation gate is a stub reserved
// for a future multi-asset check.
func Evaluate(candles []model.Candle, book model.OrderBookSummary, tradeable bool) model.RiskGates {
	return model.RiskGates{
		VolatilityPass:  volatilityPass(candles),
		LiquidityPass:   book.BidVolume+book.AskVolume > minBookDepth,
		TimePass:        true,
		ConflictPass:    tradeable,
		CorrelationPass: true,
	}
}

func volatilityPass(candles []model.Candle) bool {
	if len(candles) == 0 {
		return false
	}
	lastClose := candles[len(candles)-1].Close
	if lastClose <= 0 {
		return false
	}
	atr := indicator.ATR(candles, atrPeriod)
	return atr/lastClose*100 < maxVolatilityPct
}
