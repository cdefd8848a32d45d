package resolver

import (
	"fmt"

	"cryptosignals/internal/model"
)

// rationales is the fixed phrase table backing signal display text, keyed by
// timeframe and direction. Each phrase takes the three component scores as
// printf arguments (order-flow, momentum, sentiment). Selection is random
// and purely cosmetic — it never influences the decision.
var rationales = map[model.Timeframe]map[model.Direction][]string{
	model.Timeframe15m: {
		model.DirectionUp: {
			"Short-term order flow tilting bullish (flow %.1f, momentum %.1f, sentiment %.1f)",
			"Buyers controlling the book on the 15m window (flow %.1f, momentum %.1f, sentiment %.1f)",
			"Momentum and flow aligned upward over the last quarter hour (flow %.1f, momentum %.1f, sentiment %.1f)",
		},
		model.DirectionDown: {
			"Sell pressure dominating the 15m book (flow %.1f, momentum %.1f, sentiment %.1f)",
			"Short-term momentum rolling over (flow %.1f, momentum %.1f, sentiment %.1f)",
			"Ask-side depth absorbing bids on the 15m window (flow %.1f, momentum %.1f, sentiment %.1f)",
		},
		model.DirectionFlat: {
			"15m factors mixed, no edge (flow %.1f, momentum %.1f, sentiment %.1f)",
			"Choppy short-term tape, standing aside (flow %.1f, momentum %.1f, sentiment %.1f)",
		},
	},
	model.Timeframe1h: {
		model.DirectionUp: {
			"Hourly momentum building with supportive flow (flow %.1f, momentum %.1f, sentiment %.1f)",
			"1h trend and volume sentiment pointing higher (flow %.1f, momentum %.1f, sentiment %.1f)",
			"Dip demand visible in hourly order flow (flow %.1f, momentum %.1f, sentiment %.1f)",
		},
		model.DirectionDown: {
			"Hourly structure breaking down (flow %.1f, momentum %.1f, sentiment %.1f)",
			"1h sellers pressing with volume confirmation (flow %.1f, momentum %.1f, sentiment %.1f)",
			"Weak hourly momentum into offered book (flow %.1f, momentum %.1f, sentiment %.1f)",
		},
		model.DirectionFlat: {
			"Hourly signals balanced, waiting for resolution (flow %.1f, momentum %.1f, sentiment %.1f)",
			"No conviction on the 1h window (flow %.1f, momentum %.1f, sentiment %.1f)",
		},
	},
	model.TimeframeDaily: {
		model.DirectionUp: {
			"Daily trend constructive with positive flow (flow %.1f, momentum %.1f, sentiment %.1f)",
			"Higher-timeframe momentum favoring longs (flow %.1f, momentum %.1f, sentiment %.1f)",
			"Daily accumulation pattern in the book (flow %.1f, momentum %.1f, sentiment %.1f)",
		},
		model.DirectionDown: {
			"Daily distribution pressure persists (flow %.1f, momentum %.1f, sentiment %.1f)",
			"Higher-timeframe momentum favoring shorts (flow %.1f, momentum %.1f, sentiment %.1f)",
			"Daily trend weak with heavy offers (flow %.1f, momentum %.1f, sentiment %.1f)",
		},
		model.DirectionFlat: {
			"Daily picture undecided (flow %.1f, momentum %.1f, sentiment %.1f)",
			"Higher timeframe in balance, no signal (flow %.1f, momentum %.1f, sentiment %.1f)",
		},
	},
}

// Rationale picks a display phrase for the resolved direction and fills in
// the component scores.
func (r *Resolver) Rationale(tf model.Timeframe, dir model.Direction, scores model.ComponentScores) string {
	phrases := rationales[tf][dir]
	if len(phrases) == 0 {
		return fmt.Sprintf("flow %.1f, momentum %.1f, sentiment %.1f", scores.OrderFlow, scores.Momentum, scores.Sentiment)
	}
	r.mu.Lock()
	pick := r.rng.Intn(len(phrases))
	r.mu.Unlock()
	phrase := phrases[pick]
	return fmt.Sprintf(phrase, scores.OrderFlow, scores.Momentum, scores.Sentiment)
}
