// Package resolver combines the three factor scores into a confidence value
// and maps it to a trading direction through aggressiveness-tier thresholds.
package resolver

import (
	"math"
	"math/rand"
	"sync"

	"cryptosignals/internal/model"
)

// Factor weights for the confidence blend. Momentum carries the most weight;
// sentiment the least. The weighted sum stays in roughly [-30,30].
const (
	weightOrderFlow = 0.35
	weightMomentum  = 0.40
	weightSentiment = 0.25
)

// Confluence cutoffs: all three scores must strictly exceed their cutoff in
// the same direction to earn the bonus.
const (
	confluenceFlowCutoff      = 10.0
	confluenceMomentumCutoff  = 10.0
	confluenceSentimentCutoff = 5.0
	confluenceBonus           = 8.0
)

// Resolution is the outcome of thresholding one set of scores.
// Confidence is nil when the direction is FLAT: an unresolved signal
// reports no confidence.
type Resolution struct {
	Direction  model.Direction
	Confidence *int
	Tradeable  bool
}

// Resolver applies one tier's thresholds and picks display rationales.
// The random source only affects rationale wording, never the decision;
// inject a seeded source for deterministic output in tests. One Resolver
// is shared by every market/timeframe pipeline, so access to the rand
// source is serialized internally.
type Resolver struct {
	tier Tier

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Resolver for the given tier and rationale random source.
func New(tier Tier, rng *rand.Rand) *Resolver {
	return &Resolver{tier: tier, rng: rng}
}

// Tier returns the aggressiveness tier this resolver applies.
func (r *Resolver) Tier() Tier { return r.tier }

// Resolve blends the scores into a 0–100 confidence and thresholds it.
//
// Steps: weighted sum → linear remap to 0–100 → confluence bonus → clamp →
// round to integer → tier threshold lookup.
func (r *Resolver) Resolve(scores model.ComponentScores) Resolution {
	raw := weightOrderFlow*scores.OrderFlow +
		weightMomentum*scores.Momentum +
		weightSentiment*scores.Sentiment

	confidence := 50 + raw*1.67
	confidence += confluenceAdjustment(scores)

	if confidence < 0 {
		confidence = 0
	} else if confidence > 100 {
		confidence = 100
	}
	rounded := int(math.Round(confidence))

	th := thresholds[r.tier]
	switch {
	case rounded >= th.Up:
		return Resolution{Direction: model.DirectionUp, Confidence: &rounded, Tradeable: true}
	case rounded <= th.Down:
		return Resolution{Direction: model.DirectionDown, Confidence: &rounded, Tradeable: true}
	}
	return Resolution{Direction: model.DirectionFlat}
}

// confluenceAdjustment returns ±8 when all three scores agree strongly in
// one direction, 0 otherwise. Cutoffs are strict: a momentum of exactly 10
// does not trigger the bonus.
func confluenceAdjustment(s model.ComponentScores) float64 {
	bullish := s.OrderFlow > confluenceFlowCutoff &&
		s.Momentum > confluenceMomentumCutoff &&
		s.Sentiment > confluenceSentimentCutoff
	if bullish {
		return confluenceBonus
	}

	bearish := s.OrderFlow < -confluenceFlowCutoff &&
		s.Momentum < -confluenceMomentumCutoff &&
		s.Sentiment < -confluenceSentimentCutoff
	if bearish {
		return -confluenceBonus
	}
	return 0
}
