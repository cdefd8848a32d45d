package riskgate

import (
	"testing"
	"time"

	"cryptosignals/internal/model"
)

// rangedSeries returns n candles closing at close with a fixed high-low span.
func rangedSeries(n int, close, span float64) []model.Candle {
	out := make([]model.Candle, n)
	for i := range out {
		out[i] = model.Candle{
			OpenTime:  time.Now().UTC(),
			Open:      close,
			High:      close + span/2,
			Low:       close - span/2,
			Close:     close,
			Volume:    100,
			CloseTime: time.Now().UTC(),
		}
	}
	return out
}

func quietBook() model.OrderBookSummary {
	return model.OrderBookSummary{BidVolume: 50, AskVolume: 50, Imbalance: 0.5}
}

func TestEvaluate_VolatilityGate(t *testing.T) {
	// span 4 on close 100 → ATR 4% of close → pass (<5%).
	calm := Evaluate(rangedSeries(20, 100, 4), quietBook(), true)
	if !calm.VolatilityPass {
		t.Error("expected volatility gate to pass at 4% ATR")
	}

	// span 6 → 6% → fail.
	wild := Evaluate(rangedSeries(20, 100, 6), quietBook(), true)
	if wild.VolatilityPass {
		t.Error("expected volatility gate to fail at 6% ATR")
	}

	// No candles → fail closed.
	empty := Evaluate(nil, quietBook(), true)
	if empty.VolatilityPass {
		t.Error("expected volatility gate to fail without candles")
	}
}

func TestEvaluate_LiquidityGate(t *testing.T) {
	tests := []struct {
		bid, ask float64
		want     bool
	}{
		{8, 3, true},   // 11 > 10
		{5, 5, false},  // exactly 10 is not enough
		{2, 3, false},  // thin book
		{100, 0, true}, // one-sided but deep
	}
	for _, tt := range tests {
		book := model.OrderBookSummary{BidVolume: tt.bid, AskVolume: tt.ask}
		got := Evaluate(rangedSeries(20, 100, 1), book, true)
		if got.LiquidityPass != tt.want {
			t.Errorf("bid=%.0f ask=%.0f: expected liquidity=%v, got %v", tt.bid, tt.ask, tt.want, got.LiquidityPass)
		}
	}
}

func TestEvaluate_ConflictMirrorsTradeable(t *testing.T) {
	candles := rangedSeries(20, 100, 1)
	if !Evaluate(candles, quietBook(), true).ConflictPass {
		t.Error("expected conflict gate to pass for a tradeable signal")
	}
	if Evaluate(candles, quietBook(), false).ConflictPass {
		t.Error("expected conflict gate to fail for a FLAT signal")
	}
}

func TestEvaluate_StubGatesAlwaysPass(t *testing.T) {
	got := Evaluate(nil, model.OrderBookSummary{}, false)
	if !got.TimePass {
		t.Error("time gate must always pass")
	}
	if !got.CorrelationPass {
		t.Error("correlation gate must always pass")
	}
}
