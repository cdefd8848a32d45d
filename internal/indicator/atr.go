package indicator

import "cryptosignals/internal/model"

// ATR calculates the Average True Range over the last period candles.
// True range accounts for gaps against the previous close:
//
//	TR = max(high-low, |high-prevClose|, |low-prevClose|)
//
// When fewer than period+1 candles are available, the average runs over the
// ranges that exist. Returns 0 with fewer than two candles.
func ATR(candles []model.Candle, period int) float64 {
	if len(candles) < 2 || period <= 0 {
		return 0
	}

	start := len(candles) - period
	if start < 1 {
		start = 1
	}

	var sum float64
	n := 0
	for i := start; i < len(candles); i++ {
		tr := candles[i].High - candles[i].Low
		prevClose := candles[i-1].Close
		if hc := abs(candles[i].High - prevClose); hc > tr {
			tr = hc
		}
		if lc := abs(candles[i].Low - prevClose); lc > tr {
			tr = lc
		}
		sum += tr
		n++
	}
	return sum / float64(n)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
