package indicator

// EMA calculates the Exponential Moving Average of a series with multiplier
// 2/(period+1), seeded from the first element.
//
// Returns 0 for an empty series.
func EMA(series []float64, period int) float64 {
	if len(series) == 0 {
		return 0
	}

	multiplier := 2.0 / float64(period+1)
	ema := series[0]
	for _, v := range series[1:] {
		ema = (v-ema)*multiplier + ema
	}
	return ema
}
