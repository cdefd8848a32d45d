package indicator

// RSI calculates the Relative Strength Index over the first period deltas of
// the close series. This is the single-window Wilder variant: initial average
// gain/loss only, no smoothed rolling series across the whole input.
//
// Returns the neutral value 50 when fewer than period+1 closes are available.
// Returns 100 when the window contains no losses (pure up-move).
func RSI(closes []float64, period int) float64 {
	if len(closes) < period+1 {
		return 50
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
