package scoring

import "cryptosignals/internal/model"

const (
	// sentimentWindow is the number of trailing candles examined.
	sentimentWindow = 10

	// volumeSurgeRatio marks the most recent candle's volume as a surge
	// when it exceeds the window average by this factor.
	volumeSurgeRatio = 1.2
)

// Sentiment scores crowd behavior in [-20,20] from volume-confirmed price
// direction over the last 10 candles:
//
//	price up,   volume surge → +15
//	price down, volume surge → -15
//	price up,   weak volume  →  +8
//	price down, weak volume  →  -8
//
// Returns 0 when fewer than 10 candles are available or the window is flat.
func Sentiment(candles []model.Candle) float64 {
	if len(candles) < sentimentWindow {
		return 0
	}

	window := candles[len(candles)-sentimentWindow:]

	var totalVolume float64
	for _, c := range window {
		totalVolume += c.Volume
	}
	avgVolume := totalVolume / sentimentWindow

	volumeRatio := 0.0
	if avgVolume > 0 {
		volumeRatio = window[len(window)-1].Volume / avgVolume
	}

	first := window[0].Close
	last := window[len(window)-1].Close

	switch {
	case last > first && volumeRatio > volumeSurgeRatio:
		return 15
	case last < first && volumeRatio > volumeSurgeRatio:
		return -15
	case last > first:
		return 8
	case last < first:
		return -8
	}
	return 0
}
