package model

// OrderBookSummary condenses an order-book snapshot into aggregate depth.
// Imbalance is bidVolume / (bidVolume + askVolume), in [0,1].
// Values above 0.5 indicate buy-side pressure.
type OrderBookSummary struct {
	BidVolume float64 `json:"bid_volume"`
	AskVolume float64 `json:"ask_volume"`
	Imbalance float64 `json:"imbalance"`
}

// NewOrderBookSummary builds a summary from aggregate bid/ask depth.
// An empty book yields a neutral imbalance of 0.5.
func NewOrderBookSummary(bidVolume, askVolume float64) OrderBookSummary {
	total := bidVolume + askVolume
	imbalance := 0.5
	if total > 0 {
		imbalance = bidVolume / total
	}
	return OrderBookSummary{
		BidVolume: bidVolume,
		AskVolume: askVolume,
		Imbalance: imbalance,
	}
}
