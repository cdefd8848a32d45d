package scoring

import "cryptosignals/internal/model"

// OrderFlow scores order-book pressure in [-30,30]. A perfectly balanced
// book (imbalance 0.5) scores 0; every 0.1 of imbalance away from balance
// moves the score by 6 points toward the dominant side.
func OrderFlow(book model.OrderBookSummary) float64 {
	return clamp((book.Imbalance-0.5)*60, -30, 30)
}
