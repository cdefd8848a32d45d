package model

import "context"

// ── Port Interfaces ──
// These interfaces decouple the signal pipeline from concrete collaborators
// (exchange REST APIs, SQLite, Redis). Implementations live under
// internal/provider and internal/store.

// MarketDataSource supplies the three inputs a generation attempt needs.
// Any failure is fatal for that attempt; the pipeline never substitutes
// mocked defaults for missing upstream data.
type MarketDataSource interface {
	// Name identifies the source in logs and metrics, e.g. "binance".
	Name() string

	// SpotPrice fetches the current price summary for a symbol.
	SpotPrice(ctx context.Context, symbol string) (SpotQuote, error)

	// Candles fetches up to limit most recent closed candles for the
	// symbol at the given timeframe, oldest first.
	Candles(ctx context.Context, symbol string, tf Timeframe, limit int) ([]Candle, error)

	// OrderBook fetches aggregate bid/ask depth for a symbol.
	OrderBook(ctx context.Context, symbol string) (OrderBookSummary, error)
}

// SignalStore persists signals and serves the latest-signal lookup the
// hold-period controller depends on. Signals are never updated in place;
// "latest" means the row with the greatest GeneratedAt for the key.
type SignalStore interface {
	// Insert persists a new signal.
	Insert(ctx context.Context, sig *Signal) error

	// FindLatest returns the most recently generated signal for the
	// (marketID, timeframe) key, or nil if none exists.
	FindLatest(ctx context.Context, marketID string, tf Timeframe) (*Signal, error)

	// Close releases underlying resources.
	Close() error
}
