// Package provider implements market-data sources and the fallback chain
// that tries them in order. Concrete sources (Binance, Kraken, the
// authenticated vendor API) all satisfy model.MarketDataSource; the Chain
// wraps an ordered list of them with per-source circuit breakers and rate
// limits. First success wins; the last failure propagates.
package provider

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"cryptosignals/internal/metrics"
	"cryptosignals/internal/model"
)

const (
	breakerMaxFailures = 5
	breakerCooldown    = 30 * time.Second

	// Public exchange APIs tolerate ~10 req/s from a single client.
	sourceRateLimit = rate.Limit(10)
	sourceRateBurst = 20
)

// Chain is an ordered fallback list of market-data sources.
type Chain struct {
	sources  []model.MarketDataSource
	breakers map[string]*gobreaker.CircuitBreaker
	limiters map[string]*rate.Limiter
	met      *metrics.Metrics
	log      *slog.Logger
}

// NewChain builds a Chain over the given sources, primary first.
// met may be nil when instrumentation is not wanted (tests).
func NewChain(log *slog.Logger, met *metrics.Metrics, sources ...model.MarketDataSource) *Chain {
	c := &Chain{
		sources:  sources,
		breakers: make(map[string]*gobreaker.CircuitBreaker, len(sources)),
		limiters: make(map[string]*rate.Limiter, len(sources)),
		met:      met,
		log:      log,
	}
	for _, src := range sources {
		name := src.Name()
		c.limiters[name] = rate.NewLimiter(sourceRateLimit, sourceRateBurst)
		c.breakers[name] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    name,
			Timeout: breakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerMaxFailures
			},
			OnStateChange: c.onBreakerChange,
		})
	}
	return c
}

func (c *Chain) onBreakerChange(name string, from, to gobreaker.State) {
	c.log.Warn("source breaker state change",
		slog.String("source", name),
		slog.String("from", from.String()),
		slog.String("to", to.String()))
	if c.met != nil {
		open := 0.0
		if to == gobreaker.StateOpen {
			open = 1
		}
		c.met.BreakerOpen.WithLabelValues(name).Set(open)
	}
}

// Name implements model.MarketDataSource.
func (c *Chain) Name() string { return "chain" }

// SpotPrice tries each source in order for the current price summary.
func (c *Chain) SpotPrice(ctx context.Context, symbol string) (model.SpotQuote, error) {
	return fetch(c, ctx, "spot_price", symbol, func(src model.MarketDataSource) (model.SpotQuote, error) {
		return src.SpotPrice(ctx, symbol)
	})
}

// Candles tries each source in order for recent closed candles.
func (c *Chain) Candles(ctx context.Context, symbol string, tf model.Timeframe, limit int) ([]model.Candle, error) {
	return fetch(c, ctx, "candles", symbol, func(src model.MarketDataSource) ([]model.Candle, error) {
		return src.Candles(ctx, symbol, tf, limit)
	})
}

// OrderBook tries each source in order for aggregate book depth.
func (c *Chain) OrderBook(ctx context.Context, symbol string) (model.OrderBookSummary, error) {
	return fetch(c, ctx, "order_book", symbol, func(src model.MarketDataSource) (model.OrderBookSummary, error) {
		return src.OrderBook(ctx, symbol)
	})
}

// fetch walks the chain for one operation. Sources whose breaker is open are
// skipped without counting as an attempt; the last real error is wrapped in
// an UpstreamError when every source fails.
func fetch[T any](c *Chain, ctx context.Context, op, symbol string, call func(model.MarketDataSource) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for i, src := range c.sources {
		name := src.Name()

		if err := c.limiters[name].Wait(ctx); err != nil {
			return zero, &model.UpstreamError{Source: name, Op: op, Symbol: symbol, Err: err}
		}

		v, err := c.breakers[name].Execute(func() (interface{}, error) {
			return call(src)
		})
		if err != nil {
			lastErr = err
			if c.met != nil && !errors.Is(err, gobreaker.ErrOpenState) {
				c.met.FetchErrors.WithLabelValues(name, op).Inc()
			}
			c.log.Warn("source fetch failed, trying next",
				slog.String("source", name),
				slog.String("op", op),
				slog.String("symbol", symbol),
				slog.String("error", err.Error()))
			continue
		}

		if i > 0 {
			if c.met != nil {
				c.met.SourceFallbacks.WithLabelValues(name).Inc()
			}
			c.log.Info("served by fallback source",
				slog.String("source", name), slog.String("op", op))
		}
		return v.(T), nil
	}

	return zero, &model.UpstreamError{Source: "chain", Op: op, Symbol: symbol, Err: lastErr}
}
