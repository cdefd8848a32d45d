// Package engine runs the signal generation pipeline: hold-period check,
// concurrent market-data fetch, factor scoring, confidence resolution, risk
// gates, and persistence.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"cryptosignals/internal/holdperiod"
	"cryptosignals/internal/logger"
	"cryptosignals/internal/metrics"
	"cryptosignals/internal/model"
	"cryptosignals/internal/resolver"
	"cryptosignals/internal/riskgate"
	"cryptosignals/internal/scoring"
)

const (
	// candleLimit is how much history one generation attempt fetches. The
	// momentum calculator needs 20 closed candles; extra headroom keeps the
	// indicators stable when a source trims its response.
	candleLimit = 50

	// minViableCandles is the floor below which scoring is not attempted.
	minViableCandles = 10
)

// Generator runs one fetch-to-persist generation attempt per call.
type Generator struct {
	source model.MarketDataSource
	store  model.SignalStore
	hold   *holdperiod.Controller
	res    *resolver.Resolver
	met    *metrics.Metrics
	log    *slog.Logger

	now func() time.Time
}

// NewGenerator wires the pipeline. met may be nil in tests.
func NewGenerator(source model.MarketDataSource, store model.SignalStore, res *resolver.Resolver, met *metrics.Metrics, log *slog.Logger) *Generator {
	return &Generator{
		source: source,
		store:  store,
		hold:   holdperiod.NewController(store),
		res:    res,
		met:    met,
		log:    log,
		now:    time.Now,
	}
}

// Generate produces and persists a signal for one market and timeframe.
//
// When the key is still inside its hold window the prior signal is returned
// with generated=false and nothing is fetched. Any fetch or persistence
// failure aborts the attempt; no partial signal is ever stored.
func (g *Generator) Generate(ctx context.Context, market model.Market, tf model.Timeframe) (sig *model.Signal, generated bool, err error) {
	start := g.now()
	ctx = logger.WithTraceID(ctx, logger.GenerateTraceID(market.ID, string(tf), start))

	due, prior, err := g.hold.Due(ctx, market.ID, tf)
	if err != nil {
		g.countError("persistence")
		return nil, false, err
	}
	if !due {
		if g.met != nil {
			g.met.HoldSkips.WithLabelValues(string(tf)).Inc()
		}
		g.log.Debug("hold window active, skipping",
			append(logger.LogWithTrace(ctx),
				slog.String("market", market.ID),
				slog.String("timeframe", string(tf)),
				slog.Time("hold_until", prior.HoldUntil))...)
		return prior, false, nil
	}

	candles, book, quote, err := g.fetchAll(ctx, market.Symbol, tf)
	if err != nil {
		g.countError("upstream")
		return nil, false, err
	}
	if len(candles) < minViableCandles {
		g.countError("upstream")
		return nil, false, &model.UpstreamError{
			Source: g.source.Name(), Op: "candles", Symbol: market.Symbol,
			Err: model.ErrInsufficientCandles,
		}
	}

	scores := scoring.Compute(candles, book)
	scores.OrderFlow = round1(scores.OrderFlow)
	scores.Momentum = round1(scores.Momentum)
	scores.Sentiment = round1(scores.Sentiment)

	res := g.res.Resolve(scores)
	gates := riskgate.Evaluate(candles, book, res.Tradeable)

	now := g.now().UTC()
	sig = &model.Signal{
		ID:          uuid.NewString(),
		MarketID:    market.ID,
		Symbol:      market.Symbol,
		Timeframe:   tf,
		Direction:   res.Direction,
		Confidence:  res.Confidence,
		Tradeable:   res.Tradeable,
		Scores:      scores,
		Gates:       gates,
		Rationale:   g.res.Rationale(tf, res.Direction, scores),
		GeneratedAt: now,
		HoldUntil:   holdperiod.HoldUntil(now, tf),
	}

	insertStart := g.now()
	if err := g.store.Insert(ctx, sig); err != nil {
		g.countError("persistence")
		return nil, false, err
	}
	if g.met != nil {
		g.met.StoreWrites.Inc()
		g.met.StoreWriteDur.Observe(g.now().Sub(insertStart).Seconds())
		g.met.SignalsGenerated.WithLabelValues(string(tf), string(sig.Direction)).Inc()
		if sig.Tradeable {
			g.met.TradeableSignals.Inc()
		}
		g.met.GenerationDur.Observe(g.now().Sub(start).Seconds())
	}

	g.log.Info("signal generated",
		append(logger.LogWithTrace(ctx),
			slog.String("market", market.ID),
			slog.String("timeframe", string(tf)),
			slog.String("direction", string(sig.Direction)),
			slog.Bool("tradeable", sig.Tradeable),
			slog.Float64("price", quote.Price),
			slog.Float64("order_flow", scores.OrderFlow),
			slog.Float64("momentum", scores.Momentum),
			slog.Float64("sentiment", scores.Sentiment))...)
	return sig, true, nil
}

// fetchAll runs the three upstream reads concurrently and joins them.
// The first failure wins; remaining results are discarded.
func (g *Generator) fetchAll(ctx context.Context, symbol string, tf model.Timeframe) ([]model.Candle, model.OrderBookSummary, model.SpotQuote, error) {
	var (
		wg       sync.WaitGroup
		candles  []model.Candle
		book     model.OrderBookSummary
		quote    model.SpotQuote
		mu       sync.Mutex
		firstErr error
	)

	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		c, err := g.source.Candles(ctx, symbol, tf, candleLimit)
		if err != nil {
			fail(err)
			return
		}
		candles = c
	}()
	go func() {
		defer wg.Done()
		b, err := g.source.OrderBook(ctx, symbol)
		if err != nil {
			fail(err)
			return
		}
		book = b
	}()
	go func() {
		defer wg.Done()
		q, err := g.source.SpotPrice(ctx, symbol)
		if err != nil {
			fail(err)
			return
		}
		quote = q
	}()
	wg.Wait()

	if firstErr != nil {
		return nil, model.OrderBookSummary{}, model.SpotQuote{}, firstErr
	}
	return candles, book, quote, nil
}

func (g *Generator) countError(kind string) {
	if g.met != nil {
		g.met.PipelineErrors.WithLabelValues(kind).Inc()
	}
}

// IsUpstream reports whether err came from the market-data layer.
func IsUpstream(err error) bool {
	var ue *model.UpstreamError
	return errors.As(err, &ue)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
