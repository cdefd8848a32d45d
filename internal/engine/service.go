package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cryptosignals/internal/metrics"
	"cryptosignals/internal/model"
	"cryptosignals/internal/notification"
)

// Service sweeps the market universe on a fixed interval, generating a
// signal for every market × timeframe pair that is out of its hold window.
type Service struct {
	gen      *Generator
	markets  []model.Market
	interval time.Duration
	notifier notification.Notifier
	health   *metrics.HealthStatus
	log      *slog.Logger
}

// NewService creates the sweep scheduler. notifier and health may be nil.
func NewService(gen *Generator, markets []model.Market, interval time.Duration, notifier notification.Notifier, health *metrics.HealthStatus, log *slog.Logger) *Service {
	return &Service{
		gen:      gen,
		markets:  markets,
		interval: interval,
		notifier: notifier,
		health:   health,
		log:      log,
	}
}

// Run performs an immediate sweep, then one per interval until ctx ends.
func (s *Service) Run(ctx context.Context) {
	s.log.Info("signal engine started",
		slog.Int("markets", len(s.markets)),
		slog.Duration("interval", s.interval))

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("signal engine stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep runs every market × timeframe pair concurrently. Each pair is
// independent; one failing key never blocks the others.
func (s *Service) sweep(ctx context.Context) {
	start := time.Now()
	var wg sync.WaitGroup

	for _, market := range s.markets {
		for _, tf := range model.Timeframes() {
			wg.Add(1)
			go func(market model.Market, tf model.Timeframe) {
				defer wg.Done()
				s.generateOne(ctx, market, tf)
			}(market, tf)
		}
	}
	wg.Wait()

	if s.health != nil {
		s.health.RecordGeneration(time.Now())
	}
	s.log.Debug("sweep complete", slog.Duration("took", time.Since(start)))
}

func (s *Service) generateOne(ctx context.Context, market model.Market, tf model.Timeframe) {
	sig, generated, err := s.gen.Generate(ctx, market, tf)
	if err != nil {
		level := slog.LevelError
		if IsUpstream(err) {
			// Upstream blips are routine; the next sweep retries.
			level = slog.LevelWarn
		}
		s.log.Log(ctx, level, "generation failed",
			slog.String("market", market.ID),
			slog.String("timeframe", string(tf)),
			slog.String("error", err.Error()))
		return
	}
	if !generated || !sig.Tradeable || s.notifier == nil {
		return
	}

	if err := s.notifier.Send(ctx, notification.SignalAlert(sig)); err != nil {
		s.log.Warn("signal alert failed",
			slog.String("key", sig.Key()),
			slog.String("error", err.Error()))
	}
}
