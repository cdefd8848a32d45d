package redis

import (
	"context"
	"log/slog"

	"cryptosignals/internal/metrics"
	"cryptosignals/internal/model"
)

// CachedStore layers the Redis cache over a durable store. Writes go to the
// durable store first; the cache and Pub/Sub fan-out are best effort and never
// fail an insert. Reads prefer the cache and fall back to the store.
type CachedStore struct {
	store model.SignalStore
	cache *Cache
	met   *metrics.Metrics
	log   *slog.Logger
}

// NewCachedStore wraps store with cache. met may be nil in tests.
func NewCachedStore(store model.SignalStore, cache *Cache, met *metrics.Metrics, log *slog.Logger) *CachedStore {
	return &CachedStore{store: store, cache: cache, met: met, log: log}
}

// Insert persists the signal, then updates the cache and publishes it.
func (s *CachedStore) Insert(ctx context.Context, sig *model.Signal) error {
	if err := s.store.Insert(ctx, sig); err != nil {
		return err
	}

	if err := s.cache.SetLatest(ctx, sig); err != nil {
		s.log.Warn("cache update failed", slog.String("key", sig.Key()), slog.String("error", err.Error()))
	}
	if err := s.cache.Publish(ctx, sig); err != nil {
		s.log.Warn("signal publish failed", slog.String("key", sig.Key()), slog.String("error", err.Error()))
	} else if s.met != nil {
		s.met.SignalsPublished.Inc()
	}
	return nil
}

// FindLatest checks the cache first, then the durable store.
func (s *CachedStore) FindLatest(ctx context.Context, marketID string, tf model.Timeframe) (*model.Signal, error) {
	sig, err := s.cache.GetLatest(ctx, marketID, tf)
	if err != nil {
		s.log.Warn("cache read failed, falling back to store",
			slog.String("market", marketID), slog.String("timeframe", string(tf)),
			slog.String("error", err.Error()))
	}
	if sig != nil {
		if s.met != nil {
			s.met.CacheHits.Inc()
		}
		return sig, nil
	}
	if s.met != nil {
		s.met.CacheMisses.Inc()
	}
	return s.store.FindLatest(ctx, marketID, tf)
}

// Close closes the cache; the durable store is owned by the caller.
func (s *CachedStore) Close() error {
	return s.cache.Close()
}
