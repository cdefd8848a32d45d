// Package metrics exposes Prometheus instrumentation and the health endpoint
// for the signal engine.
package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the signal engine.
type Metrics struct {
	// Pipeline outcomes
	SignalsGenerated *prometheus.CounterVec // labels: timeframe, direction
	TradeableSignals prometheus.Counter
	HoldSkips        *prometheus.CounterVec // labels: timeframe
	PipelineErrors   *prometheus.CounterVec // labels: kind (upstream|persistence)
	GenerationDur    prometheus.Histogram

	// Market-data provider chain
	FetchErrors     *prometheus.CounterVec // labels: source, op
	SourceFallbacks *prometheus.CounterVec // labels: source
	BreakerOpen     *prometheus.GaugeVec   // labels: source; 1 while open

	// Store layer
	StoreWrites      prometheus.Counter
	StoreWriteDur    prometheus.Histogram
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	SignalsPublished prometheus.Counter
}

// New registers and returns all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		SignalsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_signals_generated_total",
			Help: "Signals generated, by timeframe and direction",
		}, []string{"timeframe", "direction"}),
		TradeableSignals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigengine_tradeable_signals_total",
			Help: "Signals resolved to a non-FLAT direction",
		}),
		HoldSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_hold_skips_total",
			Help: "Generation attempts skipped inside a hold window",
		}, []string{"timeframe"}),
		PipelineErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_pipeline_errors_total",
			Help: "Failed generation attempts by error kind",
		}, []string{"kind"}),
		GenerationDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigengine_generation_duration_seconds",
			Help:    "Wall time of one fetch-to-persist generation attempt",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_fetch_errors_total",
			Help: "Upstream fetch failures by source and operation",
		}, []string{"source", "op"}),
		SourceFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_source_fallbacks_total",
			Help: "Times a request fell through to a non-primary source",
		}, []string{"source"}),
		BreakerOpen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sigengine_source_breaker_open",
			Help: "1 while the source's circuit breaker is open",
		}, []string{"source"}),
		StoreWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigengine_store_writes_total",
			Help: "Signals persisted to the durable store",
		}),
		StoreWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigengine_store_write_duration_seconds",
			Help:    "Signal insert latency",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigengine_cache_hits_total",
			Help: "Latest-signal lookups served from Redis",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigengine_cache_misses_total",
			Help: "Latest-signal lookups that fell through to SQLite",
		}),
		SignalsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigengine_signals_published_total",
			Help: "Signals published to Redis pub/sub",
		}),
	}

	prometheus.MustRegister(
		m.SignalsGenerated, m.TradeableSignals, m.HoldSkips, m.PipelineErrors,
		m.GenerationDur, m.FetchErrors, m.SourceFallbacks, m.BreakerOpen,
		m.StoreWrites, m.StoreWriteDur, m.CacheHits, m.CacheMisses,
		m.SignalsPublished,
	)
	return m
}

// HealthStatus tracks liveness of the engine's dependencies for /healthz.
type HealthStatus struct {
	mu sync.RWMutex

	StartedAt        time.Time
	RedisConnected   bool
	RedisLatencyMs   float64
	SQLiteOK         bool
	SQLiteLatencyMs  float64
	LastGenerationAt time.Time
	LastCheckAt      time.Time
}

// NewHealthStatus creates a HealthStatus stamped with the current time.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

// RecordGeneration notes a completed generation sweep.
func (h *HealthStatus) RecordGeneration(t time.Time) {
	h.mu.Lock()
	h.LastGenerationAt = t
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency probes until ctx ends.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, db *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					start := time.Now()
					err := rdb.Ping(probeCtx).Err()
					h.mu.Lock()
					h.RedisConnected = err == nil
					h.RedisLatencyMs = float64(time.Since(start).Microseconds()) / 1000.0
					h.LastCheckAt = time.Now()
					h.mu.Unlock()
				}
				if db != nil {
					start := time.Now()
					err := db.PingContext(probeCtx)
					h.mu.Lock()
					h.SQLiteOK = err == nil
					h.SQLiteLatencyMs = float64(time.Since(start).Microseconds()) / 1000.0
					h.LastCheckAt = time.Now()
					h.mu.Unlock()
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	code := http.StatusOK
	if !h.SQLiteOK {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	lastGen := ""
	if !h.LastGenerationAt.IsZero() {
		lastGen = h.LastGenerationAt.UTC().Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"status":            status,
		"uptime":            time.Since(h.StartedAt).Round(time.Second).String(),
		"redis_connected":   h.RedisConnected,
		"redis_latency_ms":  h.RedisLatencyMs,
		"sqlite_ok":         h.SQLiteOK,
		"sqlite_latency_ms": h.SQLiteLatencyMs,
		"last_generation":   lastGen,
	})
}

// Serve starts the metrics/health HTTP server and shuts it down with ctx.
func Serve(ctx context.Context, addr string, health *HealthStatus, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", health)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()
	go func() {
		log.Info("metrics server listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", slog.String("error", err.Error()))
		}
	}()
}
