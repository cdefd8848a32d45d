package main

import (
	"context"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cryptosignals/config"
	"cryptosignals/internal/engine"
	"cryptosignals/internal/gateway"
	"cryptosignals/internal/logger"
	"cryptosignals/internal/metrics"
	"cryptosignals/internal/model"
	"cryptosignals/internal/notification"
	"cryptosignals/internal/provider"
	"cryptosignals/internal/resolver"
	redisstore "cryptosignals/internal/store/redis"
	sqlitestore "cryptosignals/internal/store/sqlite"
)

func main() {
	log := logger.Init("sigengine", logLevel())
	cfg := config.Load()

	markets, err := cfg.Markets()
	if err != nil {
		log.Error("invalid market universe", slog.String("error", err.Error()))
		os.Exit(1)
	}
	tier, err := resolver.ParseTier(cfg.Tier)
	if err != nil {
		log.Error("invalid aggressiveness tier", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	met := metrics.New()
	health := metrics.NewHealthStatus()

	// ---- Storage ----
	durable, err := sqlitestore.New(sqlitestore.Config{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Error("sqlite init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer durable.Close()

	cache, err := redisstore.NewCache(redisstore.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Error("redis init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer cache.Close()

	store := redisstore.NewCachedStore(durable, cache, met, log)

	// ---- Market data ----
	sources := buildSources(cfg, log)
	if len(sources) == 0 {
		log.Error("no market-data sources configured", slog.String("order", cfg.ProviderOrder))
		os.Exit(1)
	}
	chain := provider.NewChain(log, met, sources...)

	// ---- Pipeline ----
	res := resolver.New(tier, rand.New(rand.NewSource(time.Now().UnixNano())))
	gen := engine.NewGenerator(chain, store, res, met, log)
	svc := engine.NewService(gen, markets, cfg.ScanInterval, buildNotifier(cfg, log), health, log)

	// ---- Gateway + observability ----
	hub := gateway.NewHub(cache.Client(), log)
	go hub.Run(ctx)
	go func() {
		if err := hub.Serve(ctx, cfg.GatewayAddr); err != nil {
			log.Error("gateway failed", slog.String("error", err.Error()))
		}
	}()

	health.StartLivenessChecker(ctx, cache.Client(), durable.DB(), 10*time.Second)
	metrics.Serve(ctx, cfg.MetricsAddr, health, log)

	log.Info("sigengine starting",
		slog.String("tier", string(tier)),
		slog.Int("markets", len(markets)),
		slog.Int("sources", len(sources)),
		slog.Duration("interval", cfg.ScanInterval))

	svc.Run(ctx)
}

// buildSources assembles the fallback chain in configured order. Unknown
// names are skipped with a warning; the vendor requires credentials.
func buildSources(cfg *config.Config, log *slog.Logger) []model.MarketDataSource {
	vendorCfg := provider.VendorConfig{
		BaseURL:    cfg.VendorBaseURL,
		APIKey:     cfg.VendorAPIKey,
		ClientCode: cfg.VendorClientCode,
		TOTPSecret: cfg.VendorTOTPSecret,
	}

	var sources []model.MarketDataSource
	for _, name := range cfg.Providers() {
		switch name {
		case "binance":
			sources = append(sources, provider.NewBinance(""))
		case "kraken":
			sources = append(sources, provider.NewKraken(""))
		case "vendor":
			if !vendorCfg.Enabled() {
				log.Warn("vendor source requested but credentials missing, skipping")
				continue
			}
			sources = append(sources, provider.NewVendor(vendorCfg))
		default:
			log.Warn("unknown market-data source, skipping", slog.String("name", name))
		}
	}
	return sources
}

// buildNotifier wires the configured alert backends, defaulting to log-only.
func buildNotifier(cfg *config.Config, log *slog.Logger) notification.Notifier {
	var backends []notification.Notifier
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		backends = append(backends, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if cfg.AlertWebhookURL != "" {
		backends = append(backends, notification.NewWebhookNotifier(cfg.AlertWebhookURL))
	}
	if len(backends) == 0 {
		return notification.NewLogNotifier(log)
	}
	return notification.NewFanout(log, backends...)
}

func logLevel() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
