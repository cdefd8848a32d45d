package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"cryptosignals/internal/model"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	MetricsAddr   string
	GatewayAddr   string

	// Generation
	ScanInterval time.Duration
	Tier         string // conservative | moderate | aggressive
	MarketsFile  string // optional YAML market universe override

	// Market-data sources, primary first (comma-separated names)
	ProviderOrder string

	// Paid vendor credentials (optional; vendor joins the chain when set)
	VendorBaseURL    string
	VendorAPIKey     string
	VendorClientCode string
	VendorTOTPSecret string

	// Notifications (optional)
	TelegramBotToken string
	TelegramChatID   string
	AlertWebhookURL  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/signals.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		GatewayAddr:   getEnv("GATEWAY_ADDR", ":8080"),

		ScanInterval: getDurationEnv("SCAN_INTERVAL", time.Minute),
		Tier:         getEnv("AGGRESSIVENESS_TIER", "moderate"),
		MarketsFile:  getEnv("MARKETS_FILE", ""),

		ProviderOrder: getEnv("PROVIDER_ORDER", "binance,kraken"),

		VendorBaseURL:    getEnv("VENDOR_BASE_URL", ""),
		VendorAPIKey:     getEnv("VENDOR_API_KEY", ""),
		VendorClientCode: getEnv("VENDOR_CLIENT_CODE", ""),
		VendorTOTPSecret: getEnv("VENDOR_TOTP_SECRET", ""),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		AlertWebhookURL:  getEnv("ALERT_WEBHOOK_URL", ""),
	}
}

// Providers parses the ProviderOrder string into a cleaned name list.
func (c *Config) Providers() []string {
	parts := strings.Split(c.ProviderOrder, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.ToLower(p))
		if p != "" {
			names = append(names, p)
		}
	}
	return names
}

// Markets returns the market universe: the YAML file when configured,
// otherwise the built-in defaults.
func (c *Config) Markets() ([]model.Market, error) {
	if c.MarketsFile == "" {
		return model.DefaultMarkets(), nil
	}

	data, err := os.ReadFile(c.MarketsFile)
	if err != nil {
		return nil, fmt.Errorf("read markets file: %w", err)
	}
	var doc struct {
		Markets []model.Market `yaml:"markets"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse markets file: %w", err)
	}
	if len(doc.Markets) == 0 {
		return nil, fmt.Errorf("markets file %s lists no markets", c.MarketsFile)
	}
	for _, m := range doc.Markets {
		if m.ID == "" || m.Symbol == "" {
			return nil, fmt.Errorf("markets file %s: every market needs id and symbol", c.MarketsFile)
		}
	}
	return doc.Markets, nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	// Accept both "90s" style and bare seconds.
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	log.Printf("[config] invalid %s value %q, using %v", key, v, fallback)
	return fallback
}
