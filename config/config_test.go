package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("redis addr: got %q", cfg.RedisAddr)
	}
	if cfg.ScanInterval != time.Minute {
		t.Errorf("scan interval: got %v", cfg.ScanInterval)
	}
	if cfg.Tier != "moderate" {
		t.Errorf("tier: got %q", cfg.Tier)
	}
}

func TestProviders(t *testing.T) {
	cfg := &Config{ProviderOrder: " Binance, kraken ,,VENDOR "}
	got := cfg.Providers()
	want := []string{"binance", "kraken", "vendor"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("provider[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestGetDurationEnv(t *testing.T) {
	os.Setenv("TEST_SCAN_INTERVAL", "90s")
	defer os.Unsetenv("TEST_SCAN_INTERVAL")
	if got := getDurationEnv("TEST_SCAN_INTERVAL", time.Minute); got != 90*time.Second {
		t.Errorf("duration form: got %v", got)
	}

	os.Setenv("TEST_SCAN_INTERVAL", "45")
	if got := getDurationEnv("TEST_SCAN_INTERVAL", time.Minute); got != 45*time.Second {
		t.Errorf("bare seconds form: got %v", got)
	}

	os.Setenv("TEST_SCAN_INTERVAL", "nonsense")
	if got := getDurationEnv("TEST_SCAN_INTERVAL", time.Minute); got != time.Minute {
		t.Errorf("invalid value should fall back: got %v", got)
	}
}

func TestMarkets_Defaults(t *testing.T) {
	cfg := &Config{}
	markets, err := cfg.Markets()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(markets) != 3 {
		t.Fatalf("expected 3 default markets, got %d", len(markets))
	}
	if markets[0].ID != "btc-usd" || markets[0].Symbol != "BTC" {
		t.Errorf("first market: got %+v", markets[0])
	}
}

func TestMarkets_FromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "markets.yaml")
	content := `markets:
  - id: btc-usd
    symbol: BTC
  - id: doge-usd
    symbol: DOGE
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{MarketsFile: path}
	markets, err := cfg.Markets()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(markets) != 2 {
		t.Fatalf("expected 2 markets, got %d", len(markets))
	}
	if markets[1].ID != "doge-usd" || markets[1].Symbol != "DOGE" {
		t.Errorf("second market: got %+v", markets[1])
	}
}

func TestMarkets_RejectsIncomplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "markets.yaml")
	content := "markets:\n  - id: btc-usd\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{MarketsFile: path}
	if _, err := cfg.Markets(); err == nil {
		t.Fatal("expected error for market missing symbol")
	}
}
