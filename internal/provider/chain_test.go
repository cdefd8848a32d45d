package provider

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"cryptosignals/internal/model"
)

// fakeSource counts calls and either succeeds or always fails.
type fakeSource struct {
	name  string
	fail  bool
	calls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) SpotPrice(ctx context.Context, symbol string) (model.SpotQuote, error) {
	f.calls++
	if f.fail {
		return model.SpotQuote{}, errors.New(f.name + " down")
	}
	return model.SpotQuote{Symbol: symbol, Price: 50000}, nil
}

func (f *fakeSource) Candles(ctx context.Context, symbol string, tf model.Timeframe, limit int) ([]model.Candle, error) {
	f.calls++
	if f.fail {
		return nil, errors.New(f.name + " down")
	}
	candles := make([]model.Candle, limit)
	for i := range candles {
		candles[i] = model.Candle{Close: 100, Volume: 10, OpenTime: time.Now().UTC()}
	}
	return candles, nil
}

func (f *fakeSource) OrderBook(ctx context.Context, symbol string) (model.OrderBookSummary, error) {
	f.calls++
	if f.fail {
		return model.OrderBookSummary{}, errors.New(f.name + " down")
	}
	return model.NewOrderBookSummary(30, 10), nil
}

func testLogger() *slog.Logger {
	return slog.Default()
}

func TestChain_PrimaryWins(t *testing.T) {
	primary := &fakeSource{name: "primary"}
	backup := &fakeSource{name: "backup"}
	chain := NewChain(testLogger(), nil, primary, backup)

	quote, err := chain.SpotPrice(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Price != 50000 {
		t.Errorf("expected price 50000, got %.2f", quote.Price)
	}
	if backup.calls != 0 {
		t.Errorf("backup should not be called when primary succeeds, got %d calls", backup.calls)
	}
}

func TestChain_FallsThroughOnFailure(t *testing.T) {
	primary := &fakeSource{name: "primary", fail: true}
	backup := &fakeSource{name: "backup"}
	chain := NewChain(testLogger(), nil, primary, backup)

	book, err := chain.OrderBook(context.Background(), "ETH")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if book.Imbalance != 0.75 {
		t.Errorf("expected imbalance 0.75 from backup, got %.2f", book.Imbalance)
	}
	if primary.calls != 1 || backup.calls != 1 {
		t.Errorf("expected one call each, got primary=%d backup=%d", primary.calls, backup.calls)
	}
}

func TestChain_AllFailReturnsUpstreamError(t *testing.T) {
	chain := NewChain(testLogger(), nil,
		&fakeSource{name: "a", fail: true},
		&fakeSource{name: "b", fail: true})

	_, err := chain.Candles(context.Background(), "SOL", model.Timeframe1h, 30)
	if err == nil {
		t.Fatal("expected error when every source fails")
	}
	var upstream *model.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %T: %v", err, err)
	}
	if upstream.Op != "candles" || upstream.Symbol != "SOL" {
		t.Errorf("unexpected error detail: %+v", upstream)
	}
}

func TestChain_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	primary := &fakeSource{name: "flaky", fail: true}
	backup := &fakeSource{name: "steady"}
	chain := NewChain(testLogger(), nil, primary, backup)

	// Trip the primary's breaker.
	for i := 0; i < breakerMaxFailures; i++ {
		if _, err := chain.SpotPrice(context.Background(), "BTC"); err != nil {
			t.Fatalf("fallback should have served request %d: %v", i, err)
		}
	}

	callsAtTrip := primary.calls
	if _, err := chain.SpotPrice(context.Background(), "BTC"); err != nil {
		t.Fatalf("unexpected error with open breaker: %v", err)
	}
	if primary.calls != callsAtTrip {
		t.Errorf("open breaker should skip the primary, but it was called again")
	}
}
