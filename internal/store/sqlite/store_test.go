package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"cryptosignals/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(Config{DBPath: filepath.Join(t.TempDir(), "signals.db")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testSignal(marketID string, tf model.Timeframe, generatedAt time.Time) *model.Signal {
	conf := 72
	return &model.Signal{
		ID:         uuid.NewString(),
		MarketID:   marketID,
		Symbol:     "BTC",
		Timeframe:  tf,
		Direction:  model.DirectionUp,
		Confidence: &conf,
		Tradeable:  true,
		Scores: model.ComponentScores{
			OrderFlow: 18.5,
			Momentum:  22.1,
			Sentiment: 8.0,
		},
		Gates: model.RiskGates{
			VolatilityPass:  true,
			LiquidityPass:   true,
			TimePass:        true,
			ConflictPass:    true,
			CorrelationPass: true,
		},
		Rationale:   "strong buy pressure",
		GeneratedAt: generatedAt,
		HoldUntil:   generatedAt.Add(15 * time.Minute),
	}
}

func TestStore_InsertAndFindLatest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	want := testSignal("btc-usd", model.Timeframe1h, now)
	if err := store.Insert(ctx, want); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := store.FindLatest(ctx, "btc-usd", model.Timeframe1h)
	if err != nil {
		t.Fatalf("find latest: %v", err)
	}
	if got == nil {
		t.Fatal("expected a signal, got nil")
	}
	if got.ID != want.ID {
		t.Errorf("id: got %q, want %q", got.ID, want.ID)
	}
	if got.Direction != model.DirectionUp {
		t.Errorf("direction: got %q, want UP", got.Direction)
	}
	if got.Confidence == nil || *got.Confidence != 72 {
		t.Errorf("confidence: got %v, want 72", got.Confidence)
	}
	if got.Scores != want.Scores {
		t.Errorf("scores: got %+v, want %+v", got.Scores, want.Scores)
	}
	if got.Gates != want.Gates {
		t.Errorf("gates: got %+v, want %+v", got.Gates, want.Gates)
	}
	if !got.HoldUntil.Equal(want.HoldUntil) {
		t.Errorf("hold until: got %v, want %v", got.HoldUntil, want.HoldUntil)
	}
}

func TestStore_FindLatestEmpty(t *testing.T) {
	store := newTestStore(t)

	got, err := store.FindLatest(context.Background(), "btc-usd", model.Timeframe15m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for empty store, got %+v", got)
	}
}

func TestStore_FindLatestPicksNewest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second).Add(-time.Hour)
	old := testSignal("eth-usd", model.Timeframe15m, base)
	newer := testSignal("eth-usd", model.Timeframe15m, base.Add(30*time.Minute))
	for _, sig := range []*model.Signal{old, newer} {
		if err := store.Insert(ctx, sig); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	got, err := store.FindLatest(ctx, "eth-usd", model.Timeframe15m)
	if err != nil {
		t.Fatalf("find latest: %v", err)
	}
	if got == nil || got.ID != newer.ID {
		t.Fatalf("expected newest signal %q, got %+v", newer.ID, got)
	}
}

func TestStore_FindLatestScopedToKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	btc := testSignal("btc-usd", model.Timeframe1h, now)
	eth := testSignal("eth-usd", model.Timeframe1h, now.Add(time.Minute))
	daily := testSignal("btc-usd", model.TimeframeDaily, now.Add(2*time.Minute))
	for _, sig := range []*model.Signal{btc, eth, daily} {
		if err := store.Insert(ctx, sig); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	got, err := store.FindLatest(ctx, "btc-usd", model.Timeframe1h)
	if err != nil {
		t.Fatalf("find latest: %v", err)
	}
	if got == nil || got.ID != btc.ID {
		t.Fatalf("expected btc-usd 1h signal %q, got %+v", btc.ID, got)
	}
}

func TestStore_NullConfidence(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	flat := testSignal("sol-usd", model.TimeframeDaily, time.Now().UTC().Truncate(time.Second))
	flat.Direction = model.DirectionFlat
	flat.Confidence = nil
	flat.Tradeable = false
	if err := store.Insert(ctx, flat); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := store.FindLatest(ctx, "sol-usd", model.TimeframeDaily)
	if err != nil {
		t.Fatalf("find latest: %v", err)
	}
	if got.Confidence != nil {
		t.Errorf("expected nil confidence for FLAT signal, got %d", *got.Confidence)
	}
	if got.Tradeable {
		t.Error("FLAT signal must not be tradeable")
	}
}

func TestStore_History(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second).Add(-time.Hour)
	var ids []string
	for i := 0; i < 5; i++ {
		sig := testSignal("btc-usd", model.Timeframe15m, base.Add(time.Duration(i)*5*time.Minute))
		ids = append(ids, sig.ID)
		if err := store.Insert(ctx, sig); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	got, err := store.History(ctx, "btc-usd", model.Timeframe15m, 3)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 signals, got %d", len(got))
	}
	// Newest first.
	for i, want := range []string{ids[4], ids[3], ids[2]} {
		if got[i].ID != want {
			t.Errorf("history[%d]: got %q, want %q", i, got[i].ID, want)
		}
	}
}
