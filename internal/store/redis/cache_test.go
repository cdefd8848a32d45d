package redis

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"

	"cryptosignals/internal/model"
)

func testSignal() *model.Signal {
	conf := 68
	return &model.Signal{
		ID:          "3f1a9c2e-0000-0000-0000-000000000001",
		MarketID:    "btc-usd",
		Symbol:      "BTC",
		Timeframe:   model.Timeframe15m,
		Direction:   model.DirectionUp,
		Confidence:  &conf,
		Tradeable:   true,
		Rationale:   "buy pressure building",
		GeneratedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		HoldUntil:   time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC),
	}
}

func TestCache_SetLatestUsesHoldPeriodTTL(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewCacheWithClient(client)
	sig := testSignal()

	mock.ExpectSet("signal:latest:btc-usd:15m", string(sig.JSON()), 5*time.Minute).SetVal("OK")

	if err := cache.SetLatest(context.Background(), sig); err != nil {
		t.Fatalf("set latest: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCache_GetLatestMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewCacheWithClient(client)

	mock.ExpectGet("signal:latest:eth-usd:1h").RedisNil()

	sig, err := cache.GetLatest(context.Background(), "eth-usd", model.Timeframe1h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig != nil {
		t.Errorf("expected nil on cache miss, got %+v", sig)
	}
}

func TestCache_GetLatestHit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewCacheWithClient(client)
	want := testSignal()

	mock.ExpectGet("signal:latest:btc-usd:15m").SetVal(string(want.JSON()))

	got, err := cache.GetLatest(context.Background(), "btc-usd", model.Timeframe15m)
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if got == nil {
		t.Fatal("expected a signal, got nil")
	}
	if got.ID != want.ID || got.Direction != want.Direction {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if got.Confidence == nil || *got.Confidence != 68 {
		t.Errorf("confidence: got %v, want 68", got.Confidence)
	}
}

func TestCache_PublishChannel(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewCacheWithClient(client)
	sig := testSignal()

	mock.ExpectPublish("pub:signal:15m:btc-usd", string(sig.JSON())).SetVal(1)

	if err := cache.Publish(context.Background(), sig); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// fakeStore records inserts and serves a canned FindLatest result.
type fakeStore struct {
	inserted []*model.Signal
	latest   *model.Signal
	err      error
}

func (f *fakeStore) Insert(ctx context.Context, sig *model.Signal) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, sig)
	return nil
}

func (f *fakeStore) FindLatest(ctx context.Context, marketID string, tf model.Timeframe) (*model.Signal, error) {
	return f.latest, f.err
}

func (f *fakeStore) Close() error { return nil }

func TestCachedStore_InsertWritesStoreFirst(t *testing.T) {
	client, mock := redismock.NewClientMock()
	durable := &fakeStore{}
	cached := NewCachedStore(durable, NewCacheWithClient(client), nil, slog.Default())
	sig := testSignal()

	mock.ExpectSet("signal:latest:btc-usd:15m", string(sig.JSON()), 5*time.Minute).SetVal("OK")
	mock.ExpectPublish("pub:signal:15m:btc-usd", string(sig.JSON())).SetVal(1)

	if err := cached.Insert(context.Background(), sig); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if len(durable.inserted) != 1 {
		t.Fatalf("expected 1 durable insert, got %d", len(durable.inserted))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCachedStore_InsertFailsWhenStoreFails(t *testing.T) {
	client, _ := redismock.NewClientMock()
	durable := &fakeStore{err: errors.New("disk full")}
	cached := NewCachedStore(durable, NewCacheWithClient(client), nil, slog.Default())

	if err := cached.Insert(context.Background(), testSignal()); err == nil {
		t.Fatal("expected error when durable store fails")
	}
}

func TestCachedStore_FindLatestFallsBackToStore(t *testing.T) {
	client, mock := redismock.NewClientMock()
	want := testSignal()
	durable := &fakeStore{latest: want}
	cached := NewCachedStore(durable, NewCacheWithClient(client), nil, slog.Default())

	mock.ExpectGet("signal:latest:btc-usd:15m").RedisNil()

	got, err := cached.FindLatest(context.Background(), "btc-usd", model.Timeframe15m)
	if err != nil {
		t.Fatalf("find latest: %v", err)
	}
	if got != want {
		t.Errorf("expected durable store result, got %+v", got)
	}
}

func TestCachedStore_FindLatestServesCacheHit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	durable := &fakeStore{err: errors.New("must not be called")}
	cached := NewCachedStore(durable, NewCacheWithClient(client), nil, slog.Default())
	want := testSignal()

	mock.ExpectGet("signal:latest:btc-usd:15m").SetVal(string(want.JSON()))

	got, err := cached.FindLatest(context.Background(), "btc-usd", model.Timeframe15m)
	if err != nil {
		t.Fatalf("find latest: %v", err)
	}
	if got == nil || got.ID != want.ID {
		t.Fatalf("expected cached signal, got %+v", got)
	}
}
