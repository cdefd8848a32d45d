package holdperiod

import (
	"context"
	"errors"
	"testing"
	"time"

	"cryptosignals/internal/model"
)

// stubStore returns a fixed latest signal (or error) for any key.
type stubStore struct {
	latest *model.Signal
	err    error
}

func (s *stubStore) Insert(ctx context.Context, sig *model.Signal) error { return nil }
func (s *stubStore) FindLatest(ctx context.Context, marketID string, tf model.Timeframe) (*model.Signal, error) {
	return s.latest, s.err
}
func (s *stubStore) Close() error { return nil }

func TestFor_Registry(t *testing.T) {
	tests := []struct {
		tf   model.Timeframe
		want time.Duration
	}{
		{model.Timeframe15m, 5 * time.Minute},
		{model.Timeframe1h, 15 * time.Minute},
		{model.TimeframeDaily, 30 * time.Minute},
	}
	for _, tt := range tests {
		if got := For(tt.tf); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.tf, tt.want, got)
		}
	}
}

func TestDue_ColdStart(t *testing.T) {
	c := NewController(&stubStore{latest: nil})
	due, prior, err := c.Due(context.Background(), "btc-usd", model.Timeframe15m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !due {
		t.Error("expected due=true with no stored signal")
	}
	if prior != nil {
		t.Error("expected no prior signal on cold start")
	}
}

func TestDue_HoldWindow(t *testing.T) {
	holdUntil := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	stored := &model.Signal{MarketID: "btc-usd", Timeframe: model.Timeframe15m, HoldUntil: holdUntil}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"well inside hold", holdUntil.Add(-3 * time.Minute), false},
		{"one second before expiry", holdUntil.Add(-time.Second), false},
		{"exactly at expiry", holdUntil, false},
		{"one nanosecond past expiry", holdUntil.Add(time.Nanosecond), true},
		{"well past expiry", holdUntil.Add(10 * time.Minute), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController(&stubStore{latest: stored})
			c.now = func() time.Time { return tt.now }

			due, prior, err := c.Due(context.Background(), "btc-usd", model.Timeframe15m)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if due != tt.want {
				t.Errorf("expected due=%v, got %v", tt.want, due)
			}
			if prior != stored {
				t.Error("expected the stored signal to be returned as prior")
			}
		})
	}
}

func TestDue_StoreErrorPropagates(t *testing.T) {
	wantErr := errors.New("boom")
	c := NewController(&stubStore{err: wantErr})
	due, _, err := c.Due(context.Background(), "eth-usd", model.Timeframe1h)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected store error to propagate, got %v", err)
	}
	if due {
		t.Error("expected due=false on store error")
	}
}

func TestHoldUntil(t *testing.T) {
	at := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	if got := HoldUntil(at, model.TimeframeDaily); !got.Equal(at.Add(30 * time.Minute)) {
		t.Errorf("expected %v, got %v", at.Add(30*time.Minute), got)
	}
}
