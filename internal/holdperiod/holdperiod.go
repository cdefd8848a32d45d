// Package holdperiod decides when a (market, timeframe) key is due for a new
// signal. A signal stays authoritative until its hold window elapses; the
// controller holds no timers of its own — durability of "last generated"
// lives entirely in the signal store, queried as most-recent-row.
package holdperiod

import (
	"context"
	"time"

	"cryptosignals/internal/model"
)

// holdPeriods fixes the minimum lifetime of a signal per timeframe.
var holdPeriods = map[model.Timeframe]time.Duration{
	model.Timeframe15m:   5 * time.Minute,
	model.Timeframe1h:    15 * time.Minute,
	model.TimeframeDaily: 30 * time.Minute,
}

// For returns the hold period for a timeframe.
func For(tf model.Timeframe) time.Duration {
	return holdPeriods[tf]
}

// HoldUntil computes the hold expiry for a signal generated at t.
func HoldUntil(t time.Time, tf model.Timeframe) time.Time {
	return t.Add(For(tf))
}

// Controller performs the pull-based due/skip check against the store.
type Controller struct {
	store model.SignalStore

	// now is swappable for tests.
	now func() time.Time
}

// NewController creates a Controller over the given store.
func NewController(store model.SignalStore) *Controller {
	return &Controller{store: store, now: time.Now}
}

// Due reports whether a new signal may be generated for the key.
//
// Cold start (no stored signal) is due. Otherwise regeneration is permitted
// strictly after the stored signal's HoldUntil; at or before it, the prior
// signal is returned and remains authoritative.
func (c *Controller) Due(ctx context.Context, marketID string, tf model.Timeframe) (bool, *model.Signal, error) {
	latest, err := c.store.FindLatest(ctx, marketID, tf)
	if err != nil {
		return false, nil, err
	}
	if latest == nil {
		return true, nil, nil
	}
	if c.now().After(latest.HoldUntil) {
		return true, latest, nil
	}
	return false, latest, nil
}
