package model

import (
	"errors"
	"fmt"
)

// ErrInsufficientCandles is returned by a source when the upstream answered
// but delivered too little history for the calculators to work with.
var ErrInsufficientCandles = errors.New("insufficient candle history")

// UpstreamError wraps a market-data fetch failure. It aborts the generation
// attempt for its (market, timeframe) key; independent keys are unaffected.
type UpstreamError struct {
	Source string // data source name, e.g. "binance"
	Op     string // failed operation, e.g. "candles"
	Symbol string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %s %s: %v", e.Source, e.Op, e.Symbol, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// PersistenceError wraps a signal-store failure. The signal for that cycle
// is lost; there is no local queue or retry.
type PersistenceError struct {
	Op  string // failed operation, e.g. "insert"
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("signal store: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
