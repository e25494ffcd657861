// Package adapter normalizes heterogeneous exchange SDKs behind one
// interface, translating venue-specific candle/ticker shapes into the
// domain model and classifying every failure as RateLimited, Transient
// or Fatal before it reaches a repository (spec.md §4.3).
package adapter

import (
	"context"

	"marketdatasvc/src/model"
)

// Adapter is one instance per configured exchange id.
type Adapter interface {
	// ID is the exchange identifier this adapter was configured for.
	ID() string
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Ping(ctx context.Context) error
	// FetchCandles returns at most limit rows at or after sinceMs, in
	// ascending order.
	FetchCandles(ctx context.Context, symbol string, interval model.Interval, sinceMs int64, limit int) ([]model.OHLCV, error)
	FetchTicker(ctx context.Context, symbol string) (model.Ticker, error)
	// IntervalMillis exposes the fixed duration of interval for this
	// adapter's venue (normally model.IntervalMillis; a venue-specific
	// adapter may restrict the supported subset).
	IntervalMillis(interval model.Interval) (int64, error)
}
