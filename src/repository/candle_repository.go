// Package repository composes src/store and src/cache into the
// cache-first read / write-through save pattern spec.md §4.4/§4.5
// describe, grounded on the teacher's repository constructor idiom
// (NewOHLCVRepositoryRepositoryWithDB) and python repositories.py.
package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"

	"marketdatasvc/src/adapter"
	"marketdatasvc/src/apperr"
	"marketdatasvc/src/cache"
	"marketdatasvc/src/model"
	"marketdatasvc/src/store"
)

const maxCachedQueryLimit = 500

// CandleRepository is the read/write boundary for OHLCV data: the store
// is truth, the cache is a best-effort accelerator in front of it.
type CandleRepository struct {
	store *store.CandleStore
	cache *cache.Cache
	log   *logger.Entry
}

func NewCandleRepository(st *store.CandleStore, c *cache.Cache) *CandleRepository {
	return &CandleRepository{
		store: st,
		cache: c,
		log:   logger.WithField("component", "candle_repository"),
	}
}

// Save upserts records into the store then writes them through to the
// cache. Cache failures never fail the save — the store commit already
// succeeded.
func (r *CandleRepository) Save(ctx context.Context, records []model.OHLCV) (int, error) {
	n, err := r.store.Upsert(ctx, records)
	if err != nil {
		return 0, apperr.NewServer(apperr.CodeDatabaseError, "failed to save candles", map[string]any{"error": err.Error()})
	}
	if r.cache != nil {
		r.cache.CacheOHLCV(ctx, records)
	}
	return n, nil
}

// FindResult mirrors python's find() return: records, next cursor, and
// whether they were served from cache.
type FindResult struct {
	Records    []model.OHLCV
	NextCursor *int64
	FromCache  bool
}

// Find queries candles cache-first: the cache is only consulted when
// there is no cursor and limit <= 500, matching spec.md §9's "cache-hit
// shortcut may be partial" design note and python's find().
func (r *CandleRepository) Find(ctx context.Context, p store.QueryParams) (FindResult, error) {
	limit := p.Limit
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	p.Limit = limit

	if r.cache != nil && p.Cursor == nil && limit <= maxCachedQueryLimit {
		cached := r.cache.GetOHLCV(ctx, p.Exchange, p.Symbol, p.Interval, p.StartMs, p.EndMs, limit)
		if len(cached) > 0 {
			return FindResult{Records: cached, FromCache: true}, nil
		}
	}

	res, err := r.store.Query(ctx, p)
	if err != nil {
		return FindResult{}, apperr.NewServer(apperr.CodeDatabaseError, "failed to query candles", map[string]any{"error": err.Error()})
	}
	return FindResult{Records: res.Records, NextCursor: res.NextCursor}, nil
}

// Timestamps delegates straight to the store; gap-fill's diff needs
// ground truth, never the cache.
func (r *CandleRepository) Timestamps(ctx context.Context, exchange, symbol string, interval model.Interval, sinceMs int64) (map[int64]struct{}, error) {
	ts, err := r.store.Timestamps(ctx, exchange, symbol, interval, sinceMs)
	if err != nil {
		return nil, apperr.NewServer(apperr.CodeDatabaseError, "failed to read candle timestamps", map[string]any{"error": err.Error()})
	}
	return ts, nil
}

// classifyAdapterErr normalizes an adapter failure into the apperr
// taxonomy the API layer understands.
func classifyAdapterErr(exchange string, err error) error {
	var failure *adapter.Failure
	if f, ok := err.(*adapter.Failure); ok {
		failure = f
	}
	if failure == nil {
		return apperr.NewServer(apperr.CodeExchangeError, "exchange request failed", map[string]any{"exchange": exchange, "error": err.Error()})
	}
	switch failure.Kind {
	case adapter.RateLimited:
		return apperr.NewRateLimit(exchange, failure.RetryAfterSec)
	default:
		return apperr.NewServer(apperr.CodeExchangeError, "exchange request failed", map[string]any{"exchange": exchange, "error": err.Error()})
	}
}
