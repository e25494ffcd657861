package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"

	"marketdatasvc/src/adapter"
	"marketdatasvc/src/apperr"
	"marketdatasvc/src/cache"
	"marketdatasvc/src/model"
)

// TickerRepository never persists to the relational store: the cache is
// ticker's only home, fronting a cache-miss fallback to the exchange.
type TickerRepository struct {
	cache   *cache.Cache
	clients map[string]adapter.Adapter
	log     *logger.Entry
}

func NewTickerRepository(c *cache.Cache, clients map[string]adapter.Adapter) *TickerRepository {
	return &TickerRepository{
		cache:   c,
		clients: clients,
		log:     logger.WithField("component", "ticker_repository"),
	}
}

func (r *TickerRepository) Save(ctx context.Context, t model.Ticker) error {
	if r.cache == nil {
		return nil
	}
	if err := r.cache.CacheTicker(ctx, t); err != nil {
		return apperr.NewServer(apperr.CodeCacheError, "failed to cache ticker", map[string]any{"error": err.Error()})
	}
	return nil
}

// TickerResult carries the ticker alongside its cache age and whether
// it was served from cache, per spec.md §6's age_ms field.
type TickerResult struct {
	Ticker    model.Ticker
	AgeMs     int64
	FromCache bool
}

// Find checks the cache first; on a miss it fetches from the configured
// exchange client, writes the result back to cache, and returns it.
func (r *TickerRepository) Find(ctx context.Context, exchange, symbol string) (TickerResult, error) {
	if r.cache != nil {
		if t, age, ok := r.cache.GetTicker(ctx, exchange, symbol); ok {
			return TickerResult{Ticker: t, AgeMs: age, FromCache: true}, nil
		}
	}

	client, ok := r.clients[exchange]
	if !ok {
		return TickerResult{}, apperr.NewClient(apperr.CodeInvalidExchange, "unknown exchange", map[string]any{"exchange": exchange})
	}

	ticker, err := client.FetchTicker(ctx, symbol)
	if err != nil {
		return TickerResult{}, classifyAdapterErr(exchange, err)
	}

	if err := r.Save(ctx, ticker); err != nil {
		r.log.WithError(err).Warn("ticker_cache_write_failed")
	}

	return TickerResult{Ticker: ticker, AgeMs: 0, FromCache: false}, nil
}

// TickerBatchError captures a per-symbol failure in FindAll, mirroring
// python find_all()'s {"symbol":..., "error":...} error list.
type TickerBatchError struct {
	Symbol string
	Err    error
}

// FindAll queries every symbol independently, collecting per-symbol
// errors instead of aborting the whole batch (spec.md §4.5 / S6).
func (r *TickerRepository) FindAll(ctx context.Context, exchange string, symbols []string) (map[string]TickerResult, []TickerBatchError) {
	results := make(map[string]TickerResult, len(symbols))
	var errs []TickerBatchError

	for _, symbol := range symbols {
		res, err := r.Find(ctx, exchange, symbol)
		if err != nil {
			errs = append(errs, TickerBatchError{Symbol: symbol, Err: err})
			continue
		}
		results[symbol] = res
	}
	return results, errs
}
