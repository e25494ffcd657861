package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketdatasvc/src/adapter"
	"marketdatasvc/src/apperr"
	"marketdatasvc/src/cache"
	"marketdatasvc/src/model"
)

type fakeTickerSource struct {
	id      string
	tickers map[string]model.Ticker
	err     error
	calls   int
}

func (f *fakeTickerSource) ID() string                                 { return f.id }
func (f *fakeTickerSource) Connect(ctx context.Context) error           { return nil }
func (f *fakeTickerSource) Disconnect(ctx context.Context) error        { return nil }
func (f *fakeTickerSource) Ping(ctx context.Context) error              { return nil }
func (f *fakeTickerSource) IntervalMillis(i model.Interval) (int64, error) {
	return model.IntervalMillis(i)
}

func (f *fakeTickerSource) FetchCandles(ctx context.Context, symbol string, interval model.Interval, sinceMs int64, limit int) ([]model.OHLCV, error) {
	return nil, nil
}

func (f *fakeTickerSource) FetchTicker(ctx context.Context, symbol string) (model.Ticker, error) {
	f.calls++
	if f.err != nil {
		return model.Ticker{}, f.err
	}
	t, ok := f.tickers[symbol]
	if !ok {
		return model.Ticker{}, errors.New("symbol not found")
	}
	return t, nil
}

func newTestTickerRepository(t *testing.T, clients map[string]adapter.Adapter) (*TickerRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := cache.NewCache(mr.Addr(), 500, 10)
	return NewTickerRepository(c, clients), mr
}

// S5 Cache-first ticker: a warm cache entry is served without touching
// the exchange client at all.
func TestTickerRepository_FindCacheFirst(t *testing.T) {
	fake := &fakeTickerSource{tickers: map[string]model.Ticker{
		"BTC/USDT": {Exchange: "binance", Symbol: "BTC/USDT", Last: decimal.NewFromInt(100), TimestampMs: 1},
	}}
	r, _ := newTestTickerRepository(t, map[string]adapter.Adapter{"binance": fake})
	ctx := context.Background()

	res, err := r.Find(ctx, "binance", "BTC/USDT")
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, 1, fake.calls)

	res, err = r.Find(ctx, "binance", "BTC/USDT")
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, 1, fake.calls)
}

func TestTickerRepository_FindUnknownExchange(t *testing.T) {
	r, _ := newTestTickerRepository(t, map[string]adapter.Adapter{})
	_, err := r.Find(context.Background(), "bogus", "BTC/USDT")
	require.Error(t, err)
	var clientErr *apperr.Error
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, apperr.CodeInvalidExchange, clientErr.Code)
}

func TestTickerRepository_FindRateLimited(t *testing.T) {
	fake := &fakeTickerSource{err: &adapter.Failure{Kind: adapter.RateLimited, Exchange: "binance", RetryAfterSec: 30}}
	r, _ := newTestTickerRepository(t, map[string]adapter.Adapter{"binance": fake})

	_, err := r.Find(context.Background(), "binance", "BTC/USDT")
	require.Error(t, err)
	var rl *apperr.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 30, rl.RetryAfterSec)
}

// S6 Batch partial success: one bad symbol does not fail the whole
// FindAll call, its error is reported alongside the other results.
func TestTickerRepository_FindAllPartialSuccess(t *testing.T) {
	fake := &fakeTickerSource{tickers: map[string]model.Ticker{
		"BTC/USDT": {Exchange: "binance", Symbol: "BTC/USDT", Last: decimal.NewFromInt(100), TimestampMs: 1},
	}}
	r, _ := newTestTickerRepository(t, map[string]adapter.Adapter{"binance": fake})

	results, errs := r.FindAll(context.Background(), "binance", []string{"BTC/USDT", "NOPE/USDT"})
	require.Len(t, results, 1)
	_, ok := results["BTC/USDT"]
	assert.True(t, ok)

	require.Len(t, errs, 1)
	assert.Equal(t, "NOPE/USDT", errs[0].Symbol)
}
