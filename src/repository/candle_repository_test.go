package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"marketdatasvc/src/cache"
	"marketdatasvc/src/model"
	"marketdatasvc/src/store"
)

func newTestCandleRepository(t *testing.T) (*CandleRepository, *miniredis.Miniredis) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.OHLCV{}))
	st := store.NewCandleStore(db)

	mr := miniredis.RunT(t)
	c := cache.NewCache(mr.Addr(), 500, 10)

	return NewCandleRepository(st, c), mr
}

func repoCandle(ts int64) model.OHLCV {
	return model.OHLCV{
		Exchange:    "binance",
		Symbol:      "BTC/USDT",
		Interval:    string(model.Interval1m),
		TimestampMs: ts,
		Open:        decimal.NewFromInt(100),
		High:        decimal.NewFromInt(110),
		Low:         decimal.NewFromInt(90),
		Close:       decimal.NewFromInt(105),
		Volume:      decimal.NewFromInt(5),
	}
}

// Saving writes through to the cache; a subsequent small, cursor-less
// Find is served from cache rather than the store.
func TestCandleRepository_SaveWritesThroughCache(t *testing.T) {
	r, _ := newTestCandleRepository(t)
	ctx := context.Background()

	n, err := r.Save(ctx, []model.OHLCV{repoCandle(0), repoCandle(60_000)})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	res, err := r.Find(ctx, store.QueryParams{
		Exchange: "binance", Symbol: "BTC/USDT", Interval: model.Interval1m, Limit: 10,
	})
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	require.Len(t, res.Records, 2)
}

// A cursor present always bypasses the cache, even under the 500 limit.
func TestCandleRepository_FindWithCursorSkipsCache(t *testing.T) {
	r, _ := newTestCandleRepository(t)
	ctx := context.Background()

	_, err := r.Save(ctx, []model.OHLCV{repoCandle(0), repoCandle(60_000)})
	require.NoError(t, err)

	cursor := int64(0)
	res, err := r.Find(ctx, store.QueryParams{
		Exchange: "binance", Symbol: "BTC/USDT", Interval: model.Interval1m,
		Cursor: &cursor, Limit: 10,
	})
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	require.Len(t, res.Records, 1)
	assert.Equal(t, int64(60_000), res.Records[0].TimestampMs)
}

// A limit above 500 always bypasses the cache per spec.md's threshold.
func TestCandleRepository_FindLargeLimitSkipsCache(t *testing.T) {
	r, _ := newTestCandleRepository(t)
	ctx := context.Background()

	_, err := r.Save(ctx, []model.OHLCV{repoCandle(0)})
	require.NoError(t, err)

	res, err := r.Find(ctx, store.QueryParams{
		Exchange: "binance", Symbol: "BTC/USDT", Interval: model.Interval1m, Limit: 501,
	})
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	require.Len(t, res.Records, 1)
}

// When the cache is empty (e.g. evicted), Find falls back to the store.
func TestCandleRepository_FindFallsBackToStoreOnCacheMiss(t *testing.T) {
	r, mr := newTestCandleRepository(t)
	ctx := context.Background()

	_, err := r.Save(ctx, []model.OHLCV{repoCandle(0)})
	require.NoError(t, err)
	mr.FlushAll()

	res, err := r.Find(ctx, store.QueryParams{
		Exchange: "binance", Symbol: "BTC/USDT", Interval: model.Interval1m, Limit: 10,
	})
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	require.Len(t, res.Records, 1)
}
