package api

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"marketdatasvc/src/adapter"
	"marketdatasvc/src/cache"
	"marketdatasvc/src/model"
	"marketdatasvc/src/repository"
	"marketdatasvc/src/scheduler"
	"marketdatasvc/src/store"
)

type fakeAdapter struct{ id string }

func (f *fakeAdapter) ID() string                        { return f.id }
func (f *fakeAdapter) Connect(ctx context.Context) error    { return nil }
func (f *fakeAdapter) Disconnect(ctx context.Context) error { return nil }
func (f *fakeAdapter) Ping(ctx context.Context) error       { return nil }
func (f *fakeAdapter) IntervalMillis(i model.Interval) (int64, error) {
	return model.IntervalMillis(i)
}

func (f *fakeAdapter) FetchCandles(ctx context.Context, symbol string, interval model.Interval, sinceMs int64, limit int) ([]model.OHLCV, error) {
	return nil, nil
}

func (f *fakeAdapter) FetchTicker(ctx context.Context, symbol string) (model.Ticker, error) {
	return model.Ticker{Exchange: f.id, Symbol: symbol, Last: decimal.NewFromInt(1)}, nil
}

func newTestAPI(t *testing.T) *API {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.OHLCV{}))
	st := store.NewCandleStore(db)

	mr := miniredis.RunT(t)
	c := cache.NewCache(mr.Addr(), 500, 10)

	candleRepo := repository.NewCandleRepository(st, c)
	tickerRepo := repository.NewTickerRepository(c, map[string]adapter.Adapter{"binance": &fakeAdapter{id: "binance"}})
	sched := scheduler.New(map[string]adapter.Adapter{"binance": &fakeAdapter{id: "binance"}}, candleRepo, tickerRepo, 10)

	exchanges := ExchangeSymbols{"binance": {"BTC/USDT", "ETH/USDT"}}
	return New(candleRepo, tickerRepo, sched, exchanges, model.ValidIntervals)
}

func seedCandle(t *testing.T, a *API, exchange, symbol string, ts int64) {
	t.Helper()
	_, err := a.candleRepo.Save(context.Background(), []model.OHLCV{{
		Exchange: exchange, Symbol: symbol, Interval: string(model.Interval1m), TimestampMs: ts,
		Open: decimal.NewFromInt(1), High: decimal.NewFromInt(1), Low: decimal.NewFromInt(1),
		Close: decimal.NewFromInt(1), Volume: decimal.NewFromInt(1),
	}})
	require.NoError(t, err)
}
