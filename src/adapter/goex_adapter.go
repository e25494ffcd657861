package adapter

// GoexAdapter wraps github.com/nntaoli-project/goex's unified exchange API
// for venues goex supports natively (binance-style), grounded on
// cmd/ohlcvcrypto/ohlcv_crypto.go's fetchOHLCVSeries/newBinanceInstance.

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"marketdatasvc/src/model"
)

var goexKlinePeriods = map[model.Interval]goex.KlinePeriod{
	model.Interval1m:  goex.KLINE_PERIOD_1MIN,
	model.Interval3m:  goex.KLINE_PERIOD_3MIN,
	model.Interval5m:  goex.KLINE_PERIOD_5MIN,
	model.Interval15m: goex.KLINE_PERIOD_15MIN,
	model.Interval30m: goex.KLINE_PERIOD_30MIN,
	model.Interval1h:  goex.KLINE_PERIOD_1H,
	model.Interval2h:  goex.KLINE_PERIOD_2H,
	model.Interval4h:  goex.KLINE_PERIOD_4H,
	model.Interval6h:  goex.KLINE_PERIOD_6H,
	model.Interval12h: goex.KLINE_PERIOD_12H,
	model.Interval1d:  goex.KLINE_PERIOD_1DAY,
	model.Interval1w:  goex.KLINE_PERIOD_1WEEK,
}

// GoexAdapter implements Adapter by delegating to a goex.API instance.
type GoexAdapter struct {
	exchange string
	api      goex.API
	log      *logger.Entry
}

// NewGoexAdapter builds an adapter for exchange backed by goex's binance
// driver, following newBinanceInstance's APIConfig construction.
func NewGoexAdapter(exchange, endpoint string) *GoexAdapter {
	if endpoint == "" {
		endpoint = binance.GLOBAL_API_BASE_URL
	}
	api := binance.NewWithConfig(&goex.APIConfig{
		HttpClient: http.DefaultClient,
		Endpoint:   endpoint,
	})
	return &GoexAdapter{
		exchange: exchange,
		api:      api,
		log:      logger.WithField("component", "goex_adapter").WithField("exchange", exchange),
	}
}

func (a *GoexAdapter) ID() string { return a.exchange }

func (a *GoexAdapter) Connect(ctx context.Context) error    { return nil }
func (a *GoexAdapter) Disconnect(ctx context.Context) error { return nil }

func (a *GoexAdapter) Ping(ctx context.Context) error {
	if _, err := a.api.GetTicker(goex.NewCurrencyPair(goex.BTC, goex.USDT)); err != nil {
		return newFailure(Transient, a.exchange, 0, err)
	}
	return nil
}

func (a *GoexAdapter) IntervalMillis(interval model.Interval) (int64, error) {
	return model.IntervalMillis(interval)
}

func goexCurrencyPair(symbol string) (goex.CurrencyPair, error) {
	parts := strings.SplitN(symbol, "/", 2)
	if len(parts) != 2 {
		return goex.CurrencyPair{}, fmt.Errorf("symbol %q is not BASE/QUOTE", symbol)
	}
	return goex.NewCurrencyPair(goex.Currency{Symbol: parts[0]}, goex.Currency{Symbol: parts[1]}), nil
}

// FetchCandles delegates to goex.API.GetKlineRecords, translating the
// venue's goex.Kline rows into the domain OHLCV shape.
func (a *GoexAdapter) FetchCandles(ctx context.Context, symbol string, interval model.Interval, sinceMs int64, limit int) ([]model.OHLCV, error) {
	period, ok := goexKlinePeriods[interval]
	if !ok {
		return nil, newFailure(Fatal, a.exchange, 0, fmt.Errorf("interval %s unsupported by %s", interval, a.exchange))
	}
	pair, err := goexCurrencyPair(symbol)
	if err != nil {
		return nil, newFailure(Fatal, a.exchange, 0, err)
	}

	klines, err := a.api.GetKlineRecords(pair, period, limit,
		goex.OptionalParameter{}.Optional("startTime", sinceMs))
	if err != nil {
		return nil, a.classifyErr(err)
	}

	out := make([]model.OHLCV, 0, len(klines))
	for _, k := range klines {
		out = append(out, model.OHLCV{
			Exchange:    a.exchange,
			Symbol:      symbol,
			Interval:    string(interval),
			TimestampMs: k.Timestamp * 1000,
			Open:        decimal.NewFromFloat(k.Open),
			High:        decimal.NewFromFloat(k.High),
			Low:         decimal.NewFromFloat(k.Low),
			Close:       decimal.NewFromFloat(k.Close),
			Volume:      decimal.NewFromFloat(k.Vol),
		})
	}
	return out, nil
}

// FetchTicker delegates to goex.API.GetTicker.
func (a *GoexAdapter) FetchTicker(ctx context.Context, symbol string) (model.Ticker, error) {
	pair, err := goexCurrencyPair(symbol)
	if err != nil {
		return model.Ticker{}, newFailure(Fatal, a.exchange, 0, err)
	}

	tick, err := a.api.GetTicker(pair)
	if err != nil {
		return model.Ticker{}, a.classifyErr(err)
	}

	bid := decimal.NewFromFloat(tick.Buy)
	ask := decimal.NewFromFloat(tick.Sell)
	high := decimal.NewFromFloat(tick.High)
	low := decimal.NewFromFloat(tick.Low)
	vol := decimal.NewFromFloat(tick.Vol)

	ts := tick.Date
	if ts == 0 {
		ts = uint64(time.Now().UTC().UnixMilli())
	}

	return model.Ticker{
		Exchange:    a.exchange,
		Symbol:      symbol,
		Last:        decimal.NewFromFloat(tick.Last),
		Bid:         &bid,
		Ask:         &ask,
		High24h:     &high,
		Low24h:      &low,
		Volume24h:   &vol,
		TimestampMs: int64(ts),
	}, nil
}

// classifyErr maps goex's plain-string errors, which carry no status code:
// a message containing "too many", "rate limit" or "429" becomes
// RateLimited with a 60s retry hint, so the scheduler pauses the exchange;
// any other error becomes Transient and is retried on the next pass.
func (a *GoexAdapter) classifyErr(err error) *Failure {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "too many") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "429") {
		return newFailure(RateLimited, a.exchange, 60, err)
	}
	return newFailure(Transient, a.exchange, 0, err)
}
