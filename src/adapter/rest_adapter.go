package adapter

// RestAdapter is a from-scratch resty REST client for venues outside
// goex's coverage (kraken-style public market-data endpoints).

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
	"github.com/shopspring/decimal"

	"marketdatasvc/src/model"
)

const (
	defaultRetryAttempts   = 5
	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 8 * time.Second
)

// restCandleRow is the row shape kraken-style OHLC endpoints return:
// [time, open, high, low, close, vwap, volume, count].
type restCandleRow [8]any

type restOHLCResponse struct {
	Error  []string                   `json:"error"`
	Result map[string]json.RawMessage `json:"result"`
}

type restTickerResponse struct {
	Error  []string `json:"error"`
	Result map[string]struct {
		Ask  []string `json:"a"`
		Bid  []string `json:"b"`
		Last []string `json:"c"`
		High []string `json:"h"`
		Low  []string `json:"l"`
		Vol  []string `json:"v"`
	} `json:"result"`
}

// RestAdapter implements Adapter over a resty client with internal retry.
type RestAdapter struct {
	exchange string
	baseURL  string
	http     *resty.Client
	log      *logger.Entry
}

// NewRestAdapter builds an adapter for exchange that sends requests to
// baseURL. It calls only the venue's public endpoints and sends no
// credentials.
func NewRestAdapter(exchange, baseURL string) *RestAdapter {
	retryCount := defaultRetryAttempts - 1

	baseURL = strings.TrimRight(baseURL, "/")

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(retryCount).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	return &RestAdapter{
		exchange: exchange,
		baseURL:  baseURL,
		http:     httpClient,
		log:      logger.WithField("component", "rest_adapter").WithField("exchange", exchange),
	}
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	if code >= 500 && code <= 599 {
		return true
	}
	if code == 429 || code == 408 {
		return true
	}
	return false
}

func (a *RestAdapter) ID() string { return a.exchange }

func (a *RestAdapter) Connect(ctx context.Context) error    { return nil }
func (a *RestAdapter) Disconnect(ctx context.Context) error { return nil }

func (a *RestAdapter) Ping(ctx context.Context) error {
	resp, err := a.http.R().SetContext(ctx).Get("/0/public/Time")
	if err != nil {
		return newFailure(Transient, a.exchange, 0, err)
	}
	if err := a.checkStatus(resp); err != nil {
		return err
	}
	return nil
}

func (a *RestAdapter) IntervalMillis(interval model.Interval) (int64, error) {
	return model.IntervalMillis(interval)
}

var restIntervalMinutes = map[model.Interval]int{
	model.Interval1m:  1,
	model.Interval5m:  5,
	model.Interval15m: 15,
	model.Interval30m: 30,
	model.Interval1h:  60,
	model.Interval4h:  240,
	model.Interval1d:  1440,
	model.Interval1w:  10080,
}

// FetchCandles pulls OHLC data from the venue's public OHLC endpoint.
func (a *RestAdapter) FetchCandles(ctx context.Context, symbol string, interval model.Interval, sinceMs int64, limit int) ([]model.OHLCV, error) {
	minutes, ok := restIntervalMinutes[interval]
	if !ok {
		return nil, newFailure(Fatal, a.exchange, 0, fmt.Errorf("interval %s unsupported by %s", interval, a.exchange))
	}

	params := url.Values{}
	params.Set("pair", symbol)
	params.Set("interval", strconv.Itoa(minutes))
	params.Set("since", strconv.FormatInt(sinceMs/1000, 10))

	resp, err := a.http.R().SetContext(ctx).SetQueryParamsFromValues(params).Get("/0/public/OHLC")
	if err != nil {
		return nil, newFailure(Transient, a.exchange, 0, err)
	}
	if ferr := a.checkStatus(resp); ferr != nil {
		return nil, ferr
	}

	var parsed restOHLCResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, newFailure(Fatal, a.exchange, 0, fmt.Errorf("decode OHLC response: %w", err))
	}
	if len(parsed.Error) > 0 {
		return nil, newFailure(Fatal, a.exchange, 0, fmt.Errorf("%s: %s", a.exchange, strings.Join(parsed.Error, "; ")))
	}

	var rows []restCandleRow
	for key, raw := range parsed.Result {
		if key == "last" {
			continue
		}
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, newFailure(Fatal, a.exchange, 0, fmt.Errorf("decode OHLC rows: %w", err))
		}
		break
	}

	out := make([]model.OHLCV, 0, len(rows))
	for _, row := range rows {
		candle, err := restRowToOHLCV(a.exchange, symbol, interval, row)
		if err != nil {
			return nil, newFailure(Fatal, a.exchange, 0, err)
		}
		if candle.TimestampMs < sinceMs {
			continue
		}
		out = append(out, candle)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func restRowToOHLCV(exchange, symbol string, interval model.Interval, row restCandleRow) (model.OHLCV, error) {
	ts, ok := row[0].(float64)
	if !ok {
		return model.OHLCV{}, fmt.Errorf("unexpected timestamp field %T", row[0])
	}
	dec := func(idx int) (decimal.Decimal, error) {
		s, ok := row[idx].(string)
		if !ok {
			return decimal.Decimal{}, fmt.Errorf("unexpected numeric field %T at %d", row[idx], idx)
		}
		return decimal.NewFromString(s)
	}
	open, err := dec(1)
	if err != nil {
		return model.OHLCV{}, err
	}
	high, err := dec(2)
	if err != nil {
		return model.OHLCV{}, err
	}
	low, err := dec(3)
	if err != nil {
		return model.OHLCV{}, err
	}
	close_, err := dec(4)
	if err != nil {
		return model.OHLCV{}, err
	}
	volume, err := dec(6)
	if err != nil {
		return model.OHLCV{}, err
	}
	return model.OHLCV{
		Exchange:    exchange,
		Symbol:      symbol,
		Interval:    string(interval),
		TimestampMs: int64(ts) * 1000,
		Open:        open,
		High:        high,
		Low:         low,
		Close:       close_,
		Volume:      volume,
	}, nil
}

// FetchTicker pulls the venue's public ticker endpoint.
func (a *RestAdapter) FetchTicker(ctx context.Context, symbol string) (model.Ticker, error) {
	params := url.Values{}
	params.Set("pair", symbol)

	resp, err := a.http.R().SetContext(ctx).SetQueryParamsFromValues(params).Get("/0/public/Ticker")
	if err != nil {
		return model.Ticker{}, newFailure(Transient, a.exchange, 0, err)
	}
	if ferr := a.checkStatus(resp); ferr != nil {
		return model.Ticker{}, ferr
	}

	var parsed restTickerResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return model.Ticker{}, newFailure(Fatal, a.exchange, 0, fmt.Errorf("decode ticker response: %w", err))
	}
	if len(parsed.Error) > 0 {
		return model.Ticker{}, newFailure(Fatal, a.exchange, 0, fmt.Errorf("%s: %s", a.exchange, strings.Join(parsed.Error, "; ")))
	}

	var row struct {
		Ask  []string
		Bid  []string
		Last []string
		High []string
		Low  []string
		Vol  []string
	}
	for _, v := range parsed.Result {
		row.Ask, row.Bid, row.Last, row.High, row.Low, row.Vol = v.Ask, v.Bid, v.Last, v.High, v.Low, v.Vol
		break
	}
	if len(row.Last) == 0 {
		return model.Ticker{}, newFailure(Fatal, a.exchange, 0, fmt.Errorf("%s: no ticker data for %s", a.exchange, symbol))
	}

	last, err := decimal.NewFromString(row.Last[0])
	if err != nil {
		return model.Ticker{}, newFailure(Fatal, a.exchange, 0, err)
	}

	t := model.Ticker{
		Exchange:    a.exchange,
		Symbol:      symbol,
		Last:        last,
		TimestampMs: time.Now().UTC().UnixMilli(),
	}
	if d, ok := decimalFromSlice(row.Bid); ok {
		t.Bid = &d
	}
	if d, ok := decimalFromSlice(row.Ask); ok {
		t.Ask = &d
	}
	if d, ok := decimalFromSlice(row.High); ok {
		t.High24h = &d
	}
	if d, ok := decimalFromSlice(row.Low); ok {
		t.Low24h = &d
	}
	if d, ok := decimalFromSlice(row.Vol); ok {
		t.Volume24h = &d
	}
	return t, nil
}

func decimalFromSlice(vals []string) (decimal.Decimal, bool) {
	if len(vals) == 0 {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(vals[0])
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func (a *RestAdapter) checkStatus(resp *resty.Response) *Failure {
	status := resp.StatusCode()
	if status >= 200 && status < 300 {
		return nil
	}
	switch ClassifyHTTPStatus(status) {
	case RateLimited:
		retryAfter := 60
		if h := resp.Header().Get("Retry-After"); h != "" {
			if v, err := strconv.Atoi(h); err == nil {
				retryAfter = v
			}
		}
		a.log.WithField("retry_after_sec", retryAfter).Warn("exchange_rate_limited")
		return newFailure(RateLimited, a.exchange, retryAfter, fmt.Errorf("HTTP %d", resp.StatusCode()))
	case Transient:
		return newFailure(Transient, a.exchange, 0, fmt.Errorf("HTTP %d", resp.StatusCode()))
	case Fatal:
		return newFailure(Fatal, a.exchange, 0, fmt.Errorf("HTTP %d: %s", resp.StatusCode(), string(resp.Body())))
	}
	return nil
}
