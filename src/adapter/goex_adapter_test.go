package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketdatasvc/src/model"
)

func TestGoexCurrencyPair(t *testing.T) {
	pair, err := goexCurrencyPair("BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, "BTC", pair.CurrencyA.Symbol)
	assert.Equal(t, "USDT", pair.CurrencyB.Symbol)

	_, err = goexCurrencyPair("BTCUSDT")
	assert.Error(t, err)
}

func TestGoexAdapter_ClassifyErr(t *testing.T) {
	a := NewGoexAdapter("binance", "")

	f := a.classifyErr(errors.New("429 Too Many Requests"))
	assert.Equal(t, RateLimited, f.Kind)
	assert.Equal(t, 60, f.RetryAfterSec)

	f = a.classifyErr(errors.New("connection reset by peer"))
	assert.Equal(t, Transient, f.Kind)
}

func TestGoexAdapter_FetchCandlesUnsupportedInterval(t *testing.T) {
	a := NewGoexAdapter("binance", "")
	_, err := a.FetchCandles(context.Background(), "BTC/USDT", model.Interval("6M"), 0, 10)
	require.Error(t, err)

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, Fatal, failure.Kind)
}
