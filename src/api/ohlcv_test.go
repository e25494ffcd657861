package api

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketdatasvc/src/apperr"
)

func TestGetCandles_InvalidSymbol(t *testing.T) {
	a := newTestAPI(t)
	_, err := a.GetCandles(context.Background(), GetCandlesParams{Exchange: "binance", Symbol: "BTCUSDT", Interval: "1m", Limit: 10})
	require.NotNil(t, err)
	assert.Equal(t, apperr.CodeInvalidSymbol, err.Code)
}

func TestGetCandles_InvalidInterval(t *testing.T) {
	a := newTestAPI(t)
	_, err := a.GetCandles(context.Background(), GetCandlesParams{Exchange: "binance", Symbol: "BTC/USDT", Interval: "7m", Limit: 10})
	require.NotNil(t, err)
	assert.Equal(t, apperr.CodeInvalidTimeframe, err.Code)
}

func TestGetCandles_TimeRangeExceeds30Days(t *testing.T) {
	a := newTestAPI(t)
	start := int64(0)
	end := int64(31 * 24 * 60 * 60 * 1000)
	_, err := a.GetCandles(context.Background(), GetCandlesParams{
		Exchange: "binance", Symbol: "BTC/USDT", Interval: "1h", Start: &start, End: &end, Limit: 10,
	})
	require.NotNil(t, err)
	assert.Equal(t, apperr.CodeInvalidTimeRange, err.Code)
}

func TestGetCandles_EndBeforeStart(t *testing.T) {
	a := newTestAPI(t)
	start := int64(1000)
	end := int64(500)
	_, err := a.GetCandles(context.Background(), GetCandlesParams{
		Exchange: "binance", Symbol: "BTC/USDT", Interval: "1h", Start: &start, End: &end, Limit: 10,
	})
	require.NotNil(t, err)
	assert.Equal(t, apperr.CodeInvalidTimeRange, err.Code)
}

func TestGetCandles_UnknownExchange(t *testing.T) {
	a := newTestAPI(t)
	_, err := a.GetCandles(context.Background(), GetCandlesParams{Exchange: "bogus", Symbol: "BTC/USDT", Interval: "1m", Limit: 10})
	require.NotNil(t, err)
	assert.Equal(t, apperr.CodeInvalidExchange, err.Code)
}

func TestGetCandles_Success(t *testing.T) {
	a := newTestAPI(t)
	seedCandle(t, a, "binance", "BTC/USDT", 0)

	res, err := a.GetCandles(context.Background(), GetCandlesParams{Exchange: "binance", Symbol: "BTC/USDT", Interval: "1m", Limit: 10})
	require.Nil(t, err)
	require.Len(t, res.Data, 1)
}

func TestBatchCandles_TooManySymbols(t *testing.T) {
	a := newTestAPI(t)
	symbols := make([]string, 21)
	for i := range symbols {
		symbols[i] = "BTC/USDT"
	}
	_, err := a.BatchCandles(context.Background(), BatchCandlesParams{Exchange: "binance", Symbols: symbols, Interval: "1m"})
	require.NotNil(t, err)
	assert.Equal(t, apperr.CodeBatchSizeExceeded, err.Code)
}

// S6 Batch partial success.
func TestBatchCandles_PartialSuccess(t *testing.T) {
	a := newTestAPI(t)
	seedCandle(t, a, "binance", "BTC/USDT", 0)

	res, err := a.BatchCandles(context.Background(), BatchCandlesParams{
		Exchange: "binance", Symbols: []string{"BTC/USDT", "NOSUCHPAIR"}, Interval: "1m",
	})
	require.Nil(t, err)
	assert.Len(t, res.Data["BTC/USDT"], 1)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "NOSUCHPAIR", res.Errors[0].Symbol)
}
