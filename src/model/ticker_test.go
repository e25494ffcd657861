package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTicker() Ticker {
	bid := decimal.RequireFromString("49999.5")
	ask := decimal.RequireFromString("50000.5")
	high := decimal.RequireFromString("51000")
	low := decimal.RequireFromString("49000")
	vol := decimal.RequireFromString("1000.1234")
	chg := decimal.RequireFromString("2.5")
	return Ticker{
		Exchange:     "binance",
		Symbol:       "BTC/USDT",
		Last:         decimal.RequireFromString("50000"),
		Bid:          &bid,
		Ask:          &ask,
		High24h:      &high,
		Low24h:       &low,
		Volume24h:    &vol,
		ChangePct24h: &chg,
		TimestampMs:  1_700_000_000_000,
	}
}

// S7: round trip through to_dict/from_dict, including the optional fields.
func TestTicker_ToDictFromDictRoundTrip(t *testing.T) {
	tk := sampleTicker()
	d := tk.ToDict()

	back, err := TickerFromDict(d)
	require.NoError(t, err)

	assert.True(t, tk.Last.Equal(back.Last))
	assert.True(t, tk.Bid.Equal(*back.Bid))
	assert.True(t, tk.Ask.Equal(*back.Ask))
	assert.True(t, tk.High24h.Equal(*back.High24h))
	assert.True(t, tk.Low24h.Equal(*back.Low24h))
	assert.True(t, tk.Volume24h.Equal(*back.Volume24h))
	assert.True(t, tk.ChangePct24h.Equal(*back.ChangePct24h))
	assert.Equal(t, tk.Exchange, back.Exchange)
	assert.Equal(t, tk.Symbol, back.Symbol)
	assert.Equal(t, tk.TimestampMs, back.TimestampMs)
}

func TestTicker_ToDictFromDictRoundTrip_OptionalFieldsNil(t *testing.T) {
	tk := Ticker{Exchange: "binance", Symbol: "BTC/USDT", Last: decimal.NewFromInt(100), TimestampMs: 1}
	d := tk.ToDict()

	back, err := TickerFromDict(d)
	require.NoError(t, err)

	assert.Nil(t, back.Bid)
	assert.Nil(t, back.Ask)
	assert.True(t, tk.Last.Equal(back.Last))
}

func TestTicker_Validate(t *testing.T) {
	tk := sampleTicker()
	assert.NoError(t, tk.Validate())

	inverted := tk
	bid := decimal.RequireFromString("60000")
	inverted.Bid = &bid
	assert.Error(t, inverted.Validate())
}
