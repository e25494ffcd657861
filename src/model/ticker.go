package model

import (
	"github.com/shopspring/decimal"
)

// Ticker is a freshness-bounded last-quote snapshot for (Exchange, Symbol).
// It is never persisted to the relational store; the cache is its only
// home, bounded by TTL (spec.md §3).
type Ticker struct {
	Exchange     string           `json:"exchange"`
	Symbol       string           `json:"symbol"`
	Last         decimal.Decimal  `json:"last"`
	Bid          *decimal.Decimal `json:"bid,omitempty"`
	Ask          *decimal.Decimal `json:"ask,omitempty"`
	High24h      *decimal.Decimal `json:"high_24h,omitempty"`
	Low24h       *decimal.Decimal `json:"low_24h,omitempty"`
	Volume24h    *decimal.Decimal `json:"volume_24h,omitempty"`
	ChangePct24h *decimal.Decimal `json:"change_pct_24h,omitempty"`
	TimestampMs  int64            `json:"timestamp_ms"`
}

// Validate enforces the one cross-field invariant from spec.md §3:
// when both bid and ask are present, bid <= ask.
func (t Ticker) Validate() error {
	if t.Bid != nil && t.Ask != nil && t.Bid.GreaterThan(*t.Ask) {
		return invalidOHLCVError("bid greater than ask")
	}
	return nil
}

func decimalString(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

// ToDict mirrors the python Ticker.to_dict(): optional fields stay nil when
// unset, stringified decimals otherwise.
func (t Ticker) ToDict() map[string]any {
	return map[string]any{
		"exchange":       t.Exchange,
		"symbol":         t.Symbol,
		"last":           t.Last.String(),
		"bid":            decimalString(t.Bid),
		"ask":            decimalString(t.Ask),
		"high_24h":       decimalString(t.High24h),
		"low_24h":        decimalString(t.Low24h),
		"volume_24h":     decimalString(t.Volume24h),
		"change_pct_24h": decimalString(t.ChangePct24h),
		"timestamp_ms":   t.TimestampMs,
	}
}

func decimalFromAny(v any) (*decimal.Decimal, error) {
	if v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// TickerFromDict is the inverse of ToDict.
func TickerFromDict(d map[string]any) (Ticker, error) {
	last, err := decimal.NewFromString(d["last"].(string))
	if err != nil {
		return Ticker{}, err
	}
	bid, err := decimalFromAny(d["bid"])
	if err != nil {
		return Ticker{}, err
	}
	ask, err := decimalFromAny(d["ask"])
	if err != nil {
		return Ticker{}, err
	}
	high, err := decimalFromAny(d["high_24h"])
	if err != nil {
		return Ticker{}, err
	}
	low, err := decimalFromAny(d["low_24h"])
	if err != nil {
		return Ticker{}, err
	}
	vol, err := decimalFromAny(d["volume_24h"])
	if err != nil {
		return Ticker{}, err
	}
	chg, err := decimalFromAny(d["change_pct_24h"])
	if err != nil {
		return Ticker{}, err
	}

	var ts int64
	switch v := d["timestamp_ms"].(type) {
	case int64:
		ts = v
	case float64:
		ts = int64(v)
	}

	exchange, _ := d["exchange"].(string)
	symbol, _ := d["symbol"].(string)

	return Ticker{
		Exchange:     exchange,
		Symbol:       symbol,
		Last:         last,
		Bid:          bid,
		Ask:          ask,
		High24h:      high,
		Low24h:       low,
		Volume24h:    vol,
		ChangePct24h: chg,
		TimestampMs:  ts,
	}, nil
}
