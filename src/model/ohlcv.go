package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OHLCV is a single candlestick: the open/high/low/close prices and traded
// volume for one interval beginning at TimestampMs (UTC, milliseconds).
//
// Identity is (Exchange, Symbol, Interval, TimestampMs); upsert overwrites
// the OHLCV fields of an existing row, never the identity. Prices carry at
// least 8 fractional digits, volume at least 4, per spec.md §3.
type OHLCV struct {
	ID          uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	Exchange    string          `json:"exchange" gorm:"type:varchar(32);not null;uniqueIndex:ux_ohlcv_key,priority:1;index:idx_ohlcv_lookup,priority:1"`
	Symbol      string          `json:"symbol" gorm:"type:varchar(32);not null;uniqueIndex:ux_ohlcv_key,priority:2;index:idx_ohlcv_lookup,priority:2"`
	Interval    string          `json:"interval" gorm:"column:interval;type:varchar(8);not null;uniqueIndex:ux_ohlcv_key,priority:3;index:idx_ohlcv_lookup,priority:3"`
	TimestampMs int64           `json:"timestamp_ms" gorm:"column:timestamp;not null;uniqueIndex:ux_ohlcv_key,priority:4;index:idx_ohlcv_lookup,priority:4"`
	Open        decimal.Decimal `json:"open" gorm:"type:decimal(18,8);not null"`
	High        decimal.Decimal `json:"high" gorm:"type:decimal(18,8);not null"`
	Low         decimal.Decimal `json:"low" gorm:"type:decimal(18,8);not null"`
	Close       decimal.Decimal `json:"close" gorm:"type:decimal(18,8);not null"`
	Volume      decimal.Decimal `json:"volume" gorm:"type:decimal(18,4);not null"`
	CreatedAt   time.Time       `json:"created_at" gorm:"autoCreateTime"`
}

func (OHLCV) TableName() string {
	return "ohlcv"
}

type invalidOHLCVError string

func (e invalidOHLCVError) Error() string { return "invalid ohlcv: " + string(e) }

// Validate enforces the OHLCV invariants from spec.md §3:
// low <= open,close <= high, low <= high, volume >= 0.
func (o OHLCV) Validate() error {
	if o.Low.GreaterThan(o.Open) || o.Open.GreaterThan(o.High) {
		return invalidOHLCVError("open out of [low, high] range")
	}
	if o.Low.GreaterThan(o.Close) || o.Close.GreaterThan(o.High) {
		return invalidOHLCVError("close out of [low, high] range")
	}
	if o.Low.GreaterThan(o.High) {
		return invalidOHLCVError("low greater than high")
	}
	if o.Volume.IsNegative() {
		return invalidOHLCVError("volume is negative")
	}
	return nil
}

// Equal compares two records field by field, used by round-trip tests.
func (o OHLCV) Equal(other OHLCV) bool {
	return o.Exchange == other.Exchange &&
		o.Symbol == other.Symbol &&
		o.Interval == other.Interval &&
		o.TimestampMs == other.TimestampMs &&
		o.Open.Equal(other.Open) &&
		o.High.Equal(other.High) &&
		o.Low.Equal(other.Low) &&
		o.Close.Equal(other.Close) &&
		o.Volume.Equal(other.Volume)
}

// ToDict mirrors the python domain model's to_dict(): a plain map with
// decimals stringified, used by the cache serializer.
func (o OHLCV) ToDict() map[string]any {
	return map[string]any{
		"exchange":     o.Exchange,
		"symbol":       o.Symbol,
		"interval":     o.Interval,
		"timestamp_ms": o.TimestampMs,
		"open":         o.Open.String(),
		"high":         o.High.String(),
		"low":          o.Low.String(),
		"close":        o.Close.String(),
		"volume":       o.Volume.String(),
	}
}

// OHLCVFromDict is the inverse of ToDict, used when deserializing cache
// entries. It does not set ID or CreatedAt, which are store-only concerns.
func OHLCVFromDict(d map[string]any) (OHLCV, error) {
	str := func(k string) string {
		v, _ := d[k].(string)
		return v
	}
	open, err := decimal.NewFromString(str("open"))
	if err != nil {
		return OHLCV{}, err
	}
	high, err := decimal.NewFromString(str("high"))
	if err != nil {
		return OHLCV{}, err
	}
	low, err := decimal.NewFromString(str("low"))
	if err != nil {
		return OHLCV{}, err
	}
	cls, err := decimal.NewFromString(str("close"))
	if err != nil {
		return OHLCV{}, err
	}
	vol, err := decimal.NewFromString(str("volume"))
	if err != nil {
		return OHLCV{}, err
	}

	var ts int64
	switch v := d["timestamp_ms"].(type) {
	case int64:
		ts = v
	case float64:
		ts = int64(v)
	}

	return OHLCV{
		Exchange:    str("exchange"),
		Symbol:      str("symbol"),
		Interval:    str("interval"),
		TimestampMs: ts,
		Open:        open,
		High:        high,
		Low:         low,
		Close:       cls,
		Volume:      vol,
	}, nil
}
