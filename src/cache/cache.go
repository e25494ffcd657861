// Package cache wraps go-redis to provide the two best-effort cache
// namespaces spec.md §4.2 describes: a capped sorted set per OHLCV
// tuple and a TTL string per ticker. A cache miss or cache error must
// never fail a read that the store can still serve.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	logger "github.com/sirupsen/logrus"

	"marketdatasvc/src/model"
)

// Cache wraps a go-redis client with the OHLCV/ticker namespace logic,
// grounded on FOTONPHOTOS-PULSEINTEL's RedisPublisher wiring pattern
// (client held by value, Health() pinging the server).
type Cache struct {
	client         *redis.Client
	ohlcvCacheSize int64
	tickerTTLSec   int
	log            *logger.Entry
}

// NewCache opens a client against addr. ohlcvCacheSize is the per-tuple
// cap (default 500); tickerTTLSec is the ticker entry TTL (default 10).
func NewCache(addr string, ohlcvCacheSize int64, tickerTTLSec int) *Cache {
	if ohlcvCacheSize <= 0 {
		ohlcvCacheSize = 500
	}
	if tickerTTLSec <= 0 {
		tickerTTLSec = 10
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	return &Cache{
		client:         client,
		ohlcvCacheSize: ohlcvCacheSize,
		tickerTTLSec:   tickerTTLSec,
		log:            logger.WithField("component", "cache"),
	}
}

func (c *Cache) HealthCheck(ctx context.Context) bool {
	if err := c.client.Ping(ctx).Err(); err != nil {
		c.log.WithError(err).Warn("cache_health_check_failed")
		return false
	}
	return true
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func ohlcvKey(exchange, symbol string, interval model.Interval) string {
	return fmt.Sprintf("ohlcv:%s:%s:%s", exchange, symbol, interval)
}

func tickerKey(exchange, symbol string) string {
	return fmt.Sprintf("ticker:%s:%s", exchange, symbol)
}

// CacheOHLCV adds records to their sorted set (score = timestamp_ms) and
// evicts the oldest entries beyond ohlcvCacheSize, all fire-and-forget:
// a failure here is logged, not returned to the caller's write path.
func (c *Cache) CacheOHLCV(ctx context.Context, records []model.OHLCV) {
	if len(records) == 0 {
		return
	}

	byKey := make(map[string][]model.OHLCV)
	for _, r := range records {
		key := ohlcvKey(r.Exchange, r.Symbol, model.Interval(r.Interval))
		byKey[key] = append(byKey[key], r)
	}

	pipe := c.client.Pipeline()
	for key, recs := range byKey {
		members := make([]redis.Z, 0, len(recs))
		for _, r := range recs {
			payload, err := json.Marshal(r.ToDict())
			if err != nil {
				c.log.WithError(err).Warn("cache_ohlcv_marshal_failed")
				continue
			}
			members = append(members, redis.Z{Score: float64(r.TimestampMs), Member: payload})
		}
		if len(members) == 0 {
			continue
		}
		pipe.ZAdd(ctx, key, members...)
		pipe.ZRemRangeByRank(ctx, key, 0, -(c.ohlcvCacheSize + 1))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		c.log.WithError(err).Warn("cache_ohlcv_write_failed")
	}
}

// GetOHLCV reads the sorted set by score range, ascending, capped at
// limit. Returns no records on a cache miss or Redis error — callers
// fall back to the store.
func (c *Cache) GetOHLCV(ctx context.Context, exchange, symbol string, interval model.Interval, startMs, endMs *int64, limit int) []model.OHLCV {
	key := ohlcvKey(exchange, symbol, interval)

	min := "-inf"
	if startMs != nil {
		min = fmt.Sprintf("%d", *startMs)
	}
	max := "+inf"
	if endMs != nil {
		max = fmt.Sprintf("%d", *endMs)
	}

	items, err := c.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:   min,
		Max:   max,
		Count: int64(limit),
	}).Result()
	if err != nil {
		c.log.WithError(err).Debug("cache_ohlcv_read_miss")
		return nil
	}

	out := make([]model.OHLCV, 0, len(items))
	for _, item := range items {
		var d map[string]any
		if err := json.Unmarshal([]byte(item), &d); err != nil {
			continue
		}
		rec, err := model.OHLCVFromDict(d)
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// CacheTicker stores ticker with a TTL of tickerTTLSec. The ticker cache
// is the only store for tickers — a write failure here means the venue
// quote is lost until the next scheduled poll.
func (c *Cache) CacheTicker(ctx context.Context, t model.Ticker) error {
	payload, err := json.Marshal(t.ToDict())
	if err != nil {
		return err
	}
	key := tickerKey(t.Exchange, t.Symbol)
	return c.client.SetEx(ctx, key, payload, time.Duration(c.tickerTTLSec)*time.Second).Err()
}

// GetTicker returns the cached ticker and its age in milliseconds,
// computed from the residual TTL rather than the venue timestamp
// (spec.md §9). ok is false on a cache miss or error.
func (c *Cache) GetTicker(ctx context.Context, exchange, symbol string) (t model.Ticker, ageMs int64, ok bool) {
	key := tickerKey(exchange, symbol)

	payload, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return model.Ticker{}, 0, false
	}

	var d map[string]any
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return model.Ticker{}, 0, false
	}
	t, err = model.TickerFromDict(d)
	if err != nil {
		return model.Ticker{}, 0, false
	}

	ttl, err := c.client.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		return t, 0, true
	}
	ageSec := c.tickerTTLSec - int(ttl.Seconds())
	if ageSec < 0 {
		ageSec = 0
	}
	return t, int64(ageSec) * 1000, true
}
