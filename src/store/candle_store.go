// Package store is the gorm-backed candle store: idempotent upsert, a
// cursor-paginated range query, and a timestamp projection used by
// gap-fill. The store is the single source of truth for OHLCV history
// (spec.md §4.1).
package store

import (
	"context"
	"fmt"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketdatasvc/src/model"
)

// CandleStore wraps a *gorm.DB scoped to the OHLCV table.
type CandleStore struct {
	db  *gorm.DB
	log *logger.Entry
}

// NewCandleStore builds a store over db, following the teacher's
// constructor-takes-a-*gorm.DB convention (NewOHLCVRepositoryRepositoryWithDB).
func NewCandleStore(db *gorm.DB) *CandleStore {
	return &CandleStore{
		db:  db,
		log: logger.WithField("component", "candle_store"),
	}
}

// Upsert batch-inserts records, overwriting open/high/low/close/volume on
// conflict with the (exchange,symbol,interval,timestamp) unique key. The
// whole batch commits or the batch is reported as failed — no partial
// success is surfaced to the caller.
func (s *CandleStore) Upsert(ctx context.Context, records []model.OHLCV) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	for i := range records {
		if records[i].ID == uuidZero {
			records[i].ID = newUUID()
		}
		if err := records[i].Validate(); err != nil {
			return 0, fmt.Errorf("store: invalid record at index %d: %w", i, err)
		}
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "exchange"}, {Name: "symbol"}, {Name: "interval"}, {Name: "timestamp"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume"}),
	}).Create(&records).Error
	if err != nil {
		s.log.WithError(err).WithField("count", len(records)).Error("ohlcv_upsert_failed")
		return 0, err
	}
	return len(records), nil
}

// QueryResult is one page of a range query plus the cursor for the next
// page, if more rows exist beyond it.
type QueryResult struct {
	Records    []model.OHLCV
	NextCursor *int64
}

// QueryParams narrows a range query; StartMs/EndMs are inclusive bounds
// and Cursor is a strict lower bound (rows returned have
// timestamp_ms > Cursor).
type QueryParams struct {
	Exchange string
	Symbol   string
	Interval model.Interval
	StartMs  *int64
	EndMs    *int64
	Cursor   *int64
	Limit    int
}

// Query returns rows in ascending timestamp order, cursor-paginated.
// Offset-based paging is never exposed: cursor pagination stays stable
// under concurrent writes.
func (s *CandleStore) Query(ctx context.Context, p QueryParams) (QueryResult, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 500
	}

	tx := s.db.WithContext(ctx).
		Where("exchange = ? AND symbol = ? AND interval = ?", p.Exchange, p.Symbol, string(p.Interval))
	if p.StartMs != nil {
		tx = tx.Where("timestamp >= ?", *p.StartMs)
	}
	if p.EndMs != nil {
		tx = tx.Where("timestamp <= ?", *p.EndMs)
	}
	if p.Cursor != nil {
		tx = tx.Where("timestamp > ?", *p.Cursor)
	}

	var rows []model.OHLCV
	if err := tx.Order("timestamp ASC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return QueryResult{}, err
	}

	var next *int64
	if len(rows) > limit {
		rows = rows[:limit]
		ts := rows[len(rows)-1].TimestampMs
		next = &ts
	}
	return QueryResult{Records: rows, NextCursor: next}, nil
}

// HealthCheck pings the underlying connection pool, used by the /health
// endpoint's store component.
func (s *CandleStore) HealthCheck(ctx context.Context) bool {
	sqlDB, err := s.db.DB()
	if err != nil {
		return false
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		s.log.WithError(err).Warn("store_health_check_failed")
		return false
	}
	return true
}

// Timestamps returns every timestamp_ms on or after sinceMs for the
// tuple, used by gap-fill to diff against the expected aligned set.
func (s *CandleStore) Timestamps(ctx context.Context, exchange, symbol string, interval model.Interval, sinceMs int64) (map[int64]struct{}, error) {
	var rows []int64
	err := s.db.WithContext(ctx).
		Model(&model.OHLCV{}).
		Where("exchange = ? AND symbol = ? AND interval = ? AND timestamp >= ?", exchange, symbol, string(interval), sinceMs).
		Pluck("timestamp", &rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[int64]struct{}, len(rows))
	for _, ts := range rows {
		out[ts] = struct{}{}
	}
	return out, nil
}
