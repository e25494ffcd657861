package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"marketdatasvc/src/model"
)

func newSQLiteStore(t *testing.T) *CandleStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.OHLCV{}))
	return NewCandleStore(db)
}

func candle(ts int64) model.OHLCV {
	return model.OHLCV{
		Exchange:    "binance",
		Symbol:      "BTC/USDT",
		Interval:    string(model.Interval1m),
		TimestampMs: ts,
		Open:        decimal.NewFromInt(100),
		High:        decimal.NewFromInt(110),
		Low:         decimal.NewFromInt(90),
		Close:       decimal.NewFromInt(105),
		Volume:      decimal.NewFromInt(5),
	}
}

// S1 Idempotent upsert: re-ingesting an already-stored candle does not
// create a duplicate row and overwrites its OHLCV fields.
func TestCandleStore_UpsertIdempotent(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	n, err := s.Upsert(ctx, []model.OHLCV{candle(1000)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	updated := candle(1000)
	updated.Close = decimal.NewFromInt(999)
	_, err = s.Upsert(ctx, []model.OHLCV{updated})
	require.NoError(t, err)

	res, err := s.Query(ctx, QueryParams{Exchange: "binance", Symbol: "BTC/USDT", Interval: model.Interval1m, Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.True(t, res.Records[0].Close.Equal(decimal.NewFromInt(999)))
}

// S2 Cursor paging: successive pages driven by nextCursor cover the full
// range exactly once, in ascending order, with no offset-based paging.
func TestCandleStore_QueryCursorPaging(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	var seed []model.OHLCV
	for i := int64(0); i < 5; i++ {
		seed = append(seed, candle(i*60_000))
	}
	_, err := s.Upsert(ctx, seed)
	require.NoError(t, err)

	var seen []int64
	var cursor *int64
	for {
		res, err := s.Query(ctx, QueryParams{
			Exchange: "binance", Symbol: "BTC/USDT", Interval: model.Interval1m,
			Cursor: cursor, Limit: 2,
		})
		require.NoError(t, err)
		for _, r := range res.Records {
			seen = append(seen, r.TimestampMs)
		}
		if res.NextCursor == nil {
			break
		}
		cursor = res.NextCursor
	}

	assert.Equal(t, []int64{0, 60_000, 120_000, 180_000, 240_000}, seen)
}

func TestCandleStore_Timestamps(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	_, err := s.Upsert(ctx, []model.OHLCV{candle(0), candle(60_000), candle(120_000)})
	require.NoError(t, err)

	ts, err := s.Timestamps(ctx, "binance", "BTC/USDT", model.Interval1m, 60_000)
	require.NoError(t, err)
	assert.Len(t, ts, 2)
	_, ok := ts[60_000]
	assert.True(t, ok)
	_, ok = ts[120_000]
	assert.True(t, ok)
}

// TestCandleStore_UpsertSQL verifies the upsert issues an ON CONFLICT
// clause against the composite identity key, following the teacher's
// newMockDB sqlmock harness.
func TestCandleStore_UpsertSQL(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	})
	gdb, err := gorm.Open(dialector, &gorm.Config{})
	require.NoError(t, err)

	s := NewCandleStore(gdb)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "ohlcv" .* ON CONFLICT`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err = s.Upsert(context.Background(), []model.OHLCV{candle(1000)})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
