package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"marketdatasvc/src/model"
)

// MainDB is the single process-wide database handle, following the
// teacher's own use of a package-global *gorm.DB.
var MainDB *gorm.DB

// InitDB opens the write-side connection, tunes the pool per cfg, and
// automigrates the candle schema. Called once at startup.
func InitDB(log *logrus.Entry, cfg Config) error {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.LogLevel(cfg.GormLogLevel)),
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB from gorm: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(1 * time.Hour)

	if err := db.AutoMigrate(&model.OHLCV{}); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}

	MainDB = db
	log.Info("database connection established")
	return nil
}
