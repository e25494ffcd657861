package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	logger "github.com/sirupsen/logrus"

	"marketdatasvc/src/adapter"
	"marketdatasvc/src/api"
	"marketdatasvc/src/cache"
	"marketdatasvc/src/config"
	"marketdatasvc/src/database"
	"marketdatasvc/src/model"
	"marketdatasvc/src/repository"
	"marketdatasvc/src/scheduler"
	"marketdatasvc/src/server"
	"marketdatasvc/src/store"
)

// setupLogger mirrors the teacher's root main.go SetupLogger, reading
// LOG_LEVEL with a safe fallback instead of failing to start.
func setupLogger(level string) {
	parsed, err := logger.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = logger.InfoLevel
	}
	logger.SetLevel(parsed)
	logger.SetFormatter(&logger.TextFormatter{FullTimestamp: true})
}

func buildAdapter(cfg config.ExchangeConfig) (adapter.Adapter, error) {
	switch cfg.Driver {
	case "", "goex":
		return adapter.NewGoexAdapter(cfg.ID, cfg.BaseURL), nil
	case "rest":
		return adapter.NewRestAdapter(cfg.ID, cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown adapter driver %q for exchange %q", cfg.Driver, cfg.ID)
	}
}

func main() {
	defer handlePanic()

	settings, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}
	setupLogger(settings.LogLevel)

	dbCfg := database.Config{
		DatabaseURL:  settings.DatabaseURL,
		GormLogLevel: 2,
		MaxOpenConns: settings.DBPoolSize,
		MaxIdleConns: settings.DBPoolSize,
	}
	if err := database.InitDB(logger.WithField("component", "database"), dbCfg); err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}

	clients := make(map[string]adapter.Adapter, len(settings.Exchanges))
	exchangeSymbols := make(api.ExchangeSymbols, len(settings.Exchanges))
	for _, ex := range settings.Exchanges {
		a, err := buildAdapter(ex)
		if err != nil {
			logger.WithError(err).Fatal("failed to build exchange adapter")
		}
		clients[ex.ID] = a
		exchangeSymbols[ex.ID] = ex.Symbols
	}

	c := cache.NewCache(settings.RedisAddr, settings.OHLCVCacheCap, settings.TickerTTLSec)
	candleStore := store.NewCandleStore(database.MainDB)
	candleRepo := repository.NewCandleRepository(candleStore, c)
	tickerRepo := repository.NewTickerRepository(c, clients)

	sched := scheduler.New(clients, candleRepo, tickerRepo, settings.CandleTailN)

	intervals := make([]model.Interval, 0, len(settings.Timeframes))
	for _, tf := range settings.Timeframes {
		intervals = append(intervals, model.Interval(tf))
	}

	var candleTuples []scheduler.CandleTuple
	var tickerTuples []scheduler.TickerTuple
	for _, ex := range settings.Exchanges {
		for _, symbol := range ex.Symbols {
			tickerTuples = append(tickerTuples, scheduler.TickerTuple{Exchange: ex.ID, Symbol: symbol})
			for _, tf := range settings.Timeframes {
				candleTuples = append(candleTuples, scheduler.CandleTuple{
					Exchange: ex.ID, Symbol: symbol, Interval: model.Interval(tf),
				})
			}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx, candleTuples, tickerTuples, settings.GapFillEnable, settings.GapFillDays)
	defer sched.Stop()

	a := api.New(candleRepo, tickerRepo, sched, exchangeSymbols, intervals)
	srv := server.New(a, candleStore, c, clients, settings.BearerToken)
	srv.Start(settings.ListenAddr)

	cancel()
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error("marketdatasvc panic")
		os.Exit(1)
	}
}
