package main

import (
	"context"
	"fmt"
	"os"

	logrus "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"marketdatasvc/src/adapter"
	"marketdatasvc/src/cache"
	"marketdatasvc/src/config"
	"marketdatasvc/src/database"
	"marketdatasvc/src/model"
	"marketdatasvc/src/repository"
	"marketdatasvc/src/scheduler"
	"marketdatasvc/src/store"
)

// marketdatactl is the operator-facing companion to marketdatasvc: the
// HTTP admin endpoints enqueue gap-fill onto the running service's worker
// pool, this CLI runs one gap-fill synchronously against the same store,
// for operators who'd rather not go through HTTP (SPEC_FULL.md §4.9).
func main() {
	app := cli.NewApp()
	app.Name = "marketdatactl"
	app.Usage = "operator CLI for the market-data ingestion service"

	app.Commands = []cli.Command{
		gapFillCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var gapFillCMD = cli.Command{
	Name:      "gapfill",
	Usage:     "backfill missing candles for one exchange/symbol/interval",
	ArgsUsage: "",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "exchange", Usage: "exchange id, e.g. binance"},
		cli.StringFlag{Name: "symbol", Usage: "BASE/QUOTE symbol, e.g. BTC/USDT"},
		cli.StringFlag{Name: "interval", Usage: "candle interval, e.g. 1h"},
		cli.IntFlag{Name: "days", Value: 7, Usage: "lookback window in days, 1-365"},
	},
	Action: gapFillAction,
}

func gapFillAction(c *cli.Context) error {
	exchange := c.String("exchange")
	symbol := c.String("symbol")
	interval := c.String("interval")
	days := c.Int("days")
	if exchange == "" || symbol == "" || interval == "" {
		return fmt.Errorf("gapfill requires --exchange, --symbol and --interval")
	}
	if !model.IsValidInterval(interval) {
		return fmt.Errorf("invalid interval %q", interval)
	}
	if days < 1 || days > 365 {
		return fmt.Errorf("days must be between 1 and 365")
	}

	settings, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	var exCfg *config.ExchangeConfig
	for i := range settings.Exchanges {
		if settings.Exchanges[i].ID == exchange {
			exCfg = &settings.Exchanges[i]
			break
		}
	}
	if exCfg == nil {
		return fmt.Errorf("exchange %q is not configured", exchange)
	}

	dbCfg := database.Config{
		DatabaseURL:  settings.DatabaseURL,
		GormLogLevel: 2,
		MaxOpenConns: settings.DBPoolSize,
		MaxIdleConns: settings.DBPoolSize,
	}
	if err := database.InitDB(logrus.WithField("component", "database"), dbCfg); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}

	var client adapter.Adapter
	switch exCfg.Driver {
	case "", "goex":
		client = adapter.NewGoexAdapter(exCfg.ID, exCfg.BaseURL)
	case "rest":
		client = adapter.NewRestAdapter(exCfg.ID, exCfg.BaseURL)
	default:
		return fmt.Errorf("unknown adapter driver %q", exCfg.Driver)
	}
	clients := map[string]adapter.Adapter{exchange: client}

	redisCache := cache.NewCache(settings.RedisAddr, settings.OHLCVCacheCap, settings.TickerTTLSec)
	candleStore := store.NewCandleStore(database.MainDB)
	candleRepo := repository.NewCandleRepository(candleStore, redisCache)
	tickerRepo := repository.NewTickerRepository(redisCache, clients)
	sched := scheduler.New(clients, candleRepo, tickerRepo, settings.CandleTailN)

	logrus.WithFields(logrus.Fields{
		"exchange": exchange, "symbol": symbol, "interval": interval, "days": days,
	}).Info("gapfill_cli_started")

	sched.RunGapFillSync(context.Background(), scheduler.CandleTuple{
		Exchange: exchange,
		Symbol:   symbol,
		Interval: model.Interval(interval),
	}, days)

	logrus.Info("gapfill_cli_finished")
	return nil
}
