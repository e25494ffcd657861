package api

import (
	"marketdatasvc/src/model"
	"marketdatasvc/src/repository"
	"marketdatasvc/src/scheduler"
)

// ExchangeSymbols maps a configured exchange id to its configured
// symbols, used by list_tickers and the batch gap-fill cross-product.
type ExchangeSymbols map[string][]string

// API is the framework-agnostic operation surface spec.md §4.7
// describes. src/server adapts these to chi handlers.
type API struct {
	candleRepo *repository.CandleRepository
	tickerRepo *repository.TickerRepository
	sched      *scheduler.Scheduler
	exchanges  ExchangeSymbols
	intervals  []model.Interval
}

func New(candleRepo *repository.CandleRepository, tickerRepo *repository.TickerRepository, sched *scheduler.Scheduler, exchanges ExchangeSymbols, intervals []model.Interval) *API {
	return &API{
		candleRepo: candleRepo,
		tickerRepo: tickerRepo,
		sched:      sched,
		exchanges:  exchanges,
		intervals:  intervals,
	}
}

func (a *API) hasExchange(exchange string) bool {
	_, ok := a.exchanges[exchange]
	return ok
}
