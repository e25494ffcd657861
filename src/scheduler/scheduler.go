// Package scheduler drives periodic candle/ticker collection, gap-fill,
// and per-exchange rate-limit pausing, grounded on the teacher's
// StartLoop ticker-and-select idiom (src/executors/start_loop.go) and
// python infrastructure/scheduler.py's CollectionScheduler.
package scheduler

import (
	"context"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"

	"marketdatasvc/src/adapter"
	"marketdatasvc/src/model"
	"marketdatasvc/src/repository"
)

// CandleTuple identifies one periodic OHLCV collection job.
type CandleTuple struct {
	Exchange string
	Symbol   string
	Interval model.Interval
}

// TickerTuple identifies one periodic ticker collection job.
type TickerTuple struct {
	Exchange string
	Symbol   string
}

const tickerCollectionPeriod = 10 * time.Second

// Scheduler owns the job set, the pause gate, and the gap-fill worker
// pool. One instance runs for the lifetime of the process.
type Scheduler struct {
	clients    map[string]adapter.Adapter
	candleRepo *repository.CandleRepository
	tickerRepo *repository.TickerRepository
	pause      *PauseGate
	tailN      int
	gapFill    *gapFillRunner
	log        *logger.Entry
	wg         sync.WaitGroup
}

// New builds a Scheduler. tailN is the periodic candle job's lookback
// window (default 10, spec.md §4.6/§9).
func New(clients map[string]adapter.Adapter, candleRepo *repository.CandleRepository, tickerRepo *repository.TickerRepository, tailN int) *Scheduler {
	if tailN <= 0 {
		tailN = 10
	}
	pause := NewPauseGate()
	return &Scheduler{
		clients:    clients,
		candleRepo: candleRepo,
		tickerRepo: tickerRepo,
		pause:      pause,
		tailN:      tailN,
		gapFill:    newGapFillRunner(clients, candleRepo, pause, 4),
		log:        logger.WithField("component", "scheduler"),
	}
}

// PauseGate exposes the pause gate so the admin API can set/clear
// pauses out-of-band (spec.md §4.6).
func (s *Scheduler) PauseGate() *PauseGate { return s.pause }

// HasExchange reports whether id has a configured adapter.
func (s *Scheduler) HasExchange(id string) bool {
	_, ok := s.clients[id]
	return ok
}

// TriggerGapFill enqueues one gap-fill task onto the bounded worker
// pool and returns immediately (spec.md §4.7 trigger_gap_fill).
func (s *Scheduler) TriggerGapFill(tuple CandleTuple, days int) bool {
	return s.gapFill.enqueue(tuple, days)
}

// RunGapFillSync runs one gap-fill task on the calling goroutine instead
// of enqueuing it, used by the marketdatactl gapfill subcommand where an
// operator wants to wait for the backfill to finish.
func (s *Scheduler) RunGapFillSync(ctx context.Context, tuple CandleTuple, days int) {
	s.gapFill.run(ctx, tuple, days)
}

// Start registers a candle job per CandleTuple and a ticker job per
// TickerTuple, and — when gapFillEnabled — enqueues one startup
// gap-fill task per candle tuple onto the bounded worker pool (spec.md
// §9's "startup gap-fill storm" note). Start returns immediately; jobs
// run until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context, candleTuples []CandleTuple, tickerTuples []TickerTuple, gapFillEnabled bool, gapFillDays int) {
	s.gapFill.start(ctx)

	for _, t := range candleTuples {
		ms, err := model.IntervalMillis(t.Interval)
		if err != nil {
			s.log.WithField("interval", t.Interval).Warn("scheduler_unknown_interval_skipped")
			continue
		}
		s.wg.Add(1)
		go s.runCandleJob(ctx, t, time.Duration(ms)*time.Millisecond)

		if gapFillEnabled {
			s.gapFill.enqueue(t, gapFillDays)
		}
	}

	for _, t := range tickerTuples {
		s.wg.Add(1)
		go s.runTickerJob(ctx, t)
	}

	s.log.WithFields(logger.Fields{
		"candle_jobs": len(candleTuples),
		"ticker_jobs": len(tickerTuples),
		"gap_fill":    gapFillEnabled,
	}).Info("scheduler_started")
}

// Stop waits for in-flight jobs to observe ctx cancellation and return.
// The caller is responsible for cancelling the context Start was given.
func (s *Scheduler) Stop() {
	s.wg.Wait()
	s.gapFill.stop()
	s.log.Info("scheduler_stopped")
}

func (s *Scheduler) runCandleJob(ctx context.Context, t CandleTuple, period time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.collectCandles(ctx, t)
		}
	}
}

func (s *Scheduler) collectCandles(ctx context.Context, t CandleTuple) {
	log := s.log.WithFields(logger.Fields{"exchange": t.Exchange, "symbol": t.Symbol, "interval": t.Interval})

	if s.pause.IsPaused(t.Exchange) {
		log.Debug("ohlcv_collection_skipped")
		return
	}

	client, ok := s.clients[t.Exchange]
	if !ok {
		log.Error("ohlcv_collection_failed: exchange client not found")
		return
	}

	deltaMs, err := model.IntervalMillis(t.Interval)
	if err != nil {
		log.WithError(err).Error("ohlcv_collection_failed: unknown interval")
		return
	}
	sinceMs := model.AlignDown(time.Now().UnixMilli(), t.Interval) - int64(s.tailN-1)*deltaMs

	records, err := client.FetchCandles(ctx, t.Symbol, t.Interval, sinceMs, s.tailN)
	if err != nil {
		s.handleAdapterErr(t.Exchange, err, log, "ohlcv_collection_failed")
		return
	}

	n, err := s.candleRepo.Save(ctx, records)
	if err != nil {
		log.WithError(err).Error("ohlcv_collection_failed")
		return
	}
	log.WithField("count", n).Info("ohlcv_collected")
}

func (s *Scheduler) runTickerJob(ctx context.Context, t TickerTuple) {
	defer s.wg.Done()
	ticker := time.NewTicker(tickerCollectionPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.collectTicker(ctx, t)
		}
	}
}

func (s *Scheduler) collectTicker(ctx context.Context, t TickerTuple) {
	log := s.log.WithFields(logger.Fields{"exchange": t.Exchange, "symbol": t.Symbol})

	if s.pause.IsPaused(t.Exchange) {
		log.Debug("ticker_collection_skipped")
		return
	}

	client, ok := s.clients[t.Exchange]
	if !ok {
		log.Error("ticker_collection_failed: exchange client not found")
		return
	}

	tick, err := client.FetchTicker(ctx, t.Symbol)
	if err != nil {
		s.handleAdapterErr(t.Exchange, err, log, "ticker_collection_failed")
		return
	}

	if err := s.tickerRepo.Save(ctx, tick); err != nil {
		log.WithError(err).Error("ticker_collection_failed")
		return
	}
	log.WithField("last", tick.Last.String()).Debug("ticker_collected")
}

// handleAdapterErr engages the pause gate on RateLimited, otherwise
// just logs — both periodic jobs and gap-fill share this policy.
func (s *Scheduler) handleAdapterErr(exchange string, err error, log *logger.Entry, event string) {
	if f, ok := err.(*adapter.Failure); ok && f.Kind == adapter.RateLimited {
		s.pause.Pause(exchange, f.RetryAfterSec)
		log.WithField("retry_after_seconds", f.RetryAfterSec).Warn("exchange_paused")
		return
	}
	log.WithError(err).Error(event)
}
