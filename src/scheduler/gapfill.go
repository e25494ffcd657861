package scheduler

import (
	"context"
	"sort"
	"time"

	logger "github.com/sirupsen/logrus"

	"marketdatasvc/src/adapter"
	"marketdatasvc/src/model"
	"marketdatasvc/src/repository"
)

const maxGapFillBatch = 1000

// gapFillTask is one unit of work for the worker pool: reconcile a
// single (exchange, symbol, interval) tuple over the last days window.
type gapFillTask struct {
	tuple CandleTuple
	days  int
}

// gapFillRunner is the bounded worker pool spec.md §9's "startup
// gap-fill storm" note calls for: a fixed goroutine count draining a
// buffered channel, adapted from the teacher's single-ticker-goroutine
// StartLoop idiom generalized to N workers.
type gapFillRunner struct {
	clients    map[string]adapter.Adapter
	candleRepo *repository.CandleRepository
	pause      *PauseGate
	workers    int
	tasks      chan gapFillTask
	log        *logger.Entry
}

func newGapFillRunner(clients map[string]adapter.Adapter, candleRepo *repository.CandleRepository, pause *PauseGate, workers int) *gapFillRunner {
	if workers <= 0 {
		workers = 4
	}
	return &gapFillRunner{
		clients:    clients,
		candleRepo: candleRepo,
		pause:      pause,
		workers:    workers,
		tasks:      make(chan gapFillTask, 256),
		log:        logger.WithField("component", "gap_fill"),
	}
}

func (r *gapFillRunner) start(ctx context.Context) {
	for i := 0; i < r.workers; i++ {
		go r.worker(ctx)
	}
}

func (r *gapFillRunner) stop() {
	close(r.tasks)
}

// enqueue is fire-and-forget: a full queue drops the task rather than
// blocking the caller (spec.md §9 "admin dispatch is fire-and-forget").
func (r *gapFillRunner) enqueue(tuple CandleTuple, days int) bool {
	select {
	case r.tasks <- gapFillTask{tuple: tuple, days: days}:
		return true
	default:
		r.log.WithFields(logger.Fields{"exchange": tuple.Exchange, "symbol": tuple.Symbol, "interval": tuple.Interval}).
			Warn("gap_fill_enqueue_dropped_queue_full")
		return false
	}
}

func (r *gapFillRunner) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-r.tasks:
			if !ok {
				return
			}
			r.run(ctx, task.tuple, task.days)
		}
	}
}

// run implements spec.md §4.6's gap-fill algorithm: align the window,
// diff expected vs. present timestamps, collapse the result into
// contiguous runs, and backfill each run in batches of at most 1000,
// with a 1s courtesy sleep between remote calls.
func (r *gapFillRunner) run(ctx context.Context, t CandleTuple, days int) {
	log := r.log.WithFields(logger.Fields{"exchange": t.Exchange, "symbol": t.Symbol, "interval": t.Interval})

	if r.pause.IsPaused(t.Exchange) {
		log.Debug("gap_fill_skipped")
		return
	}

	client, ok := r.clients[t.Exchange]
	if !ok {
		log.Error("gap_fill_failed: exchange client not found")
		return
	}

	deltaMs, err := model.IntervalMillis(t.Interval)
	if err != nil || deltaMs <= 0 {
		log.WithError(err).Error("gap_fill_failed: unknown interval")
		return
	}

	nowMs := time.Now().UnixMilli()
	alignedStart := model.AlignDown(nowMs-int64(days)*86_400_000, t.Interval)

	present, err := r.candleRepo.Timestamps(ctx, t.Exchange, t.Symbol, t.Interval, alignedStart)
	if err != nil {
		log.WithError(err).Error("gap_fill_failed")
		return
	}

	var missing []int64
	for ts := alignedStart; ts <= nowMs; ts += deltaMs {
		if _, ok := present[ts]; !ok {
			missing = append(missing, ts)
		}
	}
	if len(missing) == 0 {
		log.Debug("gap_fill_not_needed")
		return
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })

	runs := collapseRuns(missing, deltaMs)
	log.WithFields(logger.Fields{"gap_count": len(runs), "missing": len(missing)}).Info("gap_fill_detected")

	filled := 0
	for _, run := range runs {
		n, err := r.fillRun(ctx, client, t, run.start, run.end, deltaMs, log)
		filled += n
		if err != nil {
			if f, ok := err.(*adapter.Failure); ok && f.Kind == adapter.RateLimited {
				r.pause.Pause(t.Exchange, f.RetryAfterSec)
				log.WithField("retry_after_seconds", f.RetryAfterSec).Warn("exchange_paused")
				return
			}
			// Transient or Fatal: abandon this run, continue with the next.
			log.WithError(err).Warn("gap_fill_run_abandoned")
			continue
		}
	}
	log.WithField("records_filled", filled).Info("gap_filled")
}

type gapRun struct{ start, end int64 }

// collapseRuns groups sorted, deduplicated timestamps into maximal
// contiguous runs: two timestamps belong to the same run iff they are
// exactly one interval apart.
func collapseRuns(missing []int64, deltaMs int64) []gapRun {
	if len(missing) == 0 {
		return nil
	}
	runs := []gapRun{{start: missing[0], end: missing[0]}}
	for _, ts := range missing[1:] {
		last := &runs[len(runs)-1]
		if ts == last.end+deltaMs {
			last.end = ts
			continue
		}
		runs = append(runs, gapRun{start: ts, end: ts})
	}
	return runs
}

// fillRun backfills one contiguous gap, fetching in batches of at most
// maxGapFillBatch rows and sleeping 1s between remote calls. It returns
// as soon as the venue stops returning full batches (no more data) or
// an adapter error occurs.
func (r *gapFillRunner) fillRun(ctx context.Context, client adapter.Adapter, t CandleTuple, gStart, gEnd, deltaMs int64, log *logger.Entry) (int, error) {
	total := 0
	since := gStart

	for since <= gEnd {
		remaining := (gEnd-since)/deltaMs + 1
		limit := maxGapFillBatch
		if int64(limit) > remaining {
			limit = int(remaining)
		}

		rows, err := client.FetchCandles(ctx, t.Symbol, t.Interval, since, limit)
		if err != nil {
			return total, err
		}
		if len(rows) == 0 {
			log.Warn("gap_fill_no_data")
			break
		}

		n, err := r.candleRepo.Save(ctx, rows)
		if err != nil {
			return total, err
		}
		total += n

		last := rows[len(rows)-1]
		since = last.TimestampMs + deltaMs

		if len(rows) < limit {
			break
		}

		select {
		case <-ctx.Done():
			return total, ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}
	return total, nil
}
