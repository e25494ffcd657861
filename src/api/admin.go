package api

import (
	"marketdatasvc/src/apperr"
	"marketdatasvc/src/model"
	"marketdatasvc/src/scheduler"
)

const (
	minGapFillDays = 1
	maxGapFillDays = 365
)

// TriggerGapFillParams mirrors the trigger_gap_fill request body.
type TriggerGapFillParams struct {
	Exchange string
	Symbol   string
	Interval string
	Days     int
}

func validateGapFillDays(days int) *apperr.Error {
	if days < minGapFillDays || days > maxGapFillDays {
		return apperr.NewClient(apperr.CodeValidationError,
			"days must be between 1 and 365", map[string]any{"days": days})
	}
	return nil
}

// TriggerGapFill enqueues one gap-fill task and returns immediately
// (spec.md §4.7). Callers that never configured a scheduler (e.g. a
// read-only deployment) get a server error rather than a panic.
func (a *API) TriggerGapFill(p TriggerGapFillParams) *apperr.Error {
	if err := validateSymbol(p.Symbol); err != nil {
		return err
	}
	if err := validateInterval(p.Interval); err != nil {
		return err
	}
	if err := validateGapFillDays(p.Days); err != nil {
		return err
	}
	if a.sched == nil {
		return apperr.NewServer(apperr.CodeInternalError, "scheduler not running", nil)
	}
	if !a.sched.HasExchange(p.Exchange) {
		return apperr.NewClient(apperr.CodeInvalidExchange, "exchange not configured", map[string]any{"exchange": p.Exchange})
	}

	a.sched.TriggerGapFill(scheduler.CandleTuple{
		Exchange: p.Exchange,
		Symbol:   p.Symbol,
		Interval: model.Interval(p.Interval),
	}, p.Days)
	return nil
}

// TriggerBatchGapFillParams mirrors the trigger_batch_gap_fill request
// body: empty Exchanges/Intervals fall back to every configured one.
type TriggerBatchGapFillParams struct {
	Days      int
	Exchanges []string
	Intervals []string
}

// TriggerBatchGapFill enqueues the cross-product of exchanges x their
// configured symbols x intervals, and returns the number enqueued.
func (a *API) TriggerBatchGapFill(p TriggerBatchGapFillParams) (int, *apperr.Error) {
	if err := validateGapFillDays(p.Days); err != nil {
		return 0, err
	}
	if a.sched == nil {
		return 0, apperr.NewServer(apperr.CodeInternalError, "scheduler not running", nil)
	}

	exchanges := p.Exchanges
	if len(exchanges) == 0 {
		for ex := range a.exchanges {
			exchanges = append(exchanges, ex)
		}
	}

	intervals := p.Intervals
	if len(intervals) == 0 {
		for _, iv := range a.intervals {
			intervals = append(intervals, string(iv))
		}
	}

	count := 0
	for _, exchange := range exchanges {
		if !a.sched.HasExchange(exchange) {
			continue
		}
		symbols := a.exchanges[exchange]
		for _, symbol := range symbols {
			for _, interval := range intervals {
				if !model.IsValidInterval(interval) {
					continue
				}
				a.sched.TriggerGapFill(scheduler.CandleTuple{
					Exchange: exchange,
					Symbol:   symbol,
					Interval: model.Interval(interval),
				}, p.Days)
				count++
			}
		}
	}
	return count, nil
}
