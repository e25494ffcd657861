// Package api holds the framework-agnostic validation and semantic
// operations spec.md §4.7 describes: everything a FastAPI route does
// before HTTP framing, grounded on python api/ohlcv.py, api/ticker.py,
// api/admin.py.
package api

import (
	"strings"

	"marketdatasvc/src/apperr"
	"marketdatasvc/src/model"
)

const (
	maxTimeRangeMs  = 30 * 24 * 60 * 60 * 1000
	maxBatchSymbols = 20
	defaultLimit    = 500
	minLimit        = 1
	maxLimit        = 1000
)

// validateSymbol enforces the BASE/QUOTE format with both sides non-empty.
func validateSymbol(symbol string) *apperr.Error {
	parts := strings.Split(symbol, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return apperr.NewClient(apperr.CodeInvalidSymbol,
			"invalid symbol format: expected BASE/QUOTE",
			map[string]any{"symbol": symbol, "expected_format": "BASE/QUOTE"})
	}
	return nil
}

func validateInterval(interval string) *apperr.Error {
	if !model.IsValidInterval(interval) {
		return apperr.NewClient(apperr.CodeInvalidTimeframe,
			"invalid timeframe", map[string]any{"timeframe": interval, "valid_timeframes": model.ValidIntervals})
	}
	return nil
}

func validateTimeRange(start, end *int64) *apperr.Error {
	if start == nil || end == nil {
		return nil
	}
	if *end < *start {
		return apperr.NewClient(apperr.CodeInvalidTimeRange,
			"end timestamp must be greater than or equal to start timestamp",
			map[string]any{"start": *start, "end": *end})
	}
	if *end-*start > maxTimeRangeMs {
		return apperr.NewClient(apperr.CodeInvalidTimeRange,
			"time range exceeds maximum of 30 days",
			map[string]any{"start": *start, "end": *end, "max_days": 30})
	}
	return nil
}

func (a *API) validateExchange(exchange string) *apperr.Error {
	if !a.hasExchange(exchange) {
		return apperr.NewClient(apperr.CodeInvalidExchange, "exchange not configured", map[string]any{"exchange": exchange})
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit < minLimit {
		return minLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
