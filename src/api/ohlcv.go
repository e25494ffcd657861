package api

import (
	"context"
	"time"

	"marketdatasvc/src/apperr"
	"marketdatasvc/src/model"
	"marketdatasvc/src/store"
)

// GetCandlesParams mirrors the get_ohlcv query parameters from spec.md §4.7/§6.
type GetCandlesParams struct {
	Exchange string
	Symbol   string
	Interval string
	Start    *int64
	End      *int64
	Limit    int
	Cursor   *int64
}

// CandlesResult is the get_candles/batch_candles response payload.
type CandlesResult struct {
	Data       []model.OHLCV
	NextCursor *int64
	Cached     bool
	QueryMs    int64
}

// GetCandles validates p and delegates to the candle repository's
// cache-first find.
func (a *API) GetCandles(ctx context.Context, p GetCandlesParams) (CandlesResult, *apperr.Error) {
	t0 := time.Now()

	if err := validateSymbol(p.Symbol); err != nil {
		return CandlesResult{}, err
	}
	if err := validateInterval(p.Interval); err != nil {
		return CandlesResult{}, err
	}
	if err := validateTimeRange(p.Start, p.End); err != nil {
		return CandlesResult{}, err
	}
	if err := a.validateExchange(p.Exchange); err != nil {
		return CandlesResult{}, err
	}

	res, err := a.candleRepo.Find(ctx, store.QueryParams{
		Exchange: p.Exchange,
		Symbol:   p.Symbol,
		Interval: model.Interval(p.Interval),
		StartMs:  p.Start,
		EndMs:    p.End,
		Cursor:   p.Cursor,
		Limit:    clampLimit(p.Limit),
	})
	if err != nil {
		return CandlesResult{}, asAppError(err)
	}

	return CandlesResult{
		Data:       res.Records,
		NextCursor: res.NextCursor,
		Cached:     res.FromCache,
		QueryMs:    time.Since(t0).Milliseconds(),
	}, nil
}

// BatchCandlesParams mirrors batch_candles's request body.
type BatchCandlesParams struct {
	Exchange string
	Symbols  []string
	Interval string
	Start    *int64
	End      *int64
}

// SymbolError is one per-symbol failure in a batch response.
type SymbolError struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

// BatchCandlesResult is the batch_candles response payload.
type BatchCandlesResult struct {
	Data   map[string][]model.OHLCV
	Errors []SymbolError
}

// BatchCandles queries up to 20 symbols independently; a per-symbol
// failure is collected, not fatal to the batch.
func (a *API) BatchCandles(ctx context.Context, p BatchCandlesParams) (BatchCandlesResult, *apperr.Error) {
	if len(p.Symbols) > maxBatchSymbols {
		return BatchCandlesResult{}, apperr.NewClient(apperr.CodeBatchSizeExceeded,
			"maximum 20 symbols per batch request",
			map[string]any{"requested": len(p.Symbols), "maximum": maxBatchSymbols})
	}
	if err := validateInterval(p.Interval); err != nil {
		return BatchCandlesResult{}, err
	}
	if err := validateTimeRange(p.Start, p.End); err != nil {
		return BatchCandlesResult{}, err
	}
	if err := a.validateExchange(p.Exchange); err != nil {
		return BatchCandlesResult{}, err
	}

	data := make(map[string][]model.OHLCV, len(p.Symbols))
	var errs []SymbolError

	for _, symbol := range p.Symbols {
		if err := validateSymbol(symbol); err != nil {
			errs = append(errs, SymbolError{Symbol: symbol, Error: err.Message})
			continue
		}

		res, err := a.candleRepo.Find(ctx, store.QueryParams{
			Exchange: p.Exchange,
			Symbol:   symbol,
			Interval: model.Interval(p.Interval),
			StartMs:  p.Start,
			EndMs:    p.End,
			Limit:    maxLimit,
		})
		if err != nil {
			errs = append(errs, SymbolError{Symbol: symbol, Error: err.Error()})
			continue
		}
		data[symbol] = res.Records
	}

	return BatchCandlesResult{Data: data, Errors: errs}, nil
}

// asAppError unwraps a repository error back into *apperr.Error: an
// *apperr.Error is returned as is, an *apperr.RateLimitError yields its
// Err envelope, and anything else becomes an INTERNAL_ERROR.
func asAppError(err error) *apperr.Error {
	if e, ok := err.(*apperr.Error); ok {
		return e
	}
	if rl, ok := err.(*apperr.RateLimitError); ok {
		return rl.Err
	}
	return apperr.NewServer(apperr.CodeInternalError, err.Error(), nil)
}
