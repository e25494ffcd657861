package api

import (
	"context"

	"marketdatasvc/src/apperr"
	"marketdatasvc/src/repository"
)

// TickerResult is the get_ticker response payload.
type TickerResult struct {
	Data   repository.TickerResult
	Cached bool
	AgeMs  int64
}

// GetTicker validates symbol/exchange then delegates to the cache-first
// ticker repository.
func (a *API) GetTicker(ctx context.Context, exchange, symbol string) (TickerResult, *apperr.Error) {
	if err := validateSymbol(symbol); err != nil {
		return TickerResult{}, err
	}
	if err := a.validateExchange(exchange); err != nil {
		return TickerResult{}, err
	}

	res, err := a.tickerRepo.Find(ctx, exchange, symbol)
	if err != nil {
		return TickerResult{}, asAppError(err)
	}
	return TickerResult{Data: res, Cached: res.FromCache, AgeMs: res.AgeMs}, nil
}

// ListTickersResult is the list_tickers response payload.
type ListTickersResult struct {
	Data   map[string]repository.TickerResult
	Errors []SymbolError
}

// ListTickers fetches every symbol configured for exchange, collecting
// per-symbol failures rather than aborting the batch.
func (a *API) ListTickers(ctx context.Context, exchange string) (ListTickersResult, *apperr.Error) {
	if err := a.validateExchange(exchange); err != nil {
		return ListTickersResult{}, err
	}

	symbols := a.exchanges[exchange]
	if len(symbols) == 0 {
		return ListTickersResult{Data: map[string]repository.TickerResult{}}, nil
	}

	results, batchErrs := a.tickerRepo.FindAll(ctx, exchange, symbols)
	errs := make([]SymbolError, 0, len(batchErrs))
	for _, e := range batchErrs {
		errs = append(errs, SymbolError{Symbol: e.Symbol, Error: e.Err.Error()})
	}
	return ListTickersResult{Data: results, Errors: errs}, nil
}
