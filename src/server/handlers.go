package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"marketdatasvc/src/api"
	"marketdatasvc/src/apperr"
	"marketdatasvc/src/model"
)

func ohlcvToDicts(rows []model.OHLCV) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		out[i] = r.ToDict()
	}
	return out
}

func queryInt64(q url.Values, key string) (*int64, *apperr.Error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperr.NewClient(apperr.CodeValidationError, "invalid "+key+" parameter", map[string]any{key: raw})
	}
	return &v, nil
}

func queryInt(q url.Values, key string, def int) int {
	raw := q.Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// getCandles handles GET /api/v1/ohlcv/{exchange}/{symbol}.
func (s *Server) getCandles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	start, aerr := queryInt64(q, "start")
	if aerr != nil {
		writeError(w, aerr)
		return
	}
	end, aerr := queryInt64(q, "end")
	if aerr != nil {
		writeError(w, aerr)
		return
	}
	cursor, aerr := queryInt64(q, "cursor")
	if aerr != nil {
		writeError(w, aerr)
		return
	}

	res, aerr := s.api.GetCandles(r.Context(), api.GetCandlesParams{
		Exchange: chi.URLParam(r, "exchange"),
		Symbol:   chi.URLParam(r, "symbol"),
		Interval: q.Get("interval"),
		Start:    start,
		End:      end,
		Limit:    queryInt(q, "limit", 0),
		Cursor:   cursor,
	})
	if aerr != nil {
		writeError(w, aerr)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data": ohlcvToDicts(res.Data),
		"pagination": map[string]any{
			"next_cursor": res.NextCursor,
		},
		"meta": map[string]any{
			"cached":   res.Cached,
			"query_ms": res.QueryMs,
		},
	})
}

type batchCandlesRequest struct {
	Exchange string   `json:"exchange"`
	Symbols  []string `json:"symbols"`
	Interval string   `json:"interval"`
	Start    *int64   `json:"start"`
	End      *int64   `json:"end"`
}

// batchCandles handles POST /api/v1/ohlcv/batch.
func (s *Server) batchCandles(w http.ResponseWriter, r *http.Request) {
	var body batchCandlesRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperr.NewClient(apperr.CodeValidationError, "malformed request body", nil))
		return
	}

	res, aerr := s.api.BatchCandles(r.Context(), api.BatchCandlesParams{
		Exchange: body.Exchange,
		Symbols:  body.Symbols,
		Interval: body.Interval,
		Start:    body.Start,
		End:      body.End,
	})
	if aerr != nil {
		writeError(w, aerr)
		return
	}

	data := make(map[string]any, len(res.Data))
	for symbol, rows := range res.Data {
		data[symbol] = ohlcvToDicts(rows)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":   data,
		"errors": res.Errors,
	})
}

// getTicker handles GET /api/v1/ticker/{exchange}/{symbol}.
func (s *Server) getTicker(w http.ResponseWriter, r *http.Request) {
	res, aerr := s.api.GetTicker(r.Context(), chi.URLParam(r, "exchange"), chi.URLParam(r, "symbol"))
	if aerr != nil {
		writeError(w, aerr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": res.Data.Ticker.ToDict(),
		"meta": map[string]any{
			"cached": res.Cached,
			"age_ms": res.AgeMs,
		},
	})
}

// listTickers handles GET /api/v1/tickers/{exchange}.
func (s *Server) listTickers(w http.ResponseWriter, r *http.Request) {
	res, aerr := s.api.ListTickers(r.Context(), chi.URLParam(r, "exchange"))
	if aerr != nil {
		writeError(w, aerr)
		return
	}

	data := make(map[string]any, len(res.Data))
	for symbol, t := range res.Data {
		data[symbol] = t.Ticker.ToDict()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":   data,
		"errors": res.Errors,
	})
}

type triggerGapFillRequest struct {
	Exchange string `json:"exchange"`
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
	Days     int    `json:"days"`
}

// triggerGapFill handles POST /api/v1/admin/gap-fill.
func (s *Server) triggerGapFill(w http.ResponseWriter, r *http.Request) {
	var body triggerGapFillRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperr.NewClient(apperr.CodeValidationError, "malformed request body", nil))
		return
	}

	aerr := s.api.TriggerGapFill(api.TriggerGapFillParams{
		Exchange: body.Exchange,
		Symbol:   body.Symbol,
		Interval: body.Interval,
		Days:     body.Days,
	})
	if aerr != nil {
		writeError(w, aerr)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "enqueued"})
}

type triggerBatchGapFillRequest struct {
	Days      int      `json:"days"`
	Exchanges []string `json:"exchanges"`
	Intervals []string `json:"intervals"`
}

// triggerBatchGapFill handles POST /api/v1/admin/gap-fill/batch.
func (s *Server) triggerBatchGapFill(w http.ResponseWriter, r *http.Request) {
	var body triggerBatchGapFillRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperr.NewClient(apperr.CodeValidationError, "malformed request body", nil))
		return
	}

	count, aerr := s.api.TriggerBatchGapFill(api.TriggerBatchGapFillParams{
		Days:      body.Days,
		Exchanges: body.Exchanges,
		Intervals: body.Intervals,
	})
	if aerr != nil {
		writeError(w, aerr)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"enqueued": count})
}
