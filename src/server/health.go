package server

import (
	"context"
	"net/http"

	"marketdatasvc/src/cache"
	"marketdatasvc/src/store"
)

// healthStore and healthCache are the narrow interfaces health checks
// depend on, letting tests substitute fakes without pulling in gorm/redis.
type healthStore interface {
	HealthCheck(ctx context.Context) bool
}

type healthCache interface {
	HealthCheck(ctx context.Context) bool
}

var (
	_ healthStore = (*store.CandleStore)(nil)
	_ healthCache = (*cache.Cache)(nil)
)

// health handles GET /health. Store and cache health gate the overall
// status; per-exchange health is reported but never gates it (spec.md §6).
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	storeOK := s.healthStore.HealthCheck(ctx)
	cacheOK := s.healthCache.HealthCheck(ctx)

	exchanges := make(map[string]string, len(s.adapters))
	for id, a := range s.adapters {
		if err := a.Ping(ctx); err != nil {
			exchanges[id] = "error"
			continue
		}
		exchanges[id] = "ok"
	}

	status := http.StatusOK
	overall := "ok"
	if !storeOK || !cacheOK {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	writeJSON(w, status, map[string]any{
		"status": overall,
		"components": map[string]any{
			"store":     componentStatus(storeOK),
			"cache":     componentStatus(cacheOK),
			"exchanges": exchanges,
		},
	})
}

func componentStatus(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
