// Package server wraps src/api's framework-agnostic operations in a
// chi router: JSON decoding/encoding, the HTTP surface from spec.md §6,
// bearer auth, request-ID correlation, and graceful shutdown, following
// the teacher's StartServer/server.go shape.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"marketdatasvc/src/adapter"
	"marketdatasvc/src/api"
)

// Server holds the dependencies the HTTP handlers close over.
type Server struct {
	api         *api.API
	healthStore healthStore
	healthCache healthCache
	adapters    map[string]adapter.Adapter
	bearerToken string
}

// New builds a Server. adapters is the full exchange→client map the health
// check pings; it may be a different set than any one repository uses.
func New(a *api.API, hs healthStore, hc healthCache, adapters map[string]adapter.Adapter, bearerToken string) *Server {
	return &Server{api: a, healthStore: hs, healthCache: hc, adapters: adapters, bearerToken: bearerToken}
}

// Router builds the chi.Mux: public /health, then the authenticated
// /api/v1 tree, mirroring the teacher's r.Route("/api/v1", ...) grouping.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID())
	r.Use(requestLogger())

	r.Get("/health", s.health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(sharedSecretAuth(s.bearerToken))

		r.Get("/ohlcv/{exchange}/{symbol}", s.getCandles)
		r.Post("/ohlcv/batch", s.batchCandles)
		r.Get("/ticker/{exchange}/{symbol}", s.getTicker)
		r.Get("/tickers/{exchange}", s.listTickers)
		r.Post("/admin/gap-fill", s.triggerGapFill)
		r.Post("/admin/gap-fill/batch", s.triggerBatchGapFill)
	})

	return r
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts it down with
// a 5s grace period, following the teacher's StartServer exactly.
func (s *Server) Start(addr string) {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}

	go func() {
		logger.Infof("listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server crashed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("shutdown error")
	}
}
