// Package router serves the status endpoints of a running load test: a
// liveness probe, a JSON snapshot of the statistics and Prometheus metrics.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/patric-chuzhbe/urlshrtload/internal/gzippedhttp"
	"github.com/patric-chuzhbe/urlshrtload/internal/logger"
	"github.com/patric-chuzhbe/urlshrtload/internal/stats"
)

type statsSource interface {
	Snapshot() stats.Summary
}

// Router holds the handlers of the status server.
type Router struct {
	stats statsSource
}

// GetPing answers 200 while the harness is running.
func (rt *Router) GetPing(res http.ResponseWriter, req *http.Request) {
	res.Header().Set("Content-Type", "text/plain; charset=utf-8")
	res.WriteHeader(http.StatusOK)
	_, _ = res.Write([]byte("pong"))
}

// GetStats answers the current statistics as JSON.
func (rt *Router) GetStats(res http.ResponseWriter, req *http.Request) {
	body, err := json.Marshal(rt.stats.Snapshot())
	if err != nil {
		logger.Log.Errorw("marshaling stats", "error", err)
		http.Error(res, err.Error(), http.StatusInternalServerError)
		return
	}

	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(http.StatusOK)
	_, err = res.Write(body)
	if err != nil {
		logger.Log.Debugw("writing stats", "error", err)
	}
}

// New returns the status server handler. metrics may be nil.
func New(source statsSource, metrics http.Handler) *chi.Mux {
	rt := &Router{stats: source}

	router := chi.NewRouter()
	router.Use(
		logger.WithLoggingHTTPMiddleware,
		gzippedhttp.GzipResponse,
	)
	router.Get(`/ping`, rt.GetPing)
	router.Get(`/stats`, rt.GetStats)
	if metrics != nil {
		router.Method(http.MethodGet, `/metrics`, metrics)
	}

	return router
}
