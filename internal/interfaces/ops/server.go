// Package ops serves the operational endpoints: Prometheus metrics and a
// database-backed health check.
package ops

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/DanielPopoola/ficmart-billing/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

const requestTimeout = 10 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

func NewHandler(g prometheus.Gatherer, db Pinger, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler(g))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			logger.Warn("health check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "database unavailable")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	handler := Recovery(logger)(mux)
	return Timeout(requestTimeout)(handler)
}

func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      requestTimeout + 5*time.Second,
	}
}
