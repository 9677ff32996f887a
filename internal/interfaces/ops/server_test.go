package ops_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DanielPopoola/ficmart-billing/internal/interfaces/ops"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func serve(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandler_Healthz(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	reg := prometheus.NewRegistry()

	tests := []struct {
		name     string
		db       pinger
		wantCode int
		wantBody string
	}{
		{"healthy", pinger{}, http.StatusOK, `{"status":"ok"}`},
		{"database down", pinger{err: errors.New("refused")}, http.StatusServiceUnavailable, `"UNAVAILABLE"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(ops.NewHandler(reg, tt.db, logger), "/healthz")

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestHandler_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "ops_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	rec := serve(ops.NewHandler(reg, pinger{}, slog.New(slog.DiscardHandler)), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ops_test_total 1")
}

func TestRecovery_ReturnsInternalError(t *testing.T) {
	h := ops.Recovery(slog.New(slog.DiscardHandler))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := serve(h, "/")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"code":"INTERNAL_ERROR","message":"internal server error"}`, rec.Body.String())
}
