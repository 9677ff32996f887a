package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-billing/internal/domain"
	"github.com/DanielPopoola/ficmart-billing/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBilling_RecordsTransitionsAndCalls(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewBilling(reg)

	m.PurchaseTransitioned(domain.StatusCompleted)
	m.PurchaseTransitioned(domain.StatusCompleted)
	m.PurchaseTransitioned(domain.StatusFailed)
	m.ProcessorCall("payment", "success", 120*time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(m.Transitions.WithLabelValues("COMPLETED")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Transitions.WithLabelValues("FAILED")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.ProcessorLatency))

	expected := `
# HELP billing_purchases_transitions_total Purchases entering each status.
# TYPE billing_purchases_transitions_total counter
billing_purchases_transitions_total{status="COMPLETED"} 2
billing_purchases_transitions_total{status="FAILED"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "billing_purchases_transitions_total"))
}

func TestHandler_ServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewBilling(reg)
	m.PurchaseTransitioned(domain.StatusPending)

	rec := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `billing_purchases_transitions_total{status="PENDING"} 1`)
}
