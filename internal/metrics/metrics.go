package metrics

import (
	"net/http"
	"time"

	"github.com/DanielPopoola/ficmart-billing/internal/application"
	"github.com/DanielPopoola/ficmart-billing/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Billing struct {
	Transitions      *prometheus.CounterVec
	ProcessorLatency *prometheus.HistogramVec
}

var _ application.MetricsRecorder = (*Billing)(nil)

// NewBilling creates the collectors and registers them with reg.
func NewBilling(reg prometheus.Registerer) *Billing {
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "billing",
		Subsystem: "purchases",
		Name:      "transitions_total",
		Help:      "Purchases entering each status.",
	}, []string{"status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "billing",
		Subsystem: "processor",
		Name:      "call_duration_ms",
		Help:      "Payment processor call latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	}, []string{"operation", "outcome"})

	reg.MustRegister(transitions, latency)
	return &Billing{Transitions: transitions, ProcessorLatency: latency}
}

func (b *Billing) PurchaseTransitioned(status domain.Status) {
	b.Transitions.WithLabelValues(string(status)).Inc()
}

func (b *Billing) ProcessorCall(operation, outcome string, elapsed time.Duration) {
	b.ProcessorLatency.WithLabelValues(operation, outcome).Observe(float64(elapsed.Milliseconds()))
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
