package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Chat outcome labels.
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ChatRequests      *prometheus.CounterVec
	RespondLatency    prometheus.Histogram
	RetrievedSnippets prometheus.Histogram
	MemoryWrites      *prometheus.CounterVec
	TokensIssued      prometheus.Counter
	ActiveRooms       prometheus.Gauge
}

// NewMetrics registers all instruments on reg. Pass
// prometheus.DefaultRegisterer in production wiring; tests use a fresh
// registry so parallel test packages don't collide.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ChatRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Chat pipeline runs by outcome.",
		}, []string{"outcome"}),
		RespondLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "respond_latency_seconds",
			Help:      "End-to-end latency of the respond pipeline.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		RetrievedSnippets: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieved_snippets",
			Help:      "Number of memory snippets retrieved per request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		}),
		MemoryWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_writes_total",
			Help:      "Interaction writes by sink and status.",
		}, []string{"sink", "status"}),
		TokensIssued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Room access tokens minted.",
		}),
		ActiveRooms: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of registered rooms.",
		}),
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
