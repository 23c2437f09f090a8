package embedder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values for irag_embedder_requests_total.
const (
	outcomeOK       = "ok"
	outcomeFallback = "fallback"
)

// embedderMetrics holds the Prometheus collectors owned by an Embedder.
type embedderMetrics struct {
	// requests counts provider calls by provider and outcome.
	requests *prometheus.CounterVec
	// duration records provider call latency, including failed calls.
	duration *prometheus.HistogramVec
}

// newEmbedderMetrics builds the collectors and registers them with reg.
// A nil reg leaves them unregistered, which keeps tests hermetic.
func newEmbedderMetrics(reg prometheus.Registerer) *embedderMetrics {
	factory := promauto.With(reg)

	return &embedderMetrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "irag",
			Subsystem: "embedder",
			Name:      "requests_total",
			Help:      "Remote embedding calls, partitioned by provider and outcome (ok or fallback).",
		}, []string{"provider", "outcome"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "irag",
			Subsystem: "embedder",
			Name:      "duration_seconds",
			Help:      "Latency of remote embedding calls.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"provider"}),
	}
}
