package rag

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation and outcome label values for irag_engine_operations_total.
const (
	opIndex  = "index"
	opQuery  = "query"
	opDelete = "delete"

	outcomeOK    = "ok"
	outcomeEmpty = "empty"
	outcomeError = "error"
)

// engineMetrics holds the Prometheus collectors owned by an Engine.
type engineMetrics struct {
	operations    *prometheus.CounterVec
	chunksIndexed prometheus.Counter
}

// newEngineMetrics builds the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func newEngineMetrics(reg prometheus.Registerer) *engineMetrics {
	factory := promauto.With(reg)

	return &engineMetrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "irag",
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Engine operations, partitioned by op (index, query, delete) and outcome.",
		}, []string{"op", "outcome"}),

		chunksIndexed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "irag",
			Subsystem: "engine",
			Name:      "chunks_indexed_total",
			Help:      "Total number of chunks persisted by Index.",
		}),
	}
}

func (m *engineMetrics) observe(op, outcome string) {
	m.operations.WithLabelValues(op, outcome).Inc()
}
