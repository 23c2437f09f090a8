package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// labelHandler partitions HTTP metrics by logical endpoint name rather than
// the raw URL path, so path parameters never explode cardinality.
const labelHandler = "handler"

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New so tests can inject a fresh
// prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// httpRequestsTotal counts all HTTP requests handled by instrumented
	// routes, partitioned by method, handler and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of instrumented routes.
	httpDurationSeconds *prometheus.HistogramVec

	// indexChunks records how many chunks each indexed document produced.
	indexChunks prometheus.Histogram

	// queryResults records how many chunks each query returned.
	queryResults prometheus.Histogram
}

// newServerMetrics registers all server metrics against reg.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "irag",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "irag",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),

		indexChunks: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "irag",
			Subsystem: "api",
			Name:      "index_chunks",
			Help:      "Chunks produced per document indexed over HTTP.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250},
		}),

		queryResults: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "irag",
			Subsystem: "api",
			Name:      "query_results",
			Help:      "Chunks returned per query over HTTP.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		}),
	}
}

// instrument wraps next so every request is counted and timed under name.
func (s *Server) instrument(name string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		start := time.Now()
		next.ServeHTTP(rw, r)

		s.metrics.httpDurationSeconds.WithLabelValues(r.Method, name).Observe(time.Since(start).Seconds())
		s.metrics.httpRequestsTotal.WithLabelValues(r.Method, name, strconv.Itoa(rw.status)).Inc()
	})
}
