package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/interviewly-rag/internal/rag"
)

// defaultMaxBodyBytes caps request bodies on the embedding endpoints.
const defaultMaxBodyBytes = 5 << 20

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response. Index
	// requests embed every chunk before responding, so keep it generous.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// MaxBodyBytes caps JSON request bodies (default: 5 MiB).
	MaxBodyBytes int64
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on
	// /api/embedding/* (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry receives the server's collectors. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to
	// prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// engine is the subset of *rag.Engine the handlers call. Tests inject a fake.
type engine interface {
	Index(ctx context.Context, ownerID *string, documentID, documentType, text string) (int, error)
	Search(ctx context.Context, queryText string, k int, ownerID *string) ([]rag.ScoredChunk, error)
	DeleteDocument(ctx context.Context, documentID string) (int, error)
	DeleteOwner(ctx context.Context, ownerID string) (int, error)
}

// Server exposes the retrieval engine over HTTP.
type Server struct {
	// engine answers index, query and delete requests.
	engine engine
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the HTTP collectors.
	metrics *serverMetrics
	// limiter holds the per-IP buckets; Start runs its eviction loop.
	limiter *rateLimiter
}

// indexRequest is the JSON body for POST /api/embedding/index.
type indexRequest struct {
	// UserID scopes the document to an owner. Omitted or empty means global.
	UserID string `json:"userId"`
	// DocID identifies the source document. Required.
	DocID string `json:"docId"`
	// DocType tags the document (default: resume).
	DocType string `json:"docType"`
	// Text is the full document text. Required.
	Text string `json:"text"`
}

// indexResponse is the JSON response for POST /api/embedding/index.
type indexResponse struct {
	Success bool `json:"success"`
	// Chunks is the number of chunks persisted.
	Chunks int `json:"chunks"`
}

// queryRequest is the JSON body for POST /api/embedding/query.
type queryRequest struct {
	// UserID restricts candidates to one owner. Omitted or empty searches all.
	UserID string `json:"userId"`
	// Query is the search text. Required.
	Query string `json:"query"`
	// K is the result count; values <= 0 select the default of 5.
	K int `json:"k"`
	// MinScore drops results whose cosine similarity is below it. Omitted
	// keeps every ranked result.
	MinScore *float64 `json:"minScore"`
}

// deleteResponse is the JSON response for the DELETE routes.
type deleteResponse struct {
	Deleted int `json:"deleted"`
}

// errorResponse is the JSON body written for handler-level failures.
type errorResponse struct {
	Error string `json:"error"`
}
