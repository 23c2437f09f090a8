// Package server implements the HTTP API that exposes the retrieval engine:
// document indexing, similarity queries, deletion, health probes and
// Prometheus metrics. The server is started by the `irag serve` command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/54b3r/interviewly-rag/internal/logging"
	"github.com/54b3r/interviewly-rag/internal/rag"
)

// New constructs a Server around eng and registers every route.
func New(eng engine, cfg *Config) (*Server, error) {
	if eng == nil {
		return nil, fmt.Errorf("server: engine must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New()
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		engine:  eng,
		cfg:     cfg,
		log:     cfg.Logger,
		pingers: cfg.Pingers,
		metrics: newServerMetrics(cfg.MetricsRegistry),
	}

	if cfg.APIKey == "" {
		s.log.Warn("server: IRAG_API_KEY not set, authentication disabled")
	}

	s.limiter = newRateLimiter(cfg.RateLimit, cfg.RateBurst)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(s.log, s.routes(s.limiter)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// routes builds the mux. Embedding routes are authenticated and rate
// limited; delete routes are authenticated; health checks and /metrics are open.
func (s *Server) routes(rl *rateLimiter) *http.ServeMux {
	protect := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(s.cfg.APIKey, h)
	}
	limited := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(s.cfg.APIKey, rl.middleware(h))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/embedding/index", s.instrument("index", limited(s.handleIndex)))
	mux.Handle("POST /api/embedding/query", s.instrument("query", limited(s.handleQuery)))
	mux.Handle("DELETE /api/documents/{docId}", s.instrument("delete_document", protect(s.handleDeleteDocument)))
	mux.Handle("DELETE /api/owners/{ownerId}", s.instrument("delete_owner", protect(s.handleDeleteOwner)))
	mux.Handle("GET /api/health", s.instrument("health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /api/ready", s.instrument("ready", http.HandlerFunc(s.handleReady)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.cfg.MetricsGatherer, promhttp.HandlerOpts{}))
	return mux
}

// Handler returns the fully wrapped HTTP handler. Tests drive it through
// httptest without opening a socket.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins listening and serving HTTP requests and sweeps idle rate
// limiter buckets while it runs. It blocks until the context is cancelled,
// then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	evictCtx, stopEvict := context.WithCancel(ctx)
	defer stopEvict()
	go s.limiter.run(evictCtx)

	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server: listening", slog.String("addr", "http://"+s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		s.log.Info("server: stopped")
		return nil
	}
}

// handleIndex handles POST /api/embedding/index.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req indexRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.DocID) == "" || strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "docId and text are required")
		return
	}
	docType := req.DocType
	if strings.TrimSpace(docType) == "" {
		docType = rag.DefaultDocumentType
	}

	n, err := s.engine.Index(r.Context(), rag.OwnerPtr(req.UserID), req.DocID, docType, req.Text)
	if err != nil {
		log.Error("index failed", slog.String("doc_id", req.DocID), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "indexing failed")
		return
	}
	s.metrics.indexChunks.Observe(float64(n))
	writeJSON(w, http.StatusOK, indexResponse{Success: true, Chunks: n})
}

// handleQuery handles POST /api/embedding/query. Ranking goes through the
// eino retriever; minScore maps to its score threshold. Embeddings are
// stripped from the response.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req queryRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	opts := []retriever.Option{retriever.WithTopK(req.K)}
	if req.MinScore != nil {
		opts = append(opts, retriever.WithScoreThreshold(*req.MinScore))
	}
	docs, err := rag.NewEinoRetriever(s.engine, rag.OwnerPtr(req.UserID)).Retrieve(r.Context(), req.Query, opts...)
	if err != nil {
		log.Error("query failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	out := make([]rag.ScoredChunk, len(docs))
	for i, doc := range docs {
		res := rag.ChunkFromDocument(doc)
		res.Embedding = nil
		out[i] = res
	}
	s.metrics.queryResults.Observe(float64(len(out)))
	writeJSON(w, http.StatusOK, out)
}

// handleDeleteDocument handles DELETE /api/documents/{docId}.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("docId")
	if strings.TrimSpace(id) == "" {
		writeError(w, http.StatusBadRequest, "docId is required")
		return
	}
	n, err := s.engine.DeleteDocument(r.Context(), id)
	if err != nil {
		logging.FromContext(r.Context()).Error("delete document failed",
			slog.String("doc_id", id), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Deleted: n})
}

// handleDeleteOwner handles DELETE /api/owners/{ownerId}.
func (s *Server) handleDeleteOwner(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("ownerId")
	if strings.TrimSpace(id) == "" {
		writeError(w, http.StatusBadRequest, "ownerId is required")
		return
	}
	n, err := s.engine.DeleteOwner(r.Context(), id)
	if err != nil {
		logging.FromContext(r.Context()).Error("delete owner failed",
			slog.String("owner_id", id), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Deleted: n})
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads a size-capped JSON body into v. It writes the error response
// and returns false when the body is too large or malformed.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode error", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
