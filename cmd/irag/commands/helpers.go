package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/interviewly-rag/internal/chunker"
	"github.com/54b3r/interviewly-rag/internal/embedder"
	"github.com/54b3r/interviewly-rag/internal/rag"
	"github.com/54b3r/interviewly-rag/internal/store"
)

// chunkStore is a rag.ChunkStore with a reachability probe. Every backend in
// internal/store satisfies it.
type chunkStore interface {
	rag.ChunkStore
	Ping(ctx context.Context) error
}

// runtime bundles the engine and the store it owns.
type runtime struct {
	engine    *rag.Engine
	store     chunkStore
	storeName string
}

// Close releases the store.
func (r *runtime) Close() error { return r.store.Close() }

// buildRuntime wires the embedder, chunk store, chunker and engine from the
// environment. backend overrides IRAG_STORE when non-empty. reg may be nil,
// in which case metrics are collected but not registered.
func buildRuntime(ctx context.Context, log *slog.Logger, backend string, reg prometheus.Registerer) (*runtime, error) {
	embCfg := embedder.ConfigFromEnv()
	if err := embedder.Validate(embCfg, log); err != nil {
		return nil, err
	}
	emb, err := embedder.NewFromConfig(ctx, embCfg,
		embedder.WithLogger(log),
		embedder.WithMetrics(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	log.Info("embedder initialised", slog.String("provider", emb.ProviderName()))

	if backend == "" {
		backend = getEnvOrDefault("IRAG_STORE", store.BackendSQLite)
	}
	st, err := openStore(ctx, backend, log)
	if err != nil {
		return nil, err
	}

	chunks := chunker.New(
		chunker.WithSize(getEnvInt("CHUNK_SIZE", chunker.DefaultSize)),
		chunker.WithOverlap(getEnvInt("CHUNK_OVERLAP", chunker.DefaultOverlap)),
	)

	eng, err := rag.NewEngine(emb, st,
		rag.WithChunker(chunks),
		rag.WithConcurrency(getEnvInt("CHUNK_CONCURRENCY", rag.DefaultConcurrency)),
		rag.WithMetrics(reg),
	)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to initialise engine: %w", err)
	}

	return &runtime{engine: eng, store: st, storeName: backend}, nil
}

// openStore opens the chunk store named by backend.
func openStore(ctx context.Context, backend string, log *slog.Logger) (chunkStore, error) {
	switch backend {
	case store.BackendMemory:
		log.Warn("store: using in-memory store, chunks are lost on exit")
		return store.NewMemoryStore(), nil

	case store.BackendSQLite:
		path := os.Getenv("IRAG_DB")
		if path == "" {
			var err error
			path, err = store.DefaultDBPath()
			if err != nil {
				return nil, err
			}
		}
		s, err := store.Open(path)
		if err != nil {
			return nil, err
		}
		log.Info("store: sqlite opened", slog.String("path", path))
		return s, nil

	case store.BackendQdrant:
		host := getEnvOrDefault("QDRANT_HOST", "localhost")
		port := getEnvInt("QDRANT_PORT", 6334)
		s, err := store.NewQdrantStore(ctx, &store.QdrantConfig{
			Host:       host,
			Port:       port,
			Collection: os.Getenv("QDRANT_COLLECTION"),
			VectorSize: uint64(max(getEnvInt("QDRANT_VECTOR_SIZE", 0), 0)), //nolint:gosec // clamped to non-negative
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     os.Getenv("QDRANT_TLS") == "true",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
		}
		log.Info("store: qdrant ready", slog.String("host", host), slog.Int("port", port))
		return s, nil

	case store.BackendPostgres:
		dsn := os.Getenv("POSTGRES_DSN")
		if dsn == "" {
			return nil, fmt.Errorf("store: POSTGRES_DSN is required for the postgres backend")
		}
		s, err := store.NewPostgresStore(ctx, dsn)
		if err != nil {
			return nil, err
		}
		log.Info("store: postgres ready")
		return s, nil

	default:
		return nil, fmt.Errorf("store: unknown backend %q (valid: sqlite, memory, qdrant, postgres)", backend)
	}
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvFloat is the float64 counterpart of getEnvInt.
func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
