// Package store provides the ChunkStore backends used by the retrieval
// engine: an in-memory store for tests, a local SQLite database (the default),
// a Qdrant collection, and PostgreSQL with pgvector.
package store

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"

	"github.com/54b3r/interviewly-rag/internal/rag"
)

// Backend names accepted by IRAG_STORE.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendQdrant   = "qdrant"
	BackendPostgres = "postgres"
)

// DefaultDBPath returns the default path for the SQLite chunk database.
// It resolves to ~/.irag/chunks.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".irag")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "chunks.db"), nil
}

// validateBatch rejects chunks that must never be persisted.
func validateBatch(chunks []rag.DocumentChunk) error {
	for i, c := range chunks {
		if c.ID == "" {
			return fmt.Errorf("store: chunk %d has no id", i)
		}
		if len(c.Embedding) == 0 {
			return fmt.Errorf("store: chunk %q has an empty embedding", c.ID)
		}
	}
	return nil
}

// cloneChunk returns a copy of c that shares no memory with it.
func cloneChunk(c rag.DocumentChunk) rag.DocumentChunk {
	if c.OwnerID != nil {
		o := *c.OwnerID
		c.OwnerID = &o
	}
	c.Embedding = slices.Clone(c.Embedding)
	return c
}

// encodeEmbedding packs v as consecutive little-endian IEEE-754 float64 values.
func encodeEmbedding(v []float64) []byte {
	buf := make([]byte, 8*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(x))
	}
	return buf
}

// decodeEmbedding is the inverse of encodeEmbedding.
func decodeEmbedding(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("store: embedding blob length %d is not a multiple of 8", len(b))
	}
	v := make([]float64, len(b)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:]))
	}
	return v, nil
}

// narrow converts v to float32 for vector databases with float32 storage.
func narrow(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// widen converts a float32 vector back to float64.
func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
