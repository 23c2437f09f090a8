package store

import (
	"context"
	"sync"

	"github.com/54b3r/interviewly-rag/internal/rag"
)

// MemoryStore is a process-local ChunkStore. Contents are lost on exit.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks []rag.DocumentChunk
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// InsertBatch appends chunks under a single lock, so readers see all of
// them or none.
func (s *MemoryStore) InsertBatch(_ context.Context, chunks []rag.DocumentChunk) error {
	if err := validateBatch(chunks); err != nil {
		return err
	}
	copied := make([]rag.DocumentChunk, len(chunks))
	for i, c := range chunks {
		copied[i] = cloneChunk(c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, copied...)
	return nil
}

// Scan returns copies of the chunks visible to ownerID.
func (s *MemoryStore) Scan(_ context.Context, ownerID *string) ([]rag.DocumentChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]rag.DocumentChunk, 0, len(s.chunks))
	for _, c := range s.chunks {
		if ownerID != nil && (c.OwnerID == nil || *c.OwnerID != *ownerID) {
			continue
		}
		out = append(out, cloneChunk(c))
	}
	return out, nil
}

// DeleteDocument removes all chunks of documentID.
func (s *MemoryStore) DeleteDocument(_ context.Context, documentID string) (int, error) {
	return s.deleteWhere(func(c rag.DocumentChunk) bool { return c.DocumentID == documentID }), nil
}

// DeleteOwner removes all chunks owned by ownerID.
func (s *MemoryStore) DeleteOwner(_ context.Context, ownerID string) (int, error) {
	return s.deleteWhere(func(c rag.DocumentChunk) bool { return c.OwnerID != nil && *c.OwnerID == ownerID }), nil
}

func (s *MemoryStore) deleteWhere(match func(rag.DocumentChunk) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.chunks[:0]
	removed := 0
	for _, c := range s.chunks {
		if match(c) {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	clear(s.chunks[len(kept):])
	s.chunks = kept
	return removed
}

// Len reports the number of stored chunks.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

var _ rag.ChunkStore = (*MemoryStore)(nil)
