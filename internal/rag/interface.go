// Package rag is the retrieval engine: it chunks documents, embeds each
// chunk, persists the results through a ChunkStore, and answers queries by
// ranking stored chunks on cosine similarity, optionally scoped to an owner.
// Storage backends live in internal/store and satisfy ChunkStore so the
// engine never depends on a specific database.
package rag

import (
	"context"
	"errors"
	"time"
)

// DefaultDocumentType is assigned to chunks indexed without a document type.
const DefaultDocumentType = "resume"

// DefaultTopK is the result count used when a query asks for k <= 0.
const DefaultTopK = 5

var (
	// ErrNilEmbedder is returned by NewEngine when no embedder is supplied.
	ErrNilEmbedder = errors.New("rag: embedder must not be nil")
	// ErrNilStore is returned by NewEngine when no chunk store is supplied.
	ErrNilStore = errors.New("rag: store must not be nil")
)

// DocumentChunk is a unit of retrievable text.
type DocumentChunk struct {
	// ID is a random UUID assigned when the chunk is created.
	ID string `json:"id"`

	// OwnerID scopes the chunk to a user or tenant. Nil means globally visible.
	OwnerID *string `json:"ownerId"`

	// DocumentID groups all chunks from the same source document.
	DocumentID string `json:"documentId"`

	// DocumentType is a free-form tag such as "resume" or "job-description".
	DocumentType string `json:"documentType"`

	// ChunkIndex is the zero-based position of the chunk within its document.
	ChunkIndex int `json:"chunkIndex"`

	// Text is the literal substring of the source document.
	Text string `json:"text"`

	// Embedding is the vector representation of Text. Never empty once stored.
	Embedding []float64 `json:"embedding,omitempty"`

	// CreatedAt is the UTC time the chunk was indexed.
	CreatedAt time.Time `json:"createdAt"`
}

// ScoredChunk pairs a chunk with its cosine similarity to a query.
type ScoredChunk struct {
	DocumentChunk
	// Score is the cosine similarity in [-1, 1].
	Score float64 `json:"score"`
}

// ChunkStore is the storage collaborator of the engine.
// Implementations must be safe to call from multiple goroutines.
type ChunkStore interface {
	// InsertBatch persists chunks. The batch becomes visible together or not
	// at all.
	InsertBatch(ctx context.Context, chunks []DocumentChunk) error

	// Scan returns every chunk owned by *ownerID, or every chunk when ownerID
	// is nil. Order is unspecified.
	Scan(ctx context.Context, ownerID *string) ([]DocumentChunk, error)

	// DeleteDocument removes all chunks of documentID and reports how many
	// were removed.
	DeleteDocument(ctx context.Context, documentID string) (int, error)

	// DeleteOwner removes all chunks owned by ownerID and reports how many
	// were removed.
	DeleteOwner(ctx context.Context, ownerID string) (int, error)

	// Close releases any resources held by the store.
	Close() error
}

// Embedder converts text into a vector. Implementations never fail; remote
// problems are absorbed by a deterministic fallback (see internal/embedder).
type Embedder interface {
	Embed(ctx context.Context, text string) []float64
}

// OwnerPtr returns nil for an empty owner and a pointer to owner otherwise.
// Callers at the HTTP and CLI boundary use it to turn optional string fields
// into the engine's nil-means-global convention.
func OwnerPtr(owner string) *string {
	if owner == "" {
		return nil
	}
	return &owner
}
