package rag

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/54b3r/interviewly-rag/internal/chunker"
	"github.com/54b3r/interviewly-rag/internal/logging"
)

// DefaultConcurrency bounds how many chunk embeddings run at once per Index call.
const DefaultConcurrency = 4

// Engine indexes documents into a ChunkStore and ranks stored chunks against
// queries. It holds no per-request state and is safe for concurrent use.
type Engine struct {
	// embedder produces chunk and query vectors.
	embedder Embedder

	// store persists chunks and serves owner-filtered scans.
	store ChunkStore

	// chunker splits documents into overlapping windows.
	chunker *chunker.Chunker

	// concurrency bounds parallel embedding within one Index call.
	concurrency int

	// defaultTopK is used when Query or Search is called with k <= 0.
	defaultTopK int

	// now returns the creation timestamp for a batch.
	now func() time.Time

	// newID returns a fresh chunk ID.
	newID func() string

	// metrics records operation outcomes.
	metrics *engineMetrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithChunker replaces the default 1000/200 chunker.
func WithChunker(c *chunker.Chunker) Option {
	return func(e *Engine) {
		if c != nil {
			e.chunker = c
		}
	}
}

// WithConcurrency sets how many chunks of one document are embedded in
// parallel. n <= 0 keeps the default.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithDefaultTopK sets the result count for queries with k <= 0.
func WithDefaultTopK(k int) Option {
	return func(e *Engine) {
		if k > 0 {
			e.defaultTopK = k
		}
	}
}

// WithClock overrides the timestamp source. Tests use it to pin CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithMetrics registers the engine metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Engine) { e.metrics = newEngineMetrics(reg) }
}

// NewEngine constructs an Engine from an embedder and a chunk store.
func NewEngine(embedder Embedder, store ChunkStore, opts ...Option) (*Engine, error) {
	if embedder == nil {
		return nil, ErrNilEmbedder
	}
	if store == nil {
		return nil, ErrNilStore
	}

	e := &Engine{
		embedder:    embedder,
		store:       store,
		chunker:     chunker.New(),
		concurrency: DefaultConcurrency,
		defaultTopK: DefaultTopK,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = newEngineMetrics(nil)
	}
	return e, nil
}

// Index chunks text, embeds every chunk, and stores the chunks as one batch.
// It returns the number of chunks stored; text that yields no chunks is a
// no-op returning 0. An empty documentType is stored as DefaultDocumentType.
func (e *Engine) Index(ctx context.Context, ownerID *string, documentID, documentType, text string) (int, error) {
	chunks, err := e.index(ctx, ownerID, documentID, documentType, text)
	return len(chunks), err
}

// index does the work of Index and returns the stored chunks.
func (e *Engine) index(ctx context.Context, ownerID *string, documentID, documentType, text string) ([]DocumentChunk, error) {
	log := logging.FromContext(ctx)

	windows := e.chunker.Split(text)
	if len(windows) == 0 {
		e.metrics.observe(opIndex, outcomeEmpty)
		log.Debug("rag: nothing to index", slog.String("document_id", documentID))
		return nil, nil
	}

	if documentType == "" {
		documentType = DefaultDocumentType
	}
	var owner *string
	if ownerID != nil {
		o := *ownerID
		owner = &o
	}

	createdAt := e.now().UTC()
	chunks := make([]DocumentChunk, len(windows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, w := range windows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			chunks[i] = DocumentChunk{
				ID:           e.newID(),
				OwnerID:      owner,
				DocumentID:   documentID,
				DocumentType: documentType,
				ChunkIndex:   i,
				Text:         w.Text,
				Embedding:    e.embedder.Embed(gctx, w.Text),
				CreatedAt:    createdAt,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.metrics.observe(opIndex, outcomeError)
		return nil, fmt.Errorf("rag: embedding document %q: %w", documentID, err)
	}

	if err := e.store.InsertBatch(ctx, chunks); err != nil {
		e.metrics.observe(opIndex, outcomeError)
		return nil, fmt.Errorf("rag: storing chunks for document %q: %w", documentID, err)
	}

	e.metrics.observe(opIndex, outcomeOK)
	e.metrics.chunksIndexed.Add(float64(len(chunks)))
	log.Info("rag: indexed document",
		slog.String("document_id", documentID),
		slog.String("document_type", documentType),
		slog.Int("chunks", len(chunks)),
		slog.Int("text_len", len(text)),
	)
	return chunks, nil
}

// Query returns the k stored chunks most similar to queryText, ordered by
// descending cosine similarity. See Search for ranking and scoping rules.
func (e *Engine) Query(ctx context.Context, queryText string, k int, ownerID *string) ([]DocumentChunk, error) {
	scored, err := e.Search(ctx, queryText, k, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]DocumentChunk, len(scored))
	for i, s := range scored {
		out[i] = s.DocumentChunk
	}
	return out, nil
}

// Search is Query with the similarity score attached to each result.
//
// Candidates are the chunks owned by *ownerID, or all chunks when ownerID is
// nil. k <= 0 selects the default of 5. A blank query or an empty store
// yields an empty, non-nil result. Equal scores are ordered by CreatedAt
// ascending, then DocumentID, then ChunkIndex.
func (e *Engine) Search(ctx context.Context, queryText string, k int, ownerID *string) ([]ScoredChunk, error) {
	if k <= 0 {
		k = e.defaultTopK
	}
	if strings.TrimSpace(queryText) == "" {
		e.metrics.observe(opQuery, outcomeEmpty)
		return []ScoredChunk{}, nil
	}

	candidates, err := e.store.Scan(ctx, ownerID)
	if err != nil {
		e.metrics.observe(opQuery, outcomeError)
		return nil, fmt.Errorf("rag: scanning chunks: %w", err)
	}
	if len(candidates) == 0 {
		e.metrics.observe(opQuery, outcomeEmpty)
		return []ScoredChunk{}, nil
	}

	qvec := e.embedder.Embed(ctx, queryText)

	scored := make([]ScoredChunk, len(candidates))
	for i, c := range candidates {
		scored[i] = ScoredChunk{DocumentChunk: c, Score: Cosine(qvec, c.Embedding)}
	}
	slices.SortFunc(scored, compareScored)

	if len(scored) > k {
		scored = scored[:k]
	}
	e.metrics.observe(opQuery, outcomeOK)
	logging.FromContext(ctx).Debug("rag: query ranked",
		slog.Int("candidates", len(candidates)),
		slog.Int("returned", len(scored)),
	)
	return scored, nil
}

// DeleteDocument removes every chunk of documentID.
func (e *Engine) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	n, err := e.store.DeleteDocument(ctx, documentID)
	if err != nil {
		e.metrics.observe(opDelete, outcomeError)
		return 0, fmt.Errorf("rag: deleting document %q: %w", documentID, err)
	}
	e.metrics.observe(opDelete, outcomeOK)
	return n, nil
}

// DeleteOwner removes every chunk owned by ownerID.
func (e *Engine) DeleteOwner(ctx context.Context, ownerID string) (int, error) {
	n, err := e.store.DeleteOwner(ctx, ownerID)
	if err != nil {
		e.metrics.observe(opDelete, outcomeError)
		return 0, fmt.Errorf("rag: deleting owner %q: %w", ownerID, err)
	}
	e.metrics.observe(opDelete, outcomeOK)
	return n, nil
}

// compareScored orders by score descending, then CreatedAt, DocumentID and
// ChunkIndex ascending.
func compareScored(a, b ScoredChunk) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	if c := strings.Compare(a.DocumentID, b.DocumentID); c != 0 {
		return c
	}
	return cmp.Compare(a.ChunkIndex, b.ChunkIndex)
}
