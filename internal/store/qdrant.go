package store

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/54b3r/interviewly-rag/internal/rag"
)

// Payload field names written for every point.
const (
	fieldOwnerID      = "owner_id"
	fieldDocumentID   = "document_id"
	fieldDocumentType = "document_type"
	fieldChunkIndex   = "chunk_index"
	fieldText         = "text"
	fieldCreatedAt    = "created_at"
	fieldDims         = "dims"
)

// scrollPageSize is the number of points fetched per Scroll request.
const scrollPageSize = 256

// QdrantConfig holds connection parameters for a Qdrant vector store instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name (default: document_chunks).
	Collection string

	// VectorSize is the collection's vector length. Shorter embeddings are
	// zero-padded; longer ones are rejected. Default: 768.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore implements rag.ChunkStore backed by a Qdrant collection.
// Qdrant stores float32 vectors, so embeddings read back are narrowed to
// float32 precision. Ranking stays in the engine; Qdrant is used as a
// filtered chunk store.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig
}

// NewQdrantStore creates a QdrantStore, ensuring the target collection and
// its payload indexes exist.
func NewQdrantStore(ctx context.Context, cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = "document_chunks"
	}
	if cfg.VectorSize == 0 {
		cfg.VectorSize = 768
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	s := &QdrantStore{client: client, cfg: cfg}
	if err := s.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

// ensureCollection creates the collection and keyword indexes on the
// filter fields if the collection does not already exist.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", s.cfg.Collection, err)
	}

	wait := true
	for _, field := range []string{fieldOwnerID, fieldDocumentID} {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.cfg.Collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
			Wait:           &wait,
		})
		if err != nil {
			return fmt.Errorf("qdrant: failed to index payload field %q: %w", field, err)
		}
	}
	return nil
}

// InsertBatch upserts all chunks in a single request and waits for the
// write to be applied.
func (s *QdrantStore) InsertBatch(ctx context.Context, chunks []rag.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := validateBatch(chunks); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, c := range chunks {
		if uint64(len(c.Embedding)) > s.cfg.VectorSize {
			return fmt.Errorf("qdrant: chunk %s has %d dimensions, collection %q holds %d",
				c.ID, len(c.Embedding), s.cfg.Collection, s.cfg.VectorSize)
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(c.ID),
			Vectors: qdrant.NewVectors(s.pad(c.Embedding)...),
			Payload: qdrant.NewValueMap(chunkPayload(c)),
		})
	}

	wait := true
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert failed: %w", err)
	}
	return nil
}

// Scan pages through the collection with Scroll, filtered on owner_id when
// ownerID is set.
func (s *QdrantStore) Scan(ctx context.Context, ownerID *string) ([]rag.DocumentChunk, error) {
	var filter *qdrant.Filter
	if ownerID != nil {
		filter = matchFilter(fieldOwnerID, *ownerID)
	}

	var (
		out    []rag.DocumentChunk
		offset *qdrant.PointId
	)
	// Each request asks for one extra point; its ID is the next page's offset.
	limit := uint32(scrollPageSize + 1)
	for {
		points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.cfg.Collection,
			Filter:         filter,
			Offset:         offset,
			Limit:          &limit,
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(true),
		})
		if err != nil {
			return nil, fmt.Errorf("qdrant: scroll failed: %w", err)
		}

		page := points
		if len(points) > scrollPageSize {
			page = points[:scrollPageSize]
		}
		for _, p := range page {
			c, err := pointToChunk(p)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}

		if len(points) <= scrollPageSize {
			return out, nil
		}
		offset = points[scrollPageSize].GetId()
	}
}

// DeleteDocument removes every point of documentID.
func (s *QdrantStore) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	return s.deleteByFilter(ctx, matchFilter(fieldDocumentID, documentID))
}

// DeleteOwner removes every point owned by ownerID.
func (s *QdrantStore) DeleteOwner(ctx context.Context, ownerID string) (int, error) {
	return s.deleteByFilter(ctx, matchFilter(fieldOwnerID, ownerID))
}

// deleteByFilter counts the matching points, then deletes them.
func (s *QdrantStore) deleteByFilter(ctx context.Context, filter *qdrant.Filter) (int, error) {
	exact := true
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.cfg.Collection,
		Filter:         filter,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant: count failed: %w", err)
	}
	if n == 0 {
		return 0, nil
	}

	wait := true
	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.cfg.Collection,
		Wait:           &wait,
		Points:         qdrant.NewPointsSelectorFilter(filter),
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant: delete failed: %w", err)
	}
	return int(n), nil
}

// Ping performs a Qdrant health check.
func (s *QdrantStore) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant: health check failed: %w", err)
	}
	return nil
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// pad narrows v to float32 and zero-pads it to the collection size. Zero
// padding leaves dot products and norms unchanged.
func (s *QdrantStore) pad(v []float64) []float32 {
	out := make([]float32, s.cfg.VectorSize)
	copy(out, narrow(v))
	return out
}

// chunkPayload builds the point payload for c.
func chunkPayload(c rag.DocumentChunk) map[string]any {
	payload := map[string]any{
		fieldOwnerID:      nil,
		fieldDocumentID:   c.DocumentID,
		fieldDocumentType: c.DocumentType,
		fieldChunkIndex:   int64(c.ChunkIndex),
		fieldText:         c.Text,
		fieldCreatedAt:    c.CreatedAt.UTC().Format(time.RFC3339Nano),
		fieldDims:         int64(len(c.Embedding)),
	}
	if c.OwnerID != nil {
		payload[fieldOwnerID] = *c.OwnerID
	}
	return payload
}

// pointToChunk rebuilds a chunk from a scrolled point, trimming the vector
// back to its original length.
func pointToChunk(p *qdrant.RetrievedPoint) (rag.DocumentChunk, error) {
	c := rag.DocumentChunk{ID: p.GetId().GetUuid()}
	payload := p.GetPayload()

	if v, ok := payload[fieldOwnerID]; ok {
		if s, ok := v.GetKind().(*qdrant.Value_StringValue); ok {
			owner := s.StringValue
			c.OwnerID = &owner
		}
	}
	c.DocumentID = payload[fieldDocumentID].GetStringValue()
	c.DocumentType = payload[fieldDocumentType].GetStringValue()
	c.ChunkIndex = int(payload[fieldChunkIndex].GetIntegerValue())
	c.Text = payload[fieldText].GetStringValue()

	if ts := payload[fieldCreatedAt].GetStringValue(); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return c, fmt.Errorf("qdrant: point %s has invalid %s: %w", c.ID, fieldCreatedAt, err)
		}
		c.CreatedAt = t.UTC()
	}

	vec := denseVector(p.GetVectors().GetVector())
	if dims := int(payload[fieldDims].GetIntegerValue()); dims > 0 && dims <= len(vec) {
		vec = vec[:dims]
	}
	c.Embedding = widen(vec)
	return c, nil
}

// denseVector extracts the float32 data from a vector output, whichever
// representation the server used.
func denseVector(v *qdrant.VectorOutput) []float32 {
	if d := v.GetDense(); d != nil {
		return d.GetData()
	}
	return v.GetData()
}

// matchFilter returns a filter matching points whose keyword field equals value.
func matchFilter(field, value string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch(field, value)},
	}
}

var _ rag.ChunkStore = (*QdrantStore)(nil)
