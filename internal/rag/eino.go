package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/indexer"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
)

// Metadata keys read and written by the eino adapters.
const (
	MetaOwnerID      = "owner_id"
	MetaDocumentID   = "document_id"
	MetaDocumentType = "document_type"
	MetaChunkIndex   = "chunk_index"
	MetaCreatedAt    = "created_at"
)

// einoOptions are the retriever options specific to this engine.
type einoOptions struct {
	ownerID *string
}

// WithOwner scopes an EinoRetriever call to one owner, overriding the
// retriever's default scope.
func WithOwner(ownerID string) retriever.Option {
	return retriever.WrapImplSpecificOptFn(func(o *einoOptions) {
		o.ownerID = &ownerID
	})
}

// Searcher is the ranking operation behind EinoRetriever. *Engine satisfies it.
type Searcher interface {
	Search(ctx context.Context, queryText string, k int, ownerID *string) ([]ScoredChunk, error)
}

// EinoRetriever exposes Search as an eino retriever. The HTTP query route and
// `irag query` both rank through it.
type EinoRetriever struct {
	searcher Searcher
	ownerID  *string
}

// NewEinoRetriever returns a retriever over searcher. ownerID is the default
// scope; nil searches all chunks.
func NewEinoRetriever(searcher Searcher, ownerID *string) *EinoRetriever {
	return &EinoRetriever{searcher: searcher, ownerID: ownerID}
}

// Retrieve implements retriever.Retriever. retriever.WithTopK and
// retriever.WithScoreThreshold are honoured; results below the threshold are
// dropped after ranking.
func (r *EinoRetriever) Retrieve(ctx context.Context, query string, opts ...retriever.Option) ([]*schema.Document, error) {
	common := retriever.GetCommonOptions(&retriever.Options{}, opts...)
	specific := retriever.GetImplSpecificOptions(&einoOptions{ownerID: r.ownerID}, opts...)

	k := 0
	if common.TopK != nil {
		k = *common.TopK
	}

	hits, err := r.searcher.Search(ctx, query, k, specific.ownerID)
	if err != nil {
		return nil, err
	}

	docs := make([]*schema.Document, 0, len(hits))
	for _, h := range hits {
		if common.ScoreThreshold != nil && h.Score < *common.ScoreThreshold {
			continue
		}
		docs = append(docs, toSchemaDocument(h))
	}
	return docs, nil
}

// EinoIndexer exposes Engine.Index as an eino indexer. Each schema.Document
// is indexed as one source document: its ID becomes the document ID (a UUID
// is generated when empty) and the owner_id / document_type metadata keys
// supply the owner and type. The ingestion pipeline stores through it.
type EinoIndexer struct {
	engine *Engine
}

// NewEinoIndexer returns an indexer over engine.
func NewEinoIndexer(engine *Engine) *EinoIndexer {
	return &EinoIndexer{engine: engine}
}

// Store implements indexer.Indexer. It returns the IDs of the stored chunks,
// document by document in input order. A document that yields no chunks
// contributes no IDs.
func (x *EinoIndexer) Store(ctx context.Context, docs []*schema.Document, _ ...indexer.Option) ([]string, error) {
	var ids []string
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		docID := doc.ID
		if docID == "" {
			docID = uuid.NewString()
		}
		owner := OwnerPtr(metaString(doc.MetaData, MetaOwnerID))
		docType := metaString(doc.MetaData, MetaDocumentType)

		chunks, err := x.engine.index(ctx, owner, docID, docType, doc.Content)
		if err != nil {
			return ids, fmt.Errorf("rag: eino indexer: %w", err)
		}
		for _, c := range chunks {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

// toSchemaDocument converts a ranked chunk to an eino document carrying its
// score, vector and provenance metadata.
func toSchemaDocument(h ScoredChunk) *schema.Document {
	meta := map[string]any{
		MetaDocumentID:   h.DocumentID,
		MetaDocumentType: h.DocumentType,
		MetaChunkIndex:   h.ChunkIndex,
		MetaCreatedAt:    h.CreatedAt,
	}
	if h.OwnerID != nil {
		meta[MetaOwnerID] = *h.OwnerID
	}
	doc := &schema.Document{ID: h.ID, Content: h.Text, MetaData: meta}
	return doc.WithScore(h.Score).WithDenseVector(h.Embedding)
}

// ChunkFromDocument is the inverse of the retriever's conversion: it rebuilds
// a ScoredChunk from a document returned by EinoRetriever.
func ChunkFromDocument(doc *schema.Document) ScoredChunk {
	c := ScoredChunk{
		DocumentChunk: DocumentChunk{
			ID:           doc.ID,
			OwnerID:      OwnerPtr(metaString(doc.MetaData, MetaOwnerID)),
			DocumentID:   metaString(doc.MetaData, MetaDocumentID),
			DocumentType: metaString(doc.MetaData, MetaDocumentType),
			Text:         doc.Content,
			Embedding:    doc.DenseVector(),
		},
		Score: doc.Score(),
	}
	if i, ok := doc.MetaData[MetaChunkIndex].(int); ok {
		c.ChunkIndex = i
	}
	if t, ok := doc.MetaData[MetaCreatedAt].(time.Time); ok {
		c.CreatedAt = t
	}
	return c
}

func metaString(meta map[string]any, key string) string {
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}

// compile-time interface checks.
var (
	_ retriever.Retriever = (*EinoRetriever)(nil)
	_ indexer.Indexer     = (*EinoIndexer)(nil)
)
