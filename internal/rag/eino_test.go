package rag_test

import (
	"testing"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/54b3r/interviewly-rag/internal/rag"
)

func TestEinoIndexerAndRetriever(t *testing.T) {
	t.Parallel()

	emb := vectorEmbedder{
		"golang":           {1, 0},
		"Go services":      {0.95, 0.05},
		"Python notebooks": {0, 1},
		"Shared notes":     {0.7, 0.7},
	}
	e, s := newEngine(t, emb)

	idx := rag.NewEinoIndexer(e)
	ids, err := idx.Store(t.Context(), []*schema.Document{
		{ID: "go-doc", Content: "Go services", MetaData: map[string]any{rag.MetaOwnerID: "alice", rag.MetaDocumentType: "job-description"}},
		{ID: "py-doc", Content: "Python notebooks", MetaData: map[string]any{rag.MetaOwnerID: "alice"}},
		{Content: "Shared notes"},
	})
	require.NoError(t, err)
	require.Len(t, ids, 3, "one chunk id per short document")
	assert.Equal(t, 3, s.Len())

	stored, err := s.Scan(t.Context(), nil)
	require.NoError(t, err)
	byID := make(map[string]rag.DocumentChunk, len(stored))
	for _, c := range stored {
		byID[c.ID] = c
	}
	for _, id := range ids {
		require.Contains(t, byID, id)
	}
	assert.Equal(t, "go-doc", byID[ids[0]].DocumentID)
	assert.Equal(t, "py-doc", byID[ids[1]].DocumentID)
	assert.NotEmpty(t, byID[ids[2]].DocumentID, "a document without an id gets a generated one")
	assert.Nil(t, byID[ids[2]].OwnerID)

	r := rag.NewEinoRetriever(e, nil)

	docs, err := r.Retrieve(t.Context(), "golang", retriever.WithTopK(1))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Go services", docs[0].Content)
	assert.Equal(t, "go-doc", docs[0].MetaData[rag.MetaDocumentID])
	assert.Equal(t, "job-description", docs[0].MetaData[rag.MetaDocumentType])
	assert.Equal(t, "alice", docs[0].MetaData[rag.MetaOwnerID])
	assert.InDelta(t, 0.9986, docs[0].Score(), 1e-3)
	assert.Equal(t, []float64{0.95, 0.05}, docs[0].DenseVector())

	docs, err = r.Retrieve(t.Context(), "golang", retriever.WithScoreThreshold(0.5))
	require.NoError(t, err)
	require.Len(t, docs, 2, "the orthogonal document falls below the threshold")
	assert.Equal(t, "Shared notes", docs[1].Content)

	docs, err = r.Retrieve(t.Context(), "golang", rag.WithOwner("alice"))
	require.NoError(t, err)
	assert.Len(t, docs, 2, "owner scope hides the unowned document")

	scoped := rag.NewEinoRetriever(e, func() *string { s := "bob"; return &s }())
	docs, err = scoped.Retrieve(t.Context(), "golang")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestEinoIndexer_EmptyDocumentStoresNothing(t *testing.T) {
	t.Parallel()
	e, s := newEngine(t, vectorEmbedder{})

	ids, err := rag.NewEinoIndexer(e).Store(t.Context(), []*schema.Document{{ID: "blank", Content: "   "}, nil})
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Zero(t, s.Len())
}

func TestChunkFromDocument(t *testing.T) {
	t.Parallel()

	emb := vectorEmbedder{"golang": {1, 0}, "Go services": {1, 0}}
	e, _ := newEngine(t, emb)
	_, err := e.Index(t.Context(), ptr("alice"), "go-doc", "job-description", "Go services")
	require.NoError(t, err)

	want, err := e.Search(t.Context(), "golang", 1, nil)
	require.NoError(t, err)
	require.Len(t, want, 1)

	docs, err := rag.NewEinoRetriever(e, nil).Retrieve(t.Context(), "golang")
	require.NoError(t, err)
	require.Len(t, docs, 1)

	got := rag.ChunkFromDocument(docs[0])
	assert.Equal(t, want[0].ID, got.ID)
	assert.Equal(t, want[0].DocumentID, got.DocumentID)
	assert.Equal(t, want[0].DocumentType, got.DocumentType)
	assert.Equal(t, want[0].ChunkIndex, got.ChunkIndex)
	assert.Equal(t, want[0].Text, got.Text)
	assert.Equal(t, want[0].CreatedAt, got.CreatedAt)
	assert.Equal(t, want[0].Embedding, got.Embedding)
	assert.InDelta(t, want[0].Score, got.Score, 1e-12)
	require.NotNil(t, got.OwnerID)
	assert.Equal(t, "alice", *got.OwnerID)
}
