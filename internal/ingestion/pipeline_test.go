package ingestion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/indexer"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/interviewly-rag/internal/rag"
	"github.com/54b3r/interviewly-rag/internal/store"
)

// indexCall records one stored document.
type indexCall struct {
	owner   *string
	docID   string
	docType string
	text    string
}

// fakeIndexer records stored documents and returns len(text)/10+1 chunk ids
// per document.
type fakeIndexer struct {
	mu    sync.Mutex
	calls []indexCall
	err   error
}

func (f *fakeIndexer) Store(_ context.Context, docs []*schema.Document, _ ...indexer.Option) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var ids []string
	for _, doc := range docs {
		call := indexCall{docID: doc.ID, text: doc.Content}
		call.docType, _ = doc.MetaData[rag.MetaDocumentType].(string)
		if o, ok := doc.MetaData[rag.MetaOwnerID].(string); ok {
			call.owner = &o
		}
		f.calls = append(f.calls, call)
		for i := range len(doc.Content)/10 + 1 {
			ids = append(ids, fmt.Sprintf("%s-%d", doc.ID, i))
		}
	}
	return ids, nil
}

func TestPipeline_FileSourceInfersTypeAndID(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "jane-resume.txt")
	if err := os.WriteFile(path, []byte("Go engineer with Kubernetes experience."), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	idx := &fakeIndexer{}
	p, err := NewPipeline(idx, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	owner := "jane"
	var msgs []string
	results, err := p.Ingest(context.Background(), []Source{{Path: path, OwnerID: &owner}}, func(m string) {
		msgs = append(msgs, m)
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(results) != 1 || len(idx.calls) != 1 {
		t.Fatalf("want 1 result and 1 call, got %d / %d", len(results), len(idx.calls))
	}

	call := idx.calls[0]
	if call.docType != TypeResume {
		t.Errorf("docType: want %q, got %q", TypeResume, call.docType)
	}
	if call.docID != documentID(path) || results[0].DocumentID != call.docID {
		t.Errorf("docID: want stable hash %q, got %q", documentID(path), call.docID)
	}
	if call.owner == nil || *call.owner != "jane" {
		t.Errorf("owner not forwarded: %v", call.owner)
	}
	if results[0].Chunks != 4 {
		t.Errorf("chunks: want 4, got %d", results[0].Chunks)
	}
	if len(msgs) != 2 {
		t.Errorf("want 2 progress messages, got %v", msgs)
	}
}

func TestPipeline_ReaderRequiresDocumentID(t *testing.T) {
	t.Parallel()

	idx := &fakeIndexer{}
	p, _ := NewPipeline(idx, nil)

	_, err := p.Ingest(context.Background(), []Source{{Reader: strings.NewReader("text")}}, nil)
	if err == nil || !strings.Contains(err.Error(), "document id is required") {
		t.Fatalf("want missing document id error, got %v", err)
	}

	results, err := p.Ingest(context.Background(), []Source{{
		Reader:       strings.NewReader("stdin text"),
		DocumentID:   "doc-1",
		DocumentType: "job-description",
	}}, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if results[0].DocumentType != "job-description" || idx.calls[0].text != "stdin text" {
		t.Errorf("unexpected call: %+v", idx.calls[0])
	}
}

func TestPipeline_URLSource(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing User-Agent")
		}
		switch r.URL.Path {
		case "/jobs/backend-job-description.txt":
			_, _ = w.Write([]byte("We are hiring a backend engineer."))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	idx := &fakeIndexer{}
	p, _ := NewPipeline(idx, nil)

	results, err := p.Ingest(context.Background(), []Source{{URL: srv.URL + "/jobs/backend-job-description.txt"}}, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if results[0].DocumentType != TypeJobDescription {
		t.Errorf("docType: want %q, got %q", TypeJobDescription, results[0].DocumentType)
	}

	_, err = p.Ingest(context.Background(), []Source{{URL: srv.URL + "/missing"}}, nil)
	if err == nil || !strings.Contains(err.Error(), "unexpected status 404") {
		t.Errorf("want 404 error, got %v", err)
	}
}

func TestPipeline_RejectsOversizedAndBinary(t *testing.T) {
	t.Parallel()

	idx := &fakeIndexer{}
	p, _ := NewPipeline(idx, &Config{MaxBytes: 8})

	_, err := p.Ingest(context.Background(), []Source{{Reader: strings.NewReader("123456789"), DocumentID: "big"}}, nil)
	if err == nil || !strings.Contains(err.Error(), "exceeds 8 bytes") {
		t.Errorf("want size error, got %v", err)
	}

	_, err = p.Ingest(context.Background(), []Source{{Reader: strings.NewReader("\xff\xfe"), DocumentID: "bin"}}, nil)
	if err == nil || !strings.Contains(err.Error(), "UTF-8") {
		t.Errorf("want UTF-8 error, got %v", err)
	}
	if len(idx.calls) != 0 {
		t.Errorf("rejected documents reached the indexer: %d calls", len(idx.calls))
	}
}

func TestPipeline_StopsAtFirstError(t *testing.T) {
	t.Parallel()

	boom := errors.New("store down")
	p, _ := NewPipeline(&fakeIndexer{err: boom}, nil)

	results, err := p.Ingest(context.Background(), []Source{
		{Reader: strings.NewReader("a"), DocumentID: "1"},
		{Reader: strings.NewReader("b"), DocumentID: "2"},
	}, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("want wrapped store error, got %v", err)
	}
	if len(results) != 0 {
		t.Errorf("want no results, got %d", len(results))
	}

	_, err = p.Ingest(context.Background(), []Source{{DocumentID: "empty"}}, nil)
	if !errors.Is(err, ErrNoContent) {
		t.Errorf("want ErrNoContent, got %v", err)
	}
}

func TestNewPipeline_NilIndexer(t *testing.T) {
	t.Parallel()
	if _, err := NewPipeline(nil, nil); err == nil {
		t.Fatal("want error for nil indexer")
	}
}

func TestPipeline_StoresThroughEinoIndexer(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	eng, err := rag.NewEngine(constVector{}, s)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	p, err := NewPipeline(rag.NewEinoIndexer(eng), nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	owner := "jane"
	text := strings.Repeat("r", 2500)
	results, err := p.Ingest(context.Background(), []Source{{
		Reader:       strings.NewReader(text),
		DocumentID:   "cv-1",
		DocumentType: TypeResume,
		OwnerID:      &owner,
	}}, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if results[0].Chunks != 4 {
		t.Errorf("chunks: want 4, got %d", results[0].Chunks)
	}

	chunks, err := s.Scan(context.Background(), &owner)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(chunks) != 4 {
		t.Fatalf("stored chunks for owner: want 4, got %d", len(chunks))
	}
	for _, c := range chunks {
		if c.DocumentID != "cv-1" || c.DocumentType != TypeResume {
			t.Errorf("chunk %d: unexpected provenance %q/%q", c.ChunkIndex, c.DocumentID, c.DocumentType)
		}
	}
}

// constVector embeds every text as the same unit vector.
type constVector struct{}

func (constVector) Embed(context.Context, string) []float64 { return []float64{1, 0} }
