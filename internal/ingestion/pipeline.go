// Package ingestion loads document text from files, URLs, or streams and
// hands it to an eino indexer (rag.EinoIndexer in production) for chunking,
// embedding, and storage. This pipeline is invoked by the `irag index` CLI
// command.
package ingestion

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/indexer"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/interviewly-rag/internal/rag"
)

// Source describes one document to ingest. Exactly one of Path, URL and
// Reader must be set.
type Source struct {
	// Path is a local text file.
	Path string

	// URL is an HTTP(S) URL whose body is plain text.
	URL string

	// Reader supplies the text directly (e.g. stdin).
	Reader io.Reader

	// DocumentID identifies the document. Derived from Path or URL when empty.
	DocumentID string

	// DocumentType overrides type inference from Path or URL.
	DocumentType string

	// OwnerID scopes the document; nil makes it globally visible.
	OwnerID *string
}

// name returns the file path or URL the source was loaded from.
func (s Source) name() string {
	if s.Path != "" {
		return s.Path
	}
	return s.URL
}

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// HTTPTimeout is the timeout for each URL fetch.
	// Defaults to 30s if zero.
	HTTPTimeout time.Duration

	// MaxBytes caps the size of a single document. Defaults to 5 MiB.
	MaxBytes int64

	// UserAgent is the HTTP User-Agent header sent with fetch requests.
	UserAgent string
}

// Pipeline orchestrates the load → index flow for a set of sources.
type Pipeline struct {
	// indexer chunks, embeds and stores each document and returns one id
	// per stored chunk.
	indexer indexer.Indexer

	// cfg holds the resolved pipeline configuration.
	cfg *Config

	// httpClient is the HTTP client used for fetching URLs.
	httpClient *http.Client
}

// ErrNoContent is returned for a source with none of Path, URL or Reader set.
var ErrNoContent = errors.New("ingestion: source has no path, url or reader")

// NewPipeline constructs a Pipeline from the provided indexer and config.
func NewPipeline(idx indexer.Indexer, cfg *Config) (*Pipeline, error) {
	if idx == nil {
		return nil, fmt.Errorf("ingestion: indexer must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 5 << 20
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "irag/1.0 (document ingestion)"
	}

	return &Pipeline{
		indexer: idx,
		cfg:     cfg,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
	}, nil
}

// Result reports what Ingest did with one source.
type Result struct {
	DocumentID   string
	DocumentType string
	Chunks       int
}

// Ingest loads and indexes all provided sources.
// It processes sources sequentially and returns the results so far together
// with the first error encountered. Progress is reported via the optional
// progress callback.
func (p *Pipeline) Ingest(ctx context.Context, sources []Source, progress func(msg string)) ([]Result, error) {
	if progress == nil {
		progress = func(string) {}
	}

	results := make([]Result, 0, len(sources))
	for _, src := range sources {
		label := src.name()
		if label == "" {
			label = "stdin"
		}
		progress(fmt.Sprintf("loading %s", label))

		text, err := p.load(ctx, src)
		if err != nil {
			return results, fmt.Errorf("ingestion: load failed for %s: %w", label, err)
		}

		docID := src.DocumentID
		if docID == "" {
			if src.name() == "" {
				return results, fmt.Errorf("ingestion: a document id is required for %s", label)
			}
			docID = documentID(src.name())
		}
		docType := src.DocumentType
		if docType == "" {
			docType = InferDocumentType(src.name())
		}

		ids, err := p.indexer.Store(ctx, []*schema.Document{toDocument(src, docID, docType, text)})
		if err != nil {
			return results, fmt.Errorf("ingestion: index failed for %s: %w", label, err)
		}
		n := len(ids)

		results = append(results, Result{DocumentID: docID, DocumentType: docType, Chunks: n})
		progress(fmt.Sprintf("indexed %d chunks from %s as %s", n, label, docID))
	}

	return results, nil
}

// toDocument wraps loaded text as an eino document carrying the owner and
// type in the metadata keys rag.EinoIndexer reads.
func toDocument(src Source, docID, docType, text string) *schema.Document {
	meta := map[string]any{rag.MetaDocumentType: docType}
	if src.OwnerID != nil {
		meta[rag.MetaOwnerID] = *src.OwnerID
	}
	return &schema.Document{ID: docID, Content: text, MetaData: meta}
}

// load reads the text of src, enforcing the size cap and UTF-8 validity.
func (p *Pipeline) load(ctx context.Context, src Source) (string, error) {
	var r io.Reader
	switch {
	case src.Reader != nil:
		r = src.Reader
	case src.Path != "":
		f, openErr := os.Open(filepath.Clean(src.Path))
		if openErr != nil {
			return "", fmt.Errorf("open: %w", openErr)
		}
		defer f.Close()
		r = f
	case src.URL != "":
		return p.fetch(ctx, src.URL)
	default:
		return "", ErrNoContent
	}

	return readCapped(r, p.cfg.MaxBytes)
}

// fetch retrieves the raw text content of a URL.
func (p *Pipeline) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)
	req.Header.Set("Accept", "text/plain, text/markdown")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	return readCapped(resp.Body, p.cfg.MaxBytes)
}

// readCapped reads at most limit bytes from r and rejects larger or
// non-UTF-8 input.
func readCapped(r io.Reader, limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("reading: %w", err)
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("document exceeds %d bytes", limit)
	}
	if !utf8.Valid(data) {
		return "", errors.New("document is not valid UTF-8 text")
	}
	return string(data), nil
}

// documentID derives a stable document ID from a file path or URL, so
// re-ingesting the same source reuses its ID.
func documentID(source string) string {
	h := sha256.Sum256([]byte(source))
	return fmt.Sprintf("%x", h[:16])
}
