package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/54b3r/interviewly-rag/internal/ingestion"
	"github.com/54b3r/interviewly-rag/internal/logging"
	"github.com/54b3r/interviewly-rag/internal/rag"
)

// NewIndexCmd constructs the `irag index` command, which chunks, embeds and
// stores one document read from a file, a URL, or stdin.
func NewIndexCmd() *cobra.Command {
	var docID, owner, docType, file, url, backend string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index a document into the chunk store",
		Long: `Chunk, embed, and store one document.

The text comes from --file, --url, or stdin. When --type is omitted it is
inferred from the file name or URL ("resume", "job-description",
"cover-letter"). When --doc-id is omitted for a file or URL, a stable id is
derived from its location. Reading from stdin requires --doc-id.

Re-indexing a document id appends new chunks; run 'irag delete --doc-id'
first to replace a document.

Examples:
  irag index --file ./cv.md --owner user-42
  irag index --url https://example.com/jobs/sre.txt --type job-description
  cat notes.txt | irag index --doc-id notes-1`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)

			src := ingestion.Source{
				Path:         file,
				URL:          url,
				DocumentID:   docID,
				DocumentType: docType,
				OwnerID:      rag.OwnerPtr(owner),
			}
			if file == "" && url == "" {
				if docID == "" {
					return fmt.Errorf("index: --doc-id is required when reading from stdin")
				}
				src.Reader = cmd.InOrStdin()
			}

			rt, err := buildRuntime(ctx, log, backend, nil)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}
			defer func() { _ = rt.Close() }()

			pipeline, err := ingestion.NewPipeline(rag.NewEinoIndexer(rt.engine), nil)
			if err != nil {
				return fmt.Errorf("index: failed to create pipeline: %w", err)
			}

			results, err := pipeline.Ingest(ctx, []ingestion.Source{src}, func(msg string) {
				log.Info(msg)
			})
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}

			for _, r := range results {
				if r.DocumentType == "" {
					r.DocumentType = rag.DefaultDocumentType
				}
				log.Info("index complete",
					slog.String("document_id", r.DocumentID),
					slog.String("document_type", r.DocumentType),
					slog.Int("chunks", r.Chunks),
				)
				fmt.Fprintf(cmd.OutOrStdout(), "indexed %s (%s): %d chunks\n", r.DocumentID, r.DocumentType, r.Chunks)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&docID, "doc-id", "", "Document id (required for stdin)")
	cmd.Flags().StringVar(&owner, "owner", "", "Owner id; omit to make the document globally visible")
	cmd.Flags().StringVarP(&docType, "type", "t", "", "Document type (default: inferred, else resume)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to a UTF-8 text file")
	cmd.Flags().StringVarP(&url, "url", "u", "", "URL of a plain-text document")
	cmd.Flags().StringVar(&backend, "store", "", "Chunk store: sqlite, memory, qdrant, postgres (env: IRAG_STORE)")
	cmd.MarkFlagsMutuallyExclusive("file", "url")

	return cmd
}
