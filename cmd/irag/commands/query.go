package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/spf13/cobra"

	"github.com/54b3r/interviewly-rag/internal/logging"
	"github.com/54b3r/interviewly-rag/internal/rag"
)

// previewLen caps the chunk text printed per result in text mode.
const previewLen = 160

// NewQueryCmd constructs the `irag query` command.
func NewQueryCmd() *cobra.Command {
	var owner, backend string
	var k int
	var minScore float64
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Rank stored chunks against a query",
		Long: `Embed the query text and print the k most similar stored chunks,
best first. Without --owner every chunk is a candidate. With --min-score,
results whose cosine similarity falls below the threshold are dropped.

Examples:
  irag query "kubernetes operators in go"
  irag query --owner user-42 -k 3 --json "incident response"
  irag query --min-score 0.3 "terraform modules"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)

			rt, err := buildRuntime(ctx, log, backend, nil)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			defer func() { _ = rt.Close() }()

			opts := []retriever.Option{retriever.WithTopK(k)}
			if cmd.Flags().Changed("min-score") {
				opts = append(opts, retriever.WithScoreThreshold(minScore))
			}
			docs, err := rag.NewEinoRetriever(rt.engine, rag.OwnerPtr(owner)).Retrieve(ctx, strings.Join(args, " "), opts...)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			results := make([]rag.ScoredChunk, len(docs))
			for i, doc := range docs {
				results[i] = rag.ChunkFromDocument(doc)
			}

			if asJSON {
				return writeResultsJSON(cmd.OutOrStdout(), results)
			}
			writeResultsText(cmd.OutOrStdout(), results)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Restrict candidates to one owner")
	cmd.Flags().IntVarP(&k, "top-k", "k", rag.DefaultTopK, "Number of results")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "Drop results scoring below this cosine similarity")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as a JSON array")
	cmd.Flags().StringVar(&backend, "store", "", "Chunk store: sqlite, memory, qdrant, postgres (env: IRAG_STORE)")

	return cmd
}

// writeResultsJSON prints results without their embeddings.
func writeResultsJSON(w io.Writer, results []rag.ScoredChunk) error {
	out := make([]rag.ScoredChunk, len(results))
	for i, r := range results {
		r.Embedding = nil
		out[i] = r
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeResultsText(w io.Writer, results []rag.ScoredChunk) {
	if len(results) == 0 {
		fmt.Fprintln(w, "no results")
		return
	}
	for i, r := range results {
		fmt.Fprintf(w, "%d. [%.4f] %s#%d (%s)\n", i+1, r.Score, r.DocumentID, r.ChunkIndex, r.DocumentType)
		fmt.Fprintf(w, "   %s\n", preview(r.Text))
	}
}

// preview flattens whitespace and truncates s to previewLen runes.
func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= previewLen {
		return s
	}
	return string(runes[:previewLen]) + "..."
}
