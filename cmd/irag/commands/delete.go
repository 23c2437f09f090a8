package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/interviewly-rag/internal/logging"
)

// NewDeleteCmd constructs the `irag delete` command.
func NewDeleteCmd() *cobra.Command {
	var docID, owner, backend string

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a document or every document of an owner",
		Example: `  irag delete --doc-id resume-2024
  irag delete --owner user-42`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if docID == "" && owner == "" {
				return fmt.Errorf("delete: --doc-id or --owner must be non-empty")
			}

			rt, err := buildRuntime(ctx, logging.FromContext(ctx), backend, nil)
			if err != nil {
				return fmt.Errorf("delete: %w", err)
			}
			defer func() { _ = rt.Close() }()

			var n int
			if docID != "" {
				n, err = rt.engine.DeleteDocument(ctx, docID)
			} else {
				n, err = rt.engine.DeleteOwner(ctx, owner)
			}
			if err != nil {
				return fmt.Errorf("delete: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d chunks\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&docID, "doc-id", "", "Delete every chunk of this document")
	cmd.Flags().StringVar(&owner, "owner", "", "Delete every chunk owned by this owner")
	cmd.Flags().StringVar(&backend, "store", "", "Chunk store: sqlite, memory, qdrant, postgres (env: IRAG_STORE)")
	cmd.MarkFlagsMutuallyExclusive("doc-id", "owner")
	cmd.MarkFlagsOneRequired("doc-id", "owner")

	return cmd
}
