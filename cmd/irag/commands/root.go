// Package commands defines all Cobra CLI commands for the irag binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/interviewly-rag/internal/audit"
	"github.com/54b3r/interviewly-rag/internal/config"
	"github.com/54b3r/interviewly-rag/internal/logging"
)

// defaultEnvFile is loaded when present and --env-file is not given.
const defaultEnvFile = ".env"

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	var configPath string
	var envFile string

	root := &cobra.Command{
		Use:   "irag",
		Short: "irag: semantic retrieval over resumes and job descriptions",
		Long: `irag chunks documents, embeds each chunk, stores the vectors, and answers
similarity queries scoped to an owner.

The embedding provider is selected via EMBEDDING_PROVIDER (gemini, genai,
ollama, openai, http, none). When no provider is configured, or a provider
call fails, a deterministic hash-based embedding is used instead.

The chunk store is selected via IRAG_STORE (sqlite, memory, qdrant,
postgres). Settings may also come from a YAML or TOML config file
(~/.irag/config.yaml); environment variables always win.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if envFile != "" {
				if err := config.LoadEnvFile(envFile, false); err != nil {
					return err
				}
			} else if err := config.LoadEnvFile(defaultEnvFile, true); err != nil {
				return err
			}

			// LOG_LEVEL and LOG_FORMAT may come from the config file, so the
			// logger is rebuilt once it has been applied.
			path, err := config.Load(configPath, logging.New())
			if err != nil {
				return err
			}
			log := logging.New()

			ctx := logging.WithLogger(cmd.Context(), log)
			cmd.SetContext(ctx)

			audit.LogCommandStart(ctx, log, cmd.Name(), path)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML or TOML config file (default: ~/.irag/config.yaml)")
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to a dotenv file (default: ./.env when present)")

	root.AddCommand(
		NewServeCmd(),
		NewIndexCmd(),
		NewQueryCmd(),
		NewDeleteCmd(),
		NewVersionCmd(),
	)

	return root
}
