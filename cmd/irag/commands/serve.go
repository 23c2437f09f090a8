package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/54b3r/interviewly-rag/internal/logging"
	"github.com/54b3r/interviewly-rag/internal/server"
)

// NewServeCmd constructs the `irag serve` command, which starts the HTTP API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int
	var backend string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the irag HTTP API",
		Long: `Start the irag HTTP API.

Routes:
  POST   /api/embedding/index   index a document
  POST   /api/embedding/query   rank stored chunks against a query
  DELETE /api/documents/{id}    remove a document
  DELETE /api/owners/{id}       remove every document of an owner
  GET    /api/health            liveness
  GET    /api/ready             store reachability
  GET    /metrics               Prometheus metrics

Set IRAG_API_KEY to require "Authorization: Bearer <key>" on /api/* routes.

Examples:
  irag serve
  irag serve --port 9090 --store qdrant
  EMBEDDING_PROVIDER=ollama irag serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.FromContext(ctx)

			rt, err := buildRuntime(ctx, log, backend, prometheus.DefaultRegisterer)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = rt.Close() }()

			if !cmd.Flags().Changed("host") {
				host = getEnvOrDefault("IRAG_HOST", host)
			}
			if !cmd.Flags().Changed("port") {
				port = getEnvInt("IRAG_PORT", port)
			}

			srv, err := server.New(rt.engine, &server.Config{
				Host:      host,
				Port:      port,
				Logger:    log,
				Pingers:   []server.Pinger{server.NewStorePinger(rt.storeName, rt.store)},
				RateLimit: getEnvFloat("IRAG_RATE_LIMIT", 0),
				RateBurst: getEnvInt("IRAG_RATE_BURST", 0),
				APIKey:    os.Getenv("IRAG_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to (env: IRAG_HOST)")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on (env: IRAG_PORT)")
	cmd.Flags().StringVar(&backend, "store", "", "Chunk store: sqlite, memory, qdrant, postgres (env: IRAG_STORE)")

	return cmd
}
