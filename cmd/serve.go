package cmd

import (
	"context"
	"fmt"

	"github.com/iksnae/llm-unify/internal"
	"github.com/iksnae/llm-unify/internal/api"
	"github.com/iksnae/llm-unify/internal/search"
	"github.com/iksnae/llm-unify/internal/storage"
	"github.com/spf13/cobra"
)

var servePort int

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the database over HTTP",
	Long: `Serve list, show, delete, search and stats as a JSON API, plus Prometheus
metrics on /metrics. Stops on interrupt.

Endpoints:
  GET    /health
  GET    /api/v1/conversations[?provider=]
  GET    /api/v1/conversations/{id}
  DELETE /api/v1/conversations/{id}
  GET    /api/v1/search?q=&limit=&provider=
  GET    /api/v1/stats
  GET    /metrics`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}
		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid port: %d", port)
		}

		return withRepository(cmd, func(ctx context.Context, db *storage.Database, _ *storage.ConversationRepository) error {
			srv := api.NewServer(port, db, search.Options{
				Limit:         cfg.Search.Limit,
				SnippetLength: cfg.Search.SnippetLength,
			})
			internal.PrintSuccess(fmt.Sprintf("Serving %s on http://localhost:%d", db.Path(), port))
			return srv.Start(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", internal.DefaultConfig().Server.Port, "Port to listen on")
}
