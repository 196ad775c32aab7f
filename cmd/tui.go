package cmd

import (
	"context"

	"github.com/iksnae/llm-unify/internal/search"
	"github.com/iksnae/llm-unify/internal/storage"
	"github.com/iksnae/llm-unify/internal/tui"
	"github.com/spf13/cobra"
)

// tuiCmd represents the tui command
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse conversations interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepository(cmd, func(ctx context.Context, db *storage.Database, repo *storage.ConversationRepository) error {
			return tui.Run(ctx, repo, db.Search(), search.Options{
				Limit:         cfg.Search.Limit,
				SnippetLength: cfg.Search.SnippetLength,
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
