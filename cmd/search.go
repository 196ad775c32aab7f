package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/llm-unify/internal"
	"github.com/iksnae/llm-unify/internal/search"
	"github.com/iksnae/llm-unify/internal/storage"
	"github.com/spf13/cobra"
)

var (
	searchLimit    int
	searchProvider string
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search message text",
	Long: `Search titles and message text of every stored conversation.

Conversations matching more query terms rank higher; a conversation does not
need to contain every term. Matching ignores case and accents.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		opts := search.Options{
			Limit:         cfg.Search.Limit,
			SnippetLength: cfg.Search.SnippetLength,
		}
		if cmd.Flags().Changed("limit") {
			if searchLimit < 0 {
				return fmt.Errorf("--limit must be >= 0, got %d", searchLimit)
			}
			opts.Limit = searchLimit
		}
		if searchProvider != "" {
			p, err := internal.ParseProvider(searchProvider)
			if err != nil {
				return err
			}
			opts.Provider = p
		}

		return withRepository(cmd, func(ctx context.Context, db *storage.Database, _ *storage.ConversationRepository) error {
			results, err := db.Search().Search(ctx, query, opts)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			displayResults(cmd.OutOrStdout(), query, results)
			return nil
		})
	},
}

func displayResults(out io.Writer, query string, results []search.Result) {
	if len(results) == 0 {
		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("🔍 No matches for %q", query)))
		return
	}

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("🔍 %d match(es) for %q", len(results), query)))
	fmt.Fprintln(out)
	for i, r := range results {
		title := r.Title
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(out, "%d. %s %s %s\n", i+1, titleStyle.Render(title), providerStyle.Render(r.Provider.DisplayName()), dateStyle.Render(fmt.Sprintf("(score %.2f)", r.Score)))
		fmt.Fprintf(out, "   %s\n", idStyle.Render(r.ConversationID))
		fmt.Fprintf(out, "   %s\n\n", r.Snippet)
	}
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 10, "Maximum number of results (0 for all)")
	searchCmd.Flags().StringVarP(&searchProvider, "provider", "p", "", "Only search conversations from this provider")
}
