package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/iksnae/llm-unify/internal"
	"github.com/iksnae/llm-unify/internal/search"
	"github.com/iksnae/llm-unify/internal/storage"
	"github.com/spf13/cobra"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepository(cmd, func(ctx context.Context, db *storage.Database, repo *storage.ConversationRepository) error {
			convs, err := repo.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list conversations: %w", err)
			}
			index, err := db.Search().Stats(ctx)
			if err != nil {
				return fmt.Errorf("failed to read index stats: %w", err)
			}
			displayStats(cmd.OutOrStdout(), internal.ComputeStats(convs), index)
			return nil
		})
	},
}

func displayStats(out io.Writer, st internal.Stats, index search.IndexStats) {
	fmt.Fprintf(out, "Total conversations: %d\n", st.Conversations)
	fmt.Fprintf(out, "Total messages: %d\n", st.Messages)
	if st.Conversations == 0 {
		return
	}
	fmt.Fprintf(out, "Oldest: %s\n", st.Oldest.Format("2006-01-02"))
	fmt.Fprintf(out, "Newest: %s\n", st.Newest.Format("2006-01-02"))

	fmt.Fprintln(out)
	fmt.Fprintln(out, sectionStyle.Render("By provider:"))
	for _, pc := range st.ByProvider {
		fmt.Fprintf(out, "  %s: %d conversations, %d messages\n", pc.Provider.DisplayName(), pc.Conversations, pc.Messages)
	}

	roles := make([]string, 0, len(st.ByRole))
	for role := range st.ByRole {
		roles = append(roles, string(role))
	}
	sort.Strings(roles)
	fmt.Fprintln(out)
	fmt.Fprintln(out, sectionStyle.Render("By role:"))
	for _, role := range roles {
		fmt.Fprintf(out, "  %s: %d\n", role, st.ByRole[internal.Role(role)])
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Index: %d distinct terms, %d postings\n", index.Tokens, index.Postings)
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
