package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/iksnae/llm-unify/internal"
	"github.com/iksnae/llm-unify/internal/storage"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

const listTitleWidth = 50

var (
	listProvider string
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored conversations",
	Long: `List stored conversations, oldest first.

Use --provider to show only one provider's conversations.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var provider internal.Provider
		if listProvider != "" {
			p, err := internal.ParseProvider(listProvider)
			if err != nil {
				return err
			}
			provider = p
		}

		return withRepository(cmd, func(ctx context.Context, _ *storage.Database, repo *storage.ConversationRepository) error {
			var (
				convs []*internal.Conversation
				err   error
			)
			if provider != 0 {
				convs, err = repo.ListByProvider(ctx, provider)
			} else {
				convs, err = repo.List(ctx)
			}
			if err != nil {
				return fmt.Errorf("failed to list conversations: %w", err)
			}
			displayConversations(cmd.OutOrStdout(), convs, time.Now())
			return nil
		})
	},
}

func displayConversations(out io.Writer, convs []*internal.Conversation, now time.Time) {
	if len(convs) == 0 {
		fmt.Fprintln(out, headerStyle.Render("📋 No conversations found"))
		return
	}

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📋 Found %d conversation(s)", len(convs))))
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Provider")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Created")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 110))

	for _, conv := range convs {
		title := runewidth.Truncate(conv.DisplayTitle(), listTitleWidth, "...")
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
			idStyle.Render(conv.ID),
			providerStyle.Render(conv.Provider.DisplayName()),
			title,
			countStyle.Render(strconv.Itoa(conv.MessageCount())),
			dateStyle.Render(relativeDate(conv.CreatedAt, now)),
		)
	}
	_ = w.Flush()

	fmt.Fprintln(out)
	fmt.Fprintln(out, idStyle.Render("💡 Tip: Use the ID with `llm-unify show <id>`"))
}

// relativeDate formats t relative to now the way list output shows it
func relativeDate(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	local := t.Local()
	diff := now.Sub(t)
	switch {
	case diff >= 0 && diff < 24*time.Hour:
		return local.Format("Today 15:04")
	case diff >= 0 && diff < 7*24*time.Hour:
		return local.Format("Mon 15:04")
	case diff >= 0 && diff < 365*24*time.Hour:
		return local.Format("Jan 02 15:04")
	default:
		return local.Format("2006-01-02")
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVarP(&listProvider, "provider", "p", "", "Only list conversations from this provider (chatgpt, claude, gemini, copilot)")
}
