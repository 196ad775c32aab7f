package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/iksnae/llm-unify/internal"
	"github.com/iksnae/llm-unify/internal/export"
	"github.com/iksnae/llm-unify/internal/parser"
	"github.com/iksnae/llm-unify/internal/storage"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// batchParser is satisfied by the provider parsers and the unified document decoder
type batchParser interface {
	Parse(raw []byte) ([]*internal.Conversation, error)
}

// importSummary counts Save outcomes
type importSummary struct {
	Created   int
	Updated   int
	Unchanged int
}

func (s importSummary) total() int {
	return s.Created + s.Updated + s.Unchanged
}

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <provider|unified> <file>...",
	Short: "Import conversations from provider exports",
	Long: `Import conversations from one or more export files of a single provider.

Providers: chatgpt, claude, gemini, copilot. Use "unified" to re-import files
written by 'llm-unify export'.

Every file is parsed before anything is saved; a parse error aborts the whole
batch. Each conversation is then committed on its own, so re-running an
interrupted import is safe. Re-importing unchanged conversations is a no-op.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.ToLower(args[0])
		p, err := importParser(name)
		if err != nil {
			return err
		}
		files := args[1:]

		return withRepository(cmd, func(ctx context.Context, db *storage.Database, repo *storage.ConversationRepository) error {
			var (
				conversations []*internal.Conversation
				summary       importSummary
			)

			steps := []internal.ProgressStep{
				{
					Message: fmt.Sprintf("Parsing %d file(s)", len(files)),
					Fn: func(ctx context.Context) error {
						parsed, err := parseFiles(ctx, p, files)
						if err != nil {
							return err
						}
						conversations = internal.NewDeduplicator().Deduplicate(parsed)
						return nil
					},
				},
				{
					Message: "Saving conversations",
					Fn: func(ctx context.Context) error {
						var err error
						summary, err = saveAll(ctx, repo, conversations)
						return err
					},
				},
			}

			err := internal.ShowProgressWithSteps(ctx, steps)
			if summary.total() > 0 {
				internal.LogInfo("Import into %s: %d created, %d updated, %d unchanged",
					db.Path(), summary.Created, summary.Updated, summary.Unchanged)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d conversations from %s (%d new, %d updated, %d unchanged)\n",
				summary.total(), name, summary.Created, summary.Updated, summary.Unchanged)
			return nil
		})
	},
}

// importParser resolves the parser before any file is read
func importParser(name string) (batchParser, error) {
	if name == "unified" {
		return &export.UnifiedParser{}, nil
	}
	return parser.ForName(name)
}

// parseFiles decodes files concurrently and returns their conversations in
// argument order. The first failure cancels the rest.
func parseFiles(ctx context.Context, p batchParser, files []string) ([]*internal.Conversation, error) {
	results := make([][]*internal.Conversation, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}
			convs, err := p.Parse(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			internal.LogDebug("Parsed %d conversation(s) from %s", len(convs), file)
			results[i] = convs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []*internal.Conversation
	for _, convs := range results {
		all = append(all, convs...)
	}
	return all, nil
}

// saveAll commits each conversation separately and stops at the first failure
// or cancellation. Conversations saved before that stay committed.
func saveAll(ctx context.Context, repo *storage.ConversationRepository, conversations []*internal.Conversation) (importSummary, error) {
	var summary importSummary
	for _, conv := range conversations {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		res, err := repo.Save(ctx, conv)
		if err != nil {
			return summary, fmt.Errorf("failed to save conversation %s: %w", conv.ID, err)
		}
		internal.LogDebug("Conversation %s: %s", conv.ID, res)
		switch res {
		case storage.SaveCreated:
			summary.Created++
		case storage.SaveUpdated:
			summary.Updated++
		default:
			summary.Unchanged++
		}
	}
	return summary, nil
}

func init() {
	rootCmd.AddCommand(importCmd)
}
