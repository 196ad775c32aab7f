package cmd

import (
	"context"
	"fmt"

	"github.com/iksnae/llm-unify/internal/storage"
	"github.com/spf13/cobra"
)

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a conversation",
	Long:  `Delete a conversation, its messages and its search index entries. Deleting an unknown id is not an error.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		return withRepository(cmd, func(ctx context.Context, _ *storage.Database, repo *storage.ConversationRepository) error {
			if err := repo.Delete(ctx, id); err != nil {
				return fmt.Errorf("failed to delete conversation: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted conversation: %s\n", id)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
