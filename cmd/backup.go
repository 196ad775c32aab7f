package cmd

import (
	"context"
	"fmt"

	"github.com/iksnae/llm-unify/internal"
	"github.com/iksnae/llm-unify/internal/storage"
	"github.com/spf13/cobra"
)

// backupCmd represents the backup command
var backupCmd = &cobra.Command{
	Use:   "backup <output>",
	Short: "Write a consistent copy of the database",
	Long:  `Write a consistent snapshot of the database to a new file. The output file must not exist.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output := args[0]
		return withRepository(cmd, func(ctx context.Context, db *storage.Database, _ *storage.ConversationRepository) error {
			err := internal.ShowProgress(ctx, fmt.Sprintf("Backing up %s", db.Path()), func(ctx context.Context) error {
				return db.Backup(ctx, output)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup created: %s\n", output)
			return nil
		})
	},
}

// restoreCmd represents the restore command
var restoreCmd = &cobra.Command{
	Use:   "restore <input>",
	Short: "Replace the database with a backup",
	Long: `Replace the database with a backup written by 'llm-unify backup'.

The backup is checked before anything is replaced; a file that is not an
llm-unify database is rejected and the current database is left untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := args[0]
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := storage.Restore(ctx, input, databasePath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Database restored from: %s\n", input)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
}
