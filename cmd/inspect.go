package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/iksnae/llm-unify/internal/storage"
	"github.com/spf13/cobra"
)

var (
	inspectFormat     string
	inspectSampleRows int
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect database schema and structure",
	Long: `Inspect the schema and contents of the llm-unify database.

This command provides detailed information about:
  • Schema version
  • Tables, columns and types
  • Row counts
  • Sample rows from each table

Examples:
  llm-unify inspect                              # Inspect the default database
  llm-unify inspect -d archive.db --sample 0     # Schema only
  llm-unify inspect --format json --sample 5     # JSON output with 5 sample rows`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if inspectFormat != "text" && inspectFormat != "json" {
			return fmt.Errorf("unsupported format %q (supported: text, json)", inspectFormat)
		}
		if _, err := os.Stat(databasePath); err != nil {
			return fmt.Errorf("database not found: %s", databasePath)
		}

		return withRepository(cmd, func(ctx context.Context, db *storage.Database, _ *storage.ConversationRepository) error {
			info, err := db.Inspect(ctx, inspectSampleRows)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if inspectFormat == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			displaySchema(out, info)
			return nil
		})
	},
}

func displaySchema(out io.Writer, info *storage.SchemaInfo) {
	fmt.Fprintf(out, "📋 Database: %s\n", info.Path)
	fmt.Fprintf(out, "🔢 Schema version: %d\n", info.Version)
	fmt.Fprintf(out, "📊 Found %d table(s)\n\n", len(info.Tables))

	for _, table := range info.Tables {
		fmt.Fprintf(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
		fmt.Fprintf(out, "📦 Table: %s\n", table.Name)
		fmt.Fprintf(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
		fmt.Fprintf(out, "📊 Rows: %d\n\n", table.Rows)

		fmt.Fprintf(out, "📐 Schema:\n")
		for _, col := range table.Columns {
			pk := ""
			if col.PrimaryKey {
				pk = " [PRIMARY KEY]"
			}
			notNull := ""
			if col.NotNull {
				notNull = " NOT NULL"
			}
			fmt.Fprintf(out, "  • %s: %s%s%s\n", col.Name, col.Type, notNull, pk)
		}
		fmt.Fprintln(out)

		if len(table.Sample) == 0 {
			continue
		}
		fmt.Fprintf(out, "📄 Sample Data (first %d rows):\n", len(table.Sample))
		for i, row := range table.Sample {
			fmt.Fprintf(out, "\n  Row %d:\n", i+1)
			for _, col := range table.Columns {
				fmt.Fprintf(out, "    %s: %s\n", col.Name, row[col.Name])
			}
		}
		fmt.Fprintln(out)
	}
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "text", "Output format (text, json)")
	inspectCmd.Flags().IntVar(&inspectSampleRows, "sample", 3, "Number of sample rows to show")
}
