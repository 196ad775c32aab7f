package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/iksnae/llm-unify/internal/storage"
	"github.com/spf13/cobra"
)

var (
	validateRepair bool
	validateDetail bool
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check database integrity",
	Long: `Check the health of the database by verifying:
  • SQLite page-level integrity
  • Every message and index entry belongs to a stored conversation
  • Message positions are contiguous
  • The search index matches stored message text

With --repair, orphaned rows are removed and affected conversations are
re-indexed from their stored messages.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if _, err := os.Stat(databasePath); err != nil {
			return fmt.Errorf("database not found: %s (run 'llm-unify init' first)", databasePath)
		}

		return withRepository(cmd, func(ctx context.Context, _ *storage.Database, repo *storage.ConversationRepository) error {
			fmt.Fprintln(out, sectionStyle.Render("🔍 llm-unify Database Check"))
			fmt.Fprintln(out)

			report, err := repo.Validate(ctx)
			if err != nil {
				fmt.Fprintln(out, errorStyle.Render("❌ Validation could not run:"), err)
				return err
			}
			displayReport(out, report)

			if report.OK() {
				fmt.Fprintln(out, successStyle.Render("✅ Database is consistent"))
				return nil
			}
			if !validateRepair {
				fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("❌ Found %d issue(s)", len(report.Issues))))
				if len(report.Issues) > 0 {
					fmt.Fprintln(out, "   Run 'llm-unify validate --repair' to fix them")
				}
				return fmt.Errorf("validation failed: %d issue(s)", len(report.Issues))
			}

			fmt.Fprintln(out, infoStyle.Render("Repairing..."))
			repaired, err := repo.Repair(ctx, report)
			if err != nil {
				return fmt.Errorf("repair failed after %d conversation(s): %w", repaired, err)
			}
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Repaired %d conversation(s)", repaired)))

			after, err := repo.Validate(ctx)
			if err != nil {
				return err
			}
			if !after.OK() {
				displayReport(out, after)
				return fmt.Errorf("database still inconsistent after repair")
			}
			fmt.Fprintln(out, successStyle.Render("✅ Database is consistent"))
			return nil
		})
	},
}

func displayReport(out io.Writer, report *storage.ValidationReport) {
	if len(report.Integrity) == 1 && report.Integrity[0] == "ok" {
		fmt.Fprintln(out, successStyle.Render("✅ SQLite integrity check passed"))
	} else {
		fmt.Fprintln(out, errorStyle.Render("❌ SQLite integrity check failed"))
		for _, line := range report.Integrity {
			fmt.Fprintf(out, "   %s\n", line)
		}
	}
	fmt.Fprintf(out, "   Conversations: %d, messages: %d, postings: %d\n", report.Conversations, report.Messages, report.Postings)

	if len(report.Issues) == 0 {
		fmt.Fprintln(out, successStyle.Render("✅ Storage and search index agree"))
		fmt.Fprintln(out)
		return
	}
	fmt.Fprintln(out, warningStyle.Render(fmt.Sprintf("⚠️  %d inconsistency(ies)", len(report.Issues))))
	for i, issue := range report.Issues {
		if !validateDetail && i >= 5 {
			fmt.Fprintf(out, "   ... and %d more (use --detail)\n", len(report.Issues)-5)
			break
		}
		fmt.Fprintf(out, "   [%s] %s\n", issue.Kind, issue.Err)
	}
	fmt.Fprintln(out)
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVar(&validateRepair, "repair", false, "Fix inconsistencies that were found")
	validateCmd.Flags().BoolVar(&validateDetail, "detail", false, "List every issue")
}
