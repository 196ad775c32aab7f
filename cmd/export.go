package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iksnae/llm-unify/internal"
	"github.com/iksnae/llm-unify/internal/export"
	"github.com/iksnae/llm-unify/internal/storage"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOutput string
	exportAll    bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a conversation to a file",
	Long: `Export a conversation as json (default), yaml, toml, md or jsonl.

The json format is the versioned llm-unify document, which
'llm-unify import unified <file>' reads back. Without --output the export is
written to stdout. When --format is omitted it is taken from the --output
extension.

With --all, every conversation is exported into the --output directory as
conversation_<id>.<ext>.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if exportAll {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		format := exportFormat
		if format == "" && exportOutput != "" && !exportAll {
			format = export.FormatFromPath(exportOutput)
		}
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		return withRepository(cmd, func(ctx context.Context, _ *storage.Database, repo *storage.ConversationRepository) error {
			if exportAll {
				return exportAllConversations(ctx, repo, exporter)
			}

			id := args[0]
			conv, err := repo.FindByID(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to load conversation: %w", err)
			}
			if conv == nil {
				return fmt.Errorf("conversation not found: %s (use 'llm-unify list' to see available conversations)", id)
			}

			if exportOutput == "" {
				return exporter.Export(conv, cmd.OutOrStdout())
			}
			if err := exportToFile(exporter, conv, exportOutput); err != nil {
				return err
			}
			internal.PrintSuccess(fmt.Sprintf("Exported to: %s", exportOutput))
			return nil
		})
	},
}

func exportAllConversations(ctx context.Context, repo *storage.ConversationRepository, exporter export.Exporter) error {
	outputDir := exportOutput
	if outputDir == "" {
		outputDir = "./exports"
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	convs, err := repo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}

	exported := 0
	err = internal.ShowProgress(ctx, fmt.Sprintf("Exporting %d conversation(s) to %s", len(convs), outputDir), func(ctx context.Context) error {
		for _, conv := range convs {
			if err := ctx.Err(); err != nil {
				return err
			}
			filename := fmt.Sprintf("conversation_%s.%s", safeFilename(conv.ID), exporter.Extension())
			if err := exportToFile(exporter, conv, filepath.Join(outputDir, filename)); err != nil {
				internal.LogError("Failed to export conversation %s: %v", conv.ID, err)
				continue
			}
			exported++
		}
		return nil
	})
	if err != nil {
		return err
	}

	internal.PrintSuccess(fmt.Sprintf("Export complete: %d conversation(s) exported to %s", exported, outputDir))
	if exported < len(convs) {
		return fmt.Errorf("%d conversation(s) failed to export", len(convs)-exported)
	}
	return nil
}

func exportToFile(exporter export.Exporter, conv *internal.Conversation, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	if err := exporter.Export(conv, file); err != nil {
		_ = file.Close()
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	return nil
}

// safeFilename replaces path separators so an id cannot escape the output directory
func safeFilename(id string) string {
	out := []rune(id)
	for i, r := range out {
		switch r {
		case '/', '\\', ':', 0:
			out[i] = '_'
		}
	}
	s := string(out)
	if s == "." || s == ".." {
		return "_"
	}
	return s
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "Export format (json, yaml, toml, md, jsonl)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (directory with --all); stdout when omitted")
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "Export every conversation into the output directory")
}
