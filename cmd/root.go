package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/iksnae/llm-unify/internal"
	"github.com/iksnae/llm-unify/internal/storage"
	"github.com/spf13/cobra"
)

var (
	verbose      bool
	databasePath string
	configPath   string
	cfg          = internal.DefaultConfig()
	version      string = "dev"
	commit       string = "unknown"
	date         string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "llm-unify",
	Short: "Unified interface for managing LLM conversations",
	Long: `Import chat exports from ChatGPT, Claude, Gemini and Copilot into one
local database, then list, search, view and export them in a single format.

Features:
  • One schema for every provider, with branching chats flattened
  • Ranked full-text search with snippets
  • Export to JSON, YAML, TOML, Markdown or JSONL
  • Integrity validation, backup and restore
  • Terminal browser and a read-only HTTP API

Quick Start:
  llm-unify import chatgpt conversations.json   # Import a ChatGPT export
  llm-unify list                                # List all conversations
  llm-unify search "trip planning"              # Search message text
  llm-unify show <id>                           # View a conversation

Configuration is read from ~/.config/llm-unify/config.yaml and LLM_UNIFY_*
environment variables; flags take precedence.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := internal.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		if !cmd.Flags().Changed("database") {
			databasePath = cfg.Database.Path
		}
		internal.SetLogLevel(internal.ParseLogLevel(cfg.Log.Level))
		if verbose {
			internal.SetVerbose(true)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	internal.SyncLogger()
	if err != nil {
		internal.PrintError(fmt.Sprintf("Error: %v", err))
		os.Exit(1)
	}
}

// openDatabase opens the database selected by --database, config or default
func openDatabase(ctx context.Context) (*storage.Database, error) {
	db, err := storage.Open(ctx, databasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// withRepository opens the database for the duration of fn
func withRepository(cmd *cobra.Command, fn func(ctx context.Context, db *storage.Database, repo *storage.ConversationRepository) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			internal.LogWarn("Failed to close database: %v", err)
		}
	}()
	return fn(ctx, db, storage.NewConversationRepository(db))
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&databasePath, "database", "d", internal.DefaultDatabasePath, "Database file path")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/llm-unify/config.yaml)")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
