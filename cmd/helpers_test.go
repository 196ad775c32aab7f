package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/iksnae/llm-unify/testutil"
)

// resetFlags restores every flag to its default; cobra keeps parsed values
// between Execute calls on the same command tree
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCommand executes the CLI with args and returns everything written to
// the command's output
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// testEnv isolates config lookup and returns a fresh database path
func testEnv(t *testing.T) (dir, dbPath string) {
	t.Helper()
	dir = testutil.CreateTempDir(t)
	t.Setenv("HOME", dir)
	return dir, filepath.Join(dir, "llm-unify.db")
}

// importFixtures loads the ChatGPT and Claude fixtures into dbPath
func importFixtures(t *testing.T, dir, dbPath string) {
	t.Helper()
	chatgpt := testutil.WriteExport(t, dir, "chatgpt.json", testutil.ChatGPTExport)
	claude := testutil.WriteExport(t, dir, "claude.json", testutil.ClaudeExport)
	if _, err := runCommand(t, "-d", dbPath, "import", "chatgpt", chatgpt); err != nil {
		t.Fatalf("import chatgpt failed: %v", err)
	}
	if _, err := runCommand(t, "-d", dbPath, "import", "claude", claude); err != nil {
		t.Fatalf("import claude failed: %v", err)
	}
}
