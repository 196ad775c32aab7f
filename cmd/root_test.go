package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootCommand(t *testing.T) {
	testEnv(t)

	tests := []struct {
		name    string
		args    []string
		wantErr bool
		want    string
	}{
		{name: "version flag", args: []string{"--version"}, want: "dev"},
		{name: "help flag", args: []string{"--help"}, want: "llm-unify"},
		{name: "version command", args: []string{"version"}, want: "llm-unify dev"},
		{name: "unknown command", args: []string{"nonexistent-command"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCommand(t, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output = %q, want it to contain %q", out, tt.want)
			}
		})
	}
}

func TestRootCommand_ConfigSetsDatabase(t *testing.T) {
	dir, _ := testEnv(t)
	dbPath := filepath.Join(dir, "from-config.db")
	configFile := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configFile, []byte("database:\n  path: "+dbPath+"\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := runCommand(t, "--config", configFile, "init"); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database not created at configured path: %v", err)
	}
}

func TestRootCommand_EnvSetsDatabase(t *testing.T) {
	dir, _ := testEnv(t)
	dbPath := filepath.Join(dir, "from-env.db")
	t.Setenv("LLM_UNIFY_DATABASE_PATH", dbPath)

	out, err := runCommand(t, "init")
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if !strings.Contains(out, dbPath) {
		t.Errorf("output = %q, want database path %s", out, dbPath)
	}
}

func TestRootCommand_BadConfig(t *testing.T) {
	dir, dbPath := testEnv(t)
	if _, err := runCommand(t, "-d", dbPath, "--config", filepath.Join(dir, "missing.yaml"), "init"); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestInitCommand(t *testing.T) {
	_, dbPath := testEnv(t)

	for i := 0; i < 2; i++ {
		out, err := runCommand(t, "-d", dbPath, "init")
		if err != nil {
			t.Fatalf("init #%d failed: %v", i+1, err)
		}
		if !strings.Contains(out, "Database initialized") || !strings.Contains(out, "0 conversations") {
			t.Errorf("init #%d output = %q", i+1, out)
		}
	}
}
