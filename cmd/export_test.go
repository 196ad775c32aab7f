package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iksnae/llm-unify/internal/export"
	"github.com/iksnae/llm-unify/testutil"
)

func TestExportCommand_Formats(t *testing.T) {
	dir, dbPath := testEnv(t)
	importFixtures(t, dir, dbPath)

	tests := []struct {
		name   string
		args   []string
		output string
		want   string
	}{
		{name: "json default", output: "review.json", want: `"format": "llm-unify/conversation"`},
		{name: "markdown by extension", output: "review.md", want: "# Code Review"},
		{name: "yaml by flag", args: []string{"-f", "yaml"}, output: "review.out", want: "title: Code Review"},
		{name: "toml", output: "review.toml", want: `title = "Code Review"`},
		{name: "jsonl", output: "review.jsonl", want: `"role":"user"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.output)
			args := append([]string{"-d", dbPath, "export", testutil.CodeReviewID, "-o", path}, tt.args...)
			if _, err := runCommand(t, args...); err != nil {
				t.Fatalf("export failed: %v", err)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("Failed to read export: %v", err)
			}
			if !strings.Contains(string(data), tt.want) {
				t.Errorf("export missing %q:\n%s", tt.want, data)
			}
		})
	}
}

func TestExportCommand_Stdout(t *testing.T) {
	dir, dbPath := testEnv(t)
	importFixtures(t, dir, dbPath)

	out, err := runCommand(t, "-d", dbPath, "export", testutil.TripPlanningID)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	conv, err := export.DecodeDocument([]byte(out))
	if err != nil {
		t.Fatalf("stdout is not a unified document: %v", err)
	}
	if conv.ID != testutil.TripPlanningID || len(conv.Messages) != testutil.TripPlanningMessages {
		t.Errorf("decoded %s with %d messages", conv.ID, len(conv.Messages))
	}
}

func TestExportCommand_RoundTrip(t *testing.T) {
	dir, dbPath := testEnv(t)
	importFixtures(t, dir, dbPath)

	path := filepath.Join(dir, "trip.json")
	if _, err := runCommand(t, "-d", dbPath, "export", testutil.TripPlanningID, "-o", path); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if _, err := runCommand(t, "-d", dbPath, "delete", testutil.TripPlanningID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	out, err := runCommand(t, "-d", dbPath, "import", "unified", path)
	if err != nil {
		t.Fatalf("import unified failed: %v", err)
	}
	if !strings.Contains(out, "(1 new, 0 updated, 0 unchanged)") {
		t.Errorf("import output = %q", out)
	}

	out, err = runCommand(t, "-d", dbPath, "search", "planning")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if !strings.Contains(out, testutil.TripPlanningID) {
		t.Errorf("restored conversation not searchable:\n%s", out)
	}

	// importing the same document again changes nothing
	out, err = runCommand(t, "-d", dbPath, "import", "unified", path)
	if err != nil {
		t.Fatalf("second import failed: %v", err)
	}
	if !strings.Contains(out, "(0 new, 0 updated, 1 unchanged)") {
		t.Errorf("second import output = %q", out)
	}
}

func TestExportCommand_All(t *testing.T) {
	dir, dbPath := testEnv(t)
	importFixtures(t, dir, dbPath)

	outDir := filepath.Join(dir, "exports")
	if _, err := runCommand(t, "-d", dbPath, "export", "--all", "-f", "md", "-o", outDir); err != nil {
		t.Fatalf("export --all failed: %v", err)
	}

	for _, id := range []string{testutil.TripPlanningID, testutil.CodeReviewID} {
		path := filepath.Join(outDir, "conversation_"+safeFilename(id)+".md")
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing export for %s: %v", id, err)
		}
	}
}

func TestExportCommand_Errors(t *testing.T) {
	dir, dbPath := testEnv(t)
	importFixtures(t, dir, dbPath)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown format", []string{"export", testutil.CodeReviewID, "-f", "docx"}},
		{"not found", []string{"export", "missing-id"}},
		{"id with --all", []string{"export", "--all", testutil.CodeReviewID}},
		{"no id", []string{"export"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runCommand(t, append([]string{"-d", dbPath}, tt.args...)...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSafeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"abc-123", "abc-123"},
		{"a/b\\c:d", "a_b_c_d"},
		{"..", "_"},
		{".", "_"},
	}
	for _, tt := range tests {
		if got := safeFilename(tt.in); got != tt.want {
			t.Errorf("safeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
