package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iksnae/llm-unify/internal/storage"
	"github.com/iksnae/llm-unify/testutil"
)

func TestValidateCommand(t *testing.T) {
	dir, dbPath := testEnv(t)
	importFixtures(t, dir, dbPath)

	out, err := runCommand(t, "-d", dbPath, "validate")
	if err != nil {
		t.Fatalf("validate failed on a clean database: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Database is consistent") {
		t.Errorf("output = %q", out)
	}

	raw := testutil.OpenRawDB(t, dbPath)
	testutil.ExecSQL(t, raw, "DELETE FROM postings WHERE conversation_id = ?", testutil.CodeReviewID)
	_ = raw.Close()

	out, err = runCommand(t, "-d", dbPath, "validate")
	if err == nil {
		t.Fatalf("validate passed with a stale index:\n%s", out)
	}
	if !strings.Contains(out, "--repair") {
		t.Errorf("output does not suggest repair:\n%s", out)
	}

	out, err = runCommand(t, "-d", dbPath, "validate", "--repair")
	if err != nil {
		t.Fatalf("validate --repair failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Repaired 1 conversation(s)") {
		t.Errorf("output = %q", out)
	}

	out, err = runCommand(t, "-d", dbPath, "search", "mutex")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if !strings.Contains(out, testutil.CodeReviewID) {
		t.Errorf("repaired conversation not searchable:\n%s", out)
	}
}

func TestValidateCommand_MissingDatabase(t *testing.T) {
	dir, _ := testEnv(t)
	if _, err := runCommand(t, "-d", filepath.Join(dir, "none.db"), "validate"); err == nil {
		t.Error("expected error for missing database")
	}
}

func TestBackupRestoreCommands(t *testing.T) {
	dir, dbPath := testEnv(t)
	importFixtures(t, dir, dbPath)

	backup := filepath.Join(dir, "backup.db")
	out, err := runCommand(t, "-d", dbPath, "backup", backup)
	if err != nil {
		t.Fatalf("backup failed: %v", err)
	}
	if !strings.Contains(out, "Backup created") {
		t.Errorf("output = %q", out)
	}

	if _, err := runCommand(t, "-d", dbPath, "backup", backup); err == nil {
		t.Error("backup overwrote an existing file")
	}

	if _, err := runCommand(t, "-d", dbPath, "delete", testutil.TripPlanningID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := runCommand(t, "-d", dbPath, "restore", backup); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	out, err = runCommand(t, "-d", dbPath, "stats")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if !strings.Contains(out, "Total conversations: 2") {
		t.Errorf("restore did not bring back the deleted conversation:\n%s", out)
	}

	junk := testutil.WriteExport(t, dir, "junk.db", "not a database")
	if _, err := runCommand(t, "-d", dbPath, "restore", junk); err == nil {
		t.Error("restore accepted a non-database file")
	}
	out, err = runCommand(t, "-d", dbPath, "stats")
	if err != nil {
		t.Fatalf("stats failed after rejected restore: %v", err)
	}
	if !strings.Contains(out, "Total conversations: 2") {
		t.Errorf("rejected restore changed the database:\n%s", out)
	}
}

func TestInspectCommand(t *testing.T) {
	dir, dbPath := testEnv(t)
	importFixtures(t, dir, dbPath)

	out, err := runCommand(t, "-d", dbPath, "inspect", "--format", "json", "--sample", "1")
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}

	var info storage.SchemaInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("inspect output is not JSON: %v\n%s", err, out)
	}
	if info.Version != storage.SchemaVersion {
		t.Errorf("Version = %d, want %d", info.Version, storage.SchemaVersion)
	}
	tables := make(map[string]storage.TableInfo)
	for _, table := range info.Tables {
		tables[table.Name] = table
	}
	if got := tables["conversations"].Rows; got != 2 {
		t.Errorf("conversations rows = %d, want 2", got)
	}
	if got := tables["messages"].Rows; got != 6 {
		t.Errorf("messages rows = %d, want 6", got)
	}
	if got := len(tables["conversations"].Sample); got != 1 {
		t.Errorf("conversations sample = %d rows, want 1", got)
	}

	out, err = runCommand(t, "-d", dbPath, "inspect")
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	if !strings.Contains(out, "Table: conversations") {
		t.Errorf("text output = %q", out)
	}

	if _, err := runCommand(t, "-d", dbPath, "inspect", "--format", "xml"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestDeleteCommand(t *testing.T) {
	dir, dbPath := testEnv(t)
	importFixtures(t, dir, dbPath)

	for i := 0; i < 2; i++ {
		out, err := runCommand(t, "-d", dbPath, "delete", testutil.CodeReviewID)
		if err != nil {
			t.Fatalf("delete #%d failed: %v", i+1, err)
		}
		if !strings.Contains(out, "Deleted conversation: "+testutil.CodeReviewID) {
			t.Errorf("output = %q", out)
		}
	}

	out, err := runCommand(t, "-d", dbPath, "search", "mutex")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if !strings.Contains(out, "No matches") {
		t.Errorf("deleted conversation still searchable:\n%s", out)
	}

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database missing: %v", err)
	}
}
