package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/iksnae/llm-unify/internal"
)

// Backup writes a consistent snapshot of the database to dest, which must
// not exist yet
func (d *Database) Backup(ctx context.Context, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		return &internal.StorageError{Path: dest, Op: "backup", Err: os.ErrExist}
	}
	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &internal.StorageError{Path: dest, Op: "backup", Err: err}
		}
	}
	if _, err := d.reader.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return &internal.StorageError{Path: dest, Op: "backup", Err: err}
	}
	internal.LogDebug("Backed up %s to %s", d.path, dest)
	return nil
}

// Restore replaces the database at dest with the backup at src. The
// database at dest must be closed. src is checked to be an llm-unify
// database before anything is overwritten.
func Restore(ctx context.Context, src, dest string) error {
	if err := verifyBackup(ctx, src); err != nil {
		return &internal.StorageError{Path: src, Op: "restore", Err: err}
	}

	tmp := dest + ".restore"
	if err := copyFile(src, tmp); err != nil {
		_ = os.Remove(tmp)
		return &internal.StorageError{Path: dest, Op: "restore", Err: err}
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(dest + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			_ = os.Remove(tmp)
			return &internal.StorageError{Path: dest, Op: "restore", Err: err}
		}
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return &internal.StorageError{Path: dest, Op: "restore", Err: err}
	}
	return nil
}

func verifyBackup(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	db, err := sql.Open("sqlite", path+"?_pragma=query_only(1)")
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("not a SQLite database: %w", err)
	}
	if version < 1 || version > SchemaVersion {
		return fmt.Errorf("not an llm-unify database (schema version %d)", version)
	}
	var tables int
	if err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('conversations', 'messages', 'postings')").Scan(&tables); err != nil {
		return err
	}
	if tables != 3 {
		return errors.New("not an llm-unify database (missing tables)")
	}
	return nil
}

// copyFile copies src to dst and syncs dst to disk
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = sourceFile.Close() }()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(destFile, sourceFile); err != nil {
		_ = destFile.Close()
		return err
	}
	if err := destFile.Sync(); err != nil {
		_ = destFile.Close()
		return err
	}
	return destFile.Close()
}
