// Package storage persists unified conversations in SQLite and keeps the
// search index in step with them.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	_ "modernc.org/sqlite"

	"github.com/iksnae/llm-unify/internal"
	"github.com/iksnae/llm-unify/internal/search"
)

const (
	writerPragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate"
	readerPragmas = "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
)

// Database is an open llm-unify store. Writes go through a single
// connection; reads use a separate pool and see only committed state.
type Database struct {
	path   string
	writer *sql.DB
	reader *sql.DB
}

// Open opens or creates the database at path and applies the schema
func Open(ctx context.Context, path string) (*Database, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &internal.StorageError{Path: path, Op: "open", Err: err}
		}
	}

	writer, err := sql.Open("sqlite", path+writerPragmas)
	if err != nil {
		return nil, &internal.StorageError{Path: path, Op: "open", Err: err}
	}
	writer.SetMaxOpenConns(1)

	if err := writer.PingContext(ctx); err != nil {
		_ = writer.Close()
		return nil, &internal.StorageError{Path: path, Op: "open", Err: fmt.Errorf("database ping failed: %w", err)}
	}
	if err := migrate(ctx, writer); err != nil {
		_ = writer.Close()
		return nil, &internal.StorageError{Path: path, Op: "open", Err: err}
	}

	reader, err := sql.Open("sqlite", path+readerPragmas)
	if err != nil {
		_ = writer.Close()
		return nil, &internal.StorageError{Path: path, Op: "open", Err: err}
	}
	reader.SetMaxOpenConns(runtime.NumCPU())

	internal.LogDebug("Opened database %s", path)
	return &Database{path: path, writer: writer, reader: reader}, nil
}

// Path returns the database file path
func (d *Database) Path() string {
	return d.path
}

// Reader returns the read-only pool, for components such as the search engine
func (d *Database) Reader() *sql.DB {
	return d.reader
}

// Search returns a search engine over this database
func (d *Database) Search() *search.Engine {
	return search.NewEngine(d.reader, d.path)
}

// Close closes both pools
func (d *Database) Close() error {
	rerr := d.reader.Close()
	werr := d.writer.Close()
	if werr != nil {
		return &internal.StorageError{Path: d.path, Op: "close", Err: werr}
	}
	if rerr != nil {
		return &internal.StorageError{Path: d.path, Op: "close", Err: rerr}
	}
	return nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, SchemaVersion)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{schema, search.Schema, fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return tx.Commit()
}
