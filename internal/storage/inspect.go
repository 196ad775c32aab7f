package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/iksnae/llm-unify/internal"
)

// maxSampleValue bounds sample cell text
const maxSampleValue = 200

// ColumnInfo describes one table column
type ColumnInfo struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	NotNull    bool   `json:"not_null"`
	PrimaryKey bool   `json:"primary_key"`
}

// TableInfo describes one table with a few sample rows rendered as text
type TableInfo struct {
	Name    string              `json:"name"`
	Rows    int                 `json:"rows"`
	Columns []ColumnInfo        `json:"columns"`
	Sample  []map[string]string `json:"sample,omitempty"`
}

// SchemaInfo is the result of Inspect
type SchemaInfo struct {
	Path    string      `json:"path"`
	Version int         `json:"schema_version"`
	Tables  []TableInfo `json:"tables"`
}

// Inspect reports every table, its columns, row count and up to sample rows
func (d *Database) Inspect(ctx context.Context, sample int) (*SchemaInfo, error) {
	tx, err := d.reader.BeginTx(ctx, nil)
	if err != nil {
		return nil, &internal.StorageError{Path: d.path, Op: "inspect", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	info := &SchemaInfo{Path: d.path}
	if err := tx.QueryRowContext(ctx, "PRAGMA user_version").Scan(&info.Version); err != nil {
		return nil, &internal.StorageError{Path: d.path, Op: "inspect", Err: err}
	}

	names, err := queryStrings(ctx, tx, `
		SELECT name FROM sqlite_master
		WHERE type='table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
	if err != nil {
		return nil, &internal.StorageError{Path: d.path, Op: "inspect", Err: err}
	}

	info.Tables = make([]TableInfo, 0, len(names))
	for _, name := range names {
		table, err := inspectTable(ctx, tx, name, sample)
		if err != nil {
			return nil, &internal.StorageError{Path: d.path, Op: "inspect", Err: fmt.Errorf("table %s: %w", name, err)}
		}
		info.Tables = append(info.Tables, table)
	}
	return info, nil
}

func inspectTable(ctx context.Context, tx *sql.Tx, name string, sample int) (TableInfo, error) {
	table := TableInfo{Name: name}
	quoted := quoteIdent(name)

	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoted).Scan(&table.Rows); err != nil {
		return table, fmt.Errorf("failed to get row count: %w", err)
	}

	rows, err := tx.QueryContext(ctx, "PRAGMA table_info("+quoted+")")
	if err != nil {
		return table, fmt.Errorf("failed to get schema: %w", err)
	}
	for rows.Next() {
		var col ColumnInfo
		var cid, notNull, pk int
		var defaultValue sql.NullString
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &defaultValue, &pk); err != nil {
			_ = rows.Close()
			return table, err
		}
		col.NotNull = notNull == 1
		col.PrimaryKey = pk > 0
		table.Columns = append(table.Columns, col)
	}
	if err := rows.Close(); err != nil {
		return table, err
	}

	if sample <= 0 || table.Rows == 0 || len(table.Columns) == 0 {
		return table, nil
	}

	names := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		names[i] = quoteIdent(col.Name)
	}
	rows, err = tx.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s LIMIT ?", strings.Join(names, ", "), quoted), sample)
	if err != nil {
		return table, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		values := make([]interface{}, len(table.Columns))
		ptrs := make([]interface{}, len(values))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return table, err
		}
		row := make(map[string]string, len(values))
		for i, col := range table.Columns {
			row[col.Name] = sampleValue(values[i])
		}
		table.Sample = append(table.Sample, row)
	}
	return table, rows.Err()
}

// sampleValue renders a cell on one line, truncated
func sampleValue(v interface{}) string {
	var s string
	switch val := v.(type) {
	case nil:
		return "<NULL>"
	case []byte:
		s = string(val)
	default:
		s = fmt.Sprintf("%v", val)
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + "..."
	}
	if r := []rune(s); len(r) > maxSampleValue {
		s = string(r[:maxSampleValue]) + "..."
	}
	return s
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
