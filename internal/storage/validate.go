package storage

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"

	"github.com/iksnae/llm-unify/internal"
	"github.com/iksnae/llm-unify/internal/search"
)

// IssueKind classifies a validation finding
type IssueKind string

const (
	IssueOrphanMessage IssueKind = "orphan-message"
	IssueOrphanPosting IssueKind = "orphan-posting"
	IssuePositionGap   IssueKind = "position-gap"
	IssueIndexMismatch IssueKind = "index-mismatch"
	IssueHashMismatch  IssueKind = "hash-mismatch"
)

// Issue is one inconsistency found by Validate
type Issue struct {
	Kind IssueKind
	Err  *internal.IndexInconsistencyError
}

// ValidationReport is the outcome of Validate
type ValidationReport struct {
	Integrity     []string // PRAGMA integrity_check output, "ok" when clean
	Conversations int
	Messages      int
	Postings      int
	Issues        []Issue
}

// OK reports whether the database passed every check
func (r *ValidationReport) OK() bool {
	return len(r.Issues) == 0 && len(r.Integrity) == 1 && r.Integrity[0] == "ok"
}

// Validate checks SQLite integrity and that stored conversations, messages
// and postings agree with each other. Everything is read in one transaction.
func (r *ConversationRepository) Validate(ctx context.Context) (*ValidationReport, error) {
	tx, err := r.db.reader.BeginTx(ctx, nil)
	if err != nil {
		return nil, r.storageError("validate", err)
	}
	defer func() { _ = tx.Rollback() }()

	report := &ValidationReport{}
	if report.Integrity, err = queryStrings(ctx, tx, "PRAGMA integrity_check"); err != nil {
		return nil, r.storageError("validate", err)
	}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM conversations", &report.Conversations},
		{"SELECT COUNT(*) FROM messages", &report.Messages},
		{"SELECT COUNT(*) FROM postings", &report.Postings},
	}
	for _, c := range counts {
		if err := tx.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, r.storageError("validate", err)
		}
	}

	orphans := []struct {
		kind  IssueKind
		query string
	}{
		{IssueOrphanMessage, "SELECT DISTINCT conversation_id FROM messages WHERE conversation_id NOT IN (SELECT id FROM conversations)"},
		{IssueOrphanPosting, "SELECT DISTINCT conversation_id FROM postings WHERE conversation_id NOT IN (SELECT id FROM conversations)"},
	}
	for _, o := range orphans {
		ids, err := queryStrings(ctx, tx, o.query)
		if err != nil {
			return nil, r.storageError("validate", err)
		}
		for _, id := range ids {
			report.add(o.kind, id, fmt.Sprintf("%s rows reference a missing conversation", o.kind))
		}
	}

	rows, err := tx.QueryContext(ctx,
		"SELECT conversation_id, COUNT(*), MIN(position), MAX(position) FROM messages GROUP BY conversation_id")
	if err != nil {
		return nil, r.storageError("validate", err)
	}
	for rows.Next() {
		var id string
		var count, lo, hi int
		if err := rows.Scan(&id, &count, &lo, &hi); err != nil {
			_ = rows.Close()
			return nil, r.storageError("validate", err)
		}
		if lo != 0 || hi != count-1 {
			report.add(IssuePositionGap, id, fmt.Sprintf("%d messages span positions %d..%d", count, lo, hi))
		}
	}
	if err := rows.Close(); err != nil {
		return nil, r.storageError("validate", err)
	}

	ids, err := queryStrings(ctx, tx, "SELECT id FROM conversations ORDER BY created_at, seq")
	if err != nil {
		return nil, r.storageError("validate", err)
	}
	for _, id := range ids {
		if err := checkStored(ctx, tx, id, report); err != nil {
			return nil, r.storageError("validate", err)
		}
	}

	return report, nil
}

// checkStored compares a conversation's postings and hash with what its
// content implies
func checkStored(ctx context.Context, tx *sql.Tx, id string, report *ValidationReport) error {
	conv, err := loadConversation(ctx, tx, id)
	if err != nil || conv == nil {
		return err
	}

	var storedHash string
	if err := tx.QueryRowContext(ctx, "SELECT content_hash FROM conversations WHERE id = ?", id).Scan(&storedHash); err != nil {
		return err
	}
	if storedHash != internal.ContentHash(conv) {
		report.add(IssueHashMismatch, id, "stored content hash does not match content")
	}

	stored, err := search.StoredPostings(ctx, tx, id)
	if err != nil {
		return err
	}
	expected := search.Postings(conv)
	if len(stored) != len(expected) || (len(expected) > 0 && !reflect.DeepEqual(stored, expected)) {
		report.add(IssueIndexMismatch, id, fmt.Sprintf("expected %d postings, found %d differing", len(expected), len(stored)))
	}
	return nil
}

func (r *ValidationReport) add(kind IssueKind, id, detail string) {
	r.Issues = append(r.Issues, Issue{
		Kind: kind,
		Err:  &internal.IndexInconsistencyError{ConversationID: id, Detail: detail},
	})
}

// Repair fixes the issues in report: orphaned rows are removed and every
// affected conversation is rewritten with contiguous positions and fresh
// postings.
func (r *ConversationRepository) Repair(ctx context.Context, report *ValidationReport) (int, error) {
	repaired := 0
	seen := make(map[string]bool)
	for _, issue := range report.Issues {
		id := issue.Err.ConversationID
		if seen[id] {
			continue
		}
		seen[id] = true

		var err error
		switch issue.Kind {
		case IssueOrphanMessage, IssueOrphanPosting:
			err = r.purgeOrphans(ctx, id)
		default:
			err = r.Reindex(ctx, id)
		}
		if err != nil {
			return repaired, err
		}
		repaired++
	}
	return repaired, nil
}

// Reindex rewrites one conversation from its stored messages: positions are
// renumbered, the content hash recomputed and postings rebuilt
func (r *ConversationRepository) Reindex(ctx context.Context, id string) error {
	unlock := r.locks.Lock(id)
	defer unlock()

	tx, err := r.db.writer.BeginTx(ctx, nil)
	if err != nil {
		return r.storageError("reindex", err)
	}
	defer func() { _ = tx.Rollback() }()

	conv, err := loadConversation(ctx, tx, id)
	if err != nil {
		return r.storageError("reindex", err)
	}
	if conv == nil {
		return nil
	}

	if err := clearConversation(ctx, tx, id); err != nil {
		return r.storageError("reindex", err)
	}
	if err := insertMessages(ctx, tx, conv); err != nil {
		return r.storageError("reindex", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE conversations SET content_hash = ? WHERE id = ?",
		internal.ContentHash(conv), id); err != nil {
		return r.storageError("reindex", err)
	}
	if err := search.Index(ctx, tx, conv); err != nil {
		return r.storageError("reindex", err)
	}
	if err := tx.Commit(); err != nil {
		return r.storageError("reindex", err)
	}
	internal.LogInfo("Reindexed conversation %s", id)
	return nil
}

func (r *ConversationRepository) purgeOrphans(ctx context.Context, id string) error {
	unlock := r.locks.Lock(id)
	defer unlock()

	tx, err := r.db.writer.BeginTx(ctx, nil)
	if err != nil {
		return r.storageError("repair", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM conversations WHERE id = ?", id).Scan(&exists); err != nil {
		return r.storageError("repair", err)
	}
	if exists == 0 {
		if err := clearConversation(ctx, tx, id); err != nil {
			return r.storageError("repair", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return r.storageError("repair", err)
	}
	internal.LogInfo("Removed orphaned rows for %s", id)
	return nil
}

func queryStrings(ctx context.Context, q queryer, query string) ([]string, error) {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
