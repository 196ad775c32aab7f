package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/iksnae/llm-unify/internal"
	"github.com/iksnae/llm-unify/internal/search"
)

// SaveResult reports what Save did
type SaveResult int

const (
	SaveCreated SaveResult = iota + 1
	SaveUpdated
	SaveUnchanged
)

func (r SaveResult) String() string {
	switch r {
	case SaveCreated:
		return "created"
	case SaveUpdated:
		return "updated"
	case SaveUnchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// queryer is satisfied by *sql.Tx and *sql.DB
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ConversationRepository stores conversations and their index postings
type ConversationRepository struct {
	db    *Database
	locks *idLocks
}

// NewConversationRepository creates a repository over db
func NewConversationRepository(db *Database) *ConversationRepository {
	return &ConversationRepository{db: db, locks: newIDLocks()}
}

func (r *ConversationRepository) storageError(op string, err error) error {
	return &internal.StorageError{Path: r.db.path, Op: op, Err: err}
}

// Save inserts or replaces a conversation. The row, its messages and its
// postings commit together. Saving identical content touches nothing.
func (r *ConversationRepository) Save(ctx context.Context, conv *internal.Conversation) (SaveResult, error) {
	if err := checkConversation(conv); err != nil {
		return 0, r.storageError("save", err)
	}

	unlock := r.locks.Lock(conv.ID)
	defer unlock()

	hash := internal.ContentHash(conv)

	tx, err := r.db.writer.BeginTx(ctx, nil)
	if err != nil {
		return 0, r.storageError("save", err)
	}
	defer func() { _ = tx.Rollback() }()

	var storedHash, storedProvider string
	err = tx.QueryRowContext(ctx,
		"SELECT content_hash, provider FROM conversations WHERE id = ?", conv.ID).Scan(&storedHash, &storedProvider)
	exists := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, r.storageError("save", err)
	}

	if exists {
		if storedProvider != conv.Provider.String() {
			return 0, r.storageError("save", fmt.Errorf("conversation %s belongs to %s, not %s",
				conv.ID, storedProvider, conv.Provider))
		}
		if storedHash == hash {
			return SaveUnchanged, nil
		}
		if err := clearConversation(ctx, tx, conv.ID); err != nil {
			return 0, r.storageError("save", err)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE conversations SET title = ?, created_at = ?, updated_at = ?, content_hash = ? WHERE id = ?`,
			conv.Title, conv.CreatedAt.UnixNano(), conv.UpdatedAt.UnixNano(), hash, conv.ID)
	} else {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO conversations (id, provider, title, created_at, updated_at, content_hash, seq)
			 VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM conversations))`,
			conv.ID, conv.Provider.String(), conv.Title, conv.CreatedAt.UnixNano(), conv.UpdatedAt.UnixNano(), hash)
	}
	if err != nil {
		return 0, r.storageError("save", fmt.Errorf("failed to write conversation %s: %w", conv.ID, err))
	}

	if err := insertMessages(ctx, tx, conv); err != nil {
		return 0, r.storageError("save", err)
	}
	if err := search.Index(ctx, tx, conv); err != nil {
		return 0, r.storageError("save", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, r.storageError("save", err)
	}

	if exists {
		internal.LogDebug("Updated conversation %s (%d messages)", conv.ID, len(conv.Messages))
		return SaveUpdated, nil
	}
	internal.LogDebug("Created conversation %s (%d messages)", conv.ID, len(conv.Messages))
	return SaveCreated, nil
}

// FindByID returns the conversation, or nil when no conversation has that id
func (r *ConversationRepository) FindByID(ctx context.Context, id string) (*internal.Conversation, error) {
	tx, err := r.db.reader.BeginTx(ctx, nil)
	if err != nil {
		return nil, r.storageError("find", err)
	}
	defer func() { _ = tx.Rollback() }()

	conv, err := loadConversation(ctx, tx, id)
	if err != nil {
		return nil, r.storageError("find", err)
	}
	return conv, nil
}

// List returns every conversation ordered by creation time, then by first
// insertion
func (r *ConversationRepository) List(ctx context.Context) ([]*internal.Conversation, error) {
	return r.list(ctx, "")
}

// ListByProvider returns the conversations of one provider, in List order
func (r *ConversationRepository) ListByProvider(ctx context.Context, p internal.Provider) ([]*internal.Conversation, error) {
	if !p.Valid() {
		return nil, &internal.UnknownProviderError{Name: p.String()}
	}
	return r.list(ctx, p.String())
}

func (r *ConversationRepository) list(ctx context.Context, provider string) ([]*internal.Conversation, error) {
	tx, err := r.db.reader.BeginTx(ctx, nil)
	if err != nil {
		return nil, r.storageError("list", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := "SELECT id, provider, title, created_at, updated_at FROM conversations"
	msgQuery := "SELECT m.conversation_id, m.role, m.content, m.timestamp FROM messages m"
	var args []interface{}
	if provider != "" {
		query += " WHERE provider = ?"
		msgQuery += " JOIN conversations c ON c.id = m.conversation_id WHERE c.provider = ?"
		args = append(args, provider)
	}
	query += " ORDER BY created_at, seq"
	msgQuery += " ORDER BY m.conversation_id, m.position"

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.storageError("list", err)
	}
	var convs []*internal.Conversation
	byID := make(map[string]*internal.Conversation)
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			_ = rows.Close()
			return nil, r.storageError("list", err)
		}
		convs = append(convs, conv)
		byID[conv.ID] = conv
	}
	if err := rows.Close(); err != nil {
		return nil, r.storageError("list", err)
	}

	mrows, err := tx.QueryContext(ctx, msgQuery, args...)
	if err != nil {
		return nil, r.storageError("list", err)
	}
	defer func() { _ = mrows.Close() }()
	for mrows.Next() {
		var id string
		msg, err := scanMessage(mrows, &id)
		if err != nil {
			return nil, r.storageError("list", err)
		}
		if conv, ok := byID[id]; ok {
			conv.Messages = append(conv.Messages, msg)
		}
	}
	if err := mrows.Err(); err != nil {
		return nil, r.storageError("list", err)
	}

	if convs == nil {
		convs = []*internal.Conversation{}
	}
	return convs, nil
}

// Delete removes a conversation, its messages and its postings. Deleting
// an absent id succeeds.
func (r *ConversationRepository) Delete(ctx context.Context, id string) error {
	unlock := r.locks.Lock(id)
	defer unlock()

	tx, err := r.db.writer.BeginTx(ctx, nil)
	if err != nil {
		return r.storageError("delete", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := clearConversation(ctx, tx, id); err != nil {
		return r.storageError("delete", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return r.storageError("delete", err)
	}
	if err := tx.Commit(); err != nil {
		return r.storageError("delete", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		internal.LogDebug("Deleted conversation %s", id)
	}
	return nil
}

// Count returns the number of stored conversations and messages
func (r *ConversationRepository) Count(ctx context.Context) (conversations, messages int, err error) {
	tx, err := r.db.reader.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, r.storageError("count", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM conversations").Scan(&conversations); err != nil {
		return 0, 0, r.storageError("count", err)
	}
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages").Scan(&messages); err != nil {
		return 0, 0, r.storageError("count", err)
	}
	return conversations, messages, nil
}

func checkConversation(conv *internal.Conversation) error {
	if conv == nil {
		return errors.New("nil conversation")
	}
	if conv.ID == "" {
		return errors.New("conversation has no id")
	}
	if !conv.Provider.Valid() {
		return &internal.UnknownProviderError{Name: conv.Provider.String()}
	}
	if !storableTime(conv.CreatedAt) {
		return fmt.Errorf("conversation %s has invalid created_at %s", conv.ID, conv.CreatedAt)
	}
	if !storableTime(conv.UpdatedAt) {
		return fmt.Errorf("conversation %s has invalid updated_at %s", conv.ID, conv.UpdatedAt)
	}
	for i, m := range conv.Messages {
		if !m.Role.Valid() {
			return fmt.Errorf("message %d of %s has invalid role %q", i, conv.ID, m.Role)
		}
		if m.Timestamp != nil && !storableTime(*m.Timestamp) {
			return fmt.Errorf("message %d of %s has invalid timestamp %s", i, conv.ID, *m.Timestamp)
		}
	}
	return nil
}

// Times are stored as Unix nanoseconds, which cover 1678 to 2262.
var (
	minStoredTime = time.Unix(0, math.MinInt64)
	maxStoredTime = time.Unix(0, math.MaxInt64)
)

func storableTime(t time.Time) bool {
	return !t.IsZero() && !t.Before(minStoredTime) && !t.After(maxStoredTime)
}

// clearConversation removes the messages and postings of id
func clearConversation(ctx context.Context, tx *sql.Tx, id string) error {
	if err := search.Remove(ctx, tx, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE conversation_id = ?", id); err != nil {
		return fmt.Errorf("failed to remove messages for %s: %w", id, err)
	}
	return nil
}

func insertMessages(ctx context.Context, tx *sql.Tx, conv *internal.Conversation) error {
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO messages (conversation_id, position, role, content, timestamp) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare message insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, m := range conv.Messages {
		var ts sql.NullInt64
		if m.Timestamp != nil {
			ts = sql.NullInt64{Int64: m.Timestamp.UnixNano(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, conv.ID, i, string(m.Role), m.Content, ts); err != nil {
			return fmt.Errorf("failed to insert message %d of %s: %w", i, conv.ID, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConversation(row rowScanner) (*internal.Conversation, error) {
	var (
		conv             internal.Conversation
		provider         string
		created, updated int64
	)
	if err := row.Scan(&conv.ID, &provider, &conv.Title, &created, &updated); err != nil {
		return nil, err
	}
	p, err := internal.ParseProvider(provider)
	if err != nil {
		return nil, fmt.Errorf("conversation %s: %w", conv.ID, err)
	}
	conv.Provider = p
	conv.CreatedAt = time.Unix(0, created).UTC()
	conv.UpdatedAt = time.Unix(0, updated).UTC()
	conv.Messages = []internal.Message{}
	return &conv, nil
}

func scanMessage(row rowScanner, conversationID *string) (internal.Message, error) {
	var (
		msg  internal.Message
		role string
		ts   sql.NullInt64
	)
	if err := row.Scan(conversationID, &role, &msg.Content, &ts); err != nil {
		return msg, err
	}
	msg.Role = internal.Role(role)
	if ts.Valid {
		msg.Timestamp = internal.TimePtr(time.Unix(0, ts.Int64))
	}
	return msg, nil
}

// loadConversation reads one conversation through q, or nil when absent
func loadConversation(ctx context.Context, q queryer, id string) (*internal.Conversation, error) {
	conv, err := scanConversation(q.QueryRowContext(ctx,
		"SELECT id, provider, title, created_at, updated_at FROM conversations WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx,
		"SELECT conversation_id, role, content, timestamp FROM messages WHERE conversation_id = ? ORDER BY position", id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var cid string
		msg, err := scanMessage(rows, &cid)
		if err != nil {
			return nil, err
		}
		conv.Messages = append(conv.Messages, msg)
	}
	return conv, rows.Err()
}
