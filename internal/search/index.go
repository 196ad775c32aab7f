// Package search maintains the inverted index over stored conversations and
// answers ranked keyword queries against it.
package search

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/iksnae/llm-unify/internal"
)

// TitlePosition is the posting position used for a conversation's title
const TitlePosition = -1

// Schema creates the postings table. The conversations and messages tables
// it references are created by the storage layer first.
const Schema = `
CREATE TABLE IF NOT EXISTS postings (
	token           TEXT    NOT NULL,
	conversation_id TEXT    NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	position        INTEGER NOT NULL,
	tf              INTEGER NOT NULL,
	PRIMARY KEY (token, conversation_id, position)
) WITHOUT ROWID;
CREATE INDEX IF NOT EXISTS idx_postings_conversation ON postings(conversation_id);
`

// Posting records how often a token occurs at one position of a conversation
type Posting struct {
	Token    string
	Position int
	TF       int
}

// Postings computes the postings a conversation should have, sorted by
// position then token
func Postings(conv *internal.Conversation) []Posting {
	var out []Posting
	add := func(position int, text string) {
		counts := make(map[string]int)
		for _, term := range Tokenize(text) {
			counts[term]++
		}
		start := len(out)
		for term, tf := range counts {
			out = append(out, Posting{Token: term, Position: position, TF: tf})
		}
		sort.Slice(out[start:], func(i, j int) bool {
			return out[start+i].Token < out[start+j].Token
		})
	}

	add(TitlePosition, conv.Title)
	for i, m := range conv.Messages {
		add(i, m.Content)
	}
	return out
}

// Index writes the postings for conv inside tx. Existing postings for the
// conversation must already have been removed.
func Index(ctx context.Context, tx *sql.Tx, conv *internal.Conversation) error {
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO postings (token, conversation_id, position, tf) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare posting insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, p := range Postings(conv) {
		if _, err := stmt.ExecContext(ctx, p.Token, conv.ID, p.Position, p.TF); err != nil {
			return fmt.Errorf("failed to insert posting %q: %w", p.Token, err)
		}
	}
	return nil
}

// Remove deletes every posting of one conversation inside tx
func Remove(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM postings WHERE conversation_id = ?", id); err != nil {
		return fmt.Errorf("failed to remove postings for %s: %w", id, err)
	}
	return nil
}

// StoredPostings reads the postings of one conversation in the order
// Postings produces them
func StoredPostings(ctx context.Context, tx *sql.Tx, id string) ([]Posting, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT token, position, tf FROM postings WHERE conversation_id = ? ORDER BY position, token", id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Posting
	for rows.Next() {
		var p Posting
		if err := rows.Scan(&p.Token, &p.Position, &p.TF); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
