package search

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/iksnae/llm-unify/internal"
)

// DefaultSnippetLength bounds snippet content, in runes
const DefaultSnippetLength = 200

// Options narrow a search
type Options struct {
	Limit         int               // <= 0 returns every match
	Provider      internal.Provider // zero matches all providers
	SnippetLength int               // <= 0 uses DefaultSnippetLength
}

// Result is one ranked match
type Result struct {
	ConversationID string            `json:"conversation_id"`
	Title          string            `json:"title"`
	Provider       internal.Provider `json:"provider"`
	Snippet        string            `json:"snippet"`
	Score          float64           `json:"score"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// IndexStats summarizes the postings table
type IndexStats struct {
	Tokens   int `json:"tokens"`
	Postings int `json:"postings"`
}

// Engine answers queries against the postings written by Index
type Engine struct {
	db   *sql.DB
	path string
}

// NewEngine creates an engine reading through db. path only labels errors.
func NewEngine(db *sql.DB, path string) *Engine {
	return &Engine{db: db, path: path}
}

func (e *Engine) storageError(op string, err error) error {
	return &internal.StorageError{Path: e.path, Op: op, Err: err}
}

type candidate struct {
	id        string
	title     string
	provider  internal.Provider
	updatedAt time.Time
	score     float64
	// tf per term per position, for snippet selection
	positions map[int]map[string]int
}

// Search ranks conversations matching query. A query with no indexable
// terms yields an empty result, not an error.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	terms := QueryTerms(query)
	if len(terms) == 0 {
		return []Result{}, nil
	}
	if opts.SnippetLength <= 0 {
		opts.SnippetLength = DefaultSnippetLength
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, e.storageError("search", fmt.Errorf("failed to begin search: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	var total int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM conversations").Scan(&total); err != nil {
		return nil, e.storageError("search", fmt.Errorf("failed to count conversations: %w", err))
	}
	if total == 0 {
		return []Result{}, nil
	}

	args := make([]interface{}, len(terms))
	for i, t := range terms {
		args[i] = t
	}
	rows, err := tx.QueryContext(ctx,
		"SELECT token, conversation_id, position, tf FROM postings WHERE token IN ("+placeholders(len(terms))+")",
		args...)
	if err != nil {
		return nil, e.storageError("search", fmt.Errorf("failed to read postings: %w", err))
	}

	candidates := make(map[string]*candidate)
	termDocs := make(map[string]map[string]int) // term -> doc -> total tf
	for rows.Next() {
		var token, id string
		var position, tf int
		if err := rows.Scan(&token, &id, &position, &tf); err != nil {
			_ = rows.Close()
			return nil, e.storageError("search", fmt.Errorf("failed to scan posting: %w", err))
		}
		c, ok := candidates[id]
		if !ok {
			c = &candidate{id: id, positions: make(map[int]map[string]int)}
			candidates[id] = c
		}
		if c.positions[position] == nil {
			c.positions[position] = make(map[string]int)
		}
		c.positions[position][token] += tf
		if termDocs[token] == nil {
			termDocs[token] = make(map[string]int)
		}
		termDocs[token][id] += tf
	}
	if err := rows.Close(); err != nil {
		return nil, e.storageError("search", err)
	}
	if err := rows.Err(); err != nil {
		return nil, e.storageError("search", fmt.Errorf("failed to read postings: %w", err))
	}
	if len(candidates) == 0 {
		return []Result{}, nil
	}

	idf := make(map[string]float64, len(termDocs))
	for term, docs := range termDocs {
		idf[term] = math.Log(1 + float64(total)/float64(len(docs)))
	}
	for _, c := range candidates {
		matched := 0
		for _, term := range terms {
			tf, ok := termDocs[term][c.id]
			if !ok {
				continue
			}
			matched++
			c.score += (1 + math.Log(float64(tf))) * idf[term]
		}
		c.score *= float64(matched) / float64(len(terms))
	}

	if err := loadCandidates(ctx, tx, candidates); err != nil {
		return nil, e.storageError("search", err)
	}

	ranked := make([]*candidate, 0, len(candidates))
	for _, c := range candidates {
		if opts.Provider != 0 && c.provider != opts.Provider {
			continue
		}
		ranked = append(ranked, c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if !a.updatedAt.Equal(b.updatedAt) {
			return a.updatedAt.After(b.updatedAt)
		}
		return a.id < b.id
	})
	if opts.Limit > 0 && len(ranked) > opts.Limit {
		ranked = ranked[:opts.Limit]
	}

	results := make([]Result, 0, len(ranked))
	for _, c := range ranked {
		snippet, err := candidateSnippet(ctx, tx, c, terms, idf, opts.SnippetLength)
		if err != nil {
			return nil, e.storageError("search", err)
		}
		results = append(results, Result{
			ConversationID: c.id,
			Title:          c.title,
			Provider:       c.provider,
			Snippet:        snippet,
			Score:          c.score,
			UpdatedAt:      c.updatedAt,
		})
	}
	return results, nil
}

// loadCandidates fills title, provider and update time for every candidate
func loadCandidates(ctx context.Context, tx *sql.Tx, candidates map[string]*candidate) error {
	ids := make([]interface{}, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}

	const chunk = 500
	for start := 0; start < len(ids); start += chunk {
		end := start + chunk
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]
		rows, err := tx.QueryContext(ctx,
			"SELECT id, provider, title, updated_at FROM conversations WHERE id IN ("+placeholders(len(batch))+")",
			batch...)
		if err != nil {
			return fmt.Errorf("failed to load conversations: %w", err)
		}
		for rows.Next() {
			var id, provider, title string
			var updated int64
			if err := rows.Scan(&id, &provider, &title, &updated); err != nil {
				_ = rows.Close()
				return fmt.Errorf("failed to scan conversation: %w", err)
			}
			c := candidates[id]
			c.title = title
			c.updatedAt = time.Unix(0, updated).UTC()
			if p, err := internal.ParseProvider(provider); err == nil {
				c.provider = p
			}
		}
		if err := rows.Close(); err != nil {
			return err
		}
		if err := rows.Err(); err != nil {
			return err
		}
	}
	return nil
}

// candidateSnippet picks the best-matching position of a candidate and
// excerpts it around the rarest matched term. A message beats the title
// on equal weight.
func candidateSnippet(ctx context.Context, tx *sql.Tx, c *candidate, terms []string, idf map[string]float64, length int) (string, error) {
	best, bestWeight := 0, -1.0
	positions := make([]int, 0, len(c.positions))
	for p := range c.positions {
		positions = append(positions, p)
	}
	sort.Ints(positions)
	for _, p := range positions {
		weight := 0.0
		for term, tf := range c.positions[p] {
			weight += float64(tf) * idf[term]
		}
		if weight > bestWeight || (weight == bestWeight && best == TitlePosition) {
			best, bestWeight = p, weight
		}
	}

	var text string
	if best == TitlePosition {
		text = c.title
	} else {
		err := tx.QueryRowContext(ctx,
			"SELECT content FROM messages WHERE conversation_id = ? AND position = ?", c.id, best).Scan(&text)
		if err != nil && err != sql.ErrNoRows {
			return "", fmt.Errorf("failed to load message %s/%d: %w", c.id, best, err)
		}
	}

	focus, focusIDF := "", -1.0
	for _, term := range terms {
		if _, ok := c.positions[best][term]; ok && idf[term] > focusIDF {
			focus, focusIDF = term, idf[term]
		}
	}
	return Snippet(text, focus, length), nil
}

// Stats reports the size of the index
func (e *Engine) Stats(ctx context.Context) (IndexStats, error) {
	var s IndexStats
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return s, e.storageError("stats", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.QueryRowContext(ctx, "SELECT COUNT(DISTINCT token), COUNT(*) FROM postings").Scan(&s.Tokens, &s.Postings); err != nil {
		return s, e.storageError("stats", fmt.Errorf("failed to read index stats: %w", err))
	}
	return s, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
