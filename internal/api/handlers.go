package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iksnae/llm-unify/internal"
	"github.com/iksnae/llm-unify/internal/export"
	"github.com/iksnae/llm-unify/internal/search"
)

// ConversationSummary is one row of the conversation listing
type ConversationSummary struct {
	ID        string            `json:"id"`
	Provider  internal.Provider `json:"provider"`
	Title     string            `json:"title"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Messages  int               `json:"messages"`
}

// ListResponse wraps the conversation listing
type ListResponse struct {
	Conversations []ConversationSummary `json:"conversations"`
	Count         int                   `json:"count"`
}

// SearchResponse wraps ranked search results
type SearchResponse struct {
	Query   string          `json:"query"`
	Results []search.Result `json:"results"`
	Count   int             `json:"count"`
}

// ProviderStats is the per-provider part of StatsResponse
type ProviderStats struct {
	Provider      internal.Provider `json:"provider"`
	Conversations int               `json:"conversations"`
	Messages      int               `json:"messages"`
}

// StatsResponse summarizes the store
type StatsResponse struct {
	Conversations int                   `json:"conversations"`
	Messages      int                   `json:"messages"`
	ByProvider    []ProviderStats       `json:"by_provider"`
	ByRole        map[internal.Role]int `json:"by_role"`
	Oldest        *time.Time            `json:"oldest,omitempty"`
	Newest        *time.Time            `json:"newest,omitempty"`
	Index         search.IndexStats     `json:"index"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listConversations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		convs []*internal.Conversation
		err   error
	)
	if name := r.URL.Query().Get("provider"); name != "" {
		p, perr := internal.ParseProvider(name)
		if perr != nil {
			writeError(w, http.StatusBadRequest, perr)
			return
		}
		convs, err = s.repo.ListByProvider(ctx, p)
	} else {
		convs, err = s.repo.List(ctx)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := ListResponse{Conversations: make([]ConversationSummary, 0, len(convs)), Count: len(convs)}
	for _, conv := range convs {
		resp.Conversations = append(resp.Conversations, ConversationSummary{
			ID:        conv.ID,
			Provider:  conv.Provider,
			Title:     conv.Title,
			CreatedAt: conv.CreatedAt,
			UpdatedAt: conv.UpdatedAt,
			Messages:  conv.MessageCount(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// getConversation returns the unified export document, the same shape
// `export --format json` writes
func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	conv, err := s.repo.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if conv == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("conversation not found: %s", id))
		return
	}
	writeJSON(w, http.StatusOK, export.NewDocument(conv))
}

func (s *Server) deleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.metrics.ConversationsDeleted.Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := s.defaults

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit: %q", raw))
			return
		}
		opts.Limit = limit
	}
	if name := q.Get("provider"); name != "" {
		p, err := internal.ParseProvider(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		opts.Provider = p
	}

	query := q.Get("q")
	results, err := s.engine.Search(r.Context(), query, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.metrics.SearchQueriesTotal.Inc()
	writeJSON(w, http.StatusOK, SearchResponse{Query: query, Results: results, Count: len(results)})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	convs, err := s.repo.List(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	index, err := s.engine.Stats(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	st := internal.ComputeStats(convs)
	resp := StatsResponse{
		Conversations: st.Conversations,
		Messages:      st.Messages,
		ByProvider:    make([]ProviderStats, 0, len(st.ByProvider)),
		ByRole:        st.ByRole,
		Index:         index,
	}
	for _, pc := range st.ByProvider {
		resp.ByProvider = append(resp.ByProvider, ProviderStats(pc))
	}
	if st.Conversations > 0 {
		resp.Oldest = &st.Oldest
		resp.Newest = &st.Newest
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		internal.LogWarn("Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		internal.LogError("API request failed: %v", err)
	}
	var upe *internal.UnknownProviderError
	if errors.As(err, &upe) {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
