package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iksnae/llm-unify/internal"
	"github.com/iksnae/llm-unify/internal/export"
	"github.com/iksnae/llm-unify/internal/parser"
	"github.com/iksnae/llm-unify/testutil"
)

func openTestDB(t *testing.T) (*Database, *ConversationRepository) {
	t.Helper()
	db, err := Open(context.Background(), testutil.TempDBPath(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, NewConversationRepository(db)
}

func parseFixture(t *testing.T, provider internal.Provider, raw string) []*internal.Conversation {
	t.Helper()
	p, err := parser.New(provider)
	require.NoError(t, err)
	convs, err := p.Parse([]byte(raw))
	require.NoError(t, err)
	return convs
}

func sampleConversation(id string, created time.Time, contents ...string) *internal.Conversation {
	conv := &internal.Conversation{
		ID:        id,
		Provider:  internal.ProviderClaude,
		Title:     "Sample " + id,
		CreatedAt: created.UTC(),
		UpdatedAt: created.UTC(),
		Messages:  []internal.Message{},
	}
	for i, c := range contents {
		role := internal.RoleUser
		if i%2 == 1 {
			role = internal.RoleAssistant
		}
		conv.Messages = append(conv.Messages, internal.Message{Role: role, Content: c})
	}
	return conv
}

func TestSave_RoundTrip(t *testing.T) {
	ctx := context.Background()
	_, repo := openTestDB(t)

	fixtures := map[internal.Provider]string{
		internal.ProviderChatGPT: testutil.ChatGPTExport,
		internal.ProviderClaude:  testutil.ClaudeExport,
		internal.ProviderGemini:  testutil.GeminiExportV1,
		internal.ProviderCopilot: testutil.CopilotExport,
	}
	for provider, raw := range fixtures {
		for _, conv := range parseFixture(t, provider, raw) {
			res, err := repo.Save(ctx, conv)
			require.NoError(t, err)
			assert.Equal(t, SaveCreated, res)

			got, err := repo.FindByID(ctx, conv.ID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, conv, got, "round trip for %s", conv.ID)
		}
	}
}

func TestSave_UnifiedDocumentRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, repo := openTestDB(t)

	raw := `{"format": "llm-unify/conversation", "version": "1.0", "conversation": {
		"id": "unified-1", "provider": "gemini", "title": "No update time",
		"created_at": "2024-03-01T09:00:00Z",
		"messages": [{"role": "user", "content": "hello"}, {"role": "assistant", "content": "hi"}]}}`
	conv, err := export.DecodeDocument([]byte(raw))
	require.NoError(t, err)

	_, err = repo.Save(ctx, conv)
	require.NoError(t, err)
	got, err := repo.FindByID(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, conv, got)
	assert.Equal(t, conv.CreatedAt, got.UpdatedAt)
}

func TestFindByID_Missing(t *testing.T) {
	_, repo := openTestDB(t)
	got, err := repo.FindByID(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSave_Results(t *testing.T) {
	ctx := context.Background()
	_, repo := openTestDB(t)
	conv := sampleConversation("c1", time.Unix(1000, 0), "hello", "world")

	res, err := repo.Save(ctx, conv)
	require.NoError(t, err)
	assert.Equal(t, SaveCreated, res)

	res, err = repo.Save(ctx, conv)
	require.NoError(t, err)
	assert.Equal(t, SaveUnchanged, res)

	conv.Title = "Renamed"
	conv.Messages = conv.Messages[:1]
	res, err = repo.Save(ctx, conv)
	require.NoError(t, err)
	assert.Equal(t, SaveUpdated, res)

	got, err := repo.FindByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Len(t, got.Messages, 1)
}

func TestSave_Rejects(t *testing.T) {
	ctx := context.Background()
	_, repo := openTestDB(t)

	tests := []struct {
		name string
		conv *internal.Conversation
	}{
		{"nil", nil},
		{"empty id", sampleConversation("", time.Unix(1, 0))},
		{"bad provider", &internal.Conversation{ID: "x", Provider: internal.Provider(42)}},
		{"bad role", &internal.Conversation{ID: "x", Provider: internal.ProviderGemini,
			CreatedAt: time.Unix(1, 0), UpdatedAt: time.Unix(1, 0),
			Messages: []internal.Message{{Role: "narrator", Content: "once"}}}},
		{"zero created_at", &internal.Conversation{ID: "x", Provider: internal.ProviderClaude,
			UpdatedAt: time.Unix(1, 0)}},
		{"zero updated_at", &internal.Conversation{ID: "x", Provider: internal.ProviderClaude,
			CreatedAt: time.Unix(1, 0)}},
		{"updated_at out of range", &internal.Conversation{ID: "x", Provider: internal.ProviderClaude,
			CreatedAt: time.Unix(1, 0), UpdatedAt: time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC)}},
		{"message timestamp out of range", &internal.Conversation{ID: "x", Provider: internal.ProviderClaude,
			CreatedAt: time.Unix(1, 0), UpdatedAt: time.Unix(1, 0),
			Messages: []internal.Message{{Role: internal.RoleUser, Content: "old",
				Timestamp: internal.TimePtr(time.Date(1200, 1, 1, 0, 0, 0, 0, time.UTC))}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Save(ctx, tt.conv)
			var se *internal.StorageError
			assert.ErrorAs(t, err, &se)
		})
	}

	conv := sampleConversation("fixed", time.Unix(1, 0), "hi")
	_, err := repo.Save(ctx, conv)
	require.NoError(t, err)
	conv.Provider = internal.ProviderGemini
	_, err = repo.Save(ctx, conv)
	assert.Error(t, err, "provider is fixed at creation")
}

func TestList_Order(t *testing.T) {
	ctx := context.Background()
	_, repo := openTestDB(t)

	same := time.Unix(5000, 0)
	for _, conv := range []*internal.Conversation{
		sampleConversation("late", time.Unix(9000, 0), "z"),
		sampleConversation("tie-b", same, "b"),
		sampleConversation("early", time.Unix(1000, 0), "a"),
		sampleConversation("tie-a", same, "a"),
	} {
		_, err := repo.Save(ctx, conv)
		require.NoError(t, err)
	}

	// an update keeps the original insertion slot
	updated := sampleConversation("tie-b", same, "b", "more")
	_, err := repo.Save(ctx, updated)
	require.NoError(t, err)

	convs, err := repo.List(ctx)
	require.NoError(t, err)
	var ids []string
	for _, c := range convs {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"early", "tie-b", "tie-a", "late"}, ids)
}

func TestListByProvider(t *testing.T) {
	ctx := context.Background()
	_, repo := openTestDB(t)

	for _, conv := range parseFixture(t, internal.ProviderChatGPT, testutil.ChatGPTExport) {
		_, err := repo.Save(ctx, conv)
		require.NoError(t, err)
	}
	for _, conv := range parseFixture(t, internal.ProviderCopilot, testutil.CopilotExport) {
		_, err := repo.Save(ctx, conv)
		require.NoError(t, err)
	}

	copilot, err := repo.ListByProvider(ctx, internal.ProviderCopilot)
	require.NoError(t, err)
	assert.Len(t, copilot, 2)
	for _, c := range copilot {
		assert.Equal(t, internal.ProviderCopilot, c.Provider)
		assert.Len(t, c.Messages, 2)
	}

	gemini, err := repo.ListByProvider(ctx, internal.ProviderGemini)
	require.NoError(t, err)
	assert.Empty(t, gemini)
	assert.NotNil(t, gemini)

	_, err = repo.ListByProvider(ctx, internal.Provider(0))
	var upe *internal.UnknownProviderError
	assert.ErrorAs(t, err, &upe)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	db, repo := openTestDB(t)

	conv := sampleConversation("gone", time.Unix(100, 0), "xylophone recital tonight")
	_, err := repo.Save(ctx, conv)
	require.NoError(t, err)

	results, err := db.Search().Search(ctx, "xylophone", searchOpts())
	require.NoError(t, err)
	require.Len(t, results, 1)

	require.NoError(t, repo.Delete(ctx, "gone"))
	got, err := repo.FindByID(ctx, "gone")
	require.NoError(t, err)
	assert.Nil(t, got)

	results, err = db.Search().Search(ctx, "xylophone", searchOpts())
	require.NoError(t, err)
	assert.Empty(t, results)

	assert.NoError(t, repo.Delete(ctx, "gone"), "delete is idempotent")

	stats, err := db.Search().Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Postings)
}

func TestSave_IdempotentReimport(t *testing.T) {
	ctx := context.Background()
	db, repo := openTestDB(t)

	importAll := func() {
		for _, conv := range parseFixture(t, internal.ProviderChatGPT, testutil.ChatGPTExport) {
			_, err := repo.Save(ctx, conv)
			require.NoError(t, err)
		}
		for _, conv := range parseFixture(t, internal.ProviderClaude, testutil.ClaudeExport) {
			_, err := repo.Save(ctx, conv)
			require.NoError(t, err)
		}
	}

	importAll()
	convs1, msgs1, err := repo.Count(ctx)
	require.NoError(t, err)
	idx1, err := db.Search().Stats(ctx)
	require.NoError(t, err)

	importAll()
	convs2, msgs2, err := repo.Count(ctx)
	require.NoError(t, err)
	idx2, err := db.Search().Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, convs1, convs2)
	assert.Equal(t, msgs1, msgs2)
	assert.Equal(t, idx1, idx2)
}

func TestImportScenario(t *testing.T) {
	ctx := context.Background()
	db, repo := openTestDB(t)

	for _, conv := range parseFixture(t, internal.ProviderChatGPT, testutil.ChatGPTExport) {
		_, err := repo.Save(ctx, conv)
		require.NoError(t, err)
	}
	for _, conv := range parseFixture(t, internal.ProviderClaude, testutil.ClaudeExport) {
		_, err := repo.Save(ctx, conv)
		require.NoError(t, err)
	}

	convs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 2)

	stats := internal.ComputeStats(convs)
	assert.Equal(t, 2, stats.Conversations)
	assert.Equal(t, testutil.TripPlanningMessages+testutil.CodeReviewMessages, stats.Messages)

	results, err := db.Search().Search(ctx, "planning", searchOpts())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, testutil.TripPlanningID, results[0].ConversationID)
	assert.Contains(t, results[0].Snippet, "planning a trip to Lisbon")

	results, err = db.Search().Search(ctx, "nonexistent_token_xyz", searchOpts())
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSave_ConcurrentSameID(t *testing.T) {
	ctx := context.Background()
	_, repo := openTestDB(t)

	const writers = 8
	variants := make([]*internal.Conversation, writers)
	for i := range variants {
		contents := make([]string, i+1)
		for j := range contents {
			contents[j] = fmt.Sprintf("variant %d message %d", i, j)
		}
		variants[i] = sampleConversation("shared", time.Unix(42, 0), contents...)
	}

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for _, v := range variants {
		wg.Add(1)
		go func(conv *internal.Conversation) {
			defer wg.Done()
			if _, err := repo.Save(ctx, conv); err != nil {
				errs <- err
			}
		}(v)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent save failed: %v", err)
	}

	got, err := repo.FindByID(ctx, "shared")
	require.NoError(t, err)
	require.NotNil(t, got)

	matched := false
	for _, v := range variants {
		if assert.ObjectsAreEqual(v, got) {
			matched = true
		}
	}
	assert.True(t, matched, "stored conversation must equal exactly one saved version")

	report, err := repo.Validate(ctx)
	require.NoError(t, err)
	assert.True(t, report.OK(), "issues: %+v", report.Issues)
	assert.Zero(t, repo.locks.Len())
}

func TestSave_ConcurrentDistinctIDs(t *testing.T) {
	ctx := context.Background()
	_, repo := openTestDB(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conv := sampleConversation(fmt.Sprintf("c%02d", i), time.Unix(int64(i), 0), "hello")
			_, err := repo.Save(ctx, conv)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	n, m, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, 10, m)
}

func TestOpen_Reopen(t *testing.T) {
	ctx := context.Background()
	path := testutil.TempDBPath(t)

	db, err := Open(ctx, path)
	require.NoError(t, err)
	repo := NewConversationRepository(db)
	_, err = repo.Save(ctx, sampleConversation("persist", time.Unix(1, 0), "kept"))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(ctx, path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	got, err := NewConversationRepository(db).FindByID(ctx, "persist")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "kept", got.Messages[0].Content)
}
