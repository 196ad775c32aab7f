package internal

import (
	"testing"
	"time"
)

func TestComputeStats(t *testing.T) {
	a := CreateTestConversation("a")
	b := CreateTestConversationWithMessages("b", []Message{{Role: RoleUser, Content: "solo"}})
	b.Provider = ProviderClaude
	b.CreatedAt = a.CreatedAt.Add(-time.Hour)
	c := CreateTestConversation("c")
	c.Provider = ProviderCopilot
	c.UpdatedAt = a.UpdatedAt.Add(time.Hour)

	stats := ComputeStats([]*Conversation{c, a, b})

	if stats.Conversations != 3 || stats.Messages != 5 {
		t.Errorf("totals = %d conversations, %d messages; want 3, 5", stats.Conversations, stats.Messages)
	}
	if stats.ByRole[RoleUser] != 3 || stats.ByRole[RoleAssistant] != 2 {
		t.Errorf("ByRole = %v", stats.ByRole)
	}
	wantOrder := []Provider{ProviderChatGPT, ProviderClaude, ProviderCopilot}
	if len(stats.ByProvider) != len(wantOrder) {
		t.Fatalf("ByProvider = %+v", stats.ByProvider)
	}
	for i, pc := range stats.ByProvider {
		if pc.Provider != wantOrder[i] {
			t.Errorf("ByProvider[%d] = %v, want %v", i, pc.Provider, wantOrder[i])
		}
	}
	if !stats.Oldest.Equal(b.CreatedAt) || !stats.Newest.Equal(c.UpdatedAt) {
		t.Errorf("Oldest = %v, Newest = %v", stats.Oldest, stats.Newest)
	}

	empty := ComputeStats(nil)
	if empty.Conversations != 0 || len(empty.ByProvider) != 0 || !empty.Oldest.IsZero() {
		t.Errorf("ComputeStats(nil) = %+v", empty)
	}
}

func TestFilterByProvider(t *testing.T) {
	a := CreateTestConversation("a")
	b := CreateTestConversation("b")
	b.Provider = ProviderGemini
	c := CreateTestConversation("c")

	got := FilterByProvider([]*Conversation{a, b, c}, ProviderChatGPT)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("FilterByProvider() = %v", got)
	}
	if got := FilterByProvider([]*Conversation{a}, ProviderCopilot); got == nil || len(got) != 0 {
		t.Errorf("FilterByProvider() = %v, want empty non-nil", got)
	}
}
