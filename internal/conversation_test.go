package internal

import (
	"testing"
	"time"
)

func TestConversation_DisplayTitle(t *testing.T) {
	conv := CreateTestConversation("c")
	if got := conv.DisplayTitle(); got != "Test Conversation" {
		t.Errorf("DisplayTitle() = %q", got)
	}
	conv.Title = ""
	if got := conv.DisplayTitle(); got != "Untitled" {
		t.Errorf("DisplayTitle() = %q, want Untitled", got)
	}
	if conv.Title != "" {
		t.Error("DisplayTitle() must not modify Title")
	}
}

func TestConversation_MessageCount(t *testing.T) {
	if got := CreateTestConversation("c").MessageCount(); got != 2 {
		t.Errorf("MessageCount() = %d, want 2", got)
	}
	if got := CreateTestConversationWithMessages("e", nil).MessageCount(); got != 0 {
		t.Errorf("MessageCount() = %d, want 0", got)
	}
}

func TestTimePtr(t *testing.T) {
	local := time.Date(2024, 6, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	p := TimePtr(local)
	if p.Location() != time.UTC {
		t.Errorf("TimePtr() location = %v, want UTC", p.Location())
	}
	if !p.Equal(local) {
		t.Errorf("TimePtr() = %v, want same instant as %v", p, local)
	}
}
