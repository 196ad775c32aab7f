package internal

import (
	"time"
)

// testEpoch is a fixed creation time so helpers produce reproducible values
var testEpoch = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// CreateTestConversation creates a two-message conversation with sample data
func CreateTestConversation(id string) *Conversation {
	return CreateTestConversationWithMessages(id, []Message{
		{
			Role:      RoleUser,
			Content:   "Hello, how are you?",
			Timestamp: TimePtr(testEpoch),
		},
		{
			Role:      RoleAssistant,
			Content:   "I'm doing well, thank you!",
			Timestamp: TimePtr(testEpoch.Add(5 * time.Second)),
		},
	})
}

// CreateTestConversationWithMessages creates a test conversation with custom messages
func CreateTestConversationWithMessages(id string, messages []Message) *Conversation {
	if messages == nil {
		messages = []Message{}
	}
	return &Conversation{
		ID:        id,
		Provider:  ProviderChatGPT,
		Title:     "Test Conversation",
		CreatedAt: testEpoch,
		UpdatedAt: testEpoch.Add(time.Minute),
		Messages:  messages,
	}
}
