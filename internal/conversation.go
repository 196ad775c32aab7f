package internal

import "time"

// Conversation is one chat session in the unified schema
type Conversation struct {
	ID        string    `json:"id" yaml:"id" toml:"id"`
	Provider  Provider  `json:"provider" yaml:"provider" toml:"provider"`
	Title     string    `json:"title" yaml:"title" toml:"title"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at" toml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at" toml:"updated_at"`
	Messages  []Message `json:"messages" yaml:"messages" toml:"messages"`
}

// Message is a single turn. Its position in Conversation.Messages is its order.
type Message struct {
	Role      Role       `json:"role" yaml:"role" toml:"role"`
	Content   string     `json:"content" yaml:"content" toml:"content"`
	Timestamp *time.Time `json:"timestamp,omitempty" yaml:"timestamp,omitempty" toml:"timestamp,omitempty"`
}

// MessageCount returns the number of messages in the conversation
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// DisplayTitle returns the title, or a placeholder when the export had none
func (c *Conversation) DisplayTitle() string {
	if c.Title == "" {
		return "Untitled"
	}
	return c.Title
}

// TimePtr returns a pointer to t normalized to UTC
func TimePtr(t time.Time) *time.Time {
	u := t.UTC()
	return &u
}
