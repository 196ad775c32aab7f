package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/iksnae/llm-unify/internal"
)

// JSONLExporter exports one message per line
type JSONLExporter struct{}

type jsonlMessage struct {
	ConversationID string        `json:"conversation_id"`
	Provider       string        `json:"provider"`
	Position       int           `json:"position"`
	Role           internal.Role `json:"role"`
	Content        string        `json:"content"`
	Timestamp      *time.Time    `json:"timestamp,omitempty"`
}

// Export exports a conversation to JSONL format
func (e *JSONLExporter) Export(conv *internal.Conversation, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	for i, msg := range conv.Messages {
		line := jsonlMessage{
			ConversationID: conv.ID,
			Provider:       conv.Provider.String(),
			Position:       i,
			Role:           msg.Role,
			Content:        msg.Content,
			Timestamp:      msg.Timestamp,
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("failed to encode message %d: %w", i, err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
