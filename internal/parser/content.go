package parser

import (
	"encoding/json"
	"strings"
)

// partsText joins the textual parts of a content array. Parts may be plain
// strings or objects carrying a "text" field; anything else (image pointers,
// attachments) is skipped.
func partsText(parts []json.RawMessage) string {
	var texts []string
	for _, part := range parts {
		var s string
		if err := json.Unmarshal(part, &s); err == nil {
			if strings.TrimSpace(s) != "" {
				texts = append(texts, s)
			}
			continue
		}

		var obj struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(part, &obj); err == nil && strings.TrimSpace(obj.Text) != "" {
			texts = append(texts, obj.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// contentBlock is the typed block shape used by Claude-style content arrays
type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// blocksText collects text blocks only, skipping tool_use, thinking and similar
func blocksText(blocks []contentBlock) string {
	var text strings.Builder
	for _, b := range blocks {
		if b.Type != "text" || b.Text == "" {
			continue
		}
		if text.Len() > 0 {
			text.WriteString("\n")
		}
		text.WriteString(b.Text)
	}
	return text.String()
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
