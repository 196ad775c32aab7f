package parser

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/iksnae/llm-unify/internal"
)

const geminiName = "gemini"

// GeminiParser decodes Gemini conversation exports. Schema 1 carries turn
// text in "text"; schema 2 splits it into "parts".
type GeminiParser struct{}

type geminiConversation struct {
	ID         *string       `json:"id"`
	Title      *string       `json:"title"`
	CreateTime *string       `json:"create_time"`
	UpdateTime *string       `json:"update_time"`
	Turns      *[]geminiTurn `json:"turns"`
}

type geminiTurn struct {
	Role      *string `json:"role"`
	Text      *string `json:"text"`
	Parts     *[]struct {
		Text string `json:"text"`
	} `json:"parts"`
	Timestamp *string `json:"timestamp"`
}

// Provider implements Parser
func (p *GeminiParser) Provider() internal.Provider {
	return internal.ProviderGemini
}

// Parse implements Parser
func (p *GeminiParser) Parse(raw []byte) ([]*internal.Conversation, error) {
	major, data, err := unwrapJSON(geminiName, raw, 1, 2)
	if err != nil {
		return nil, err
	}
	items, err := decodeArray(geminiName, data)
	if err != nil {
		return nil, err
	}

	conversations := make([]*internal.Conversation, 0, len(items))
	for i, item := range items {
		conv, err := p.parseConversation(major, i, item)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	return conversations, nil
}

func (p *GeminiParser) parseConversation(major, i int, item json.RawMessage) (*internal.Conversation, error) {
	var rc geminiConversation
	if err := decodeItem(geminiName, itemPath(i), item, &rc); err != nil {
		return nil, err
	}
	if rc.ID == nil || *rc.ID == "" {
		return nil, missingField(geminiName, itemPath(i), "id")
	}
	if rc.CreateTime == nil {
		return nil, missingField(geminiName, itemPath(i), "create_time")
	}
	if rc.Turns == nil {
		return nil, missingField(geminiName, itemPath(i), "turns")
	}

	created, err := parseTime(*rc.CreateTime)
	if err != nil {
		return nil, newParseError(geminiName, internal.ParseMalformed, itemPath(i, "create_time"), err)
	}
	var updated *time.Time
	if rc.UpdateTime != nil {
		u, err := parseTime(*rc.UpdateTime)
		if err != nil {
			return nil, newParseError(geminiName, internal.ParseMalformed, itemPath(i, "update_time"), err)
		}
		updated = &u
	}

	conv := &internal.Conversation{
		ID:        *rc.ID,
		Provider:  internal.ProviderGemini,
		CreatedAt: created,
		Messages:  make([]internal.Message, 0, len(*rc.Turns)),
	}
	if rc.Title != nil {
		conv.Title = *rc.Title
	}

	for j, turn := range *rc.Turns {
		path := itemPath(i, "turns") + itemPath(j)
		if turn.Role == nil {
			return nil, missingField(geminiName, path, "role")
		}
		role, err := requireRole(geminiName, path, *turn.Role)
		if err != nil {
			return nil, err
		}

		var text string
		switch major {
		case 1:
			if turn.Text == nil {
				return nil, missingField(geminiName, path, "text")
			}
			text = *turn.Text
		default:
			if turn.Parts == nil {
				return nil, missingField(geminiName, path, "parts")
			}
			texts := make([]string, 0, len(*turn.Parts))
			for _, part := range *turn.Parts {
				if !isBlank(part.Text) {
					texts = append(texts, part.Text)
				}
			}
			text = strings.Join(texts, "\n")
		}
		if isBlank(text) {
			continue
		}

		msg := internal.Message{Role: role, Content: text}
		if turn.Timestamp != nil {
			ts, err := parseTime(*turn.Timestamp)
			if err != nil {
				return nil, newParseError(geminiName, internal.ParseMalformed, path+".timestamp", err)
			}
			msg.Timestamp = &ts
		}
		conv.Messages = append(conv.Messages, msg)
	}

	orderMessages(conv.Messages)
	finalizeUpdatedAt(conv, updated)
	return conv, nil
}
