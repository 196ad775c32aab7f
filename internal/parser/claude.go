package parser

import (
	"encoding/json"
	"time"

	"github.com/iksnae/llm-unify/internal"
)

const claudeName = "claude"

// ClaudeParser decodes conversations.json from a Claude data export.
// Newer exports link messages with parent_message_uuid; those form a tree and
// are flattened like ChatGPT branches.
type ClaudeParser struct{}

type claudeConversation struct {
	UUID         *string          `json:"uuid"`
	Name         *string          `json:"name"`
	CreatedAt    *string          `json:"created_at"`
	UpdatedAt    *string          `json:"updated_at"`
	ChatMessages *[]claudeMessage `json:"chat_messages"`
}

type claudeMessage struct {
	UUID              *string        `json:"uuid"`
	Sender            *string        `json:"sender"`
	Text              string         `json:"text"`
	Content           []contentBlock `json:"content"`
	CreatedAt         *string        `json:"created_at"`
	ParentMessageUUID *string        `json:"parent_message_uuid"`
}

// Provider implements Parser
func (p *ClaudeParser) Provider() internal.Provider {
	return internal.ProviderClaude
}

// Parse implements Parser
func (p *ClaudeParser) Parse(raw []byte) ([]*internal.Conversation, error) {
	_, data, err := unwrapJSON(claudeName, raw, 1)
	if err != nil {
		return nil, err
	}
	items, err := decodeArray(claudeName, data)
	if err != nil {
		return nil, err
	}

	conversations := make([]*internal.Conversation, 0, len(items))
	for i, item := range items {
		conv, err := p.parseConversation(i, item)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	return conversations, nil
}

func (p *ClaudeParser) parseConversation(i int, item json.RawMessage) (*internal.Conversation, error) {
	var rc claudeConversation
	if err := decodeItem(claudeName, itemPath(i), item, &rc); err != nil {
		return nil, err
	}
	if rc.UUID == nil || *rc.UUID == "" {
		return nil, missingField(claudeName, itemPath(i), "uuid")
	}
	if rc.CreatedAt == nil {
		return nil, missingField(claudeName, itemPath(i), "created_at")
	}
	if rc.ChatMessages == nil {
		return nil, missingField(claudeName, itemPath(i), "chat_messages")
	}

	created, err := parseTime(*rc.CreatedAt)
	if err != nil {
		return nil, newParseError(claudeName, internal.ParseMalformed, itemPath(i, "created_at"), err)
	}
	var updated *time.Time
	if rc.UpdatedAt != nil {
		u, err := parseTime(*rc.UpdatedAt)
		if err != nil {
			return nil, newParseError(claudeName, internal.ParseMalformed, itemPath(i, "updated_at"), err)
		}
		updated = &u
	}

	raws := *rc.ChatMessages
	converted := make([]internal.Message, len(raws))
	tree := make([]TreeNode, len(raws))
	branched := false
	for j, rm := range raws {
		path := itemPath(i, "chat_messages") + itemPath(j)
		if rm.UUID == nil || *rm.UUID == "" {
			return nil, missingField(claudeName, path, "uuid")
		}
		if rm.Sender == nil {
			return nil, missingField(claudeName, path, "sender")
		}
		role, err := requireRole(claudeName, path, *rm.Sender)
		if err != nil {
			return nil, err
		}

		text := rm.Text
		if isBlank(text) {
			text = blocksText(rm.Content)
		}
		converted[j] = internal.Message{Role: role, Content: text}
		tree[j] = TreeNode{ID: *rm.UUID}

		if rm.CreatedAt != nil {
			ts, err := parseTime(*rm.CreatedAt)
			if err != nil {
				return nil, newParseError(claudeName, internal.ParseMalformed, path+".created_at", err)
			}
			converted[j].Timestamp = &ts
			tree[j].Created = &ts
		}
		if rm.ParentMessageUUID != nil && *rm.ParentMessageUUID != "" {
			tree[j].Parent = *rm.ParentMessageUUID
			branched = true
		}
	}

	var ordered []internal.Message
	if branched {
		indices, err := Flatten(tree)
		if err != nil {
			return nil, newParseError(claudeName, internal.ParseMalformed, itemPath(i, "chat_messages"), err)
		}
		for _, idx := range indices {
			ordered = append(ordered, converted[idx])
		}
	} else {
		ordered = converted
		orderMessages(ordered)
	}

	conv := &internal.Conversation{
		ID:        *rc.UUID,
		Provider:  internal.ProviderClaude,
		CreatedAt: created,
		Messages:  make([]internal.Message, 0, len(ordered)),
	}
	if rc.Name != nil {
		conv.Title = *rc.Name
	}
	for _, m := range ordered {
		if !isBlank(m.Content) {
			conv.Messages = append(conv.Messages, m)
		}
	}
	finalizeUpdatedAt(conv, updated)

	return conv, nil
}
