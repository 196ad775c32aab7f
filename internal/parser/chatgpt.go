package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iksnae/llm-unify/internal"
)

const chatgptName = "chatgpt"

// ChatGPTParser decodes conversations.json from a ChatGPT data export.
// Conversations are stored as a node mapping with parent links; regenerated
// and edited turns create branches which are flattened.
type ChatGPTParser struct{}

type chatgptConversation struct {
	ID             *string         `json:"id"`
	ConversationID *string         `json:"conversation_id"`
	Title          *string         `json:"title"`
	CreateTime     *float64        `json:"create_time"`
	UpdateTime     *float64        `json:"update_time"`
	Mapping        json.RawMessage `json:"mapping"`
}

type chatgptNode struct {
	Parent  *string         `json:"parent"`
	Message *chatgptMessage `json:"message"`
}

type chatgptMessage struct {
	Author *struct {
		Role *string `json:"role"`
	} `json:"author"`
	CreateTime *float64        `json:"create_time"`
	Content    *chatgptContent `json:"content"`
	Metadata   struct {
		Hidden bool `json:"is_visually_hidden_from_conversation"`
	} `json:"metadata"`
}

type chatgptContent struct {
	ContentType string            `json:"content_type"`
	Parts       []json.RawMessage `json:"parts"`
	Text        string            `json:"text"`
}

// Provider implements Parser
func (p *ChatGPTParser) Provider() internal.Provider {
	return internal.ProviderChatGPT
}

// Parse implements Parser
func (p *ChatGPTParser) Parse(raw []byte) ([]*internal.Conversation, error) {
	_, data, err := unwrapJSON(chatgptName, raw, 1)
	if err != nil {
		return nil, err
	}
	items, err := decodeArray(chatgptName, data)
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

func (p *ChatGPTParser) parseConversation(i int, item json.RawMessage) (*internal.Conversation, error) {
	var rc chatgptConversation
	if err := decodeItem(chatgptName, itemPath(i), item, &rc); err != nil {
		return nil, err
	}

	id := rc.ID
	if id == nil || *id == "" {
		id = rc.ConversationID
	}
	if id == nil || *id == "" {
		return nil, missingField(chatgptName, itemPath(i), "id")
	}
	if rc.CreateTime == nil {
		return nil, missingField(chatgptName, itemPath(i), "create_time")
	}
	if len(rc.Mapping) == 0 || bytes.Equal(rc.Mapping, []byte("null")) {
		return nil, missingField(chatgptName, itemPath(i), "mapping")
	}

	ids, nodes, err := decodeMapping(itemPath(i, "mapping"), rc.Mapping)
	if err != nil {
		return nil, err
	}

	tree := make([]TreeNode, len(nodes))
	for j, n := range nodes {
		tree[j] = TreeNode{ID: ids[j]}
		if n.Parent != nil {
			tree[j].Parent = *n.Parent
		}
		if n.Message != nil && n.Message.CreateTime != nil {
			tree[j].Created = internal.TimePtr(epochSeconds(*n.Message.CreateTime))
		}
	}
	path, err := Flatten(tree)
	if err != nil {
		return nil, newParseError(chatgptName, internal.ParseMalformed, itemPath(i, "mapping"), err)
	}

	conv := &internal.Conversation{
		ID:        *id,
		Provider:  internal.ProviderChatGPT,
		CreatedAt: epochSeconds(*rc.CreateTime),
		Messages:  make([]internal.Message, 0, len(path)),
	}
	if rc.Title != nil {
		conv.Title = *rc.Title
	}

	for _, idx := range path {
		msg, ok, err := convertChatGPTMessage(itemPath(i, "mapping", ids[idx]), nodes[idx].Message)
		if err != nil {
			return nil, err
		}
		if ok {
			conv.Messages = append(conv.Messages, msg)
		}
	}

	var updated *time.Time
	if rc.UpdateTime != nil {
		updated = internal.TimePtr(epochSeconds(*rc.UpdateTime))
	}
	finalizeUpdatedAt(conv, updated)

	return conv, nil
}

// decodeMapping decodes the node mapping keeping the source key order, which
// decides ties during flattening
func decodeMapping(path string, data json.RawMessage) ([]string, []chatgptNode, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, jsonError(chatgptName, path, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, newParseError(chatgptName, internal.ParseMalformed, path, fmt.Errorf("mapping must be an object"))
	}

	var ids []string
	var nodes []chatgptNode
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, jsonError(chatgptName, path, err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, newParseError(chatgptName, internal.ParseMalformed, path, fmt.Errorf("unexpected token %v", tok))
		}
		var node chatgptNode
		if err := dec.Decode(&node); err != nil {
			return nil, nil, jsonError(chatgptName, path+"."+key, err)
		}
		ids = append(ids, key)
		nodes = append(nodes, node)
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, jsonError(chatgptName, path, err)
	}
	return ids, nodes, nil
}

// convertChatGPTMessage returns ok=false for nodes that carry no visible text
func convertChatGPTMessage(path string, m *chatgptMessage) (internal.Message, bool, error) {
	if m == nil {
		return internal.Message{}, false, nil
	}
	if m.Author == nil || m.Author.Role == nil {
		return internal.Message{}, false, missingField(chatgptName, path, "author.role")
	}
	role, err := requireRole(chatgptName, path, *m.Author.Role)
	if err != nil {
		return internal.Message{}, false, err
	}
	if m.Metadata.Hidden || m.Content == nil {
		return internal.Message{}, false, nil
	}

	text := partsText(m.Content.Parts)
	if isBlank(text) {
		text = m.Content.Text
	}
	if isBlank(text) {
		return internal.Message{}, false, nil
	}

	msg := internal.Message{Role: role, Content: text}
	if m.CreateTime != nil {
		msg.Timestamp = internal.TimePtr(epochSeconds(*m.CreateTime))
	}
	return msg, true, nil
}
