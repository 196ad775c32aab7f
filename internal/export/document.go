package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/iksnae/llm-unify/internal"
)

const (
	// DocumentFormat identifies a single-conversation export
	DocumentFormat = "llm-unify/conversation"
	// DocumentVersion is the version written by this build
	DocumentVersion = "1.0"

	unifiedName = "unified"
)

// Document is the versioned single-conversation JSON export
type Document struct {
	Format       string                 `json:"format"`
	Version      string                 `json:"version"`
	Conversation *internal.Conversation `json:"conversation"`
}

// NewDocument wraps conv for export
func NewDocument(conv *internal.Conversation) *Document {
	return &Document{Format: DocumentFormat, Version: DocumentVersion, Conversation: conv}
}

// DecodeDocument reads one exported document back into a conversation
func DecodeDocument(raw []byte) (*internal.Conversation, error) {
	convs, err := decode(raw, false)
	if err != nil {
		return nil, err
	}
	return convs[0], nil
}

// UnifiedParser imports files written by JSONExporter: a single document or
// a JSON array of documents
type UnifiedParser struct{}

// Name returns the pseudo-provider name accepted by import
func (p *UnifiedParser) Name() string {
	return unifiedName
}

// Parse implements the parser contract for exported documents
func (p *UnifiedParser) Parse(raw []byte) ([]*internal.Conversation, error) {
	return decode(raw, true)
}

func decode(raw []byte, allowArray bool) ([]*internal.Conversation, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, parseError(internal.ParseTruncated, "", internal.ErrEmptyInput)
	}

	var docs []json.RawMessage
	switch {
	case trimmed[0] == '[' && allowArray:
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, jsonError("", err)
		}
	case trimmed[0] == '{':
		docs = []json.RawMessage{trimmed}
	default:
		return nil, parseError(internal.ParseMalformed, "", errors.New("expected an llm-unify conversation document"))
	}

	convs := make([]*internal.Conversation, 0, len(docs))
	for i, d := range docs {
		path := ""
		if len(docs) > 1 || trimmed[0] == '[' {
			path = fmt.Sprintf("[%d]", i)
		}
		conv, err := decodeOne(path, d)
		if err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	return convs, nil
}

func decodeOne(path string, raw json.RawMessage) (*internal.Conversation, error) {
	var doc struct {
		Format       *string          `json:"format"`
		Version      *string          `json:"version"`
		Conversation *json.RawMessage `json:"conversation"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, jsonError(path, err)
	}
	if doc.Format == nil {
		return nil, missingField(path, "format")
	}
	if *doc.Format != DocumentFormat {
		return nil, parseError(internal.ParseMalformed, path, fmt.Errorf("unexpected document format %q", *doc.Format))
	}
	if doc.Version == nil {
		return nil, missingField(path, "version")
	}
	majorStr, _, _ := strings.Cut(*doc.Version, ".")
	if major, err := strconv.Atoi(majorStr); err != nil || major != 1 {
		return nil, parseError(internal.ParseUnsupportedVersion, path,
			fmt.Errorf("%w: %s", internal.ErrUnsupportedFormatVersion, *doc.Version))
	}
	if doc.Conversation == nil || bytes.Equal(*doc.Conversation, []byte("null")) {
		return nil, missingField(path, "conversation")
	}

	var conv internal.Conversation
	if err := json.Unmarshal(*doc.Conversation, &conv); err != nil {
		var upe *internal.UnknownProviderError
		if errors.As(err, &upe) {
			return nil, parseError(internal.ParseMalformed, path, err)
		}
		return nil, jsonError(path, err)
	}
	if conv.ID == "" {
		return nil, missingField(path, "conversation.id")
	}
	if !conv.Provider.Valid() {
		return nil, missingField(path, "conversation.provider")
	}
	if conv.CreatedAt.IsZero() {
		return nil, missingField(path, "conversation.created_at")
	}

	conv.CreatedAt = conv.CreatedAt.UTC()
	conv.UpdatedAt = conv.UpdatedAt.UTC()
	if conv.Messages == nil {
		conv.Messages = []internal.Message{}
	}
	for i := range conv.Messages {
		m := &conv.Messages[i]
		if !m.Role.Valid() {
			return nil, parseError(internal.ParseMalformed, fmt.Sprintf("%s.conversation.messages[%d]", path, i),
				fmt.Errorf("unknown role %q", m.Role))
		}
		if m.Timestamp != nil {
			m.Timestamp = internal.TimePtr(*m.Timestamp)
		}
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = conv.CreatedAt
		for _, m := range conv.Messages {
			if m.Timestamp != nil && m.Timestamp.After(conv.UpdatedAt) {
				conv.UpdatedAt = *m.Timestamp
			}
		}
	}
	return &conv, nil
}

func parseError(kind internal.ParseErrorKind, path string, err error) *internal.ParseError {
	return &internal.ParseError{Provider: unifiedName, Kind: kind, Path: path, Err: err}
}

func missingField(path, field string) *internal.ParseError {
	return parseError(internal.ParseMissingField, path, fmt.Errorf("missing required field %q", field))
}

func jsonError(path string, err error) *internal.ParseError {
	var syntaxErr *json.SyntaxError
	if errors.Is(err, io.ErrUnexpectedEOF) ||
		(errors.As(err, &syntaxErr) && strings.Contains(syntaxErr.Error(), "unexpected end of JSON input")) {
		return parseError(internal.ParseTruncated, path, err)
	}
	return parseError(internal.ParseMalformed, path, err)
}
