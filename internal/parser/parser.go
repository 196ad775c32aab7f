// Package parser decodes provider export files into unified conversations.
//
// Every provider implements the same Parser contract. Parsing is pure and
// all-or-nothing: a batch either decodes completely or returns a
// *internal.ParseError and no conversations.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/iksnae/llm-unify/internal"
)

// Parser decodes one provider's export bytes
type Parser interface {
	Provider() internal.Provider
	Parse(raw []byte) ([]*internal.Conversation, error)
}

// New returns the parser for a provider
func New(p internal.Provider) (Parser, error) {
	switch p {
	case internal.ProviderChatGPT:
		return &ChatGPTParser{}, nil
	case internal.ProviderClaude:
		return &ClaudeParser{}, nil
	case internal.ProviderGemini:
		return &GeminiParser{}, nil
	case internal.ProviderCopilot:
		return &CopilotParser{}, nil
	default:
		return nil, &internal.UnknownProviderError{Name: p.String()}
	}
}

// ForName resolves a provider name and returns its parser.
// Unknown names fail before any input is read.
func ForName(name string) (Parser, error) {
	p, err := internal.ParseProvider(name)
	if err != nil {
		return nil, err
	}
	return New(p)
}

// envelope is the optional versioned wrapper around a JSON export
type envelope struct {
	SchemaVersion *string         `json:"schema_version"`
	Conversations json.RawMessage `json:"conversations"`
}

// unwrapJSON splits a JSON export into its schema major version and the
// conversations array. A bare array is schema major 1.
func unwrapJSON(provider string, raw []byte, known ...int) (int, json.RawMessage, error) {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf")))
	if len(trimmed) == 0 {
		return 0, nil, newParseError(provider, internal.ParseTruncated, "", internal.ErrEmptyInput)
	}

	switch trimmed[0] {
	case '[':
		if !containsInt(known, 1) {
			return 0, nil, newParseError(provider, internal.ParseUnsupportedVersion, "",
				fmt.Errorf("%w: unversioned payload", internal.ErrUnsupportedFormatVersion))
		}
		return 1, trimmed, nil
	case '{':
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return 0, nil, jsonError(provider, "", err)
		}
		if env.SchemaVersion == nil {
			return 0, nil, missingField(provider, "", "schema_version")
		}
		major, err := parseMajor(*env.SchemaVersion)
		if err != nil {
			return 0, nil, newParseError(provider, internal.ParseMalformed, "schema_version", err)
		}
		if !containsInt(known, major) {
			return 0, nil, newParseError(provider, internal.ParseUnsupportedVersion, "schema_version",
				fmt.Errorf("%w: %s", internal.ErrUnsupportedFormatVersion, *env.SchemaVersion))
		}
		if len(env.Conversations) == 0 || bytes.Equal(env.Conversations, []byte("null")) {
			return 0, nil, missingField(provider, "", "conversations")
		}
		return major, env.Conversations, nil
	default:
		return 0, nil, newParseError(provider, internal.ParseMalformed, "",
			fmt.Errorf("expected JSON array or object, found %q", trimmed[0]))
	}
}

// decodeArray decodes a JSON array into a slice of raw elements
func decodeArray(provider string, data json.RawMessage) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, jsonError(provider, "", err)
	}
	return items, nil
}

// decodeItem decodes one element, attributing errors to its path
func decodeItem(provider, path string, data json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return jsonError(provider, path, err)
	}
	return nil
}

func parseMajor(version string) (int, error) {
	v := strings.TrimPrefix(strings.TrimSpace(version), "v")
	majorStr, _, _ := strings.Cut(v, ".")
	major, err := strconv.Atoi(majorStr)
	if err != nil || major < 0 {
		return 0, fmt.Errorf("invalid schema version %q", version)
	}
	return major, nil
}

func containsInt(list []int, n int) bool {
	for _, v := range list {
		if v == n {
			return true
		}
	}
	return false
}

func newParseError(provider string, kind internal.ParseErrorKind, path string, err error) *internal.ParseError {
	return &internal.ParseError{Provider: provider, Kind: kind, Path: path, Err: err}
}

func missingField(provider, path, field string) *internal.ParseError {
	return newParseError(provider, internal.ParseMissingField, path, fmt.Errorf("missing required field %q", field))
}

// jsonError classifies encoding/json failures as truncated or malformed input
func jsonError(provider, path string, err error) *internal.ParseError {
	var syntaxErr *json.SyntaxError
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return newParseError(provider, internal.ParseTruncated, path, err)
	case errors.As(err, &syntaxErr) && strings.Contains(syntaxErr.Error(), "unexpected end of JSON input"):
		return newParseError(provider, internal.ParseTruncated, path, err)
	default:
		return newParseError(provider, internal.ParseMalformed, path, err)
	}
}

func itemPath(i int, rest ...string) string {
	p := fmt.Sprintf("[%d]", i)
	for _, r := range rest {
		p += "." + r
	}
	return p
}

// parseTime accepts RFC3339 with or without fractional seconds and returns UTC
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	layouts := []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05", "2006-01-02 15:04:05Z07:00"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// epochSeconds converts fractional unix seconds at microsecond precision
func epochSeconds(f float64) time.Time {
	micros := int64(f*1e6 + 0.5)
	if f < 0 {
		micros = int64(f*1e6 - 0.5)
	}
	return time.UnixMicro(micros).UTC()
}

// orderMessages sorts messages by timestamp when every message has one,
// otherwise keeps source order
func orderMessages(msgs []internal.Message) {
	for _, m := range msgs {
		if m.Timestamp == nil {
			return
		}
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(*msgs[j].Timestamp)
	})
}

// finalizeUpdatedAt fills a missing update time from the newest message
func finalizeUpdatedAt(conv *internal.Conversation, updated *time.Time) {
	if updated != nil {
		conv.UpdatedAt = *updated
		return
	}
	conv.UpdatedAt = conv.CreatedAt
	for _, m := range conv.Messages {
		if m.Timestamp != nil && m.Timestamp.After(conv.UpdatedAt) {
			conv.UpdatedAt = *m.Timestamp
		}
	}
}

func requireRole(provider, path, name string) (internal.Role, error) {
	role, ok := internal.NormalizeRole(name)
	if !ok {
		return "", newParseError(provider, internal.ParseMalformed, path, fmt.Errorf("unknown role %q", name))
	}
	return role, nil
}
