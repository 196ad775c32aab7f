package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/iksnae/llm-unify/internal"
)

const copilotName = "copilot"

// copilotNamespace seeds the name-based ids derived for Copilot conversations,
// which carry no identifier of their own in the CSV export.
var copilotNamespace = uuid.MustParse("6f1c3e1a-7a55-4d8e-9b8c-2c6a4c1f0d3e")

var copilotColumns = []string{"conversation", "time", "author", "message"}

// CopilotParser decodes the CSV chat history exported by Microsoft Copilot
type CopilotParser struct{}

// Provider implements Parser
func (p *CopilotParser) Provider() internal.Provider {
	return internal.ProviderCopilot
}

// CopilotID returns the deterministic conversation id for a Copilot
// conversation name
func CopilotID(name string) string {
	return uuid.NewSHA1(copilotNamespace, []byte("copilot:"+name)).String()
}

// Parse implements Parser
func (p *CopilotParser) Parse(raw []byte) ([]*internal.Conversation, error) {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, newParseError(copilotName, internal.ParseTruncated, "", internal.ErrEmptyInput)
	}

	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = 0

	lastLine := bytes.Count(bytes.TrimRight(raw, "\r\n"), []byte("\n")) + 1

	header, err := r.Read()
	if err != nil {
		return nil, csvError(err, "header", lastLine)
	}
	cols, versionCol, err := copilotHeader(header)
	if err != nil {
		return nil, err
	}

	var conversations []*internal.Conversation
	byName := make(map[string]*internal.Conversation)

	for row := 1; ; row++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		path := fmt.Sprintf("row %d", row)
		if err != nil {
			return nil, csvError(err, path, lastLine)
		}

		if versionCol >= 0 {
			if v := strings.TrimSpace(record[versionCol]); v != "" {
				major, err := parseMajor(v)
				if err != nil {
					return nil, newParseError(copilotName, internal.ParseMalformed, path, err)
				}
				if major != 1 {
					return nil, newParseError(copilotName, internal.ParseUnsupportedVersion, path,
						fmt.Errorf("%w: %s", internal.ErrUnsupportedFormatVersion, v))
				}
			}
		}

		values := make(map[string]string, len(cols))
		for name, idx := range cols {
			values[name] = record[idx]
		}
		for _, name := range copilotColumns {
			if strings.TrimSpace(values[name]) == "" && name != "message" {
				return nil, missingField(copilotName, path, name)
			}
		}

		role, err := requireRole(copilotName, path, strings.TrimSpace(values["author"]))
		if err != nil {
			return nil, err
		}
		ts, err := parseTime(values["time"])
		if err != nil {
			return nil, newParseError(copilotName, internal.ParseMalformed, path, err)
		}

		name := values["conversation"]
		conv, ok := byName[name]
		if !ok {
			conv = &internal.Conversation{
				ID:        CopilotID(name),
				Provider:  internal.ProviderCopilot,
				Title:     name,
				CreatedAt: ts,
			}
			byName[name] = conv
			conversations = append(conversations, conv)
		}
		if ts.Before(conv.CreatedAt) {
			conv.CreatedAt = ts
		}
		if isBlank(values["message"]) {
			continue
		}
		conv.Messages = append(conv.Messages, internal.Message{
			Role:      role,
			Content:   values["message"],
			Timestamp: internal.TimePtr(ts),
		})
	}

	for _, conv := range conversations {
		if conv.Messages == nil {
			conv.Messages = []internal.Message{}
		}
		orderMessages(conv.Messages)
		finalizeUpdatedAt(conv, nil)
	}
	return conversations, nil
}

// copilotHeader maps the required column names to their indices
func copilotHeader(header []string) (map[string]int, int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	cols := make(map[string]int, len(copilotColumns))
	for _, name := range copilotColumns {
		idx, ok := index[name]
		if !ok {
			return nil, -1, missingField(copilotName, "header", name)
		}
		cols[name] = idx
	}

	versionCol := -1
	if idx, ok := index["version"]; ok {
		versionCol = idx
	}
	return cols, versionCol, nil
}

// csvError classifies encoding/csv failures. Field-count mismatches and stray
// quotes are malformed; a quoted field left open at end of input is truncated.
func csvError(err error, path string, lastLine int) *internal.ParseError {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		if errors.Is(perr.Err, csv.ErrQuote) && perr.Line >= lastLine {
			return newParseError(copilotName, internal.ParseTruncated, path, err)
		}
		return newParseError(copilotName, internal.ParseMalformed, path, err)
	}
	if errors.Is(err, io.EOF) {
		return newParseError(copilotName, internal.ParseTruncated, path, err)
	}
	return newParseError(copilotName, internal.ParseMalformed, path, err)
}
