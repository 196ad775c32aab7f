package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/iksnae/llm-unify/internal"
)

func TestJSONExporter_Export(t *testing.T) {
	conv := internal.CreateTestConversation("conv-1")

	var buf bytes.Buffer
	if err := (&JSONExporter{}).Export(conv, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		`"format": "llm-unify/conversation"`,
		`"version": "1.0"`,
		`"id": "conv-1"`,
		`"provider": "chatgpt"`,
		`"role": "assistant"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Export() output missing %s", want)
		}
	}
	if !strings.Contains(out, "\n  ") {
		t.Error("Export() output is not indented")
	}

	var doc Document
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
}

func TestJSONExporter_NoHTMLEscaping(t *testing.T) {
	conv := internal.CreateTestConversationWithMessages("c", []internal.Message{
		{Role: internal.RoleUser, Content: "if a < b && c > d"},
	})
	var buf bytes.Buffer
	if err := (&JSONExporter{}).Export(conv, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !strings.Contains(buf.String(), "a < b && c > d") {
		t.Errorf("content was escaped: %s", buf.String())
	}
}
