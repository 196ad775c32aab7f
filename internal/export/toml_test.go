package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"

	"github.com/iksnae/llm-unify/internal"
)

func TestTOMLExporter_Export(t *testing.T) {
	conv := internal.CreateTestConversation("conv-toml")
	conv.Messages = append(conv.Messages, internal.Message{Role: internal.RoleUser, Content: "no timestamp here"})

	var buf bytes.Buffer
	if err := (&TOMLExporter{}).Export(conv, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `id = "conv-toml"`) {
		t.Errorf("Export() output missing id:\n%s", out)
	}
	if strings.Count(out, "[[messages]]") != 3 {
		t.Errorf("want 3 message tables:\n%s", out)
	}

	var decoded struct {
		ID       string `toml:"id"`
		Provider string `toml:"provider"`
		Messages []struct {
			Role    string `toml:"role"`
			Content string `toml:"content"`
		} `toml:"messages"`
	}
	if _, err := toml.Decode(out, &decoded); err != nil {
		t.Fatalf("output is not valid TOML: %v", err)
	}
	if decoded.Provider != "chatgpt" || len(decoded.Messages) != 3 {
		t.Errorf("decoded = %+v", decoded)
	}
}
