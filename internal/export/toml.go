package export

import (
	"io"

	"github.com/BurntSushi/toml"

	"github.com/iksnae/llm-unify/internal"
)

// TOMLExporter exports conversations in TOML format, messages as an array of tables
type TOMLExporter struct{}

// Export exports a conversation to TOML format
func (e *TOMLExporter) Export(conv *internal.Conversation, w io.Writer) error {
	return toml.NewEncoder(w).Encode(conv)
}

// Extension returns the file extension for this format
func (e *TOMLExporter) Extension() string {
	return "toml"
}
