package export

import (
	"encoding/json"
	"io"

	"github.com/iksnae/llm-unify/internal"
)

// JSONExporter writes the versioned conversation document, pretty-printed.
// Its output can be imported again with the unified pseudo-provider.
type JSONExporter struct{}

// Export exports a conversation as a Document
func (e *JSONExporter) Export(conv *internal.Conversation, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	return enc.Encode(NewDocument(conv))
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}
