package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// ChatGPT fixture ids and facts shared by tests
const (
	TripPlanningID       = "6f0a9d4c-8b57-4c84-b1c0-0d4a7e2f9a11"
	TripPlanningMessages = 4
	CodeReviewID         = "2b1e5c77-1f0d-4c2e-9d3a-5e8b6a4c7d22"
	CodeReviewMessages   = 2
)

// ChatGPTExport is a conversations.json with one conversation, "Trip Planning".
// The final assistant turn was regenerated; the newer branch (a2-new) is the
// one a flattener must keep. The system node is hidden and the root is empty,
// leaving four visible messages.
const ChatGPTExport = `[
  {
    "id": "6f0a9d4c-8b57-4c84-b1c0-0d4a7e2f9a11",
    "title": "Trip Planning",
    "create_time": 1700000000.5,
    "update_time": 1700000100.25,
    "mapping": {
      "root": {"id": "root", "message": null, "parent": null, "children": ["sys"]},
      "sys": {
        "id": "sys", "parent": "root", "children": ["u1"],
        "message": {
          "author": {"role": "system"},
          "create_time": null,
          "content": {"content_type": "text", "parts": [""]},
          "metadata": {"is_visually_hidden_from_conversation": true}
        }
      },
      "u1": {
        "id": "u1", "parent": "sys", "children": ["a1"],
        "message": {
          "author": {"role": "user"},
          "create_time": 1700000010,
          "content": {"content_type": "text", "parts": ["I'm planning a trip to Lisbon in May. Any advice?"]}
        }
      },
      "a1": {
        "id": "a1", "parent": "u1", "children": ["u2"],
        "message": {
          "author": {"role": "assistant"},
          "create_time": 1700000020,
          "content": {"content_type": "text", "parts": ["May is a lovely month for Lisbon. Book trams early and pack layers."]}
        }
      },
      "u2": {
        "id": "u2", "parent": "a1", "children": ["a2-old", "a2-new"],
        "message": {
          "author": {"role": "user"},
          "create_time": 1700000030,
          "content": {"content_type": "text", "parts": ["Which neighborhoods should we stay in?"]}
        }
      },
      "a2-old": {
        "id": "a2-old", "parent": "u2", "children": [],
        "message": {
          "author": {"role": "assistant"},
          "create_time": 1700000040,
          "content": {"content_type": "text", "parts": ["Alfama is charming but hilly."]}
        }
      },
      "a2-new": {
        "id": "a2-new", "parent": "u2", "children": [],
        "message": {
          "author": {"role": "assistant"},
          "create_time": 1700000050,
          "content": {"content_type": "text", "parts": ["Baixa and Chiado are central and walkable."]}
        }
      }
    }
  }
]`

// ClaudeExport is a conversations.json with one conversation, "Code Review".
// The assistant reply carries its text in content blocks only.
const ClaudeExport = `[
  {
    "uuid": "2b1e5c77-1f0d-4c2e-9d3a-5e8b6a4c7d22",
    "name": "Code Review",
    "created_at": "2024-03-01T09:00:00Z",
    "updated_at": "2024-03-01T09:05:00.123456Z",
    "chat_messages": [
      {
        "uuid": "m1",
        "sender": "human",
        "text": "Can you review this Go function for races?",
        "content": [{"type": "text", "text": "Can you review this Go function for races?"}],
        "created_at": "2024-03-01T09:00:00Z"
      },
      {
        "uuid": "m2",
        "sender": "assistant",
        "text": "",
        "content": [
          {"type": "thinking", "thinking": "look at the map"},
          {"type": "text", "text": "The map is written without holding the mutex."}
        ],
        "created_at": "2024-03-01T09:01:00Z"
      }
    ]
  }
]`

// GeminiExportV1 uses schema 1 turns with a text field
const GeminiExportV1 = `{
  "schema_version": "1.0",
  "conversations": [
    {
      "id": "gem-001",
      "title": "Sourdough",
      "create_time": "2024-05-10T12:00:00Z",
      "turns": [
        {"role": "user", "text": "How long should sourdough proof?", "timestamp": "2024-05-10T12:00:00Z"},
        {"role": "model", "text": "Usually 4 to 12 hours depending on temperature.", "timestamp": "2024-05-10T12:00:05Z"}
      ]
    }
  ]
}`

// GeminiExportV2 uses schema 2 turns with parts
const GeminiExportV2 = `{
  "schema_version": "2.1",
  "conversations": [
    {
      "id": "gem-002",
      "title": "Kubernetes",
      "create_time": "2024-06-01T08:00:00Z",
      "update_time": "2024-06-01T08:10:00Z",
      "turns": [
        {"role": "user", "parts": [{"text": "Explain a pod"}], "timestamp": "2024-06-01T08:00:00Z"},
        {"role": "model", "parts": [{"text": "A pod groups containers."}, {"text": "They share a network namespace."}], "timestamp": "2024-06-01T08:00:03Z"}
      ]
    }
  ]
}`

// CopilotExport is a CSV chat history with two conversations interleaved.
// It starts with a UTF-8 byte order mark, as the web export does.
const CopilotExport = "\ufeffConversation,Time,Author,Message\n" +
	"Regex help,2024-02-01T10:00:00Z,User,How do I match an email address?\n" +
	"Budget,2024-02-01T11:00:00Z,User,Draft a monthly budget\n" +
	"Regex help,2024-02-01T10:00:04Z,Copilot,\"Try a simple pattern, then validate by sending mail.\"\n" +
	"Budget,2024-02-01T11:00:09Z,Copilot,Start with fixed costs.\n"

// WriteExport writes an export payload into dir and returns its path
func WriteExport(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write fixture %s: %v", name, err)
	}
	return path
}
