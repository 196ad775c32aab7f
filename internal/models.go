package internal

import (
	"fmt"
	"strings"
)

// Provider identifies the LLM application an export came from
type Provider int

const (
	ProviderChatGPT Provider = iota + 1
	ProviderClaude
	ProviderGemini
	ProviderCopilot
)

// Providers lists every supported provider in display order
var Providers = []Provider{ProviderChatGPT, ProviderClaude, ProviderGemini, ProviderCopilot}

// String returns the canonical lowercase name used in storage and on the command line
func (p Provider) String() string {
	switch p {
	case ProviderChatGPT:
		return "chatgpt"
	case ProviderClaude:
		return "claude"
	case ProviderGemini:
		return "gemini"
	case ProviderCopilot:
		return "copilot"
	default:
		return fmt.Sprintf("provider(%d)", int(p))
	}
}

// DisplayName returns the human-facing product name
func (p Provider) DisplayName() string {
	switch p {
	case ProviderChatGPT:
		return "ChatGPT"
	case ProviderClaude:
		return "Claude"
	case ProviderGemini:
		return "Gemini"
	case ProviderCopilot:
		return "Copilot"
	default:
		return p.String()
	}
}

// Valid reports whether p is one of the known providers
func (p Provider) Valid() bool {
	return p >= ProviderChatGPT && p <= ProviderCopilot
}

// MarshalText implements encoding.TextMarshaler
func (p Provider) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, &UnknownProviderError{Name: p.String()}
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *Provider) UnmarshalText(text []byte) error {
	parsed, err := ParseProvider(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParseProvider resolves a provider name case-insensitively
func ParseProvider(name string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "chatgpt":
		return ProviderChatGPT, nil
	case "claude":
		return ProviderClaude, nil
	case "gemini":
		return ProviderGemini, nil
	case "copilot":
		return ProviderCopilot, nil
	default:
		return 0, &UnknownProviderError{Name: name}
	}
}

// Role is the author of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Valid reports whether r is a normalized role
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return true
	}
	return false
}

// NormalizeRole maps provider-specific author names onto Role.
// The second return value is false for names it does not recognize.
func NormalizeRole(name string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "user", "human":
		return RoleUser, true
	case "assistant", "model", "bot", "ai", "copilot":
		return RoleAssistant, true
	case "system", "developer":
		return RoleSystem, true
	case "tool", "function":
		return RoleTool, true
	default:
		return "", false
	}
}
