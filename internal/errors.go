package internal

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormatVersion is matched by ParseErrors of kind ParseUnsupportedVersion
	ErrUnsupportedFormatVersion = errors.New("unsupported format version")

	// ErrEmptyInput is returned when an export buffer holds no data
	ErrEmptyInput = errors.New("empty input")
)

// UnknownProviderError is returned for provider names outside the supported set
type UnknownProviderError struct {
	Name string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider: %q (supported: chatgpt, claude, gemini, copilot)", e.Name)
}

// ParseErrorKind classifies why an export could not be decoded
type ParseErrorKind string

const (
	ParseMissingField       ParseErrorKind = "missing-required-field"
	ParseUnsupportedVersion ParseErrorKind = "unsupported-schema-version"
	ParseTruncated          ParseErrorKind = "truncated-input"
	ParseMalformed          ParseErrorKind = "malformed-structure"
)

// ParseError represents errors decoding a provider export
type ParseError struct {
	Provider string // provider name or "unified"
	Kind     ParseErrorKind
	Path     string // location inside the export, e.g. "[3].mapping.abc"
	Err      error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parse error [%s] %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("parse error [%s] %s at %s: %v", e.Provider, e.Kind, e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the version sentinel regardless of the wrapped cause
func (e *ParseError) Is(target error) bool {
	return target == ErrUnsupportedFormatVersion && e.Kind == ParseUnsupportedVersion
}

// IsParseKind reports whether err is a ParseError of the given kind
func IsParseKind(err error, kind ParseErrorKind) bool {
	var pe *ParseError
	return errors.As(err, &pe) && pe.Kind == kind
}

// StorageError represents errors reading or writing the database
type StorageError struct {
	Path string
	Op   string // "open", "save", "find", "list", "delete", "validate", "backup", "search", "stats"
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IndexInconsistencyError reports stored content and index postings that disagree.
// It should only ever surface from validation.
type IndexInconsistencyError struct {
	ConversationID string
	Detail         string
}

func (e *IndexInconsistencyError) Error() string {
	return fmt.Sprintf("index inconsistency [%s]: %s", e.ConversationID, e.Detail)
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
