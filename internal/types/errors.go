package types

import (
	"errors"
	"fmt"
)

// ErrNoDocument is the sentinel matched by every NoDocumentError.
var ErrNoDocument = errors.New("no lyric document")

// NoDocumentError is returned when input yields no valid lyric document:
// empty or unrecognized text, no timed lines, or a timeline that fails
// validation.
type NoDocumentError struct {
	Path   string
	Reason string
	Format Format
}

func (e *NoDocumentError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: no %s document: %s", e.Path, e.Format, e.Reason)
	}
	return fmt.Sprintf("no %s document: %s", e.Format, e.Reason)
}

// Unwrap lets errors.Is(err, ErrNoDocument) match.
func (e *NoDocumentError) Unwrap() error {
	return ErrNoDocument
}

// UnsupportedFormatError is returned when no parser handles the input.
type UnsupportedFormatError struct {
	Path   string
	Reason string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("unsupported format: %s", e.Reason)
	}
	return fmt.Sprintf("%s: unsupported format: %s", e.Path, e.Reason)
}

// CorruptedFileError is returned when binary input is structurally invalid.
type CorruptedFileError struct {
	Path   string
	Reason string
	Offset int64
}

func (e *CorruptedFileError) Error() string {
	return fmt.Sprintf("%s: corrupted file at offset %d: %s", e.Path, e.Offset, e.Reason)
}

// Warning represents a non-fatal issue encountered during parsing.
//
// Warnings indicate problems that don't prevent a document from being built
// but may indicate malformed input. Examples include:
//   - An unparseable timing tag (the tone is skipped)
//   - A metadata line with an unknown key
//   - A side-channel pitch blob that is not valid JSON
//
// Warnings are collected in Document.Warnings during parsing.
type Warning struct {
	// Stage where the warning occurred
	Stage string // "metadata", "timing", "pitch"

	// Warning message
	Message string

	// 1-based source line where the issue occurred (0 if not applicable)
	Line int
}

// String returns a human-readable warning message.
func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("%s (at line %d): %s", w.Stage, w.Line, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Stage, w.Message)
}
