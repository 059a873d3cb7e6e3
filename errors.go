package karaoke

import (
	"github.com/simonhull/karaoke/internal/types"
)

// ErrNoDocument is matched by every NoDocumentError.
var ErrNoDocument = types.ErrNoDocument

// NoDocumentError is an alias to types.NoDocumentError.
type NoDocumentError = types.NoDocumentError

// UnsupportedFormatError is an alias to types.UnsupportedFormatError.
type UnsupportedFormatError = types.UnsupportedFormatError

// CorruptedFileError is an alias to types.CorruptedFileError.
type CorruptedFileError = types.CorruptedFileError

// Warning is an alias to types.Warning.
type Warning = types.Warning
