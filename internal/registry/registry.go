// Package registry manages format-specific parsers for lyric encodings.
package registry

import (
	"slices"

	"github.com/simonhull/karaoke/internal/types"
)

// FormatParser is the interface all format parsers implement.
type FormatParser interface {
	// Parse builds a document from the raw lyric bytes.
	// Returns a *types.NoDocumentError when the input yields no valid timeline.
	Parse(data []byte, opts types.ParseOptions) (*types.Document, error)
}

// PitchConsumer is an optional interface for parsers that accept pitch data
// through ParseOptions.PitchData.
type PitchConsumer interface {
	// PitchDataKind describes the expected payload, e.g. "binary track".
	PitchDataKind() string
}

// parsers maps formats to their parsers.
var parsers = make(map[types.Format]FormatParser)

// Register registers a parser for a format.
// This is called by format packages during initialization (init functions).
func Register(format types.Format, parser FormatParser) {
	parsers[format] = parser
}

// Get returns the parser for a given format.
// Returns nil if no parser is registered for the format.
func Get(format types.Format) FormatParser {
	return parsers[format]
}

// Formats returns the registered formats in ascending order.
func Formats() []types.Format {
	formats := make([]types.Format, 0, len(parsers))
	for f := range parsers {
		formats = append(formats, f)
	}
	slices.Sort(formats)
	return formats
}
