package types

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/simonhull/karaoke/internal/parsing"
)

// Format represents the detected lyric encoding.
type Format int

const (
	// FormatUnknown represents an unknown or unsupported encoding.
	FormatUnknown Format = iota // Unknown
	// FormatXML represents <song>/<midi_lrc> XML lyrics.
	FormatXML // XML
	// FormatLRC represents plain line-stamped LRC lyrics.
	FormatLRC // LRC
	// FormatLRCEnhanced represents LRC with inline <mm:ss.xx> word markers.
	FormatLRCEnhanced // Enhanced LRC
	// FormatKRC represents [start,duration]<offset,duration,pitch> KRC lyrics.
	FormatKRC // KRC
)

// String returns the display name of the format.
func (f Format) String() string {
	switch f {
	case FormatXML:
		return "XML"
	case FormatLRC:
		return "LRC"
	case FormatLRCEnhanced:
		return "Enhanced LRC"
	case FormatKRC:
		return "KRC"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the format by name.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText accepts the names produced by String, case-insensitively.
// Unrecognized names decode to FormatUnknown.
func (f *Format) UnmarshalText(text []byte) error {
	*f = FormatUnknown
	for _, c := range []Format{FormatXML, FormatLRC, FormatLRCEnhanced, FormatKRC} {
		if strings.EqualFold(string(text), c.String()) {
			*f = c
			break
		}
	}
	return nil
}

// Extensions returns common file extensions for this format.
func (f Format) Extensions() []string {
	switch f {
	case FormatXML:
		return []string{".xml"}
	case FormatLRC, FormatLRCEnhanced:
		return []string{".lrc"}
	case FormatKRC:
		return []string{".krc"}
	case FormatUnknown:
		return nil
	default:
		return nil
	}
}

// IsLyricExtension reports whether name ends with an extension any format claims.
func IsLyricExtension(name string) bool {
	name = strings.ToLower(name)
	for _, f := range []Format{FormatXML, FormatLRC, FormatKRC} {
		for _, ext := range f.Extensions() {
			if strings.HasSuffix(name, ext) {
				return true
			}
		}
	}
	return false
}

// Sniff determines the lyric format by examining content only.
//
// Detection order:
//  1. XML declaration or a <song> element
//  2. any "[start,duration]" KRC line
//  3. any stamped LRC line carrying inline <mm:ss.xx> markers
//  4. any stamped LRC line
//
// The file name plays no part; a .lrc file holding KRC text sniffs as KRC.
func Sniff(data []byte) Format {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	trimmed := bytes.TrimLeftFunc(data, unicode.IsSpace)
	if len(trimmed) == 0 {
		return FormatUnknown
	}

	if bytes.HasPrefix(trimmed, []byte("<?xml")) || bytes.Contains(data, []byte("<song")) {
		return FormatXML
	}

	var lrc, enhanced bool
	for _, line := range parsing.SplitLines(string(data)) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if parsing.KRCLineTag.MatchString(line) {
			return FormatKRC
		}

		if loc := parsing.TimeTag.FindStringIndex(line); loc != nil && loc[0] == 0 {
			lrc = true
			if parsing.InlineTag.MatchString(line) {
				enhanced = true
			}
		}
	}

	switch {
	case enhanced:
		return FormatLRCEnhanced
	case lrc:
		return FormatLRC
	default:
		return FormatUnknown
	}
}
