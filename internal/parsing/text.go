// Package parsing holds the text-level helpers shared by the lyric parsers:
// line splitting, clock stamps, metadata tags, and language detection.
package parsing

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	// TimeTag matches an LRC line stamp: "[01:02.34]" or "[01:02.345]".
	TimeTag = regexp.MustCompile(`\[(\d{2}):(\d{2})\.(\d{2,3})\]`)

	// LRCLine matches a full plain LRC line: one or more stamps followed by text.
	LRCLine = regexp.MustCompile(`^((?:\[\d{2}:\d{2}\.\d{2,3}\])+)(.+)$`)

	// InlineTag matches an enhanced LRC word marker: "<01:02.34>".
	InlineTag = regexp.MustCompile(`<(\d{2}):(\d{2})\.(\d{2,3})>`)

	// KRCLineTag matches the "[start,duration]" prefix of a KRC lyric line.
	KRCLineTag = regexp.MustCompile(`^\[\s*\d+\s*,\s*\d+\s*\]`)
)

const bom = "\ufeff"

// SplitLines splits text on "\n" or "\r\n", dropping a leading byte order mark.
func SplitLines(text string) []string {
	text = strings.TrimPrefix(text, bom)
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// ClockMillis converts the captured groups of a clock stamp into milliseconds.
// A two-digit fraction is hundredths, a three-digit fraction is milliseconds.
func ClockMillis(min, sec, frac string) (int64, error) {
	m, err := strconv.ParseInt(min, 10, 64)
	if err != nil {
		return 0, err
	}
	s, err := strconv.ParseInt(sec, 10, 64)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, err
	}
	if len(frac) == 2 {
		f *= 10
	}
	return m*60_000 + s*1000 + f, nil
}

// StampMillis converts a single regexp submatch of TimeTag or InlineTag.
func StampMillis(match []string) (int64, error) {
	return ClockMillis(match[1], match[2], match[3])
}

// ParseMetadata parses a "[key:value]" header line.
//
// Returns ok=false for anything that is not a bracketed key/value pair, which
// includes LRC stamps (the key must not be numeric).
func ParseMetadata(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "[") || !strings.HasSuffix(line, "]") {
		return "", "", false
	}

	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}

	key = strings.TrimSpace(line[1:idx])
	if key == "" || isDigits(key) {
		return "", "", false
	}
	value = strings.TrimSpace(line[idx+1 : len(line)-1])
	return key, value, true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CJK unified ideographs covered by the lyric sources.
const (
	cjkFirst = 0x4E00 // 19968
	cjkLast  = 0x9FA5 // 40869, exclusive
)

// IsCJK reports whether r lies in the CJK unified ideograph block.
func IsCJK(r rune) bool {
	return r >= cjkFirst && r < cjkLast
}

// IsEnglish reports whether a word should be treated as non-Chinese text.
// Any rune outside the CJK block makes the word English; an empty word is not.
func IsEnglish(word string) bool {
	for len(word) > 0 {
		r, size := utf8.DecodeRuneInString(word)
		if !IsCJK(r) {
			return true
		}
		word = word[size:]
	}
	return false
}
