// Package types provides the core data structures for parsed lyrics.
//
// This package defines the Document, Line, Tone, and pitch track types that
// represent a lyric timeline across all supported encodings.
package types

import (
	"fmt"
	"strings"
)

// Lang is the language tag carried by a tone.
type Lang int

const (
	// LangChinese is the default language tag.
	LangChinese Lang = iota
	// LangEnglish marks non-CJK words.
	LangEnglish
)

// String returns the language name.
func (l Lang) String() string {
	if l == LangEnglish {
		return "English"
	}
	return "Chinese"
}

// Tone is the smallest timed unit of a lyric: a word or syllable.
//
// Times are milliseconds from the start of the song. Pitch is the reference
// pitch for the tone; 0 means unvoiced or no reference.
type Tone struct {
	Word  string  `json:"word" yaml:"word"`
	Begin int64   `json:"begin" yaml:"begin"`
	End   int64   `json:"end" yaml:"end"`
	Pitch float64 `json:"pitch" yaml:"pitch"`
	Lang  Lang    `json:"lang" yaml:"lang"`
}

// Duration returns End - Begin.
func (t Tone) Duration() int64 {
	return t.End - t.Begin
}

// Line is an ordered group of tones shown together.
type Line struct {
	Tones []Tone `json:"tones" yaml:"tones"`
}

// StartTime returns the begin of the first tone, or 0 for an empty line.
func (l Line) StartTime() int64 {
	if len(l.Tones) == 0 {
		return 0
	}
	return l.Tones[0].Begin
}

// EndTime returns the end of the last tone, or 0 for an empty line.
func (l Line) EndTime() int64 {
	if len(l.Tones) == 0 {
		return 0
	}
	return l.Tones[len(l.Tones)-1].End
}

// Duration returns EndTime - StartTime.
func (l Line) Duration() int64 {
	return l.EndTime() - l.StartTime()
}

// Text joins the words of the line.
func (l Line) Text() string {
	var b strings.Builder
	for _, t := range l.Tones {
		b.WriteString(t.Word)
	}
	return b.String()
}

// Contains reports whether ts lies within [StartTime, EndTime].
func (l Line) Contains(ts int64) bool {
	return ts >= l.StartTime() && ts <= l.EndTime()
}

// Document is a parsed lyric timeline.
//
// A Document returned by a parser always satisfies Validate. It should be
// treated as immutable: consumers that need to adjust timings work on Clone.
type Document struct {
	Title  string `json:"title" yaml:"title"`
	Artist string `json:"artist" yaml:"artist"`

	// Lines in ascending start order
	Lines []Line `json:"lines" yaml:"lines"`

	// Side-channel reference pitch samples (KRC only)
	PitchSamples []PitchSample `json:"pitch_samples,omitempty" yaml:"pitch_samples,omitempty"`

	// Non-fatal issues found while parsing
	Warnings []Warning `json:"warnings,omitempty" yaml:"warnings,omitempty"`

	Format Format `json:"format" yaml:"format"`

	// End of the instrumental intro, in ms
	PreludeEndPosition int64 `json:"prelude_end_position" yaml:"prelude_end_position"`

	// Total length of the lyric timeline, in ms
	Duration int64 `json:"duration" yaml:"duration"`

	// Leading credit lines dropped by the KRC side-channel rule
	CopyrightLineCount int `json:"copyright_line_count,omitempty" yaml:"copyright_line_count,omitempty"`

	// HasPitch is true when reference pitch is available for scoring
	HasPitch bool `json:"has_pitch" yaml:"has_pitch"`
}

// Validate checks the document invariants: positive duration, non-negative
// prelude, at least one line, and lines ordered by start time.
func (d *Document) Validate() error {
	if d == nil {
		return &NoDocumentError{Reason: "nil document"}
	}
	if len(d.Lines) == 0 {
		return &NoDocumentError{Format: d.Format, Reason: "no lines"}
	}
	if d.Duration <= 0 {
		return &NoDocumentError{Format: d.Format, Reason: fmt.Sprintf("non-positive duration %d", d.Duration)}
	}
	if d.PreludeEndPosition < 0 {
		return &NoDocumentError{Format: d.Format, Reason: fmt.Sprintf("negative prelude end position %d", d.PreludeEndPosition)}
	}
	for i, line := range d.Lines {
		if len(line.Tones) == 0 {
			return &NoDocumentError{Format: d.Format, Reason: fmt.Sprintf("line %d has no tones", i)}
		}
		if i > 0 && line.StartTime() < d.Lines[i-1].StartTime() {
			return &NoDocumentError{Format: d.Format, Reason: fmt.Sprintf("line %d starts before line %d", i, i-1)}
		}
	}
	return nil
}

// Text joins the lines of the document with newlines.
func (d *Document) Text() string {
	if d == nil {
		return ""
	}
	texts := make([]string, len(d.Lines))
	for i, line := range d.Lines {
		texts[i] = line.Text()
	}
	return strings.Join(texts, "\n")
}

// IsEmpty reports whether the document has no lines.
func (d *Document) IsEmpty() bool {
	return d == nil || len(d.Lines) == 0
}

// LastEndTime returns the end of the final line.
func (d *Document) LastEndTime() int64 {
	if d.IsEmpty() {
		return 0
	}
	return d.Lines[len(d.Lines)-1].EndTime()
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}

	c := *d
	c.Lines = make([]Line, len(d.Lines))
	for i, line := range d.Lines {
		c.Lines[i] = Line{Tones: append([]Tone(nil), line.Tones...)}
	}
	if d.PitchSamples != nil {
		c.PitchSamples = append([]PitchSample(nil), d.PitchSamples...)
	}
	if d.Warnings != nil {
		c.Warnings = append([]Warning(nil), d.Warnings...)
	}
	return &c
}

// AddWarning records a non-fatal parse issue.
func (d *Document) AddWarning(stage string, line int, format string, args ...any) {
	d.Warnings = append(d.Warnings, Warning{
		Stage:   stage,
		Line:    line,
		Message: fmt.Sprintf(format, args...),
	})
}

// PitchLines projects reference pitch onto per-line windows.
//
// With side-channel samples, each line collects the samples whose start lies
// in [StartTime, EndTime). Otherwise every tone becomes one sample.
func (d *Document) PitchLines() []PitchLine {
	if d.IsEmpty() {
		return nil
	}

	lines := make([]PitchLine, len(d.Lines))
	for i, line := range d.Lines {
		pl := PitchLine{Begin: line.StartTime(), End: line.EndTime()}
		if len(d.PitchSamples) > 0 {
			for _, s := range d.PitchSamples {
				if s.StartTime >= pl.Begin && s.StartTime < pl.End {
					pl.Pitches = append(pl.Pitches, s)
				}
			}
		} else {
			for _, t := range line.Tones {
				pl.Pitches = append(pl.Pitches, PitchSample{
					StartTime: t.Begin,
					Duration:  t.Duration(),
					Pitch:     t.Pitch,
				})
			}
		}
		lines[i] = pl
	}
	return lines
}

// Cut returns an excerpt of the document between start and end (ms).
//
// The bounds snap to the nearest line start and line end. The excerpt's
// prelude is its first line start and its duration spans first start to last
// end. When the range misses the document entirely, or snaps to an empty
// range, the receiver is returned unchanged.
func (d *Document) Cut(start, end int64) *Document {
	if d.IsEmpty() || start >= end {
		return d
	}

	first := d.Lines[0]
	last := d.Lines[len(d.Lines)-1]
	if end < first.StartTime() || start > last.EndTime() {
		return d
	}
	start = max(start, first.StartTime())
	end = min(end, last.EndTime())

	startIdx, endIdx := 0, 0
	startGap, endGap := int64(-1), int64(-1)
	for i, line := range d.Lines {
		if g := abs64(line.StartTime() - start); startGap < 0 || g < startGap {
			startGap, startIdx = g, i
		}
		if g := abs64(line.EndTime() - end); endGap < 0 || g < endGap {
			endGap, endIdx = g, i
		}
	}
	if startIdx > endIdx || d.Lines[startIdx].StartTime() >= d.Lines[endIdx].EndTime() {
		return d
	}

	c := d.Clone()
	c.Lines = c.Lines[startIdx : endIdx+1]
	c.PreludeEndPosition = c.Lines[0].StartTime()
	c.Duration = c.Lines[len(c.Lines)-1].EndTime() - c.Lines[0].StartTime()
	return c
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
