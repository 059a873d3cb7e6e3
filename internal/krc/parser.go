// Package krc parses KRC lyrics: "[key:value]" metadata followed by lines of
// the form "[start,duration]<offset,duration,pitch>word...".
package krc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/simonhull/karaoke/internal/logging"
	"github.com/simonhull/karaoke/internal/parsing"
	"github.com/simonhull/karaoke/internal/pitch"
	"github.com/simonhull/karaoke/internal/registry"
	"github.com/simonhull/karaoke/internal/types"
)

// Placeholders used when the metadata omits ti or ar.
const (
	UnknownTitle  = "unknownTitle"
	UnknownArtist = "unknownSinger"
)

// parser implements registry.FormatParser for KRC lyrics
type parser struct{}

// PitchDataKind reports that KRC lyrics take the JSON pitch side-channel.
func (p *parser) PitchDataKind() string {
	return "side-channel json"
}

// timedLine is a parsed lyric line with its declared duration.
type timedLine struct {
	line     types.Line
	duration int64
}

// Parse parses KRC lyrics.
func (p *parser) Parse(data []byte, opts types.ParseOptions) (*types.Document, error) {
	log := logging.OrDiscard(opts.Logger).WithField("format", types.FormatKRC.String())

	doc := &types.Document{
		Format: types.FormatKRC,
		Title:  UnknownTitle,
		Artist: UnknownArtist,
	}

	var offset int64
	var lines []timedLine

	for i, raw := range parsing.SplitLines(string(data)) {
		lineNo := i + 1
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		if parsing.KRCLineTag.MatchString(raw) {
			tl, ok := parseLine(raw, lineNo, doc, log)
			if ok {
				lines = append(lines, tl)
			}
			continue
		}

		key, value, ok := parsing.ParseMetadata(raw)
		if !ok {
			log.WithField("line", lineNo).Debug("skipping unrecognized line")
			continue
		}
		switch key {
		case "ti":
			doc.Title = value
		case "ar":
			doc.Artist = value
		case "offset":
			v, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				doc.AddWarning("metadata", lineNo, "invalid offset %q", value)
				continue
			}
			offset = v
		}
	}

	if len(lines) == 0 {
		return nil, &types.NoDocumentError{Format: types.FormatKRC, Reason: "no timed lines"}
	}

	shift := offset + opts.TimeOffset
	doc.Lines = make([]types.Line, len(lines))
	for i, tl := range lines {
		for j := range tl.line.Tones {
			t := &tl.line.Tones[j]
			t.Begin = max(t.Begin-shift, 0)
			t.End = max(t.End-shift, 0)
		}
		doc.Lines[i] = tl.line
	}

	last := lines[len(lines)-1]
	doc.Duration = last.line.StartTime() + last.duration
	doc.PreludeEndPosition = doc.Lines[0].StartTime()
	doc.HasPitch = doc.Lines[0].Tones[0].Pitch != 0

	if len(opts.PitchData) > 0 {
		applySideChannel(doc, opts, log)
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"lines":     len(doc.Lines),
		"duration":  doc.Duration,
		"prelude":   doc.PreludeEndPosition,
		"samples":   len(doc.PitchSamples),
		"copyright": doc.CopyrightLineCount,
	}).Debug("parsed KRC lyrics")

	return doc, nil
}

// parseLine parses one lyric line. Malformed tone tags are skipped with a
// warning; a line with no valid tones is dropped.
func parseLine(raw string, lineNo int, doc *types.Document, log logrus.FieldLogger) (timedLine, bool) {
	timing, segments, ok := splitLine(raw)
	if !ok {
		return timedLine{}, false
	}

	lt, err := lineParser.ParseString("", timing)
	if err != nil {
		doc.AddWarning("timing", lineNo, "line tag %q: %v", timing, err)
		return timedLine{}, false
	}

	tl := timedLine{duration: lt.Duration}
	for _, seg := range segments {
		tone, err := parseTone(lt.Start, seg)
		if err != nil {
			doc.AddWarning("timing", lineNo, "%v", err)
			log.WithError(err).WithField("line", lineNo).Debug("skipping tone")
			continue
		}
		tl.line.Tones = append(tl.line.Tones, tone)
	}

	if len(tl.line.Tones) == 0 {
		doc.AddWarning("timing", lineNo, "line at %d ms has no valid tones", lt.Start)
		return timedLine{}, false
	}
	return tl, true
}

func parseTone(lineStart int64, seg rawTone) (types.Tone, error) {
	if !seg.closed {
		return types.Tone{}, fmt.Errorf("unterminated tone tag %q", seg.timing)
	}
	if seg.word == "" {
		return types.Tone{}, fmt.Errorf("tone tag %q has no word", seg.timing)
	}

	tt, err := toneParser.ParseString("", seg.timing)
	if err != nil {
		return types.Tone{}, fmt.Errorf("tone tag %q: %w", seg.timing, err)
	}

	begin := lineStart + tt.Offset
	tone := types.Tone{
		Word:  seg.word,
		Begin: begin,
		End:   begin + tt.Duration,
		Pitch: tt.Pitch,
	}
	if parsing.IsEnglish(seg.word) {
		tone.Lang = types.LangEnglish
	}
	return tone, nil
}

// applySideChannel attaches side-channel pitch samples. The first sample
// marks the end of the prelude; whole lines ending before it are credits and
// are dropped unless the caller keeps them.
func applySideChannel(doc *types.Document, opts types.ParseOptions, log logrus.FieldLogger) {
	samples, err := pitch.DecodeSamples(opts.PitchData)
	if err != nil {
		doc.AddWarning("pitch", 0, "side-channel ignored: %v", err)
		log.WithError(err).Warn("invalid pitch side-channel")
		return
	}
	if len(samples) == 0 {
		return
	}

	doc.PitchSamples = samples
	doc.HasPitch = true
	doc.PreludeEndPosition = samples[0].StartTime

	if opts.IncludeCopyrightLines {
		return
	}
	drop := 0
	for drop < len(doc.Lines) && doc.Lines[drop].EndTime() < doc.PreludeEndPosition {
		drop++
	}
	if drop > 0 {
		doc.CopyrightLineCount = drop
		doc.Lines = doc.Lines[drop:]
		log.WithField("count", drop).Debug("dropped credit lines before first pitch sample")
	}
}

func init() {
	registry.Register(types.FormatKRC, &parser{})
}
