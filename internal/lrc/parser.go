// Package lrc parses line-stamped LRC lyrics, plain and enhanced.
//
// Plain lines hold a single tone spanning to the next line's start. Enhanced
// lines carry inline <mm:ss.xx> markers, each starting a new tone.
package lrc

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/simonhull/karaoke/internal/logging"
	"github.com/simonhull/karaoke/internal/parsing"
	"github.com/simonhull/karaoke/internal/pitch"
	"github.com/simonhull/karaoke/internal/registry"
	"github.com/simonhull/karaoke/internal/types"
)

const (
	// LastLineSpan is the synthetic length of the final line, which has no
	// closing timestamp.
	LastLineSpan = 8765

	// SubToneSpan is the length of the sub-tones a line is split into when a
	// pitch track is supplied.
	SubToneSpan = 100
)

// parser implements registry.FormatParser for LRC lyrics
type parser struct {
	format types.Format
}

// PitchDataKind reports that LRC lyrics take a binary pitch track.
func (p *parser) PitchDataKind() string {
	return "binary track"
}

// entry is one timed line before end times are known.
type entry struct {
	tones    []types.Tone
	start    int64
	enhanced bool // tones carry their own ends except possibly the last
	openEnd  bool // last tone still needs an end
}

// Parse parses LRC lyrics.
func (p *parser) Parse(data []byte, opts types.ParseOptions) (*types.Document, error) {
	log := logging.OrDiscard(opts.Logger).WithField("format", p.format.String())

	doc := &types.Document{Format: p.format}
	var offset int64
	var entries []entry

	for i, raw := range parsing.SplitLines(string(data)) {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if key, value, ok := parsing.ParseMetadata(line); ok {
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
			continue
		}

		m := parsing.LRCLine.FindStringSubmatch(line)
		if m == nil {
			log.WithField("line", lineNo).Debug("skipping untimed line")
			continue
		}

		parsed, err := p.parseLine(m[1], m[2])
		if err != nil {
			doc.AddWarning("timing", lineNo, "%v", err)
			log.WithError(err).WithField("line", lineNo).Debug("skipping line")
			continue
		}
		entries = append(entries, parsed...)
	}

	if len(entries) == 0 {
		return nil, &types.NoDocumentError{Format: p.format, Reason: "no timed lines"}
	}

	slices.SortStableFunc(entries, func(a, b entry) int {
		switch {
		case a.start < b.start:
			return -1
		case a.start > b.start:
			return 1
		default:
			return 0
		}
	})

	closeLines(entries)
	if offset != 0 {
		shift(entries, offset)
	}

	doc.Lines = make([]types.Line, len(entries))
	for i, e := range entries {
		doc.Lines[i] = types.Line{Tones: e.tones}
	}

	doc.PreludeEndPosition = doc.Lines[0].StartTime()
	doc.Duration = doc.LastEndTime()

	if len(opts.PitchData) > 0 {
		track := pitch.DecodeTrack(opts.PitchData)
		subdivide(doc, entries, track)
		doc.HasPitch = track.Len() > 0
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"lines":    len(doc.Lines),
		"duration": doc.Duration,
		"offset":   offset,
	}).Debug("parsed LRC lyrics")

	return doc, nil
}

// parseLine expands one source line. Plain lines yield one entry per stamp.
func (p *parser) parseLine(stamps, text string) ([]entry, error) {
	matches := parsing.TimeTag.FindAllStringSubmatch(stamps, -1)
	starts := make([]int64, 0, len(matches))
	for _, m := range matches {
		ms, err := parsing.StampMillis(m)
		if err != nil {
			return nil, fmt.Errorf("bad stamp %q: %w", m[0], err)
		}
		starts = append(starts, ms)
	}

	if p.format == types.FormatLRCEnhanced && parsing.InlineTag.MatchString(text) {
		e, err := enhancedEntry(starts[0], text)
		if err != nil {
			return nil, err
		}
		return []entry{e}, nil
	}

	entries := make([]entry, len(starts))
	for i, start := range starts {
		entries[i] = entry{
			start:   start,
			openEnd: true,
			tones:   []types.Tone{newTone(text, start)},
		}
	}
	return entries, nil
}

// enhancedEntry splits "pre<t1>a<t2>b" into tones. Text before the first
// marker starts at the line stamp. A trailing bare marker closes the previous
// tone; trailing text leaves the last tone open.
func enhancedEntry(start int64, text string) (entry, error) {
	e := entry{start: start, enhanced: true}

	locs := parsing.InlineTag.FindAllStringSubmatchIndex(text, -1)
	marks := make([]int64, len(locs))
	for i, loc := range locs {
		ms, err := parsing.ClockMillis(text[loc[2]:loc[3]], text[loc[4]:loc[5]], text[loc[6]:loc[7]])
		if err != nil {
			return entry{}, fmt.Errorf("bad marker %q: %w", text[loc[0]:loc[1]], err)
		}
		marks[i] = ms
	}

	if lead := text[:locs[0][0]]; strings.TrimSpace(lead) != "" {
		e.tones = append(e.tones, types.Tone{Word: lead, Begin: start, End: marks[0], Lang: lang(lead)})
	}

	for i, loc := range locs {
		segEnd := len(text)
		if i+1 < len(locs) {
			segEnd = locs[i+1][0]
		}
		word := text[loc[1]:segEnd]

		if i+1 < len(locs) {
			if word == "" {
				continue
			}
			e.tones = append(e.tones, types.Tone{Word: word, Begin: marks[i], End: marks[i+1], Lang: lang(word)})
			continue
		}

		if word == "" {
			// bare trailing marker
			if len(e.tones) == 0 {
				return entry{}, fmt.Errorf("enhanced line has markers but no words")
			}
			continue
		}
		e.tones = append(e.tones, newTone(word, marks[i]))
		e.openEnd = true
	}

	if len(e.tones) == 0 {
		return entry{}, fmt.Errorf("enhanced line has markers but no words")
	}
	for i := 1; i < len(e.tones); i++ {
		if e.tones[i].Begin < e.tones[i-1].Begin {
			return entry{}, fmt.Errorf("markers out of order at %d ms", e.tones[i].Begin)
		}
	}
	e.start = e.tones[0].Begin
	return e, nil
}

func newTone(word string, begin int64) types.Tone {
	return types.Tone{Word: word, Begin: begin, End: begin, Lang: lang(word)}
}

func lang(word string) types.Lang {
	if parsing.IsEnglish(strings.TrimSpace(word)) {
		return types.LangEnglish
	}
	return types.LangChinese
}

// closeLines ends every open tone at the next line's start, and the final
// open tone LastLineSpan after its line's start.
func closeLines(entries []entry) {
	for i := range entries {
		e := &entries[i]
		if !e.openEnd {
			continue
		}
		last := &e.tones[len(e.tones)-1]
		if i+1 < len(entries) {
			last.End = max(entries[i+1].start, last.Begin)
		} else {
			last.End = max(e.start+LastLineSpan, last.Begin+1)
		}
	}
}

// shift applies the [offset:] correction, clamping times at 0.
func shift(entries []entry, offset int64) {
	for i := range entries {
		entries[i].start = max(entries[i].start-offset, 0)
		for j := range entries[i].tones {
			t := &entries[i].tones[j]
			t.Begin = max(t.Begin-offset, 0)
			t.End = max(t.End-offset, 0)
		}
	}
}

// subdivide splits each plain line except the last into SubToneSpan tones,
// each carrying the track's average pitch over its window. The words stay on
// the first sub-tone.
func subdivide(doc *types.Document, entries []entry, track *types.PitchTrack) {
	for i := 0; i < len(doc.Lines)-1; i++ {
		if entries[i].enhanced {
			continue
		}
		first := doc.Lines[i].Tones[0]
		start, end := first.Begin, first.End

		count := int((end - start) / SubToneSpan)
		tones := make([]types.Tone, 0, max(count, 1))

		first.End = start + SubToneSpan - 1
		first.Pitch = track.AverageInWindow(doc.PreludeEndPosition, first.Begin, first.End)
		tones = append(tones, first)

		for j := 1; j < count; j++ {
			begin := start + int64(j)*SubToneSpan
			tone := types.Tone{Begin: begin, End: begin + SubToneSpan - 1, Lang: first.Lang}
			tone.Pitch = track.AverageInWindow(doc.PreludeEndPosition, tone.Begin, tone.End)
			tones = append(tones, tone)
		}
		doc.Lines[i].Tones = tones
	}
}

func init() {
	registry.Register(types.FormatLRC, &parser{format: types.FormatLRC})
	registry.Register(types.FormatLRCEnhanced, &parser{format: types.FormatLRCEnhanced})
}
