// Package xml parses <song> lyric documents: a general block with the title
// and singer, and a midi_lrc block of paragraphs, sentences, and tones.
package xml

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"github.com/sirupsen/logrus"

	"github.com/simonhull/karaoke/internal/logging"
	"github.com/simonhull/karaoke/internal/parsing"
	"github.com/simonhull/karaoke/internal/pitch"
	"github.com/simonhull/karaoke/internal/registry"
	"github.com/simonhull/karaoke/internal/types"
)

// Compiled once; "tone | monolog" keeps document order across both kinds.
var (
	generalExpr   = xpath.MustCompile("//general")
	midiExpr      = xpath.MustCompile("//midi_lrc")
	paragraphExpr = xpath.MustCompile("paragraph")
	sentenceExpr  = xpath.MustCompile("sentence")
	toneExpr      = xpath.MustCompile("tone | monolog")
)

// parser implements registry.FormatParser for XML lyrics
type parser struct{}

// PitchDataKind reports that XML lyrics take a binary pitch track.
func (p *parser) PitchDataKind() string {
	return "binary track"
}

// Parse parses an XML lyric document.
func (p *parser) Parse(data []byte, opts types.ParseOptions) (*types.Document, error) {
	log := logging.OrDiscard(opts.Logger).WithField("format", types.FormatXML.String())

	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &types.NoDocumentError{Format: types.FormatXML, Reason: fmt.Sprintf("parsing XML: %v", err)}
	}

	doc := &types.Document{Format: types.FormatXML}

	if general := xmlquery.QuerySelector(root, generalExpr); general != nil {
		doc.Title = childText(general, "name")
		doc.Artist = childText(general, "singer")
	}

	midi := xmlquery.QuerySelector(root, midiExpr)
	if midi == nil {
		return nil, &types.NoDocumentError{Format: types.FormatXML, Reason: "no midi_lrc element"}
	}

	paragraphs := xmlquery.QuerySelectorAll(midi, paragraphExpr)
	if len(paragraphs) == 0 {
		return nil, &types.NoDocumentError{Format: types.FormatXML, Reason: "no paragraphs"}
	}

	for pi, paragraph := range paragraphs {
		for si, sentence := range xmlquery.QuerySelectorAll(paragraph, sentenceExpr) {
			line := readSentence(sentence, doc, log)
			if len(line.Tones) == 0 {
				doc.AddWarning("timing", 0, "paragraph %d sentence %d has no usable tones", pi+1, si+1)
				log.WithFields(logrus.Fields{"paragraph": pi + 1, "sentence": si + 1}).Debug("skipping empty sentence")
				continue
			}
			doc.Lines = append(doc.Lines, line)
		}
	}

	if len(doc.Lines) == 0 {
		return nil, &types.NoDocumentError{Format: types.FormatXML, Reason: "no sentences"}
	}

	doc.Duration = doc.LastEndTime()
	doc.PreludeEndPosition = doc.Lines[0].StartTime()

	if len(opts.PitchData) > 0 {
		backfillPitch(doc, pitch.DecodeTrack(opts.PitchData))
	}
	doc.HasPitch = doc.Lines[0].Tones[0].Pitch != 0

	if err := doc.Validate(); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"lines":    len(doc.Lines),
		"duration": doc.Duration,
		"prelude":  doc.PreludeEndPosition,
	}).Debug("parsed XML lyrics")

	return doc, nil
}

func readSentence(sentence *xmlquery.Node, doc *types.Document, log logrus.FieldLogger) types.Line {
	var line types.Line
	for _, n := range xmlquery.QuerySelectorAll(sentence, toneExpr) {
		tone, err := readTone(n, doc)
		if err != nil {
			doc.AddWarning("timing", 0, "%s skipped: %v", n.Data, err)
			log.WithError(err).Debug("skipping tone")
			continue
		}
		line.Tones = append(line.Tones, tone)
	}
	return line
}

// readTone reads a <tone> (word in a <word> child) or a <monolog> (word is
// the element text).
func readTone(n *xmlquery.Node, doc *types.Document) (types.Tone, error) {
	begin, err := seconds(n.SelectAttr("begin"))
	if err != nil {
		return types.Tone{}, fmt.Errorf("begin: %w", err)
	}
	end, err := seconds(n.SelectAttr("end"))
	if err != nil {
		return types.Tone{}, fmt.Errorf("end: %w", err)
	}

	tone := types.Tone{Begin: begin, End: end}
	if raw, ok := attr(n, "pitch"); ok {
		v, err := pitchValue(raw)
		if err != nil {
			doc.AddWarning("pitch", 0, "%s at %d ms: unparsable pitch %q", n.Data, begin, raw)
		}
		tone.Pitch = v
	}

	if n.Data == "monolog" {
		tone.Word = n.InnerText()
	} else {
		tone.Word = childText(n, "word")
	}

	lang, ok := attr(n, "lang")
	switch {
	case !ok:
		if parsing.IsEnglish(tone.Word) {
			tone.Lang = types.LangEnglish
		}
	case lang != "1":
		tone.Lang = types.LangEnglish
	}

	return tone, nil
}

// seconds converts a float seconds attribute to milliseconds.
func seconds(s string) (int64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	return int64(math.Round(v * 1000)), nil
}

// pitchValue parses an integral pitch, falling back to a truncated float.
func pitchValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		return float64(v), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return math.Trunc(v), nil
}

func attr(n *xmlquery.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func childText(n *xmlquery.Node, name string) string {
	child := n.SelectElement(name)
	if child == nil {
		return ""
	}
	if name == "word" {
		return child.InnerText()
	}
	return strings.TrimSpace(child.InnerText())
}

// backfillPitch fills tones without a reference pitch from the binary track.
func backfillPitch(doc *types.Document, track *types.PitchTrack) {
	if track.Len() == 0 {
		return
	}
	for i := range doc.Lines {
		tones := doc.Lines[i].Tones
		for j := range tones {
			if tones[j].Pitch == 0 {
				tones[j].Pitch = track.AverageInWindow(doc.PreludeEndPosition, tones[j].Begin, tones[j].End)
			}
		}
	}
}

func init() {
	registry.Register(types.FormatXML, &parser{})
}
