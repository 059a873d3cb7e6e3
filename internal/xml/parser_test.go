package xml

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/simonhull/karaoke/internal/registry"
	"github.com/simonhull/karaoke/internal/types"
)

// songXML wraps sentences in a minimal <song> document.
func songXML(name, singer string, sentences ...string) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n<song>\n")
	fmt.Fprintf(&b, "  <general><name>%s</name><singer>%s</singer><type>1</type></general>\n", name, singer)
	b.WriteString("  <midi_lrc>\n    <paragraph>\n")
	for _, s := range sentences {
		b.WriteString("      " + s + "\n")
	}
	b.WriteString("    </paragraph>\n  </midi_lrc>\n</song>\n")
	return []byte(b.String())
}

func toneXML(begin, end float64, pitch int, word string) string {
	return fmt.Sprintf(`<tone begin="%.4f" end="%.4f" pitch="%d" pronounce=""><word>%s</word></tone>`, begin, end, pitch, word)
}

// generatedSong builds n two-tone sentences, 5 s apart, starting at prelude
// seconds; the final tone ends at last seconds.
func generatedSong(n int, prelude, last float64) []byte {
	sentences := make([]string, n)
	for i := range n {
		begin := prelude + float64(i)*5
		end := begin + 4
		if i == n-1 {
			end = last
		}
		sentences[i] = "<sentence>" + toneXML(begin, begin+2, 200, "星") + toneXML(begin+2, end, 210, "晴") + "</sentence>"
	}
	return songXML("Star", "Someone", sentences...)
}

func parse(t *testing.T, data []byte, opts types.ParseOptions) *types.Document {
	t.Helper()
	doc, err := (&parser{}).Parse(data, opts)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return doc
}

func TestParse_LineCount(t *testing.T) {
	doc := parse(t, generatedSong(42, 10, 220), types.ParseOptions{})
	if len(doc.Lines) != 42 {
		t.Errorf("lines = %d, want 42", len(doc.Lines))
	}
	if doc.Format != types.FormatXML {
		t.Errorf("Format = %v, want XML", doc.Format)
	}
}

func TestParse_PreludeAndDuration(t *testing.T) {
	doc := parse(t, generatedSong(20, 13.06, 113.0414), types.ParseOptions{})

	if len(doc.Lines) != 20 {
		t.Errorf("lines = %d, want 20", len(doc.Lines))
	}
	if doc.PreludeEndPosition != 13060 {
		t.Errorf("PreludeEndPosition = %d, want 13060", doc.PreludeEndPosition)
	}
	if doc.Duration != 113041 {
		t.Errorf("Duration = %d, want 113041", doc.Duration)
	}
	if doc.Title != "Star" || doc.Artist != "Someone" {
		t.Errorf("metadata = (%q, %q)", doc.Title, doc.Artist)
	}
	if !doc.HasPitch {
		t.Error("HasPitch = false, want true")
	}
}

func TestParse_ToneAttributes(t *testing.T) {
	data := songXML("  Padded  ", "\tSinger\n",
		`<sentence>`+
			`<tone begin="1.0006" end="1.5" pitch="33.9"><word>Hi </word></tone>`+
			`<tone begin="1.5" end="2" pitch="x" lang="1"><word>there</word></tone>`+
			`<tone begin="2" end="2.5" pitch="7" lang="2"><word>星</word></tone>`+
			`<tone begin="2.5" end="3"><word>晴</word></tone>`+
			`<monolog begin="3" end="4" pitch="5">ah</monolog>`+
			`</sentence>`)

	doc := parse(t, data, types.ParseOptions{})
	if doc.Title != "Padded" || doc.Artist != "Singer" {
		t.Errorf("metadata not trimmed: (%q, %q)", doc.Title, doc.Artist)
	}

	tones := doc.Lines[0].Tones
	if len(tones) != 5 {
		t.Fatalf("tones = %d, want 5", len(tones))
	}

	tests := []struct {
		word  string
		begin int64
		end   int64
		pitch float64
		lang  types.Lang
	}{
		{"Hi ", 1001, 1500, 33, types.LangEnglish},  // no lang, non-CJK word
		{"there", 1500, 2000, 0, types.LangChinese}, // lang="1"
		{"星", 2000, 2500, 7, types.LangEnglish},     // any other lang value
		{"晴", 2500, 3000, 0, types.LangChinese},     // no lang, CJK word
		{"ah", 3000, 4000, 5, types.LangEnglish},    // monolog text
	}
	for i, tt := range tests {
		got := tones[i]
		if got.Word != tt.word || got.Begin != tt.begin || got.End != tt.end || got.Pitch != tt.pitch || got.Lang != tt.lang {
			t.Errorf("tone %d = %+v, want %+v", i, got, tt)
		}
	}

	var pitchWarnings int
	for _, w := range doc.Warnings {
		if w.Stage == "pitch" {
			pitchWarnings++
		}
	}
	if pitchWarnings != 1 {
		t.Errorf("pitch warnings = %d, want 1 (%v)", pitchWarnings, doc.Warnings)
	}
}

func TestParse_SkipsBadTonesAndEmptySentences(t *testing.T) {
	data := songXML("S", "A",
		`<sentence></sentence>`,
		`<sentence>`+toneXML(1, 2, 0, "a")+`<tone begin="oops" end="3"><word>b</word></tone></sentence>`,
	)

	doc := parse(t, data, types.ParseOptions{})
	if len(doc.Lines) != 1 || len(doc.Lines[0].Tones) != 1 {
		t.Fatalf("lines = %+v", doc.Lines)
	}
	if len(doc.Warnings) != 2 {
		t.Errorf("warnings = %d, want 2 (%v)", len(doc.Warnings), doc.Warnings)
	}
	if doc.HasPitch {
		t.Error("HasPitch = true for a zero first pitch")
	}
}

func TestParse_NoDocument(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed", "<song><general>"},
		{"no midi_lrc", `<song><general><name>a</name></general></song>`},
		{"no paragraphs", `<song><midi_lrc></midi_lrc></song>`},
		{"no sentences", `<song><midi_lrc><paragraph></paragraph></midi_lrc></song>`},
		{"zero duration", string(songXML("a", "b", `<sentence>`+toneXML(0, 0, 1, "a")+`</sentence>`))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := (&parser{}).Parse([]byte(tt.data), types.ParseOptions{})
			if doc != nil {
				t.Errorf("Parse() returned a document: %+v", doc)
			}
			if !errors.Is(err, types.ErrNoDocument) {
				t.Errorf("Parse() error = %v, want ErrNoDocument", err)
			}
		})
	}
}

func TestParse_BackfillsPitchFromTrack(t *testing.T) {
	data := songXML("S", "A", `<sentence>`+toneXML(1, 1.1, 0, "a")+toneXML(1.1, 1.2, 99, "b")+`</sentence>`)

	buf := &bytes.Buffer{}
	for _, v := range []int32{1, 10, 0} {
		binary.Write(buf, binary.LittleEndian, v)
	}
	for range 20 {
		binary.Write(buf, binary.LittleEndian, float64(180))
	}

	doc := parse(t, data, types.ParseOptions{PitchData: buf.Bytes()})
	tones := doc.Lines[0].Tones
	if tones[0].Pitch != 180 {
		t.Errorf("backfilled pitch = %v, want 180", tones[0].Pitch)
	}
	if tones[1].Pitch != 99 {
		t.Errorf("explicit pitch overwritten: %v", tones[1].Pitch)
	}
	if !doc.HasPitch {
		t.Error("HasPitch = false after backfill")
	}
}

func TestRegistered(t *testing.T) {
	p := registry.Get(types.FormatXML)
	if p == nil {
		t.Fatal("XML parser not registered")
	}
	if _, ok := p.(registry.PitchConsumer); !ok {
		t.Error("XML parser should accept pitch data")
	}
}
