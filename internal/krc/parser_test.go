package krc

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/simonhull/karaoke/internal/registry"
	"github.com/simonhull/karaoke/internal/types"
)

const sampleKRC = "[id:$00000000]\r\n" +
	"[ti:星晴]\r\n" +
	"[ar:周杰伦]\r\n" +
	"[offset:0]\r\n" +
	"[0,3000]<0,1500,0>作词<1500,1500,0>某人\r\n" +
	"[3000,3000]<0,3000,0>作曲\r\n" +
	"[15203,2000]<0,241,50><241,759,52.5>Hi<1000,1000,55>星\r\n" +
	"[17500,1500]<0,500,60>一<500,bad,0>二<1000,500,61>三\r\n"

// sideChannel builds a side-channel with n samples starting at 15203 ms.
func sideChannel(n int) []byte {
	entries := make([]string, n)
	for i := range n {
		entries[i] = fmt.Sprintf(`{"startTime":%d,"duration":241,"pitch":%d}`, 15203+i*250, 50+i%10)
	}
	return []byte(`{"pitchDatas":[` + strings.Join(entries, ",") + `]}`)
}

func parse(t *testing.T, data string, opts types.ParseOptions) *types.Document {
	t.Helper()
	doc, err := (&parser{}).Parse([]byte(data), opts)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return doc
}

func TestParse_Basic(t *testing.T) {
	doc := parse(t, sampleKRC, types.ParseOptions{})

	if doc.Title != "星晴" || doc.Artist != "周杰伦" {
		t.Errorf("metadata = (%q, %q)", doc.Title, doc.Artist)
	}
	if len(doc.Lines) != 4 {
		t.Fatalf("lines = %d, want 4", len(doc.Lines))
	}
	if doc.PreludeEndPosition != 0 {
		t.Errorf("PreludeEndPosition = %d, want 0", doc.PreludeEndPosition)
	}
	if doc.Duration != 17500+1500 {
		t.Errorf("Duration = %d, want 19000", doc.Duration)
	}

	// The first tag of line 3 has no word and is skipped.
	third := doc.Lines[2].Tones
	if len(third) != 2 {
		t.Fatalf("line 3 tones = %d, want 2", len(third))
	}
	if third[0].Word != "Hi" || third[0].Begin != 15444 || third[0].End != 16203 || third[0].Pitch != 52.5 {
		t.Errorf("tone = %+v", third[0])
	}
	if third[0].Lang != types.LangEnglish || third[1].Lang != types.LangChinese {
		t.Error("language tags not detected")
	}

	// The malformed middle tag of line 4 is skipped.
	fourth := doc.Lines[3].Tones
	if len(fourth) != 2 || fourth[0].Word != "一" || fourth[1].Word != "三" {
		t.Errorf("line 4 tones = %+v", fourth)
	}

	if len(doc.Warnings) != 2 {
		t.Errorf("warnings = %d, want 2: %v", len(doc.Warnings), doc.Warnings)
	}
	if doc.HasPitch {
		t.Error("HasPitch = true though the first tone pitch is 0")
	}
}

func TestParse_DefaultsMetadata(t *testing.T) {
	doc := parse(t, "[1000,1000]<0,1000,0>a", types.ParseOptions{})
	if doc.Title != UnknownTitle || doc.Artist != UnknownArtist {
		t.Errorf("metadata = (%q, %q)", doc.Title, doc.Artist)
	}
	if doc.PreludeEndPosition != 1000 {
		t.Errorf("PreludeEndPosition = %d, want 1000", doc.PreludeEndPosition)
	}
}

func TestParse_Offsets(t *testing.T) {
	data := "[offset:200]\n[1000,1000]<0,500,0>a<500,500,0>b\n[100,100]<0,100,0>c\n"

	doc := parse(t, "[offset:200]\n[1000,1000]<0,500,0>a<500,500,0>b\n", types.ParseOptions{TimeOffset: 300})
	tones := doc.Lines[0].Tones
	if tones[0].Begin != 500 || tones[0].End != 1000 || tones[1].Begin != 1000 {
		t.Errorf("shifted tones = %+v", tones)
	}
	if doc.Duration != 500+1000 {
		t.Errorf("Duration = %d, want 1500", doc.Duration)
	}

	// Negative results clamp at zero, which breaks line ordering here.
	if _, err := (&parser{}).Parse([]byte(data), types.ParseOptions{}); !errors.Is(err, types.ErrNoDocument) {
		t.Errorf("out-of-order lines: err = %v, want ErrNoDocument", err)
	}

	doc = parse(t, "[100,100]<0,100,0>c\n", types.ParseOptions{TimeOffset: 5000})
	if doc.Lines[0].Tones[0].Begin != 0 || doc.Lines[0].Tones[0].End != 0 {
		t.Errorf("clamped tone = %+v", doc.Lines[0].Tones[0])
	}
}

func TestParse_SideChannel(t *testing.T) {
	doc := parse(t, sampleKRC, types.ParseOptions{PitchData: sideChannel(294)})

	if len(doc.PitchSamples) != 294 {
		t.Fatalf("samples = %d, want 294", len(doc.PitchSamples))
	}
	first := doc.PitchSamples[0]
	if first.StartTime != 15203 || first.Duration != 241 || first.Pitch != 50 {
		t.Errorf("first sample = %+v, want {15203 241 50}", first)
	}
	if !doc.HasPitch {
		t.Error("HasPitch = false with side-channel samples")
	}
	if doc.PreludeEndPosition != 15203 {
		t.Errorf("PreludeEndPosition = %d, want 15203", doc.PreludeEndPosition)
	}
	if doc.CopyrightLineCount != 2 || len(doc.Lines) != 2 {
		t.Errorf("copyright = %d lines = %d, want 2 and 2", doc.CopyrightLineCount, len(doc.Lines))
	}
	if doc.Lines[0].Tones[0].Word != "Hi" {
		t.Errorf("first kept line = %q", doc.Lines[0].Text())
	}
}

func TestParse_SideChannelKeepsCopyrightLines(t *testing.T) {
	doc := parse(t, sampleKRC, types.ParseOptions{
		PitchData:             sideChannel(3),
		IncludeCopyrightLines: true,
	})
	if doc.CopyrightLineCount != 0 || len(doc.Lines) != 4 {
		t.Errorf("copyright = %d lines = %d, want 0 and 4", doc.CopyrightLineCount, len(doc.Lines))
	}
	if doc.PreludeEndPosition != 15203 {
		t.Errorf("PreludeEndPosition = %d, want 15203", doc.PreludeEndPosition)
	}
}

func TestParse_SideChannelStringAndInvalid(t *testing.T) {
	doc := parse(t, sampleKRC, types.ParseOptions{
		PitchData: []byte(`{"pitchDatas":"[{\"startTime\":15203,\"duration\":241,\"pitch\":50}]"}`),
	})
	if len(doc.PitchSamples) != 1 {
		t.Errorf("samples = %d, want 1", len(doc.PitchSamples))
	}

	doc = parse(t, sampleKRC, types.ParseOptions{PitchData: []byte("{broken")})
	if doc.PitchSamples != nil || doc.CopyrightLineCount != 0 {
		t.Error("invalid side-channel should be ignored")
	}
	var found bool
	for _, w := range doc.Warnings {
		if w.Stage == "pitch" {
			found = true
		}
	}
	if !found {
		t.Error("expected a pitch warning for the invalid side-channel")
	}
}

func TestParse_NoDocument(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"metadata only", "[ti:a]\n[ar:b]"},
		{"no valid tones", "[1000,1000]<x,y,z>a\n[2000,1000]word without tags"},
		{"zero duration", "[0,0]<0,0,0>a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := (&parser{}).Parse([]byte(tt.data), types.ParseOptions{})
			if doc != nil {
				t.Error("Parse() returned a document")
			}
			if !errors.Is(err, types.ErrNoDocument) {
				t.Errorf("Parse() error = %v, want ErrNoDocument", err)
			}
		})
	}
}

func TestParse_AllLinesAreCredits(t *testing.T) {
	data := "[0,1000]<0,1000,0>credit"
	_, err := (&parser{}).Parse([]byte(data), types.ParseOptions{PitchData: sideChannel(1)})
	if !errors.Is(err, types.ErrNoDocument) {
		t.Errorf("err = %v, want ErrNoDocument", err)
	}
}

func TestSplitLine(t *testing.T) {
	timing, tones, ok := splitLine("[1000,2000]<0,100,0>a<100,100,0>b>c<5,5")
	if !ok || timing != "1000,2000" {
		t.Fatalf("splitLine() = (%q, %v)", timing, ok)
	}
	if len(tones) != 3 {
		t.Fatalf("segments = %d, want 3", len(tones))
	}
	if tones[1].word != "b>c" || !tones[1].closed {
		t.Errorf("segment 1 = %+v", tones[1])
	}
	if tones[2].closed {
		t.Error("segment without '>' should not be closed")
	}
}

func TestGrammar(t *testing.T) {
	lt, err := lineParser.ParseString("", " 1000 , 2000 ")
	if err != nil || lt.Start != 1000 || lt.Duration != 2000 {
		t.Errorf("line timing = (%+v, %v)", lt, err)
	}

	tt, err := toneParser.ParseString("", "10,20,-3.5")
	if err != nil || tt.Offset != 10 || tt.Duration != 20 || tt.Pitch != -3.5 {
		t.Errorf("tone timing = (%+v, %v)", tt, err)
	}

	for _, bad := range []string{"1,2", "1,2,3,4", "a,b,c", ""} {
		if _, err := toneParser.ParseString("", bad); err == nil {
			t.Errorf("toneParser.ParseString(%q) expected error", bad)
		}
	}
}

func TestRegistered(t *testing.T) {
	p := registry.Get(types.FormatKRC)
	if p == nil {
		t.Fatal("KRC parser not registered")
	}
	pc, ok := p.(registry.PitchConsumer)
	if !ok || pc.PitchDataKind() != "side-channel json" {
		t.Error("KRC parser should accept the side-channel")
	}
}
