package karaoke

import "github.com/simonhull/karaoke/internal/types"

// Document is an alias to types.Document.
type Document = types.Document

// Line is an alias to types.Line.
type Line = types.Line

// Tone is an alias to types.Tone.
type Tone = types.Tone

// Lang is an alias to types.Lang.
type Lang = types.Lang

const (
	LangChinese = types.LangChinese
	LangEnglish = types.LangEnglish
)

// PitchTrack is an alias to types.PitchTrack.
type PitchTrack = types.PitchTrack

// PitchSample is an alias to types.PitchSample.
type PitchSample = types.PitchSample

// PitchLine is an alias to types.PitchLine.
type PitchLine = types.PitchLine
