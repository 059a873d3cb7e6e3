package karaoke

import (
	"github.com/simonhull/karaoke/internal/pitch"
	"github.com/simonhull/karaoke/internal/registry"
	"github.com/simonhull/karaoke/internal/types"
)

// Format is an alias to types.Format.
type Format = types.Format

// Re-export all format constants.
const (
	FormatUnknown     = types.FormatUnknown
	FormatXML         = types.FormatXML
	FormatLRC         = types.FormatLRC
	FormatLRCEnhanced = types.FormatLRCEnhanced
	FormatKRC         = types.FormatKRC
)

// Sniff determines the lyric encoding from content alone.
func Sniff(data []byte) Format {
	return types.Sniff(data)
}

// Formats returns every format with a registered parser.
func Formats() []Format {
	return registry.Formats()
}

// AcceptsPitchData reports whether the parser for f uses WithPitchData, and
// what kind of payload it expects.
func AcceptsPitchData(f Format) (string, bool) {
	pc, ok := registry.Get(f).(registry.PitchConsumer)
	if !ok {
		return "", false
	}
	return pc.PitchDataKind(), true
}

// DecodePitchTrack decodes a binary pitch track. Input shorter than its
// header yields an empty track.
func DecodePitchTrack(data []byte) *PitchTrack {
	return pitch.DecodeTrack(data)
}

// DecodePitchSamples decodes a KRC pitch side-channel. Malformed input yields
// nil.
func DecodePitchSamples(data []byte) []PitchSample {
	samples, err := pitch.DecodeSamples(data)
	if err != nil {
		return nil
	}
	return samples
}
