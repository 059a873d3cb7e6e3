// Package midi exports lyric documents as Standard MIDI Files.
//
// The output is a format 1 file with a conductor track carrying tempo and
// song name, and a vocal track with one lyric meta event per tone and a note
// per reference pitch segment. Karaoke players and DAWs can load it to
// check timing against the reference melody.
package midi

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/simonhull/karaoke/internal/types"
)

// Defaults for the exported file.
const (
	DefaultTempo      = 120.0
	DefaultResolution = 480
	DefaultVelocity   = 100
)

// Option configures an export.
type Option func(*exporter)

// WithTempo sets the tempo in BPM used to convert milliseconds to ticks.
func WithTempo(bpm float64) Option {
	return func(e *exporter) {
		if bpm > 0 {
			e.tempo = bpm
		}
	}
}

// WithResolution sets the ticks per quarter note.
func WithResolution(ticks uint16) Option {
	return func(e *exporter) {
		if ticks > 0 {
			e.resolution = smf.MetricTicks(ticks)
		}
	}
}

// WithChannel sets the MIDI channel of the vocal notes.
func WithChannel(ch uint8) Option {
	return func(e *exporter) {
		e.channel = ch & 0x0f
	}
}

type exporter struct {
	tempo      float64
	resolution smf.MetricTicks
	channel    uint8
}

// timedMessage is a message at an absolute tick.
type timedMessage struct {
	tick uint32
	msg  smf.Message
}

// Export writes doc to w as a Standard MIDI File.
func Export(w io.Writer, doc *types.Document, opts ...Option) error {
	if doc.IsEmpty() {
		return fmt.Errorf("midi: document has no lines")
	}

	e := &exporter{
		tempo:      DefaultTempo,
		resolution: DefaultResolution,
	}
	for _, opt := range opts {
		opt(e)
	}

	s := smf.NewSMF1()
	s.TimeFormat = e.resolution
	s.Add(e.conductorTrack(doc))
	s.Add(e.vocalTrack(doc))

	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("midi: write file: %w", err)
	}
	return nil
}

func (e *exporter) ticks(ms int64) uint32 {
	return e.resolution.Ticks(e.tempo, time.Duration(max(ms, 0))*time.Millisecond)
}

func (e *exporter) conductorTrack(doc *types.Document) smf.Track {
	var track smf.Track
	name := doc.Title
	if name == "" {
		name = doc.Format.String() + " lyrics"
	}
	track = append(track, smf.Event{Delta: 0, Message: smf.MetaTrackSequenceName(name)})
	if doc.Artist != "" {
		track = append(track, smf.Event{Delta: 0, Message: smf.MetaText(doc.Artist)})
	}
	track = append(track, smf.Event{Delta: 0, Message: smf.MetaTempo(e.tempo)})
	track = append(track, smf.Event{Delta: 0, Message: smf.EOT})
	return track
}

func (e *exporter) vocalTrack(doc *types.Document) smf.Track {
	var events []timedMessage

	for _, line := range doc.Lines {
		events = append(events, timedMessage{e.ticks(line.StartTime()), smf.MetaText(line.Text())})
		for _, t := range line.Tones {
			events = append(events, timedMessage{e.ticks(t.Begin), smf.MetaLyric(t.Word)})
		}
	}

	// side-channel samples replace tone pitches as the melody
	if len(doc.PitchSamples) > 0 {
		for _, p := range doc.PitchSamples {
			events = e.appendNote(events, p.StartTime, p.EndTime(), p.Pitch)
		}
	} else {
		for _, line := range doc.Lines {
			for _, t := range line.Tones {
				events = e.appendNote(events, t.Begin, t.End, t.Pitch)
			}
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return rank(events[i].msg) < rank(events[j].msg)
	})

	track := smf.Track{{Delta: 0, Message: smf.MetaTrackSequenceName("Vocals")}}
	var last uint32
	for _, ev := range events {
		track = append(track, smf.Event{Delta: ev.tick - last, Message: ev.msg})
		last = ev.tick
	}
	return append(track, smf.Event{Delta: 0, Message: smf.EOT})
}

func (e *exporter) appendNote(events []timedMessage, begin, end int64, hz float64) []timedMessage {
	key, ok := KeyForPitch(hz)
	if !ok || end <= begin {
		return events
	}
	return append(events,
		timedMessage{e.ticks(begin), smf.Message(midi.NoteOn(e.channel, key, DefaultVelocity))},
		timedMessage{e.ticks(end), smf.Message(midi.NoteOff(e.channel, key))},
	)
}

// rank orders simultaneous events: text, lyrics, note-offs, then note-ons.
func rank(msg smf.Message) int {
	var ch, key, vel uint8
	switch {
	case msg.Type() == smf.MetaTextMsg:
		return 0
	case msg.Type() == smf.MetaLyricMsg:
		return 1
	case msg.GetNoteOff(&ch, &key, &vel):
		return 2
	default:
		return 3
	}
}

// KeyForPitch converts a frequency in Hz to the nearest MIDI key.
// It reports false for non-positive or out-of-range frequencies.
func KeyForPitch(hz float64) (uint8, bool) {
	if hz <= 0 || math.IsNaN(hz) || math.IsInf(hz, 0) {
		return 0, false
	}
	key := math.Round(69 + 12*math.Log2(hz/440))
	if key < 0 || key > 127 {
		return 0, false
	}
	return uint8(key), true
}

// PitchForKey returns the frequency in Hz of a MIDI key.
func PitchForKey(key uint8) float64 {
	return 440 * math.Pow(2, (float64(key)-69)/12)
}
