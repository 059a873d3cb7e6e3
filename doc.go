// Package karaoke provides lyric parsing and real-time vocal scoring.
//
// It reads the lyric encodings used by karaoke players (XML, plain LRC,
// enhanced LRC and KRC) into one timeline model, and drives a scoring state
// machine from playback progress and detected singing pitch.
//
// # Quick Start
//
// Parsing a lyric file:
//
//	doc, err := karaoke.ParseFile("song.krc")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("%s - %s (%d lines)\n", doc.Artist, doc.Title, len(doc.Lines))
//
// Scoring a performance:
//
//	m := karaoke.NewMachine(listener)
//	m.Prepare(doc)
//
//	// from the player clock
//	m.SetProgress(positionMs)
//
//	// from the pitch detector
//	m.SetPitch(hz, positionMs)
//
// The listener receives pitch and score updates for every sample, and one
// OnLineFinished call per lyric line with the line score and the cumulative
// total.
//
// # Supported Formats
//
//   - XML: <song>/<midi_lrc> documents with per-tone pitch
//   - LRC: [mm:ss.xx] line stamps
//   - Enhanced LRC: line stamps with inline <mm:ss.xx> word markers
//   - KRC: [start,duration] lines with <offset,duration,0> word tags
//
// XML and LRC lyrics may be paired with a binary pitch track
// (DecodePitchTrack); KRC lyrics with a JSON pitch side-channel
// (DecodePitchSamples). Pass either through WithPitchData.
//
// # Architecture
//
//	[Parse]           - Entry point; sniffs the encoding
//	  ├─ [registry]   - Format parsers registered at init
//	  └─ [Document]   - Lines of timed tones plus reference pitch
//	[Machine]         - Scoring state machine over a Document
//	  ├─ [PitchCorrector] - Octave correction of detected pitch
//	  ├─ [ScoreCurve]     - Per-sample score from pitch distance
//	  └─ [Listener]       - Score and line events
//
// # Error Handling
//
// Input that yields no valid timeline returns a *NoDocumentError, matched by
// errors.Is(err, ErrNoDocument). Text that no parser recognizes returns an
// *UnsupportedFormatError. Skipped lines and tones are reported as
// Document.Warnings; WithStrictParsing turns them into errors.
//
// # Concurrency
//
// Machine is not safe for concurrent use; wrap it in a SyncMachine when
// progress and pitch arrive on different goroutines. ParseMany parses files
// in parallel.
package karaoke
