package main

import (
	"fmt"
	"os"

	"github.com/simonhull/karaoke"
	"github.com/simonhull/karaoke/internal/binary"
	"github.com/simonhull/karaoke/internal/pitch"
)

// Useful for checking what a binary pitch track holds, and how it lines up
// with the lyrics it ships with.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: pitch-dump <track.pitch> [lyrics]")
		os.Exit(1)
	}

	f, err := os.Open(os.Args[1])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	track, err := pitch.ReadTrack(binary.NewSafeReader(f, stat.Size(), f.Name()))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("version: %d, interval: %d ms, reserved: %d, samples: %d\n",
		track.Version, track.Interval, track.Reserved, track.Len())

	if len(os.Args) < 3 {
		dumpSamples(track)
		return
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	doc, err := karaoke.ParseFile(os.Args[2], karaoke.WithPitchData(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	dumpLines(track, doc)
}

func dumpSamples(track *karaoke.PitchTrack) {
	for i, p := range track.Samples {
		if p <= 0 {
			continue
		}
		fmt.Printf("%8d ms  %8.3f Hz\n", int64(i)*int64(track.Interval), p)
	}
}

// dumpLines prints each tone with its own pitch and the track average over
// its window.
func dumpLines(track *karaoke.PitchTrack, doc *karaoke.Document) {
	fmt.Printf("%s: %d lines, prelude %d ms\n", doc.Format, len(doc.Lines), doc.PreludeEndPosition)
	for i, line := range doc.Lines {
		fmt.Printf("line %d [%d, %d]\n", i+1, line.StartTime(), line.EndTime())
		for _, tone := range line.Tones {
			avg := track.AverageInWindow(doc.PreludeEndPosition, tone.Begin, tone.End)
			fmt.Printf("  %-12q %7d %7d  tone %8.3f  track %8.3f\n", tone.Word, tone.Begin, tone.End, tone.Pitch, avg)
		}
	}
}
