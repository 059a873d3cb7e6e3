package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/simonhull/karaoke"
)

// parseFlags are the parse options shared by commands that read lyrics.
type parseFlags struct {
	pitch       string
	timeOffset  int64
	noCopyright bool
	strict      bool
}

func (p *parseFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&p.pitch, "pitch", "p", "", "pitch data file: binary track for XML/LRC, JSON side-channel for KRC")
	f.Int64Var(&p.timeOffset, "time-offset", 0, "shift KRC tones earlier by this many ms")
	f.BoolVar(&p.noCopyright, "no-copyright", false, "drop leading KRC credit lines")
	f.BoolVar(&p.strict, "strict", false, "fail on any parse warning")
}

// parse reads the lyric file at path with the flag-selected options.
func (p *parseFlags) parse(a *app, path string) (*karaoke.Document, error) {
	opts := []karaoke.Option{
		karaoke.WithLogger(a.log),
		karaoke.WithTimeOffset(p.timeOffset),
		karaoke.WithCopyrightLines(!p.noCopyright),
	}
	if p.strict {
		opts = append(opts, karaoke.WithStrictParsing())
	}
	if p.pitch != "" {
		data, err := os.ReadFile(p.pitch)
		if err != nil {
			return nil, fmt.Errorf("read pitch data: %w", err)
		}
		opts = append(opts, karaoke.WithPitchData(data))
	}

	doc, err := karaoke.ParseFile(path, opts...)
	if err != nil {
		return nil, err
	}
	for _, w := range doc.Warnings {
		a.log.WithField("path", path).Warn(w.String())
	}
	return doc, nil
}
