package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simonhull/karaoke/internal/midi"
)

func newMidiCmd(a *app) *cobra.Command {
	var (
		pf         parseFlags
		output     string
		tempo      float64
		resolution uint16
		channel    uint8
	)

	cmd := &cobra.Command{
		Use:   "midi LYRICS",
		Short: "Export lyrics and reference pitch as a Standard MIDI File",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := pf.parse(a, args[0])
			if err != nil {
				return err
			}

			if output == "" {
				output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".mid"
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}

			err = midi.Export(f, doc,
				midi.WithTempo(tempo),
				midi.WithResolution(resolution),
				midi.WithChannel(channel),
			)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				os.Remove(output)
				return err
			}

			a.log.WithField("path", output).Info("midi written")
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}

	pf.register(cmd)
	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "", "output file (default LYRICS with .mid)")
	f.Float64Var(&tempo, "tempo", midi.DefaultTempo, "tempo in BPM")
	f.Uint16Var(&resolution, "resolution", midi.DefaultResolution, "ticks per quarter note")
	f.Uint8Var(&channel, "channel", 0, "MIDI channel for vocal notes (0-15)")
	return cmd
}
