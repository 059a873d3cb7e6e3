package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/simonhull/karaoke"
)

// linePrinter reports finished lines as text or JSON lines.
type linePrinter struct {
	karaoke.NopListener
	w       io.Writer
	enc     *json.Encoder
	skipped int
}

func newLinePrinter(w io.Writer, asJSON bool, skipped int) *linePrinter {
	p := &linePrinter{w: w, skipped: skipped}
	if asJSON {
		p.enc = json.NewEncoder(w)
	}
	return p
}

func (p *linePrinter) OnLineFinished(line karaoke.Line, lineScore, cumulative float64, index, total int) {
	if p.enc != nil {
		p.enc.Encode(karaoke.Event{
			Name:       karaoke.EventLineFinished.String(),
			Timestamp:  line.EndTime(),
			LineText:   line.Text(),
			LineScore:  lineScore,
			Cumulative: cumulative,
			Index:      index,
			Total:      total,
		})
		return
	}
	fmt.Fprintf(p.w, "%4d/%-4d %6.2f %9.2f  %s\n", p.skipped+index+1, p.skipped+total, lineScore, cumulative, line.Text())
}

func newScoreCmd(a *app) *cobra.Command {
	var (
		pf     parseFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "score LYRICS SAMPLES",
		Short: "Replay a performance log through the scoring machine",
		Long: "Replay a performance log through the scoring machine.\n\n" +
			"SAMPLES holds one \"TS PITCH\" pair per line (ms, Hz); use - for stdin.\n" +
			"Each finished line is printed with its score and the running total.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := pf.parse(a, args[0])
			if err != nil {
				return err
			}
			if !doc.HasPitch {
				a.log.WithField("path", args[0]).Warn("lyrics carry no reference pitch; every line will score 0")
			}

			samples, err := readSamplesFile(args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			recorder := karaoke.NewLineScoreRecorder(doc)
			m := karaoke.NewMachine(
				karaoke.Listeners{recorder, newLinePrinter(out, asJSON, doc.CopyrightLineCount)},
				a.cfg.MachineOptions(a.log)...,
			)
			m.Prepare(doc)

			for _, s := range samples {
				m.SetProgress(s.ts)
				m.SetPitch(s.pitch, s.ts)
			}

			if !asJSON {
				fmt.Fprintf(out, "\nTotal: %.2f over %d lines\n", m.CumulativeScore(), recorder.Len())
			}
			return nil
		},
	}

	pf.register(cmd)
	f := cmd.Flags()
	f.BoolVar(&asJSON, "json", false, "print line events as JSON lines")
	f.Int("level", 0, "scoring level 1-100 (higher is stricter)")
	f.Int("offset", 0, "compensation offset 0-100 added to every score")
	f.Float64("initial-score", 0, "score to start from")
	return cmd
}
