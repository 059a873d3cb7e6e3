package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/simonhull/karaoke"
)

func newInspectCmd(a *app) *cobra.Command {
	var (
		pf     parseFlags
		output string
		cut    string
	)

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Parse a lyric file and print its timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := pf.parse(a, args[0])
			if err != nil {
				return err
			}

			if cut != "" {
				start, end, err := parseRange(cut)
				if err != nil {
					return err
				}
				doc = doc.Cut(start, end)
			}

			out := cmd.OutOrStdout()
			switch output {
			case "text":
				printSummary(out, doc)
				return nil
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(doc); err != nil {
					return err
				}
				return enc.Close()
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(doc)
			default:
				return fmt.Errorf("unknown output %q (want text, yaml or json)", output)
			}
		},
	}

	pf.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output: text, yaml, json")
	cmd.Flags().StringVar(&cut, "cut", "", "excerpt between START-END ms, snapped to line bounds")
	return cmd
}

// parseRange reads "START-END" in milliseconds.
func parseRange(s string) (int64, int64, error) {
	from, to, ok := strings.Cut(s, "-")
	if !ok {
		return 0, 0, fmt.Errorf("range %q: want START-END", s)
	}
	start, err := strconv.ParseInt(strings.TrimSpace(from), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("range start: %w", err)
	}
	end, err := strconv.ParseInt(strings.TrimSpace(to), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("range end: %w", err)
	}
	return start, end, nil
}

func ms(v int64) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func printSummary(w io.Writer, doc *karaoke.Document) {
	fmt.Fprintf(w, "Format:    %s\n", doc.Format)
	fmt.Fprintf(w, "Title:     %s\n", doc.Title)
	fmt.Fprintf(w, "Artist:    %s\n", doc.Artist)
	fmt.Fprintf(w, "Prelude:   %s\n", ms(doc.PreludeEndPosition))
	fmt.Fprintf(w, "Duration:  %s\n", ms(doc.Duration))
	fmt.Fprintf(w, "Lines:     %d\n", len(doc.Lines))
	fmt.Fprintf(w, "Has pitch: %t\n", doc.HasPitch)
	if len(doc.PitchSamples) > 0 {
		fmt.Fprintf(w, "Samples:   %d\n", len(doc.PitchSamples))
	}
	if doc.CopyrightLineCount > 0 {
		fmt.Fprintf(w, "Credits:   %d lines dropped\n", doc.CopyrightLineCount)
	}
	if len(doc.Warnings) > 0 {
		fmt.Fprintf(w, "Warnings:  %d\n", len(doc.Warnings))
	}

	fmt.Fprintln(w)
	for i, line := range doc.Lines {
		fmt.Fprintf(w, "%4d  %10s  %10s  %s\n", i+1, ms(line.StartTime()), ms(line.EndTime()), line.Text())
	}
}
