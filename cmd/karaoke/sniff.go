package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/simonhull/karaoke"
)

func newSniffCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sniff FILE...",
		Short: "Print the detected lyric encoding of each file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					a.log.WithError(err).WithField("path", path).Warn("skipping file")
					continue
				}
				fmt.Fprintf(out, "%s\t%s\n", path, karaoke.Sniff(data))
			}
			return nil
		},
	}
}
