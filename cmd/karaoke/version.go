package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simonhull/karaoke"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := karaoke.GetVersionInfo()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "karaoke %s\n", info.Version)
			fmt.Fprintf(out, "  commit: %s\n", info.GitCommit)
			fmt.Fprintf(out, "  built:  %s\n", info.BuildTime)
			fmt.Fprintf(out, "  go:     %s\n", info.GoVersion)
			return nil
		},
	}
}
