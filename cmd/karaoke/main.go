// Command karaoke inspects lyric files and replays scoring sessions.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/simonhull/karaoke"
	"github.com/simonhull/karaoke/internal/config"
)

// app holds state shared by every subcommand.
type app struct {
	v       *viper.Viper
	cfgPath string
	cfg     *config.Config
	log     *logrus.Logger
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"log-level":     "log.level",
	"log-format":    "log.format",
	"level":         "scoring.level",
	"offset":        "scoring.compensation_offset",
	"initial-score": "scoring.initial_score",
	"cache-dir":     "cache.dir",
	"max-files":     "cache.max_files",
	"max-age":       "cache.max_age",
	"workers":       "cache.workers",
	"addr":          "feed.addr",
	"origin":        "feed.origins",
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}

	root := &cobra.Command{
		Use:          "karaoke",
		Short:        "Karaoke lyric and vocal scoring toolkit",
		Version:      karaoke.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgPath, "config", "c", "", "config file (default $"+config.EnvConfig+" or ./karaoke.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: text, json")

	root.AddCommand(
		newSniffCmd(a),
		newInspectCmd(a),
		newScoreCmd(a),
		newMidiCmd(a),
		newDownloadCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

// load resolves the config file, overlays environment and flags, and builds
// the logger.
func (a *app) load(cmd *cobra.Command) error {
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := a.v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var (
		cfg *config.Config
		err error
	)
	if a.cfgPath != "" {
		cfg, err = config.LoadFile(a.cfgPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	cfg.Apply(a.v)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := cfg.Logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = logger
	return nil
}
