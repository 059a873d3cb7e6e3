package main

import (
	"fmt"
	"os/signal"
	"sort"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/simonhull/karaoke"
	"github.com/simonhull/karaoke/internal/download"
)

type downloadResult struct {
	data []byte
	err  error
}

func newDownloadCmd(a *app) *cobra.Command {
	var clean bool

	cmd := &cobra.Command{
		Use:   "download URL...",
		Short: "Fetch lyric files into the local cache",
		Long: "Fetch lyric files into the local cache.\n\n" +
			"Zip and xz payloads are unpacked; cached files younger than the\n" +
			"configured max age are served without network access.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !clean {
				return fmt.Errorf("requires at least 1 URL")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var (
				mu      sync.Mutex
				results = make(map[int]downloadResult)
			)
			opts := append(a.cfg.DownloadOptions(a.log), download.WithCallbacks(download.Callbacks{
				Progress: func(id int, progress float64) {
					a.log.WithFields(logrus.Fields{"request": id, "progress": progress}).Debug("downloading")
				},
				Completed: func(id int, data []byte, err error) {
					mu.Lock()
					results[id] = downloadResult{data: data, err: err}
					mu.Unlock()
				},
			}))

			m, err := download.New(a.cfg.Cache.Dir, opts...)
			if err != nil {
				return err
			}

			if clean {
				if err := m.CleanAll(); err != nil {
					return err
				}
				a.log.WithField("dir", m.Dir()).Info("cache cleaned")
			}

			urls := make(map[int]string, len(args))
			seen := make(map[string]bool, len(args))
			for _, url := range args {
				if seen[url] {
					continue
				}
				seen[url] = true
				urls[m.Download(ctx, url)] = url
			}
			m.Wait()

			return report(cmd, urls, results)
		},
	}

	cmd.Flags().BoolVar(&clean, "clean", false, "empty the cache first")
	cmd.Flags().String("cache-dir", "", "cache directory")
	cmd.Flags().Int("max-files", 0, "maximum cached files")
	cmd.Flags().Duration("max-age", 0, "maximum age of a cached file")
	cmd.Flags().Int("workers", 0, "concurrent downloads")
	return cmd
}

func report(cmd *cobra.Command, urls map[int]string, results map[int]downloadResult) error {
	ids := make([]int, 0, len(urls))
	for id := range urls {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := cmd.OutOrStdout()
	var failed int
	for _, id := range ids {
		res, ok := results[id]
		switch {
		case !ok:
			fmt.Fprintf(out, "%s\tcancelled\n", urls[id])
			failed++
		case res.err != nil:
			fmt.Fprintf(out, "%s\terror: %v\n", urls[id], res.err)
			failed++
		default:
			fmt.Fprintf(out, "%s\t%s\t%d bytes\n", urls[id], karaoke.Sniff(res.data), len(res.data))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d downloads failed", failed, len(ids))
	}
	return nil
}
