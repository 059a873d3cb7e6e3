package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/simonhull/karaoke"
	"github.com/simonhull/karaoke/internal/feed"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		pf      parseFlags
		speed   float64
		delay   time.Duration
		once    bool
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "serve LYRICS SAMPLES",
		Short: "Replay a performance log and stream scoring events over a websocket",
		Long: "Replay a performance log in real time and stream scoring events to\n" +
			"websocket clients connected at /ws.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if speed <= 0 {
				return fmt.Errorf("speed must be positive, got %v", speed)
			}

			doc, err := pf.parse(a, args[0])
			if err != nil {
				return err
			}
			samples, err := readSamplesFile(args[1])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			hubOpts := []feed.Option{
				feed.WithLogger(a.log),
				feed.WithAllowedOrigins(a.cfg.Feed.Origins...),
			}
			if refresh {
				hubOpts = append(hubOpts, feed.WithRefreshEvents())
			}
			hub := feed.New(hubOpts...)
			go hub.Run(ctx)

			events := karaoke.NewChannelListener(1024)
			go hub.Forward(ctx, events.C)

			m := karaoke.NewSyncMachine(events, a.cfg.MachineOptions(a.log)...)
			m.Prepare(doc)

			mux := http.NewServeMux()
			mux.Handle("/ws", hub)
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprintf(w, "ok %d clients\n", hub.Clients())
			})

			srv := &http.Server{
				Addr:              a.cfg.Feed.Addr,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}
			errc := make(chan error, 1)
			go func() {
				errc <- srv.ListenAndServe()
			}()
			a.log.WithField("addr", srv.Addr).Info("serving scoring feed on /ws")

			replayed := make(chan struct{})
			go func() {
				defer close(replayed)
				if sleepCtx(ctx, delay) {
					replay(ctx, m, samples, speed, a.log)
				}
			}()

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-replayed:
				if !once {
					<-ctx.Done()
				}
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			stop()
			if events.Dropped() > 0 {
				a.log.WithField("dropped", events.Dropped()).Warn("events dropped")
			}
			return srv.Shutdown(shutdownCtx)
		},
	}

	pf.register(cmd)
	f := cmd.Flags()
	f.Float64Var(&speed, "speed", 1, "replay speed multiplier")
	f.DurationVar(&delay, "delay", 0, "wait before starting the replay")
	f.BoolVar(&once, "once", false, "exit when the replay ends")
	f.BoolVar(&refresh, "refresh-events", false, "also stream refresh_ui events")
	f.String("addr", "", "listen address")
	f.StringSlice("origin", nil, "allowed websocket origins")
	f.Int("level", 0, "scoring level 1-100 (higher is stricter)")
	f.Int("offset", 0, "compensation offset 0-100 added to every score")
	f.Float64("initial-score", 0, "score to start from")
	return cmd
}

// replay feeds samples to m with their original spacing divided by speed.
// It returns early when ctx is done.
func replay(ctx context.Context, m *karaoke.SyncMachine, samples []sungSample, speed float64, log logrus.FieldLogger) {
	var prev int64
	for i, s := range samples {
		if i > 0 && s.ts > prev {
			wait := time.Duration(float64(s.ts-prev)/speed) * time.Millisecond
			if !sleepCtx(ctx, wait) {
				return
			}
		}
		prev = s.ts

		m.SetProgress(s.ts)
		m.SetPitch(s.pitch, s.ts)
	}
	log.WithFields(logrus.Fields{
		"samples": len(samples),
		"score":   m.CumulativeScore(),
	}).Info("replay finished")
}

// sleepCtx waits for d or until ctx is done, reporting whether the full
// duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
