// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/driver"
	"github.com/ik5/audmix/engine"
)

type playOptions struct {
	gain        float32
	pan         float32
	speed       float32
	loop        bool
	metricsAddr string
}

func playCommand(a *app) *cobra.Command {
	var opts playOptions

	cmd := &cobra.Command{
		Use:   "play FILE...",
		Short: "Play files together through the default mixer",
		Long: "Stream every file through the default mixer of the engine until all of them\n" +
			"have finished, or until interrupted.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return play(ctx, a.cfg, args, opts)
		},
	}

	cmd.Flags().Float32VarP(&opts.gain, "gain", "g", 1, "gain applied to every file")
	cmd.Flags().Float32VarP(&opts.pan, "pan", "p", 0, "stereo position from -1 (left) to 1 (right)")
	cmd.Flags().Float32VarP(&opts.speed, "speed", "s", 1, "playback speed, 1 is the original pitch")
	cmd.Flags().BoolVarP(&opts.loop, "loop", "l", false, "loop the files until interrupted")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics", "", "serve driver metrics on this address, for example :9108")
	return cmd
}

func play(ctx context.Context, cfg engine.Config, paths []string, opts playOptions) error {
	backend, err := newBackend(cfg)
	if err != nil {
		return err
	}

	drvOpts := []driver.Option{driver.WithPeriod(cfg.PeriodFrames)}
	if opts.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		m, err := driver.NewMetrics(reg)
		if err != nil {
			return err
		}
		drvOpts = append(drvOpts, driver.WithMetrics(m))

		srv, err := serveMetrics(opts.metricsAddr, reg)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	e, err := engine.New(cfg, driver.New(backend, drvOpts...))
	if err != nil {
		return err
	}
	defer func() {
		if err := e.Close(); err != nil {
			log.Error("closing engine", "err", err)
		}
	}()

	streams := make([]*audio.Stream, 0, len(paths))
	for _, path := range paths {
		s, err := e.LoadStream(path, 0, 0)
		if err != nil {
			return err
		}
		if err := setupStream(s, opts); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := e.DefaultMixer().Attach(s); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		streams = append(streams, s)
		log.Info("playing", "file", path, "frequency", s.Frequency(), "channels", s.Channels())
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, s := range streams {
		g.Go(func() error { return waitFinished(ctx, s) })
	}
	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func setupStream(s *audio.Stream, opts playOptions) error {
	if err := s.SetGain(opts.gain); err != nil {
		return err
	}
	if err := s.SetPan(opts.pan); err != nil {
		return err
	}
	if err := s.SetSpeed(opts.speed); err != nil {
		return err
	}
	if opts.loop {
		return s.SetPlaymode(audio.PlayLoop)
	}
	return nil
}

// waitFinished blocks until s reports that it played its last fragment.
func waitFinished(ctx context.Context, s *audio.Stream) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-s.Events():
			if !ok || ev.Type == audio.EventFinished {
				return nil
			}
		}
	}
}

func serveMetrics(addr string, reg *prometheus.Registry) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening for metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", "err", err)
		}
	}()
	log.Info("serving metrics", "addr", ln.Addr().String())
	return srv, nil
}
