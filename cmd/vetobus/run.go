package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/vetobus/internal/event"
	"github.com/dshills/vetobus/internal/event/metrics"
	"github.com/dshills/vetobus/internal/manifest"
	"github.com/dshills/vetobus/internal/script"
	"github.com/dshills/vetobus/internal/source/fswatch"
	"github.com/dshills/vetobus/internal/source/termkey"
)

const shutdownTimeout = 5 * time.Second

type runOptions struct {
	manifest string
	keys     string
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the buses, sources and metrics endpoint of a manifest",
		Long: `run loads the manifest, registers its guards and scripts, starts a file
watcher per watch entry and serves Prometheus metrics when metrics.listen is
set. It runs until interrupted.

With --keys, terminal key presses and resizes are published to the named
bus and Ctrl-C stops the command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuses(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.manifest, "manifest", "m", "", "manifest file (.toml, .yaml)")
	f.StringVar(&opts.keys, "keys", "", "publish terminal input to this bus")
	_ = cmd.MarkFlagRequired("manifest")

	return cmd
}

func runBuses(ctx context.Context, opts runOptions) error {
	m, err := manifest.Load(opts.manifest)
	if err != nil {
		return err
	}
	log, err := newLogger(m.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	reg := event.NewRegistry(event.WithLogger(log))
	scripts, err := m.Apply(reg, func(name, source string) (*script.Script, error) {
		return script.Load(name, source, script.WithLogger(log))
	})
	if err != nil {
		return fmt.Errorf("apply manifest: %w", err)
	}
	defer closeScripts(scripts)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	for _, w := range m.Watch {
		src, err := fswatch.New(reg.Get(w.Bus), m.WatchPath(w),
			fswatch.WithLogger(log),
			fswatch.WithTopicPrefix(w.TopicPrefix),
			fswatch.WithIgnoreHidden(!w.IncludeHidden),
		)
		if err != nil {
			stop()
			_ = g.Wait()
			return fmt.Errorf("watch %s: %w", w.Path, err)
		}
		g.Go(func() error { return src.Run(ctx) })
	}

	if m.Metrics.Listen != "" {
		srv, ln, err := newMetricsServer(m.Metrics, reg)
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		log.Info("serving metrics", zap.String("addr", ln.Addr().String()), zap.String("path", m.Metrics.Path))
		g.Go(func() error { return serve(ctx, srv, ln) })
	}

	if opts.keys != "" {
		screen, err := tcell.NewScreen()
		if err == nil {
			err = screen.Init()
		}
		if err != nil {
			stop()
			_ = g.Wait()
			return fmt.Errorf("terminal: %w", err)
		}
		defer screen.Fini()

		src := termkey.New(reg.Get(opts.keys), screen,
			termkey.WithLogger(log),
			termkey.WithQuitKey(tcell.KeyCtrlC),
		)
		g.Go(func() error {
			defer stop()
			return src.Run(ctx)
		})
	}

	log.Info("running", zap.Int("buses", reg.Len()), zap.Int("scripts", len(scripts)), zap.Int("watches", len(m.Watch)))
	<-ctx.Done()
	err = g.Wait()
	log.Info("stopped")
	return err
}

// newMetricsServer registers the bus collector and the Go runtime
// collectors on a private Prometheus registry.
func newMetricsServer(cfg manifest.Metrics, reg *event.Registry) (*http.Server, net.Listener, error) {
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		metrics.NewCollector(reg),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return nil, nil, fmt.Errorf("metrics listen: %w", err)
	}

	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return srv, ln, nil
}

// serve runs srv on ln until ctx is done.
func serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
