package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/spf13/cobra"

	"github.com/roach88/roster/internal/store"
	"github.com/roach88/roster/internal/viewmodel"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	MetricsAddr string

	// started, when set, receives the metrics listener address once the
	// watch loop is running. Tests use it to synchronize.
	started func(metricsAddr string)
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the record set every time it changes",
		Long: `Subscribe to all records and print the full set on every change,
including changes committed by other roster processes on the same file.

Runs until interrupted. With --metrics-addr, store metrics are served in
Prometheus text format at /metrics.

Examples:
  roster watch
  roster watch --format json
  roster watch --metrics-addr 127.0.0.1:9464`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve /metrics on this address (config metrics_addr)")

	return cmd
}

func runWatch(opts *WatchOptions, cmd *cobra.Command) error {
	logger := opts.logger()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	s, err := openSession(ctx, opts.RootOptions, store.WithExternalWatch())
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer s.Close()

	addr := opts.MetricsAddr
	if addr == "" && opts.Config != nil {
		addr = opts.Config.MetricsAddr
	}
	var metricsAddr string
	if addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to listen for metrics", err)
		}
		metricsAddr = ln.Addr().String()
		srv := newMetricsServer(s.store)
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
		defer shutdownServer(srv, logger)
		logger.Info("serving metrics", "addr", metricsAddr)
	}

	logger.Info("watching records", "db", opts.Database)
	if opts.started != nil {
		opts.started(metricsAddr)
	}

	return watchLoop(ctx, s.ctrl, opts.formatter(cmd))
}

// watchLoop prints each new state until ctx ends or the feed fails.
func watchLoop(ctx context.Context, ctrl *viewmodel.Controller, f *OutputFormatter) error {
	var last uint64
	for {
		changed := ctrl.Changed()
		st := ctrl.State()
		if st.Version != last {
			last = st.Version
			if f.Format != "json" {
				fmt.Fprintf(f.Writer, "-- version %d, %d record(s)\n", st.Version, len(st.Records))
			}
			if err := f.Records(st.Records); err != nil {
				return err
			}
		}
		if err := ctrl.Err(); err != nil {
			return WrapExitError(ExitFailure, "record feed ended", err)
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return nil
		}
	}
}

func newMetricsServer(st *store.Store) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		st.WritePrometheus(w)
		metrics.WriteProcessMetrics(w)
	})
	return &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func shutdownServer(srv *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("metrics server shutdown", "error", err)
	}
}
