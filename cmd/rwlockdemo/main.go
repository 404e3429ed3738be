// Command rwlockdemo drives a reader/writer workload against a named RWLock
// and prints the lock statistics and registry dump when it finishes.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/christophcemper/rwlock"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := defaultConfig()
	var (
		verbose     bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "rwlockdemo",
		Short: "Run readers and writers against a reentrant RWLock",
		RunE: func(cmd *cobra.Command, args []string) error {
			var logger *zap.Logger
			var err error
			if verbose {
				logger, err = zap.NewDevelopment()
			} else {
				logger, err = zap.NewProduction()
			}
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if metricsAddr != "" {
				srv := serveMetrics(metricsAddr, logger)
				defer srv.Close()
			}

			report, err := run(ctx, cfg, logger)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), report)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Name, "name", cfg.Name, "name the lock is registered under")
	flags.IntVar(&cfg.Readers, "readers", cfg.Readers, "number of reader goroutines")
	flags.IntVar(&cfg.Writers, "writers", cfg.Writers, "number of writer goroutines")
	flags.IntVar(&cfg.Depth, "depth", cfg.Depth, "recursion depth of each acquisition")
	flags.DurationVar(&cfg.Duration, "duration", cfg.Duration, "how long to run the workload")
	flags.DurationVar(&cfg.Hold, "hold", cfg.Hold, "how long each stake is held")
	flags.DurationVar(&cfg.WarnTimeout, "warn-timeout", rwlock.DefaultWarnTimeout(), "log acquisitions waiting longer than this")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	flags.BoolVarP(&verbose, "verbose", "v", false, "development logging")
	return cmd
}

func serveMetrics(addr string, logger *zap.Logger) *http.Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(rwlock.NewCollector())

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	return srv
}
