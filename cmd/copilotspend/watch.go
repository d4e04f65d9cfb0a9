package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/janekbaraniewski/copilotspend/internal/config"
	"github.com/janekbaraniewski/copilotspend/internal/core"
)

func newWatchCommand(opts *globalOptions) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh headlessly, logging each result and optionally serving Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runWatch(ctx, opts, metricsAddr)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics on this address (default from settings metrics_addr)")
	return cmd
}

func runWatch(ctx context.Context, opts *globalOptions, metricsAddr string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Headless mode always logs.
	rt, err := newRuntime(opts, runtimeOptions{logLevel: "info", registerer: reg})
	if err != nil {
		return err
	}
	log := rt.logger
	defer func() { _ = log.Sync() }()

	if metricsAddr == "" {
		metricsAddr = rt.config().MetricsAddr
	}
	if metricsAddr != "" {
		srv := &http.Server{
			Addr:              metricsAddr,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info("serving metrics", zap.String("addr", metricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	rt.engine.OnUpdate(func(s core.Snapshot) {
		cfg := rt.config()
		d := core.BuildDisplay(s, manualFallback(cfg), thresholds(cfg))
		fields := []zap.Field{
			zap.String("status", string(d.Status)),
			zap.String("display", d.Text),
			zap.String("token_source", s.AuthSource),
		}
		if s.Err != nil {
			log.Warn("refresh failed", append(fields, zap.Error(s.Err), zap.String("guidance", d.Guidance))...)
			return
		}
		log.Info("refresh complete", fields...)
	})

	watcher := config.NewWatcher(opts.settingsPath(), 0, log.Named("config"))
	go func() {
		if err := watcher.Watch(ctx, func(cfg config.Config) { rt.reconfigure(opts, cfg) }); err != nil {
			log.Warn("config watcher stopped", zap.Error(err))
		}
	}()

	if err := rt.engine.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	rt.engine.Stop()
	log.Info("watch stopped")
	return nil
}

func metricsMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}
