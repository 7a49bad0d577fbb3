package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"lifeline/internal/config"
	"lifeline/internal/core"
	"lifeline/internal/dialer"
	"lifeline/internal/platform/logger"
	"lifeline/internal/views"
)

// app is the wired process: one repository over the configured store.
type app struct {
	log       *logger.Logger
	repo      *core.Repository
	settings  *views.Settings
	dashboard *views.Dashboard

	registry    *prometheus.Registry
	metricsFile string
	closers     []func(context.Context) error
}

func openApp(ctx context.Context, cfg *config.Config, stderr io.Writer) (*app, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	a := &app{log: log, registry: prometheus.NewRegistry(), metricsFile: cfg.MetricsFile}

	store, closeStore, err := core.OpenKVStore(ctx, cfg.Storage())
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("open %s store: %w", cfg.StorageDriver, err)
	}
	a.closers = append(a.closers, func(context.Context) error { return closeStore() })

	opts := append(cfg.RepositoryOptions(),
		core.WithLogger(log.With("component", "contacts")),
		core.WithMetricsRecorder(core.MultiMetricsRecorder{
			core.NewPrometheusMetricsRecorder(a.registry),
			core.NewExpvarMetricsRecorder(""),
		}),
	)
	if cfg.AuditLog {
		opts = append(opts, core.WithAuditRecorder(core.NewLogAuditRecorder(log.With("component", "audit"))))
	}
	var tracers core.MultiTracer
	if cfg.TraceStdout {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(stderr), stdouttrace.WithPrettyPrint())
		if err != nil {
			_ = a.close(ctx)
			return nil, fmt.Errorf("trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
		a.closers = append(a.closers, tp.Shutdown)
		tracers = append(tracers, core.NewOTelTracer(tp))
	}
	if cfg.TraceJSON {
		tracers = append(tracers, core.NewJSONLinesTracer(stderr, nil))
	}
	if len(tracers) > 0 {
		opts = append(opts, core.WithTracer(tracers))
	}

	repo, err := core.NewRepository(store, opts...)
	if err != nil {
		_ = a.close(ctx)
		return nil, err
	}
	repo.Initialize(ctx)
	select {
	case <-repo.Ready():
	case <-ctx.Done():
		_ = a.close(ctx)
		return nil, fmt.Errorf("load contacts: %w", ctx.Err())
	}

	a.repo = repo
	a.settings = views.NewSettings(repo)
	a.dashboard = views.NewDashboard(repo, dialer.New(newOpener()), log.With("component", "dashboard"))
	return a, nil
}

// close waits for pending writes, writes the metrics file and releases the store.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.repo != nil {
		if err := a.repo.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush contacts: %w", err))
		}
		if stats := a.repo.PersistStats(); stats.Failed > 0 {
			errs = append(errs, fmt.Errorf("%d contact list write(s) failed", stats.Failed))
		}
	}
	if a.metricsFile != "" {
		if err := prometheus.WriteToTextfile(a.metricsFile, a.registry); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	a.log.Sync()
	return errors.Join(errs...)
}
