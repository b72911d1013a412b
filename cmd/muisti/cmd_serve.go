package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/yairfalse/muisti/engine"
	"github.com/yairfalse/muisti/internal/api"
	"github.com/yairfalse/muisti/internal/config"
	"github.com/yairfalse/muisti/internal/daemon"
	obs "github.com/yairfalse/muisti/internal/telemetry"
	"github.com/yairfalse/muisti/storage"
	"github.com/yairfalse/muisti/telemetry"
	"github.com/yairfalse/muisti/wal"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the memory engine daemon",
	Long: `Run muisti as a long-lived daemon.

The daemon opens the durable store, warms in-memory caches from the
recent window, exposes the ingest/query HTTP API, runs periodic
retention sweeps, and serves Prometheus metrics.

Features:
- Durable bbolt-backed storage with retention sweeping
- Bounded per-node in-memory caches warmed on startup
- HTTP API for ingest, queries, summaries and annotations
- Prometheus metrics endpoint and optional OTLP export
- Graceful shutdown on SIGTERM/SIGINT`,
	Example: `  muisti serve                          # Run with defaults
  muisti serve --config muisti.yaml     # Use a config file`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	logger := telemetry.NewLogger(cfg.OTEL.ServiceName)

	ctx := context.Background()

	provider, err := obs.NewProvider(ctx, cfg.OTEL)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}

	store, err := storage.NewBoltStore(cfg.Storage.Dir, cfg.Engine.Retention)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	opts := engine.Options{
		CacheCapacity:        cfg.Engine.CacheCapacity,
		RetentionPeriod:      cfg.Engine.Retention,
		SweepInterval:        cfg.Engine.SweepInterval,
		WarmupWindow:         cfg.Engine.WarmupWindow,
		DisableEventIndexing: cfg.Engine.DisableIndexing,
		Logger:               logger,
	}
	if cfg.Engine.JournalDir != "" {
		journal, err := wal.Open(cfg.Engine.JournalDir)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		opts.Journal = journal
	}

	eng := engine.New(store, opts)
	if err := eng.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}

	keys, dbSize := eng.StorageStats()
	logger.Info().Int("keys", keys).Int64("db_bytes", dbSize).Msg("store opened")

	dmn, err := daemon.NewDaemon(eng, daemon.Config{})
	if err != nil {
		return fmt.Errorf("init daemon: %w", err)
	}

	apiServer := api.NewServer(eng, cfg.API.Addr, logger)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(provider.Registry(), promhttp.HandlerOpts{}))
	metricsServer := &http.Server{
		Addr:              cfg.API.MetricsAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info().
		Str("storage_dir", cfg.Storage.Dir).
		Str("api_addr", cfg.API.Addr).
		Str("metrics_addr", cfg.API.MetricsAddr).
		Dur("retention", cfg.Engine.Retention).
		Dur("sweep_interval", cfg.Engine.SweepInterval).
		Msg("muisti starting")

	var g run.Group

	g.Add(run.SignalHandler(ctx, syscall.SIGINT, syscall.SIGTERM))

	g.Add(func() error {
		return apiServer.Start()
	}, func(error) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = apiServer.Stop(shutdownCtx)
	})

	g.Add(func() error {
		logger.Info().Str("addr", metricsServer.Addr).Msg("metrics server listening")
		err := metricsServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}, func(error) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	})

	daemonCtx, daemonCancel := context.WithCancel(ctx)
	g.Add(func() error {
		return dmn.Start(daemonCtx)
	}, func(error) {
		daemonCancel()
	})

	runErr := g.Run()
	var sigErr run.SignalError
	if errors.As(runErr, &sigErr) {
		logger.Info().Str("signal", sigErr.Signal.String()).Msg("signal received, shutting down")
		runErr = nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := eng.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("engine shutdown")
	}
	if err := provider.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("telemetry shutdown")
	}

	return runErr
}
