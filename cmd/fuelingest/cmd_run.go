package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/andygrunwald/fuel-price-ingester/internal/api/fuelcheck"
	"github.com/andygrunwald/fuel-price-ingester/internal/config"
	"github.com/andygrunwald/fuel-price-ingester/internal/http"
	"github.com/andygrunwald/fuel-price-ingester/internal/pipeline"
	"github.com/andygrunwald/fuel-price-ingester/internal/scheduler"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the continuous ingestion service",
		Long:  "Starts the fuel price ingester with an internal scheduler that runs on the configured cron schedule (hourly by default).",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			// Settings are re-read on every run, this load only validates them and sets up storage
			loader := config.NewFileLoader(cfg.ConfigFile)
			settings, err := loader.Load()
			if err != nil {
				return err
			}

			logger.Info().
				Str("version", Version).
				Str("commit", Commit).
				Str("buildDate", BuildDate).
				Str("httpAddr", cfg.HTTPAddr).
				Str("schedule", cfg.Schedule).
				Bool("runOnStart", cfg.RunOnStart).
				Str("config", cfg.ConfigFile).
				Str("backend", settings.Storage.Backend).
				Msg("starting fuel price ingester")

			// Setup signal handling
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			store, closeStore, err := openStore(ctx, settings.Storage, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			// Storage connection settings are fixed at startup, bucket and key prefix follow every reload
			p := pipeline.New(config.PinnedStorageLoader(loader, settings.Storage, logger), fuelcheck.New(logger), store, logger)

			// Create scheduler
			sched, err := scheduler.New(p, cfg.Schedule, cfg.RunOnStart, logger)
			if err != nil {
				return err
			}

			// Create HTTP server
			httpServer := http.NewServer(cfg.HTTPAddr, p, sched, logger)

			// Wire Prometheus metrics to pipeline
			p.SetPrometheusMetrics(httpServer.Metrics())

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			// Start HTTP server in goroutine
			go func() {
				if err := httpServer.Start(); err != nil {
					logger.Error().Err(err).Msg("HTTP server error")
					cancel()
				}
			}()

			// Start scheduler in goroutine
			schedDone := make(chan struct{})
			go func() {
				defer close(schedDone)
				if err := sched.Start(ctx); err != nil && err != context.Canceled {
					logger.Error().Err(err).Msg("scheduler error")
					cancel()
				}
			}()

			// Wait for signal
			select {
			case sig := <-sigCh:
				logger.Info().Str("signal", sig.String()).Msg("received signal, shutting down")
				cancel()
			case <-ctx.Done():
			}

			// Graceful shutdown
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()

			select {
			case <-schedDone:
			case <-shutdownCtx.Done():
				logger.Warn().Msg("scheduler did not stop in time")
			}

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("HTTP server shutdown error")
			}

			logger.Info().Msg("shutdown complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.Schedule, "schedule", cfg.Schedule, "Cron expression of the ingestion schedule")
	cmd.Flags().BoolVar(&cfg.RunOnStart, "run-on-start", cfg.RunOnStart, "Run once for the latest interval on start")

	return cmd
}

