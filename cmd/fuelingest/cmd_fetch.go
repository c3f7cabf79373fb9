package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/andygrunwald/fuel-price-ingester/internal/api/fuelcheck"
	"github.com/andygrunwald/fuel-price-ingester/internal/config"
	"github.com/andygrunwald/fuel-price-ingester/internal/pipeline"
)

func fetchCmd() *cobra.Command {
	var logicalTimeStr string
	var toStdout bool

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Run a one-time ingestion",
		Long:  "Runs a single ingestion for the given logical time and stores the payload. Useful for testing and manual backfills of the current snapshot.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			logical := time.Now()
			if logicalTimeStr != "" {
				var err error
				logical, err = time.Parse(time.RFC3339, logicalTimeStr)
				if err != nil {
					return fmt.Errorf("parsing --logical-time: %w", err)
				}
			}

			loader := config.NewFileLoader(cfg.ConfigFile)
			settings, err := loader.Load()
			if err != nil {
				return err
			}

			logger.Info().
				Str("config", cfg.ConfigFile).
				Time("logicalTime", logical).
				Str("backend", settings.Storage.Backend).
				Bool("stdout", toStdout).
				Msg("running one-time ingestion")

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			source := fuelcheck.New(logger)

			if toStdout {
				p := pipeline.New(loader, source, nil, logger)
				result, err := p.Fetch(ctx, logical)
				if err != nil {
					return fmt.Errorf("fetching: %w", err)
				}
				if _, err := os.Stdout.Write(result.Payload); err != nil {
					return fmt.Errorf("writing payload: %w", err)
				}
				return nil
			}

			store, closeStore, err := openStore(ctx, settings.Storage, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			p := pipeline.New(loader, source, store, logger)
			result, err := p.Run(ctx, logical)
			if err != nil {
				return fmt.Errorf("ingesting: %w", err)
			}

			logger.Info().
				Str("bucket", result.Bucket).
				Str("key", result.ObjectKey).
				Msg("ingestion completed")
			return nil
		},
	}

	cmd.Flags().StringVar(&logicalTimeStr, "logical-time", "", "Logical run time (RFC3339, defaults to now)")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "Write the payload to stdout instead of storing it")

	return cmd
}
