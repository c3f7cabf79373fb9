// Package main provides the entry point for the fuel price ingester CLI.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/andygrunwald/fuel-price-ingester/internal/config"
)

var (
	// Version is set at build time.
	Version = "dev"
	// Commit is set at build time.
	Commit = "none"
	// BuildDate is set at build time.
	BuildDate = "unknown"
)

var (
	cfg     *config.Config
	envFile string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg = config.DefaultConfig()
	cfg.LoadFromEnv()

	rootCmd := &cobra.Command{
		Use:   "fuelingest",
		Short: "Fuel Price Ingester - hourly snapshots of new fuel prices",
		Long: `Fuel Price Ingester authenticates against the FuelCheck API with the
OAuth2 client credentials flow, fetches the new fuel prices and stores the raw
JSON response under a timestamped object key.

Features:
  - Hourly ingestion with a configurable cron schedule
  - S3, PostgreSQL and local file storage backends
  - Prometheus metrics endpoint
  - Status endpoint for operational visibility`,
		SilenceUsage:      true,
		PersistentPreRunE: applyEnvFile,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", os.Getenv("ENV_FILE"), "Path to a .env file (default ./.env if present)")
	rootCmd.PersistentFlags().StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "Path to the JSON settings document")
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (json, console)")
	rootCmd.PersistentFlags().StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP server address for /metrics, /status")

	// Add subcommands
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

// applyEnvFile loads the env file and re-reads the environment.
// Flags set on the command line keep their values.
func applyEnvFile(cmd *cobra.Command, args []string) error {
	if err := loadEnvFile(envFile); err != nil {
		return err
	}

	env := config.DefaultConfig()
	env.LoadFromEnv()

	flags := cmd.Flags()
	if !flags.Changed("config") {
		cfg.ConfigFile = env.ConfigFile
	}
	if !flags.Changed("log-level") {
		cfg.LogLevel = env.LogLevel
	}
	if !flags.Changed("log-format") {
		cfg.LogFormat = env.LogFormat
	}
	if !flags.Changed("http-addr") {
		cfg.HTTPAddr = env.HTTPAddr
	}
	if !flags.Changed("schedule") {
		cfg.Schedule = env.Schedule
	}
	if !flags.Changed("run-on-start") {
		cfg.RunOnStart = env.RunOnStart
	}
	return nil
}

// loadEnvFile loads variables from path, or from ./.env if it exists.
// Variables already present in the environment win.
func loadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

func setupLogger() zerolog.Logger {
	var logger zerolog.Logger

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Set log format
	if cfg.LogFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stderr).
			With().
			Timestamp().
			Logger()
	}

	return logger
}
