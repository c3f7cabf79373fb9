// Package config provides configuration structures and loading for the fuel price ingester.
package config

import (
	"os"
	"strings"
)

// Config holds the service level configuration of the fuel price ingester.
// Upstream API and storage settings live in Settings and are read through a Loader.
type Config struct {
	// Path to the JSON settings document
	ConfigFile string
	// Log level (debug, info, warn, error)
	LogLevel string
	// Log format (json, console)
	LogFormat string
	// HTTP server address
	HTTPAddr string
	// Cron expression of the ingestion schedule
	Schedule string
	// Run once for the latest interval when the scheduler starts
	RunOnStart bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		ConfigFile: "config.json",
		LogLevel:   "info",
		LogFormat:  "json",
		HTTPAddr:   ":8080",
		Schedule:   "@hourly",
		RunOnStart: false,
	}
}

// LoadFromEnv loads configuration from environment variables.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("CONFIG_FILE"); v != "" {
		c.ConfigFile = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv("SCHEDULE"); v != "" {
		c.Schedule = v
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		c.RunOnStart = strings.ToLower(v) == "true"
	}
}
