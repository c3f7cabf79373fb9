package config

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	// DefaultStates is the jurisdiction filter sent to the new prices endpoint.
	// The v2 API serves NSW and TAS; only NSW is consumed downstream for now.
	DefaultStates = "NSW|TAS"

	// Storage backends.
	BackendS3       = "s3"
	BackendPostgres = "postgres"
	BackendFile     = "file"
)

// ErrInvalid is returned when the settings document is missing required values.
var ErrInvalid = errors.New("invalid configuration")

// Settings is the structured document read once per run.
type Settings struct {
	FuelAPI FuelAPIConfig
	Storage StorageConfig
}

// FuelAPIConfig holds the credentials and endpoints of the fuel price API.
type FuelAPIConfig struct {
	APIKey        string
	APISecret     string
	BaseURL       string
	AuthPath      string
	NewPricesPath string
	// Pipe delimited jurisdiction codes
	States string
}

// StorageConfig describes where raw payloads are written.
type StorageConfig struct {
	// Backend is one of s3, postgres or file
	Backend string
	Bucket  string
	// Prepended verbatim to every object key
	KeyPrefix string
	// Named AWS profile used by the s3 backend
	ConnectionID string
	Region       string
	// Custom endpoint for S3 compatible stores
	Endpoint    string
	PostgresDSN string
	// Root directory of the file backend
	Dir string
}

// Validate checks that every value needed for a run is present.
func (s *Settings) Validate() error {
	required := []struct {
		key, value string
	}{
		{"fuel_api.api_key", s.FuelAPI.APIKey},
		{"fuel_api.api_secret", s.FuelAPI.APISecret},
		{"fuel_api.base_url", s.FuelAPI.BaseURL},
		{"fuel_api.auth_path", s.FuelAPI.AuthPath},
		{"fuel_api.new_prices_path", s.FuelAPI.NewPricesPath},
		{"storage.bucket", s.Storage.Bucket},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalid, r.key)
		}
	}

	switch s.Storage.Backend {
	case BackendS3:
	case BackendPostgres:
		if s.Storage.PostgresDSN == "" {
			return fmt.Errorf("%w: storage.postgres_dsn is required for the postgres backend", ErrInvalid)
		}
	case BackendFile:
		if s.Storage.Dir == "" {
			return fmt.Errorf("%w: storage.dir is required for the file backend", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalid, s.Storage.Backend)
	}

	return nil
}

// Loader provides the settings document to the pipeline.
type Loader interface {
	Load() (*Settings, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func() (*Settings, error)

// Load calls f.
func (f LoaderFunc) Load() (*Settings, error) {
	return f()
}

// SameConnection reports whether o targets the same backend connection as s.
// Bucket and KeyPrefix are per run values and are not compared.
func (s StorageConfig) SameConnection(o StorageConfig) bool {
	return s.Backend == o.Backend &&
		s.ConnectionID == o.ConnectionID &&
		s.Region == o.Region &&
		s.Endpoint == o.Endpoint &&
		s.PostgresDSN == o.PostgresDSN &&
		s.Dir == o.Dir
}

// PinnedStorageLoader wraps l for a store opened once from startup.
// It warns when a reload points at a different backend connection, which only takes effect after a restart.
func PinnedStorageLoader(l Loader, startup StorageConfig, logger zerolog.Logger) Loader {
	return LoaderFunc(func() (*Settings, error) {
		settings, err := l.Load()
		if err != nil {
			return nil, err
		}
		if !settings.Storage.SameConnection(startup) {
			logger.Warn().
				Str("backend", startup.Backend).
				Str("configuredBackend", settings.Storage.Backend).
				Msg("storage connection settings changed, restart to apply")
		}
		return settings, nil
	})
}

// FileLoader reads settings from a JSON document on disk.
// FUEL_API_KEY and FUEL_API_SECRET take precedence over the file.
type FileLoader struct {
	Path string
}

// NewFileLoader creates a FileLoader for the given path.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{Path: path}
}

// Load reads and validates the settings document.
func (l *FileLoader) Load() (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(l.Path)
	v.SetConfigType("json")

	v.SetDefault("fuel_api.states", DefaultStates)
	v.SetDefault("storage.backend", BackendS3)
	_ = v.BindEnv("fuel_api.api_key", "FUEL_API_KEY")
	_ = v.BindEnv("fuel_api.api_secret", "FUEL_API_SECRET")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", l.Path, err)
	}

	s := &Settings{
		FuelAPI: FuelAPIConfig{
			APIKey:        v.GetString("fuel_api.api_key"),
			APISecret:     v.GetString("fuel_api.api_secret"),
			BaseURL:       v.GetString("fuel_api.base_url"),
			AuthPath:      v.GetString("fuel_api.auth_path"),
			NewPricesPath: v.GetString("fuel_api.new_prices_path"),
			States:        v.GetString("fuel_api.states"),
		},
		Storage: StorageConfig{
			Backend:      v.GetString("storage.backend"),
			Bucket:       firstNonEmpty(v.GetString("storage.bucket"), v.GetString("airflow.s3_bucket_name")),
			KeyPrefix:    firstNonEmpty(v.GetString("storage.key_prefix"), v.GetString("airflow.s3_prefix")),
			ConnectionID: firstNonEmpty(v.GetString("storage.connection_id"), v.GetString("airflow.aws_conn_id")),
			Region:       v.GetString("storage.region"),
			Endpoint:     v.GetString("storage.endpoint"),
			PostgresDSN:  v.GetString("storage.postgres_dsn"),
			Dir:          v.GetString("storage.dir"),
		},
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
