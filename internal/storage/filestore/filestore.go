// Package filestore provides a Store that writes objects to the local filesystem.
package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuel-price-ingester/internal/storage"
)

// BackendName is the identifier for this backend.
const BackendName = "file"

// Store writes objects to <dir>/<bucket>/<key>.
type Store struct {
	dir    string
	logger zerolog.Logger
}

// New creates a new file Store rooted at dir.
func New(dir string, logger zerolog.Logger) *Store {
	return &Store{
		dir:    dir,
		logger: logger.With().Str("component", "filestore").Logger(),
	}
}

// Name returns the backend identifier.
func (s *Store) Name() string {
	return BackendName
}

// Put writes the object atomically by renaming a temporary file into place.
func (s *Store) Put(ctx context.Context, obj storage.Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.path(obj.Bucket, obj.Key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(obj.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("writing object: %w", err)
	}
	// CreateTemp opens with 0600
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("setting object permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming object: %w", err)
	}

	s.logger.Debug().
		Str("path", path).
		Int("bytes", len(obj.Body)).
		Msg("stored object")

	return nil
}

// Ping checks that the root directory exists.
func (s *Store) Ping(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return nil
}

// path resolves bucket and key below the root directory and rejects keys escaping it.
func (s *Store) path(bucket, key string) (string, error) {
	root := filepath.Join(s.dir, bucket)
	path := filepath.Join(root, filepath.FromSlash(key))
	if !strings.HasPrefix(path, root+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return path, nil
}
