package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuel-price-ingester/internal/config"
	"github.com/andygrunwald/fuel-price-ingester/internal/database"
	"github.com/andygrunwald/fuel-price-ingester/internal/storage"
	"github.com/andygrunwald/fuel-price-ingester/internal/storage/filestore"
	"github.com/andygrunwald/fuel-price-ingester/internal/storage/s3store"
)

// openStore creates the storage backend selected in the settings.
// The returned close function releases backend resources.
func openStore(ctx context.Context, s config.StorageConfig, logger zerolog.Logger) (storage.Store, func() error, error) {
	noop := func() error { return nil }

	switch s.Backend {
	case config.BackendS3:
		store, err := s3store.New(ctx, s, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	case config.BackendPostgres:
		db, err := database.New(s.PostgresDSN, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, db.Close, nil
	case config.BackendFile:
		return filestore.New(s.Dir, logger), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend: %s", s.Backend)
	}
}
