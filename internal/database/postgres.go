// Package database provides a PostgreSQL backed object store for raw fuel price payloads.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuel-price-ingester/internal/storage"
)

// BackendName is the identifier for this backend.
const BackendName = "postgres"

const schema = `
	CREATE TABLE IF NOT EXISTS raw_objects (
		bucket       TEXT        NOT NULL,
		key          TEXT        NOT NULL,
		content_type TEXT        NOT NULL,
		payload      BYTEA       NOT NULL,
		size_bytes   INTEGER     NOT NULL,
		stored_at    TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (bucket, key)
	)
`

// DB wraps the PostgreSQL database connection and stores objects in the raw_objects table.
type DB struct {
	db     *sql.DB
	logger zerolog.Logger
}

// New creates a new database connection.
func New(dsn string, logger zerolog.Logger) (*DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database connection: %w", err)
	}

	return connect(db, logger)
}

// connect configures the pool and verifies the connection. db is closed if it is unreachable.
func connect(db *sql.DB, logger zerolog.Logger) (*DB, error) {
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return NewWithDB(db, logger), nil
}

// NewWithDB wraps an already opened connection.
func NewWithDB(db *sql.DB, logger zerolog.Logger) *DB {
	return &DB{
		db:     db,
		logger: logger.With().Str("component", "database").Logger(),
	}
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Name returns the backend identifier.
func (d *DB) Name() string {
	return BackendName
}

// Ping checks if the database connection is alive.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Migrate creates the raw_objects table if it does not exist.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating raw_objects table: %w", err)
	}
	return nil
}

// Put inserts the object or replaces the payload stored under the same bucket and key.
func (d *DB) Put(ctx context.Context, obj storage.Object) error {
	query := `
		INSERT INTO raw_objects (bucket, key, content_type, payload, size_bytes, stored_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (bucket, key)
		DO UPDATE SET
			content_type = EXCLUDED.content_type,
			payload = EXCLUDED.payload,
			size_bytes = EXCLUDED.size_bytes,
			stored_at = EXCLUDED.stored_at
	`

	contentType := obj.ContentType
	if contentType == "" {
		contentType = storage.ContentTypeJSON
	}

	_, err := d.db.ExecContext(ctx, query,
		obj.Bucket,
		obj.Key,
		contentType,
		obj.Body,
		len(obj.Body),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting object: %w", err)
	}

	d.logger.Debug().
		Str("bucket", obj.Bucket).
		Str("key", obj.Key).
		Int("bytes", len(obj.Body)).
		Msg("inserted object record")

	return nil
}

// CountObjects returns the total number of objects stored in the database.
func (d *DB) CountObjects(ctx context.Context) (int64, error) {
	var count int64
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM raw_objects").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting objects: %w", err)
	}
	return count, nil
}
