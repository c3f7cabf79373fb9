// Package s3store provides a Store backed by Amazon S3 or an S3 compatible service.
package s3store

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuel-price-ingester/internal/config"
	"github.com/andygrunwald/fuel-price-ingester/internal/storage"
)

// BackendName is the identifier for this backend.
const BackendName = "s3"

// PutObjectAPI is the subset of the S3 client used by Store.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store writes objects with PutObject.
type Store struct {
	client PutObjectAPI
	logger zerolog.Logger
}

// New loads the AWS configuration and creates a Store.
// ConnectionID selects a named profile of the shared AWS config.
func New(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (*Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.ConnectionID != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.ConnectionID))
	}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewWithClient(client, logger), nil
}

// NewWithClient creates a Store using an existing client.
func NewWithClient(client PutObjectAPI, logger zerolog.Logger) *Store {
	return &Store{
		client: client,
		logger: logger.With().Str("component", "s3store").Logger(),
	}
}

// Name returns the backend identifier.
func (s *Store) Name() string {
	return BackendName
}

// Put uploads the object.
func (s *Store) Put(ctx context.Context, obj storage.Object) error {
	contentType := obj.ContentType
	if contentType == "" {
		contentType = storage.ContentTypeJSON
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(obj.Bucket),
		Key:           aws.String(obj.Key),
		Body:          bytes.NewReader(obj.Body),
		ContentLength: aws.Int64(int64(len(obj.Body))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("putting s3://%s/%s: %w", obj.Bucket, obj.Key, err)
	}

	s.logger.Debug().
		Str("bucket", obj.Bucket).
		Str("key", obj.Key).
		Int("bytes", len(obj.Body)).
		Msg("stored object")

	return nil
}
