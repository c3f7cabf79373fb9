// Package storage defines the object store contract used to persist raw payloads.
package storage

import (
	"context"
)

// ContentTypeJSON is the content type of raw price payloads.
const ContentTypeJSON = "application/json"

// Object is a single blob handed to a Store.
type Object struct {
	Bucket      string
	Key         string
	ContentType string
	Body        []byte
}

// Store persists objects under a bucket and key.
type Store interface {
	// Name returns the backend identifier.
	Name() string

	// Put writes the object, replacing any existing object with the same key.
	Put(ctx context.Context, obj Object) error
}

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}
