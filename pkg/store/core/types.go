// Package core defines the artifact store abstraction shared by the storage
// drivers.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Driver identifies a storage backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"     // local directory (default)
	DriverS3         Driver = "s3"     // S3 / MinIO compatible
	DriverMemory     Driver = "memory" // process memory (tests, dry runs)
)

// ParseDriver validates a driver name; the empty string selects the filesystem.
func ParseDriver(s string) (Driver, error) {
	switch Driver(s) {
	case "", DriverFilesystem:
		return DriverFilesystem, nil
	case DriverS3, DriverMemory:
		return Driver(s), nil
	}
	return "", fmt.Errorf("unknown storage driver %q (want fs, s3 or memory)", s)
}

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string            // MIME type, optional
	Metadata    map[string]string // small flat key-value pairs, e.g. arm and project
}

// SignedURLOptions holds options for generating a download URL.
type SignedURLOptions struct {
	Expiry time.Duration // default 15m
}

// Info describes a stored artifact.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
	URL          string            `json:"url,omitempty"`
}

// Store is a flat key/value artifact store.
//
// Put replaces an existing artifact with the same key, so re-running a report
// refreshes its outputs. Get and Head return an error wrapping ErrNotFound for
// missing keys. Delete reports whether the key existed.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	PresignURL(ctx context.Context, key string, opts SignedURLOptions) (string, error)
	Driver() Driver
}

var (
	// ErrNotFound is wrapped by drivers when a key does not exist.
	ErrNotFound = errors.New("store: artifact not found")
	// ErrUnsupported is returned when a driver lacks an optional capability.
	ErrUnsupported = errors.New("store: unsupported operation")
)

// CloneMetadata returns a copy of m, or nil.
func CloneMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// DefaultExpiry is the lifetime of presigned URLs when none is given.
const DefaultExpiry = 15 * time.Minute
