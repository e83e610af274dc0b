// Package provider defines the provider-agnostic contract for browsing and
// deleting previously uploaded objects.
//
// A Provider is bound to a single StorageConfig: one bucket (or directory) and
// an optional key prefix. It exposes exactly two operations, List and Delete,
// and returns ObjectDescriptor values that already carry a publicly reachable
// URL so views never need to know which backend produced them.
package provider

import (
	"context"
	"time"
)

// Provider abstracts the list/delete surface of an object store.
//
// Implementations should:
//   - Perform no network I/O at construction time
//   - Return every object under the configured prefix from List (no partial results)
//   - Treat deleting a missing key as success
//   - Be safe for concurrent use
type Provider interface {
	// List returns all objects under the configured prefix, newest first.
	// Directory markers (keys ending in "/") are never returned.
	List(ctx context.Context) ([]ObjectDescriptor, error)

	// Delete removes the object identified by key.
	Delete(ctx context.Context, key string) error
}

// ObjectDescriptor describes one remote object as presented to views.
//
// Descriptors are produced fresh by every List call and are never mutated in
// place; an updated listing replaces the whole slice.
type ObjectDescriptor struct {
	// Key is the full object key in the bucket. Never empty.
	Key string `json:"key"`

	// LastModified is when the object was last modified.
	LastModified time.Time `json:"last_modified"`

	// Size is the object size in bytes.
	Size int64 `json:"size"`

	// URL is the resolved, absolute URL for the object.
	URL string `json:"url"`

	// IsImage reports whether the key carries a known image extension.
	IsImage bool `json:"is_image"`
}

// ObjectSummary is a raw listing entry as returned by a backend, before
// filtering and URL resolution.
type ObjectSummary struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ProviderType identifies a storage backend and is the discriminant of
// StorageConfig.
type ProviderType string

const (
	// ProviderS3 represents AWS S3 or S3-compatible storage via the AWS SDK.
	ProviderS3 ProviderType = "s3"

	// ProviderMinIO represents S3-compatible storage via the MinIO client.
	ProviderMinIO ProviderType = "minio"

	// ProviderFile represents a local directory acting as a bucket.
	ProviderFile ProviderType = "file"
)

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	return string(p)
}
