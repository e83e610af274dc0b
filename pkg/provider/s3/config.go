// Package s3 implements the provider contract for AWS S3 and S3-compatible
// storage using the AWS SDK v2.
package s3

import (
	"github.com/3leaps/bucketdeck/pkg/provider"
)

// Config configures an S3 provider.
//
// Authentication priority (AWS SDK v2 default chain):
//  1. Explicit AccessKeyID/SecretAccessKey (if provided)
//  2. Environment variables (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY)
//  3. Shared credentials file (~/.aws/credentials), optionally via Profile
//  4. EC2 instance metadata / ECS task role / EKS IRSA
//
// For S3-compatible stores (Wasabi, MinIO, COS, R2) set Endpoint. Path-style
// addressing is chosen automatically for endpoints that are not on a
// virtual-hosted domain unless ForcePathStyle says otherwise.
type Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string

	// Region is the bucket region.
	// For AWS S3: defaults to us-east-1 if not specified via config or environment.
	// For S3-compatible (when Endpoint is set): no default applied.
	Region string

	// Endpoint is a custom endpoint for S3-compatible stores. A missing
	// scheme is treated as https.
	Endpoint string

	// Profile is the AWS profile name to use from shared config.
	Profile string

	// AccessKeyID is an explicit access key. If set, SecretAccessKey must also be set.
	AccessKeyID string

	// SecretAccessKey is an explicit secret key. Required if AccessKeyID is set.
	SecretAccessKey string

	// Path is the optional key prefix listed by List.
	Path string

	// ForcePathStyle overrides the addressing heuristic when non-nil.
	ForcePathStyle *bool

	// Domains is the virtual-hosted domain allow-list for URL resolution.
	// Empty uses publicurl.DefaultDomains.
	Domains []string

	// MaxKeys is the page size for ListObjectsV2.
	// Zero uses the provider default (1000). Values over 1000 are clamped.
	MaxKeys int
}

// DefaultMaxKeys is the default page size for List operations.
const DefaultMaxKeys = 1000

// MaxAllowedKeys is the maximum page size allowed by S3.
const MaxAllowedKeys = 1000

// DefaultAWSRegion is the fallback region for AWS S3 when not specified.
const DefaultAWSRegion = "us-east-1"

// ConfigFrom builds a Config from a StorageConfig.
func ConfigFrom(sc provider.StorageConfig, domains []string) Config {
	return Config{
		Bucket:          sc.Bucket,
		Region:          sc.Region,
		Endpoint:        sc.Endpoint,
		Profile:         sc.Profile,
		AccessKeyID:     sc.AccessKeyID,
		SecretAccessKey: sc.SecretAccessKey,
		Path:            sc.Path,
		ForcePathStyle:  sc.ForcePathStyle,
		Domains:         domains,
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return &provider.ConfigError{Type: provider.ProviderS3, Field: "Bucket", Message: "bucket name is required"}
	}

	// If one explicit credential is set, both must be set
	if (c.AccessKeyID != "") != (c.SecretAccessKey != "") {
		return &provider.ConfigError{
			Type:    provider.ProviderS3,
			Field:   "AccessKeyID/SecretAccessKey",
			Message: "both access key ID and secret access key must be provided together",
		}
	}

	return nil
}
