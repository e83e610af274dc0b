// Package minio implements the provider contract for S3-compatible storage
// using the MinIO client.
package minio

import (
	"strings"

	"github.com/3leaps/bucketdeck/pkg/provider"
)

// Config configures a MinIO provider.
type Config struct {
	// Bucket is the bucket name (required).
	Bucket string

	// Endpoint is the server address (required). The scheme selects TLS:
	// "http://" disables it, "https://" or no scheme enables it.
	Endpoint string

	// Region is passed to the client; empty lets the server decide.
	Region string

	// AccessKeyID and SecretAccessKey are static credentials. Both or neither.
	AccessKeyID     string
	SecretAccessKey string

	// Path is the optional key prefix listed by List.
	Path string

	// Domains is the virtual-hosted domain allow-list for URL resolution.
	Domains []string
}

// ConfigFrom builds a Config from a StorageConfig.
func ConfigFrom(sc provider.StorageConfig, domains []string) Config {
	return Config{
		Bucket:          sc.Bucket,
		Endpoint:        sc.Endpoint,
		Region:          sc.Region,
		AccessKeyID:     sc.AccessKeyID,
		SecretAccessKey: sc.SecretAccessKey,
		Path:            sc.Path,
		Domains:         domains,
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return &provider.ConfigError{Type: provider.ProviderMinIO, Field: "Bucket", Message: "bucket name is required"}
	}
	if host, _ := splitEndpoint(c.Endpoint); host == "" {
		return &provider.ConfigError{Type: provider.ProviderMinIO, Field: "Endpoint", Message: "endpoint is required"}
	}
	if (c.AccessKeyID != "") != (c.SecretAccessKey != "") {
		return &provider.ConfigError{
			Type:    provider.ProviderMinIO,
			Field:   "AccessKeyID/SecretAccessKey",
			Message: "both access key ID and secret access key must be provided together",
		}
	}
	return nil
}

// splitEndpoint returns the host[:port] the client dials and whether TLS is on.
func splitEndpoint(endpoint string) (host string, secure bool) {
	endpoint = strings.TrimSpace(endpoint)
	switch {
	case strings.HasPrefix(endpoint, "http://"):
		host, secure = strings.TrimPrefix(endpoint, "http://"), false
	case strings.HasPrefix(endpoint, "https://"):
		host, secure = strings.TrimPrefix(endpoint, "https://"), true
	default:
		host, secure = endpoint, true
	}
	return strings.TrimRight(host, "/"), secure
}
