package provider

import "strings"

// StorageConfig describes one storage destination.
//
// It is a tagged union keyed by Type. The s3 and minio variants use the
// bucket/endpoint/credential fields; the file variant uses BaseDir. Path is an
// optional key prefix shared by all variants.
//
// StorageConfig is passed by value and treated as immutable: a changed value
// means a new provider must be resolved.
type StorageConfig struct {
	// Name is a display label, typically the profile name.
	Name string `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`

	// Type selects the provider implementation.
	Type ProviderType `json:"type" yaml:"type" mapstructure:"type"`

	// Region is the bucket region.
	Region string `json:"region,omitempty" yaml:"region,omitempty" mapstructure:"region"`

	// Endpoint is the service endpoint, with or without scheme.
	// Examples: "https://s3.amazonaws.com", "http://localhost:9000", "cos.ap-shanghai.myqcloud.com".
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" mapstructure:"endpoint"`

	// AccessKeyID is the static access key.
	AccessKeyID string `json:"access_key_id,omitempty" yaml:"access_key_id,omitempty" mapstructure:"access_key_id"`

	// SecretAccessKey is the static secret key.
	SecretAccessKey string `json:"secret_access_key,omitempty" yaml:"secret_access_key,omitempty" mapstructure:"secret_access_key"`

	// Bucket is the bucket name.
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty" mapstructure:"bucket"`

	// Path is an optional key prefix. A trailing "/" is added when missing.
	Path string `json:"path,omitempty" yaml:"path,omitempty" mapstructure:"path"`

	// Profile is the shared AWS profile (s3 only). Used when no static keys are set.
	Profile string `json:"profile,omitempty" yaml:"profile,omitempty" mapstructure:"profile"`

	// ForcePathStyle overrides the SDK addressing style (s3 only).
	// When nil, path style is used for endpoints the URL heuristic treats as path-style.
	ForcePathStyle *bool `json:"force_path_style,omitempty" yaml:"force_path_style,omitempty" mapstructure:"force_path_style"`

	// BaseDir is the local directory acting as the bucket (file only).
	BaseDir string `json:"base_dir,omitempty" yaml:"base_dir,omitempty" mapstructure:"base_dir"`
}

// Prefix returns the listing prefix derived from Path.
func (c StorageConfig) Prefix() string {
	return NormalizePrefix(c.Path)
}

// Normalized returns a copy with the discriminant lower-cased and
// surrounding whitespace trimmed from string fields.
func (c StorageConfig) Normalized() StorageConfig {
	c.Name = strings.TrimSpace(c.Name)
	c.Type = ProviderType(strings.ToLower(strings.TrimSpace(string(c.Type))))
	c.Region = strings.TrimSpace(c.Region)
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	c.Bucket = strings.TrimSpace(c.Bucket)
	c.Path = strings.TrimSpace(c.Path)
	c.BaseDir = strings.TrimSpace(c.BaseDir)
	return c
}

// Redacted returns a copy safe for logging and display.
func (c StorageConfig) Redacted() StorageConfig {
	if c.AccessKeyID != "" {
		c.AccessKeyID = redact(c.AccessKeyID)
	}
	if c.SecretAccessKey != "" {
		c.SecretAccessKey = "****"
	}
	return c
}

func redact(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}
