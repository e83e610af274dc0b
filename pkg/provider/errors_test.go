package provider

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ProviderError
		expected string
	}{
		{
			name: "with key",
			err: &ProviderError{
				Op:       "Delete",
				Provider: ProviderS3,
				Bucket:   "my-bucket",
				Key:      "path/to/file.txt",
				Err:      ErrAccessDenied,
			},
			expected: "s3 Delete: my-bucket/path/to/file.txt: access denied",
		},
		{
			name: "without key",
			err: &ProviderError{
				Op:       "List",
				Provider: ProviderMinIO,
				Bucket:   "my-bucket",
				Err:      ErrBucketNotFound,
			},
			expected: "minio List: my-bucket: bucket not found",
		},
		{
			name: "without bucket",
			err: &ProviderError{
				Op:       "New",
				Provider: ProviderFile,
				Err:      errors.New("base dir is required"),
			},
			expected: "file New: base dir is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestErrorHelpers(t *testing.T) {
	wrap := func(err error) error {
		return fmt.Errorf("outer: %w", &ProviderError{Op: "List", Provider: ProviderS3, Err: err})
	}

	assert.True(t, IsNotFound(wrap(ErrNotFound)))
	assert.True(t, IsAccessDenied(wrap(ErrAccessDenied)))
	assert.True(t, IsBucketNotFound(wrap(ErrBucketNotFound)))
	assert.True(t, IsInvalidCredentials(wrap(ErrInvalidCredentials)))
	assert.True(t, IsProviderUnavailable(wrap(ErrProviderUnavailable)))
	assert.True(t, IsThrottled(wrap(ErrThrottled)))
	assert.True(t, IsUnsupported(fmt.Errorf("type %q: %w", "ftp", ErrUnsupported)))

	assert.False(t, IsNotFound(wrap(ErrAccessDenied)))
	assert.False(t, IsUnsupported(nil))
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Type: ProviderS3, Field: "Bucket", Message: "bucket name is required"}
	assert.Equal(t, "s3 config: Bucket: bucket name is required", err.Error())
}
