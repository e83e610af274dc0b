// Package output provides JSONL output for listings and delete outcomes.
//
// Output is structured as typed record envelopes. Each line is a
// self-contained JSON object that can be parsed independently.
package output

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/3leaps/bucketdeck/pkg/provider"
)

// Record type constants follow the pattern bucketdeck.<type>.v<version>.
const (
	// TypeObject identifies object listing records.
	TypeObject = "bucketdeck.object.v1"

	// TypeError identifies error records.
	TypeError = "bucketdeck.error.v1"

	// TypeSummary identifies listing summary records.
	TypeSummary = "bucketdeck.summary.v1"

	// TypeNotification identifies operation outcome records.
	TypeNotification = "bucketdeck.notification.v1"
)

// Record is the envelope for all JSONL output.
type Record struct {
	// Type identifies the record type (e.g., "bucketdeck.object.v1").
	Type string `json:"type"`

	// TS is the timestamp when the record was created.
	TS time.Time `json:"ts"`

	// SessionID correlates every record written by one invocation.
	SessionID string `json:"session_id"`

	// Provider identifies the storage provider (e.g., "s3", "minio").
	Provider string `json:"provider"`

	// Data contains the type-specific payload as raw JSON.
	Data json.RawMessage `json:"data"`
}

// ObjectRecord is the data payload for one listed object.
type ObjectRecord struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	URL          string    `json:"url"`
	IsImage      bool      `json:"is_image"`
}

// ObjectFromDescriptor converts a listed object to its record payload.
func ObjectFromDescriptor(d provider.ObjectDescriptor) *ObjectRecord {
	return &ObjectRecord{
		Key:          d.Key,
		Size:         d.Size,
		LastModified: d.LastModified,
		URL:          d.URL,
		IsImage:      d.IsImage,
	}
}

// ErrorRecord is the data payload for errors.
type ErrorRecord struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Key is the object key related to this error, if applicable.
	Key string `json:"key,omitempty"`

	// Details contains additional error context.
	Details any `json:"details,omitempty"`
}

// Error codes for ErrorRecord.
const (
	ErrCodeAccessDenied       = "ACCESS_DENIED"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeBucketNotFound     = "BUCKET_NOT_FOUND"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUnavailable        = "PROVIDER_UNAVAILABLE"
	ErrCodeThrottled          = "THROTTLED"
	ErrCodeTimeout            = "TIMEOUT"
	ErrCodeUnsupported        = "UNSUPPORTED"
	ErrCodeInvalidConfig      = "INVALID_CONFIG"
	ErrCodeInternal           = "INTERNAL"
)

// ErrorCode classifies err into one of the ErrCode constants.
func ErrorCode(err error) string {
	var cfgErr *provider.ConfigError
	switch {
	case provider.IsAccessDenied(err):
		return ErrCodeAccessDenied
	case provider.IsBucketNotFound(err):
		return ErrCodeBucketNotFound
	case provider.IsNotFound(err):
		return ErrCodeNotFound
	case provider.IsInvalidCredentials(err):
		return ErrCodeInvalidCredentials
	case provider.IsProviderUnavailable(err):
		return ErrCodeUnavailable
	case provider.IsThrottled(err):
		return ErrCodeThrottled
	case provider.IsUnsupported(err):
		return ErrCodeUnsupported
	case errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	case errors.As(err, &cfgErr):
		return ErrCodeInvalidConfig
	default:
		return ErrCodeInternal
	}
}

// ErrorFrom builds an ErrorRecord for err.
func ErrorFrom(err error, key string) *ErrorRecord {
	return &ErrorRecord{Code: ErrorCode(err), Message: err.Error(), Key: key}
}

// SummaryRecord is the data payload emitted after a listing.
type SummaryRecord struct {
	// Bucket is the bucket or base directory listed.
	Bucket string `json:"bucket,omitempty"`

	// Prefix is the listing prefix.
	Prefix string `json:"prefix,omitempty"`

	// ObjectsListed is the number of objects the provider returned.
	ObjectsListed int64 `json:"objects_listed"`

	// ObjectsShown is the number of objects left after view filters.
	ObjectsShown int64 `json:"objects_shown"`

	// Images is the number of shown objects flagged as images.
	Images int64 `json:"images"`

	// BytesTotal is the cumulative size of shown objects.
	BytesTotal int64 `json:"bytes_total"`

	// Duration is the listing duration.
	Duration time.Duration `json:"duration_ns"`

	// DurationHuman is a human-readable duration string.
	DurationHuman string `json:"duration"`
}

// NotificationRecord is the data payload for an operation outcome.
type NotificationRecord struct {
	// Kind is "success" or "failure".
	Kind string `json:"kind"`

	// Op is the operation ("configure", "list", "delete").
	Op string `json:"op"`

	Key     string `json:"key,omitempty"`
	Message string `json:"message"`

	// Code and Error are set for failures.
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

// Writer errors.
var (
	// ErrWriterClosed is returned when writing to a closed writer.
	ErrWriterClosed = errors.New("writer is closed")
)

// WriteError wraps errors that occur during write operations.
type WriteError struct {
	Op  string // Operation that failed (e.g., "marshal_data", "write")
	Err error  // Underlying error
}

func (e *WriteError) Error() string {
	return "output: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
