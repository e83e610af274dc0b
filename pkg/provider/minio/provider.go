package minio

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/3leaps/bucketdeck/pkg/provider"
	"github.com/3leaps/bucketdeck/pkg/publicurl"
)

// API is the subset of *minio.Client used by Provider.
type API interface {
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	RemoveObject(ctx context.Context, bucket, key string, opts minio.RemoveObjectOptions) error
}

// Provider implements provider.Provider on top of minio-go.
type Provider struct {
	cfg      Config
	client   API
	resolver publicurl.Resolver
	baseURL  string
}

var (
	_ provider.Provider    = (*Provider)(nil)
	_ provider.URLResolver = (*Provider)(nil)
	_ provider.Describer   = (*Provider)(nil)
	_ API                  = (*minio.Client)(nil)
)

// New creates a MinIO provider. minio.New only parses options, so no
// request is sent until List or Delete.
func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	host, secure := splitEndpoint(cfg.Endpoint)
	opts := &minio.Options{
		Secure: secure,
		Region: cfg.Region,
	}
	if cfg.AccessKeyID != "" {
		opts.Creds = credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	} else {
		opts.Creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvMinio{},
			&credentials.EnvAWS{},
		})
	}

	client, err := minio.New(host, opts)
	if err != nil {
		return nil, &provider.ProviderError{
			Op:       "New",
			Provider: provider.ProviderMinIO,
			Bucket:   cfg.Bucket,
			Err:      fmt.Errorf("create minio client: %w", err),
		}
	}

	return NewWithClient(cfg, client)
}

// NewWithClient creates a provider around an existing client.
func NewWithClient(cfg Config, client API) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	host, secure := splitEndpoint(cfg.Endpoint)
	scheme := "https://"
	if !secure {
		scheme = "http://"
	}

	return &Provider{
		cfg:      cfg,
		client:   client,
		resolver: publicurl.New(cfg.Domains...),
		baseURL:  scheme + host,
	}, nil
}

// List returns every object under the configured prefix, newest first.
func (p *Provider) List(ctx context.Context) ([]provider.ObjectDescriptor, error) {
	// Cancelling stops the client's listing goroutine if we return early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prefix := provider.NormalizePrefix(p.cfg.Path)
	var entries []provider.ObjectSummary
	for obj := range p.client.ListObjects(ctx, p.cfg.Bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, p.wrapError("List", "", obj.Err)
		}
		entries = append(entries, provider.ObjectSummary{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, p.wrapError("List", "", err)
	}

	return provider.BuildListing(entries, prefix, p.URL), nil
}

// Delete removes one object. A missing key is treated as already deleted.
func (p *Provider) Delete(ctx context.Context, key string) error {
	err := p.client.RemoveObject(ctx, p.cfg.Bucket, key, minio.RemoveObjectOptions{})
	if err == nil {
		return nil
	}
	wrapped := p.wrapError("Delete", key, err)
	if provider.IsNotFound(wrapped) {
		return nil
	}
	return wrapped
}

// URL returns the public URL for key.
func (p *Provider) URL(key string) string {
	return p.resolver.Resolve(p.baseURL, p.cfg.Bucket, key)
}

// Type reports the backend kind.
func (p *Provider) Type() provider.ProviderType { return provider.ProviderMinIO }

// Bucket reports the bound bucket.
func (p *Provider) Bucket() string { return p.cfg.Bucket }

// Close releases any resources held by the provider.
func (p *Provider) Close() error {
	return nil
}

// wrapError converts minio errors to provider errors with sentinel errors.
func (p *Provider) wrapError(op, key string, err error) error {
	wrapped := &provider.ProviderError{
		Op:       op,
		Provider: provider.ProviderMinIO,
		Bucket:   p.cfg.Bucket,
		Key:      key,
		Err:      err,
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return wrapped
	}

	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NotFound":
		wrapped.Err = provider.ErrNotFound
		return wrapped
	case "NoSuchBucket":
		wrapped.Err = provider.ErrBucketNotFound
		return wrapped
	case "AccessDenied", "Forbidden":
		wrapped.Err = provider.ErrAccessDenied
		return wrapped
	case "InvalidAccessKeyId", "SignatureDoesNotMatch":
		wrapped.Err = provider.ErrInvalidCredentials
		return wrapped
	case "SlowDown", "SlowDownRead", "SlowDownWrite", "RequestLimitExceeded":
		wrapped.Err = provider.ErrThrottled
		return wrapped
	case "ServiceUnavailable", "InternalError", "XMinioServerNotInitialized":
		wrapped.Err = provider.ErrProviderUnavailable
		return wrapped
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		wrapped.Err = provider.ErrNotFound
	case http.StatusForbidden:
		wrapped.Err = provider.ErrAccessDenied
	case http.StatusTooManyRequests:
		wrapped.Err = provider.ErrThrottled
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		wrapped.Err = provider.ErrProviderUnavailable
	}
	return wrapped
}
