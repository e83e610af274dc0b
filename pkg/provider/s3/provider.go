package s3

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/3leaps/bucketdeck/pkg/provider"
	"github.com/3leaps/bucketdeck/pkg/publicurl"
)

// API is the subset of the S3 client used by Provider.
type API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Provider implements provider.Provider for AWS S3 and S3-compatible storage.
//
// The SDK client is built on first use; New only binds configuration.
type Provider struct {
	cfg      Config
	resolver publicurl.Resolver
	maxKeys  int

	mu     sync.Mutex
	client API
}

// Ensure Provider implements the interfaces.
var (
	_ provider.Provider    = (*Provider)(nil)
	_ provider.URLResolver = (*Provider)(nil)
	_ provider.Describer   = (*Provider)(nil)
)

// New creates a new S3 provider with the given configuration.
//
// No network calls or credential lookups happen here.
func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	maxKeys := cfg.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}

	return &Provider{
		cfg:      cfg,
		resolver: publicurl.New(cfg.Domains...),
		maxKeys:  clampMaxKeys(maxKeys, DefaultMaxKeys),
	}, nil
}

// NewWithClient creates a provider around an existing client.
func NewWithClient(cfg Config, client API) (*Provider, error) {
	p, err := New(cfg)
	if err != nil {
		return nil, err
	}
	p.client = client
	return p, nil
}

// getClient returns the SDK client, building it on first use. A failed build
// is not cached so a later call can succeed once the environment is fixed.
func (p *Provider) getClient(ctx context.Context) (API, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}

	awsCfg, err := loadAWSConfig(ctx, p.cfg)
	if err != nil {
		return nil, err
	}

	usePathStyle := p.usePathStyle()
	s3Opts := []func(*s3.Options){
		func(o *s3.Options) {
			o.UsePathStyle = usePathStyle
		},
	}

	// Custom endpoint for S3-compatible stores
	if p.cfg.Endpoint != "" {
		endpoint := sdkEndpoint(p.cfg.Endpoint)
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}

	p.client = s3.NewFromConfig(awsCfg, s3Opts...)
	return p.client, nil
}

// usePathStyle decides SDK addressing. An explicit setting wins; otherwise
// custom endpoints outside the virtual-hosted allow-list use path style.
func (p *Provider) usePathStyle() bool {
	if p.cfg.ForcePathStyle != nil {
		return *p.cfg.ForcePathStyle
	}
	if p.cfg.Endpoint == "" {
		return false
	}
	return !p.resolver.VirtualHosted(p.cfg.Endpoint)
}

// loadAWSConfig builds the AWS configuration with appropriate credentials.
func loadAWSConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error

	// Only apply explicit region if user set one in config.
	// Let SDK resolve from env/profile first.
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		staticCreds := credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"", // session token (empty for long-term credentials)
		)
		opts = append(opts, config.WithCredentialsProvider(staticCreds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}

	awsCfg.Region = resolveRegion(cfg.Region, cfg.Endpoint, awsCfg.Region)

	return awsCfg, nil
}

// List returns every object under the configured prefix, newest first.
func (p *Provider) List(ctx context.Context) ([]provider.ObjectDescriptor, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return nil, p.wrapError("List", "", err)
	}

	prefix := provider.NormalizePrefix(p.cfg.Path)
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(p.cfg.Bucket),
		MaxKeys: aws.Int32(int32(p.maxKeys)),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var entries []provider.ObjectSummary
	pages := s3.NewListObjectsV2Paginator(client, input)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, p.wrapError("List", "", err)
		}
		for _, obj := range page.Contents {
			entries = append(entries, provider.ObjectSummary{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}

	return provider.BuildListing(entries, prefix, p.URL), nil
}

// Delete removes one object. A missing key is treated as already deleted.
func (p *Provider) Delete(ctx context.Context, key string) error {
	client, err := p.getClient(ctx)
	if err != nil {
		return p.wrapError("Delete", key, err)
	}

	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		wrapped := p.wrapError("Delete", key, err)
		if provider.IsNotFound(wrapped) {
			return nil
		}
		return wrapped
	}
	return nil
}

// URL returns the public URL for key.
func (p *Provider) URL(key string) string {
	return p.resolver.Resolve(p.cfg.Endpoint, p.cfg.Bucket, key)
}

// Type reports the backend kind.
func (p *Provider) Type() provider.ProviderType { return provider.ProviderS3 }

// Bucket reports the bound bucket.
func (p *Provider) Bucket() string { return p.cfg.Bucket }

// Close releases any resources held by the provider.
// The S3 client doesn't require explicit cleanup.
func (p *Provider) Close() error {
	return nil
}

// wrapError converts S3 errors to provider errors with appropriate sentinel errors.
func (p *Provider) wrapError(op, key string, err error) error {
	wrapped := &provider.ProviderError{
		Op:       op,
		Provider: provider.ProviderS3,
		Bucket:   p.cfg.Bucket,
		Key:      key,
		Err:      err,
	}

	// Context errors pass through untouched so callers can tell cancellation apart.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return wrapped
	}

	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket

	switch {
	case errors.As(err, &notFound), errors.As(err, &noSuchKey):
		wrapped.Err = provider.ErrNotFound
		return wrapped
	case errors.As(err, &noSuchBucket):
		wrapped.Err = provider.ErrBucketNotFound
		return wrapped
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			wrapped.Err = provider.ErrNotFound
		case "NoSuchBucket":
			wrapped.Err = provider.ErrBucketNotFound
		case "AccessDenied", "Forbidden":
			wrapped.Err = provider.ErrAccessDenied
		case "InvalidAccessKeyId", "SignatureDoesNotMatch":
			wrapped.Err = provider.ErrInvalidCredentials
		case "SlowDown", "Throttling", "RequestLimitExceeded":
			wrapped.Err = provider.ErrThrottled
		case "ServiceUnavailable", "InternalError":
			wrapped.Err = provider.ErrProviderUnavailable
		}
		return wrapped
	}

	// Fallback: check error message for common cases
	errMsg := err.Error()
	switch {
	case strings.Contains(errMsg, "NoSuchBucket"):
		wrapped.Err = provider.ErrBucketNotFound
	case strings.Contains(errMsg, "NoSuchKey") || strings.Contains(errMsg, "404"):
		wrapped.Err = provider.ErrNotFound
	case strings.Contains(errMsg, "AccessDenied") || strings.Contains(errMsg, "Forbidden") || strings.Contains(errMsg, "403"):
		wrapped.Err = provider.ErrAccessDenied
	case strings.Contains(errMsg, "InvalidAccessKeyId") || strings.Contains(errMsg, "SignatureDoesNotMatch"):
		wrapped.Err = provider.ErrInvalidCredentials
	case strings.Contains(errMsg, "SlowDown") || strings.Contains(errMsg, "Throttling") || strings.Contains(errMsg, "429"):
		wrapped.Err = provider.ErrThrottled
	case strings.Contains(errMsg, "ServiceUnavailable") || strings.Contains(errMsg, "503"):
		wrapped.Err = provider.ErrProviderUnavailable
	}

	return wrapped
}

// sdkEndpoint adds an https scheme to bare host endpoints, which the SDK rejects.
func sdkEndpoint(endpoint string) string {
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	return "https://" + endpoint
}

// clampMaxKeys applies defaults and limits to maxKeys values.
func clampMaxKeys(requested, providerDefault int) int {
	if requested <= 0 {
		requested = providerDefault
	}
	if requested > MaxAllowedKeys {
		return MaxAllowedKeys
	}
	return requested
}

// resolveRegion determines the final region to use after SDK config loading.
//
// If the SDK resolved nothing and there is no custom endpoint, AWS S3 gets
// us-east-1. S3-compatible stores (endpoint set) get no default.
func resolveRegion(cfgRegion, endpoint, sdkRegion string) string {
	if sdkRegion != "" {
		return sdkRegion
	}
	if cfgRegion != "" {
		return cfgRegion
	}
	if endpoint == "" {
		return DefaultAWSRegion
	}
	return ""
}
