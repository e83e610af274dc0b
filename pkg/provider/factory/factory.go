// Package factory resolves a provider.Provider from a provider.StorageConfig.
//
// Resolution is pure dispatch on StorageConfig.Type: no network I/O happens
// here, and a type without a registered builder yields provider.ErrUnsupported,
// meaning management is unavailable for that destination.
package factory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/3leaps/bucketdeck/pkg/provider"
	"github.com/3leaps/bucketdeck/pkg/provider/file"
	"github.com/3leaps/bucketdeck/pkg/provider/minio"
	"github.com/3leaps/bucketdeck/pkg/provider/s3"
)

// Builder constructs a provider for one StorageConfig variant.
type Builder func(cfg provider.StorageConfig, opts Options) (provider.Provider, error)

// Wrapper decorates every provider the factory returns.
type Wrapper func(p provider.Provider, cfg provider.StorageConfig) provider.Provider

// Options tune provider construction.
type Options struct {
	// Domains is the virtual-hosted domain allow-list for URL resolution.
	Domains []string

	// Wrappers are applied in order to each resolved provider.
	Wrappers []Wrapper
}

// Option configures a Factory.
type Option func(*Options)

// WithDomains sets the virtual-hosted domain allow-list.
func WithDomains(domains ...string) Option {
	return func(o *Options) { o.Domains = domains }
}

// WithWrapper adds a provider decorator.
func WithWrapper(w Wrapper) Option {
	return func(o *Options) { o.Wrappers = append(o.Wrappers, w) }
}

// Factory maps provider types to builders.
type Factory struct {
	opts Options

	mu       sync.RWMutex
	builders map[provider.ProviderType]Builder
}

// New returns a Factory with the s3, minio and file builders registered.
func New(opts ...Option) *Factory {
	f := &Factory{builders: make(map[provider.ProviderType]Builder)}
	for _, opt := range opts {
		opt(&f.opts)
	}
	f.Register(provider.ProviderS3, buildS3)
	f.Register(provider.ProviderMinIO, buildMinIO)
	f.Register(provider.ProviderFile, buildFile)
	return f
}

// Register installs or replaces the builder for t.
func (f *Factory) Register(t provider.ProviderType, b Builder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[t] = b
}

// Types returns the registered provider types in sorted order.
func (f *Factory) Types() []provider.ProviderType {
	f.mu.RLock()
	defer f.mu.RUnlock()
	types := make([]provider.ProviderType, 0, len(f.builders))
	for t := range f.builders {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Create resolves the provider for cfg.
//
// An unknown type returns an error matching provider.ErrUnsupported. Errors
// from a known builder, such as a missing bucket, are returned as is.
func (f *Factory) Create(cfg provider.StorageConfig) (provider.Provider, error) {
	cfg = cfg.Normalized()

	f.mu.RLock()
	build, ok := f.builders[cfg.Type]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage type %q: %w", cfg.Type, provider.ErrUnsupported)
	}

	p, err := build(cfg, f.opts)
	if err != nil {
		return nil, err
	}
	for _, w := range f.opts.Wrappers {
		p = w(p, cfg)
	}
	return p, nil
}

var defaultFactory = New()

// Create resolves cfg with the default factory.
func Create(cfg provider.StorageConfig) (provider.Provider, error) {
	return defaultFactory.Create(cfg)
}

func buildS3(cfg provider.StorageConfig, opts Options) (provider.Provider, error) {
	return s3.New(s3.ConfigFrom(cfg, opts.Domains))
}

func buildMinIO(cfg provider.StorageConfig, opts Options) (provider.Provider, error) {
	return minio.New(minio.ConfigFrom(cfg, opts.Domains))
}

func buildFile(cfg provider.StorageConfig, _ Options) (provider.Provider, error) {
	return file.New(file.ConfigFrom(cfg))
}
