package metrics

import (
	"context"
	"io"
	"time"

	"github.com/3leaps/bucketdeck/pkg/provider"
)

// InstrumentedProvider records operation counts and latencies for a provider.
type InstrumentedProvider struct {
	provider.Provider
	kind string
}

var (
	_ provider.Provider    = (*InstrumentedProvider)(nil)
	_ provider.URLResolver = (*InstrumentedProvider)(nil)
	_ provider.Describer   = (*InstrumentedProvider)(nil)
	_ io.Closer            = (*InstrumentedProvider)(nil)
)

// NewInstrumentedProvider wraps p, labelling its series with kind.
func NewInstrumentedProvider(p provider.Provider, kind provider.ProviderType) *InstrumentedProvider {
	return &InstrumentedProvider{Provider: p, kind: kind.String()}
}

// Wrap matches the factory wrapper signature.
func Wrap(p provider.Provider, cfg provider.StorageConfig) provider.Provider {
	return NewInstrumentedProvider(p, cfg.Type)
}

func (p *InstrumentedProvider) List(ctx context.Context) ([]provider.ObjectDescriptor, error) {
	start := time.Now()

	items, err := p.Provider.List(ctx)

	p.observe("list", start, err)
	if err == nil {
		ObjectsListed.WithLabelValues(p.kind).Set(float64(len(items)))
	}
	return items, err
}

func (p *InstrumentedProvider) Delete(ctx context.Context, key string) error {
	start := time.Now()

	err := p.Provider.Delete(ctx, key)

	p.observe("delete", start, err)
	return err
}

// URL forwards to the wrapped provider when it can resolve URLs.
func (p *InstrumentedProvider) URL(key string) string {
	if r, ok := p.Provider.(provider.URLResolver); ok {
		return r.URL(key)
	}
	return ""
}

// Type reports the wrapped backend kind.
func (p *InstrumentedProvider) Type() provider.ProviderType {
	if d, ok := p.Provider.(provider.Describer); ok {
		return d.Type()
	}
	return provider.ProviderType(p.kind)
}

// Bucket forwards to the wrapped provider when it is a Describer.
func (p *InstrumentedProvider) Bucket() string {
	if d, ok := p.Provider.(provider.Describer); ok {
		return d.Bucket()
	}
	return ""
}

// Close forwards to the wrapped provider when it is an io.Closer.
func (p *InstrumentedProvider) Close() error {
	if c, ok := p.Provider.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Unwrap returns the wrapped provider.
func (p *InstrumentedProvider) Unwrap() provider.Provider {
	return p.Provider
}

func (p *InstrumentedProvider) observe(op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	StorageOperationsTotal.WithLabelValues(p.kind, op, status).Inc()
	StorageOperationDuration.WithLabelValues(p.kind, op).Observe(time.Since(start).Seconds())
}
