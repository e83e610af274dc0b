// Package file implements the provider contract on a local directory.
//
// BaseDir plays the role of the bucket and slash-separated paths relative to
// it are the object keys. It is useful for development and for views pointed
// at a mounted share.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/3leaps/bucketdeck/pkg/provider"
)

// errInvalidKey reports a key that would resolve outside BaseDir.
var errInvalidKey = errors.New("invalid key path")

// Provider implements provider.Provider for a local directory.
type Provider struct {
	baseDir string
	prefix  string
}

var (
	_ provider.Provider    = (*Provider)(nil)
	_ provider.URLResolver = (*Provider)(nil)
	_ provider.Describer   = (*Provider)(nil)
)

type Config struct {
	BaseDir string
	Path    string
}

// ConfigFrom builds a Config from a StorageConfig.
func ConfigFrom(sc provider.StorageConfig) Config {
	return Config{BaseDir: sc.BaseDir, Path: sc.Path}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseDir) == "" {
		return &provider.ConfigError{Type: provider.ProviderFile, Field: "BaseDir", Message: "base dir is required"}
	}
	return nil
}

// New binds the provider to BaseDir. The directory is not touched until List.
func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := filepath.Abs(filepath.Clean(cfg.BaseDir))
	if err != nil {
		return nil, &provider.ProviderError{Op: "New", Provider: provider.ProviderFile, Err: err}
	}
	return &Provider{
		baseDir: base,
		prefix:  provider.NormalizePrefix(strings.TrimPrefix(cfg.Path, "/")),
	}, nil
}

func (p *Provider) Close() error { return nil }

func (p *Provider) Type() provider.ProviderType { return provider.ProviderFile }

// Bucket returns the absolute base directory.
func (p *Provider) Bucket() string { return p.baseDir }

// List walks the prefix directory and returns every regular file, newest first.
// A missing prefix directory yields an empty listing. Any unreadable entry
// below it fails the whole listing.
func (p *Provider) List(ctx context.Context) ([]provider.ObjectDescriptor, error) {
	root, err := p.fullPath(p.prefix)
	if err != nil {
		return nil, p.wrapError("List", "", err)
	}
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return []provider.ObjectDescriptor{}, nil
		}
		return nil, p.wrapError("List", "", err)
	}

	var entries []provider.ObjectSummary
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(p.baseDir, path)
		if err != nil {
			return err
		}
		entries = append(entries, provider.ObjectSummary{
			Key:          filepath.ToSlash(rel),
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, p.wrapError("List", "", err)
	}

	return provider.BuildListing(entries, p.prefix, p.URL), nil
}

// Delete removes the file at key. A missing file is treated as already deleted.
func (p *Provider) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return p.wrapError("Delete", key, err)
	}
	full, err := p.fullPath(key)
	if err != nil {
		return p.wrapError("Delete", key, err)
	}
	st, err := os.Lstat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return p.wrapError("Delete", key, err)
	}
	if st.IsDir() {
		return p.wrapError("Delete", key, fmt.Errorf("%q is a directory", key))
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return p.wrapError("Delete", key, err)
	}
	return nil
}

// URL returns a file:// URL for key.
func (p *Provider) URL(key string) string {
	full, err := p.fullPath(key)
	if err != nil {
		return ""
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(full)}
	return u.String()
}

func (p *Provider) fullPath(key string) (string, error) {
	key = strings.TrimSpace(key)
	key = strings.TrimPrefix(key, "/")
	// Prevent path traversal.
	clean := filepath.Clean("/" + key)
	clean = strings.TrimPrefix(clean, "/")
	if clean == ".." || strings.HasPrefix(clean, "../") || strings.Contains(key, "\x00") {
		return "", errInvalidKey
	}
	if key != "" && clean != strings.TrimSuffix(key, "/") {
		// "a/../../b" cleans to "b" but was not meant to address it.
		return "", errInvalidKey
	}
	return filepath.Join(p.baseDir, filepath.FromSlash(clean)), nil
}

func (p *Provider) wrapError(op, key string, err error) error {
	wrapped := &provider.ProviderError{Op: op, Provider: provider.ProviderFile, Bucket: p.baseDir, Key: key, Err: err}
	switch {
	case errors.Is(err, errInvalidKey):
		wrapped.Err = fmt.Errorf("%w: %w", provider.ErrAccessDenied, err)
	case os.IsNotExist(err):
		wrapped.Err = provider.ErrNotFound
	case os.IsPermission(err):
		wrapped.Err = provider.ErrAccessDenied
	}
	return wrapped
}
