// Package publicurl derives publicly reachable object URLs from an endpoint,
// bucket and key.
//
// The heuristic is best effort: it assumes public-read objects, performs no
// DNS validation and never signs URLs. Endpoints on an allow-listed managed
// cloud domain get virtual-hosted URLs (bucket as subdomain); any other
// endpoint with a scheme is assumed to be path-style (bucket as first path
// segment). Endpoints without a scheme are treated as virtual-hosted over
// https.
//
// Examples:
//
//	Resolve("https://s3.amazonaws.com", "b", "k.png")  -> "https://b.s3.amazonaws.com/k.png"
//	Resolve("https://minio.local:9000", "b", "k.png")  -> "https://minio.local:9000/b/k.png"
//	Resolve("cos.ap-shanghai.myqcloud.com", "b", "k")  -> "https://b.cos.ap-shanghai.myqcloud.com/k"
package publicurl

import (
	"strings"
)

const schemeSeparator = "://"

// DefaultDomains lists managed-cloud domains that serve virtual-hosted
// buckets: AWS S3 (global and China partitions) and Tencent Cloud COS.
var DefaultDomains = []string{"amazonaws.com", "amazonaws.com.cn", "myqcloud.com"}

// Resolver resolves object URLs using a configurable domain allow-list.
//
// The zero value uses DefaultDomains.
type Resolver struct {
	// Domains are matched against the endpoint host: a host matches when it
	// equals a domain or is a subdomain of it.
	Domains []string
}

// New creates a Resolver. With no domains, DefaultDomains is used.
func New(domains ...string) Resolver {
	return Resolver{Domains: domains}
}

// Resolve returns the public URL for key in bucket behind endpoint.
//
// No separators are stripped or added beyond the single "/" joins, so
// trailing slashes on endpoint are the caller's concern.
func (r Resolver) Resolve(endpoint, bucket, key string) string {
	return r.BaseURL(endpoint, bucket) + "/" + key
}

// BaseURL returns the URL prefix shared by every object in bucket.
func (r Resolver) BaseURL(endpoint, bucket string) string {
	protocol, domain, ok := strings.Cut(endpoint, schemeSeparator)
	if !ok {
		return "https://" + bucket + "." + endpoint
	}
	if r.matches(domain) {
		return protocol + schemeSeparator + bucket + "." + domain
	}
	return endpoint + "/" + bucket
}

// VirtualHosted reports whether endpoint resolves to virtual-hosted URLs.
func (r Resolver) VirtualHosted(endpoint string) bool {
	_, domain, ok := strings.Cut(endpoint, schemeSeparator)
	if !ok {
		return true
	}
	return r.matches(domain)
}

func (r Resolver) matches(domain string) bool {
	host := hostOf(domain)
	if host == "" {
		return false
	}
	domains := r.Domains
	if len(domains) == 0 {
		domains = DefaultDomains
	}
	for _, d := range domains {
		d = strings.ToLower(strings.Trim(strings.TrimSpace(d), "."))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// hostOf strips any path, userinfo and port from the part of an endpoint
// after the scheme separator.
func hostOf(domain string) string {
	if i := strings.IndexAny(domain, "/?#"); i >= 0 {
		domain = domain[:i]
	}
	if i := strings.LastIndex(domain, "@"); i >= 0 {
		domain = domain[i+1:]
	}
	if strings.HasPrefix(domain, "[") {
		// IPv6 literal, never a managed-cloud domain
		return ""
	}
	if i := strings.LastIndex(domain, ":"); i >= 0 {
		domain = domain[:i]
	}
	return strings.ToLower(domain)
}

var defaultResolver Resolver

// Resolve resolves a URL with the default domain allow-list.
func Resolve(endpoint, bucket, key string) string {
	return defaultResolver.Resolve(endpoint, bucket, key)
}
