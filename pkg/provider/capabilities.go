package provider

// Optional provider capability interfaces.
//
// These interfaces are used for feature detection (type assertions). The core
// Provider interface remains intentionally small.

// URLResolver can compute the public URL of a key without a network call.
//
// Views use it to share a link for a key that is not (yet) in a listing.
type URLResolver interface {
	URL(key string) string
}

// Describer reports which backend and bucket a provider is bound to.
type Describer interface {
	Type() ProviderType
	Bucket() string
}
