package match

import (
	"github.com/3leaps/bucketdeck/pkg/provider"
)

// Selector combines key patterns and attribute filters.
type Selector struct {
	matcher *Matcher
	filter  *Criteria
}

// SelectorConfig configures a Selector.
type SelectorConfig struct {
	Patterns Config
	Filters  FilterConfig
}

// NewSelector compiles patterns and filters.
func NewSelector(cfg SelectorConfig) (*Selector, error) {
	m, err := New(cfg.Patterns)
	if err != nil {
		return nil, err
	}
	f, err := Compile(cfg.Filters)
	if err != nil {
		return nil, err
	}
	return &Selector{matcher: m, filter: f}, nil
}

// Match reports whether obj passes both patterns and filters.
func (s *Selector) Match(obj *provider.ObjectDescriptor) bool {
	if !s.matcher.Match(obj.Key) {
		return false
	}
	return s.filter.Keep(obj)
}

// Apply returns the items that pass, preserving order. items is not modified.
func (s *Selector) Apply(items []provider.ObjectDescriptor) []provider.ObjectDescriptor {
	out := make([]provider.ObjectDescriptor, 0, len(items))
	for i := range items {
		if s.Match(&items[i]) {
			out = append(out, items[i])
		}
	}
	return out
}

// String describes the active filters.
func (s *Selector) String() string {
	return s.filter.String()
}
