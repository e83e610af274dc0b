package cmd

import (
	"github.com/spf13/cobra"

	"github.com/3leaps/bucketdeck/pkg/match"
)

// selectorFlags are the listing filter flags shared by list and delete.
type selectorFlags struct {
	includes      []string
	excludes      []string
	excludeHidden bool
	imagesOnly    bool
	minSize       string
	maxSize       string
	after         string
	before        string
	keyRegex      string
}

func (s *selectorFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringArrayVar(&s.includes, "include", nil, "Include glob pattern (repeatable)")
	f.StringArrayVar(&s.excludes, "exclude", nil, "Exclude glob pattern (repeatable)")
	f.BoolVar(&s.excludeHidden, "exclude-hidden", false, "Skip keys with a path segment starting with '.'")
	f.BoolVar(&s.imagesOnly, "images", false, "Only image objects")
	f.StringVar(&s.minSize, "min-size", "", "Minimum object size (e.g. 1KB, 10MiB)")
	f.StringVar(&s.maxSize, "max-size", "", "Maximum object size")
	f.StringVar(&s.after, "after", "", "Modified at or after (RFC3339 or YYYY-MM-DD)")
	f.StringVar(&s.before, "before", "", "Modified before (RFC3339 or YYYY-MM-DD)")
	f.StringVar(&s.keyRegex, "key-regex", "", "Regular expression keys must match")
}

func (s *selectorFlags) selector() (*match.Selector, error) {
	cfg := match.SelectorConfig{
		Patterns: match.Config{
			Includes:      s.includes,
			Excludes:      s.excludes,
			IncludeHidden: !s.excludeHidden,
		},
		Filters: match.FilterConfig{
			KeyRegex:   s.keyRegex,
			ImagesOnly: s.imagesOnly,
		},
	}
	if s.minSize != "" || s.maxSize != "" {
		cfg.Filters.Size = &match.SizeFilterConfig{Min: s.minSize, Max: s.maxSize}
	}
	if s.after != "" || s.before != "" {
		cfg.Filters.Modified = &match.DateFilterConfig{After: s.after, Before: s.before}
	}
	return match.NewSelector(cfg)
}

// narrowed reports whether any filter flag was given.
func (s *selectorFlags) narrowed() bool {
	return len(s.includes) > 0 || len(s.excludes) > 0 || s.excludeHidden || s.imagesOnly ||
		s.minSize != "" || s.maxSize != "" || s.after != "" || s.before != "" || s.keyRegex != ""
}
