package match

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/3leaps/bucketdeck/pkg/provider"
)

// FilterConfig holds attribute criteria from CLI flags or query parameters.
// Every set field must hold for an object to be kept.
type FilterConfig struct {
	Size     *SizeFilterConfig `json:"size,omitempty" yaml:"size,omitempty"`
	Modified *DateFilterConfig `json:"modified,omitempty" yaml:"modified,omitempty"`

	// KeyRegex is applied to the full object key after glob matching.
	KeyRegex string `json:"key_regex,omitempty" yaml:"key_regex,omitempty"`

	// ImagesOnly keeps descriptors flagged IsImage.
	ImagesOnly bool `json:"images_only,omitempty" yaml:"images_only,omitempty"`
}

// SizeFilterConfig bounds object size, both ends inclusive.
// Values accept raw bytes or units: "10", "1KB", "1.5MiB".
type SizeFilterConfig struct {
	Min string `json:"min,omitempty" yaml:"min,omitempty"`
	Max string `json:"max,omitempty" yaml:"max,omitempty"`
}

// DateFilterConfig bounds LastModified as [After, Before).
// Values are "2024-01-15" (UTC midnight) or RFC 3339.
type DateFilterConfig struct {
	After  string `json:"after,omitempty" yaml:"after,omitempty"`
	Before string `json:"before,omitempty" yaml:"before,omitempty"`
}

var (
	ErrInvalidSize  = errors.New("invalid size value")
	ErrInvalidDate  = errors.New("invalid date value")
	ErrInvalidRegex = errors.New("invalid regex pattern")
)

// Criteria is a compiled FilterConfig. A nil *Criteria keeps everything.
type Criteria struct {
	checks []check
}

type check struct {
	desc string
	keep func(d *provider.ObjectDescriptor) bool
}

// Compile validates cfg and returns its Criteria, or nil when cfg sets nothing.
func Compile(cfg FilterConfig) (*Criteria, error) {
	c := &Criteria{}

	if cfg.Size != nil {
		lo, hi, err := sizeBounds(cfg.Size)
		if err != nil {
			return nil, err
		}
		if lo >= 0 {
			c.add(fmt.Sprintf("size >= %d", lo), func(d *provider.ObjectDescriptor) bool { return d.Size >= lo })
		}
		if hi >= 0 {
			c.add(fmt.Sprintf("size <= %d", hi), func(d *provider.ObjectDescriptor) bool { return d.Size <= hi })
		}
	}

	if cfg.Modified != nil {
		after, before, err := dateBounds(cfg.Modified)
		if err != nil {
			return nil, err
		}
		if !after.IsZero() {
			c.add("modified >= "+after.Format(time.RFC3339), func(d *provider.ObjectDescriptor) bool {
				return !d.LastModified.Before(after)
			})
		}
		if !before.IsZero() {
			c.add("modified < "+before.Format(time.RFC3339), func(d *provider.ObjectDescriptor) bool {
				return d.LastModified.Before(before)
			})
		}
	}

	if cfg.KeyRegex != "" {
		re, err := regexp.Compile(cfg.KeyRegex)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRegex, err)
		}
		c.add("key ~ "+cfg.KeyRegex, func(d *provider.ObjectDescriptor) bool { return re.MatchString(d.Key) })
	}

	if cfg.ImagesOnly {
		c.add("images only", func(d *provider.ObjectDescriptor) bool { return d.IsImage })
	}

	if len(c.checks) == 0 {
		return nil, nil
	}
	return c, nil
}

func (c *Criteria) add(desc string, keep func(d *provider.ObjectDescriptor) bool) {
	c.checks = append(c.checks, check{desc: desc, keep: keep})
}

// Keep reports whether d satisfies every criterion.
func (c *Criteria) Keep(d *provider.ObjectDescriptor) bool {
	if c == nil {
		return true
	}
	for _, ck := range c.checks {
		if !ck.keep(d) {
			return false
		}
	}
	return true
}

func (c *Criteria) String() string {
	if c == nil {
		return "no filters"
	}
	parts := make([]string, len(c.checks))
	for i, ck := range c.checks {
		parts[i] = ck.desc
	}
	return strings.Join(parts, ", ")
}

// sizeBounds returns -1 for an unset end.
func sizeBounds(cfg *SizeFilterConfig) (lo, hi int64, err error) {
	lo, hi = -1, -1
	if cfg.Min != "" {
		if lo, err = ParseSize(cfg.Min); err != nil {
			return 0, 0, fmt.Errorf("min size: %w", err)
		}
	}
	if cfg.Max != "" {
		if hi, err = ParseSize(cfg.Max); err != nil {
			return 0, 0, fmt.Errorf("max size: %w", err)
		}
	}
	if lo >= 0 && hi >= 0 && lo > hi {
		return 0, 0, fmt.Errorf("%w: min %d exceeds max %d", ErrInvalidSize, lo, hi)
	}
	return lo, hi, nil
}

func dateBounds(cfg *DateFilterConfig) (after, before time.Time, err error) {
	if cfg.After != "" {
		if after, err = ParseDate(cfg.After); err != nil {
			return after, before, fmt.Errorf("after: %w", err)
		}
	}
	if cfg.Before != "" {
		if before, err = ParseDate(cfg.Before); err != nil {
			return after, before, fmt.Errorf("before: %w", err)
		}
	}
	if !after.IsZero() && !before.IsZero() && !after.Before(before) {
		return after, before, fmt.Errorf("%w: empty range %s..%s", ErrInvalidDate, cfg.After, cfg.Before)
	}
	return after, before, nil
}

// Size units. KB/MB/GB/TB are decimal, the "i" forms binary.
const (
	KB int64 = 1000
	MB       = 1000 * KB
	GB       = 1000 * MB
	TB       = 1000 * GB

	KiB int64 = 1024
	MiB       = 1024 * KiB
	GiB       = 1024 * MiB
	TiB       = 1024 * GiB
)

var sizeUnits = map[string]int64{
	"": 1, "b": 1,
	"k": KB, "kb": KB, "m": MB, "mb": MB, "g": GB, "gb": GB, "t": TB, "tb": TB,
	"ki": KiB, "kib": KiB, "mi": MiB, "mib": MiB, "gi": GiB, "gib": GiB, "ti": TiB, "tib": TiB,
}

var sizeRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([A-Za-z]*)$`)

// ParseSize parses "1024", "1KB" or "1.5MiB" into bytes. Units are case-insensitive.
func ParseSize(s string) (int64, error) {
	m := sizeRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}
	unit, ok := sizeUnits[strings.ToLower(m[2])]
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidSize, m[2])
	}

	if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
		if n > math.MaxInt64/unit {
			return 0, fmt.Errorf("%w: %q overflows", ErrInvalidSize, s)
		}
		return n * unit, nil
	}

	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}
	bytes := f * float64(unit)
	if bytes >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidSize, s)
	}
	return int64(bytes), nil
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02"}

// ParseDate parses a date or RFC 3339 timestamp and returns it in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}
