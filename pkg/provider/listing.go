package provider

import (
	"regexp"
	"sort"
	"strings"
)

var imageKeyPattern = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp|svg|bmp)$`)

// IsImageKey reports whether key ends in a known image extension.
func IsImageKey(key string) bool {
	return imageKeyPattern.MatchString(key)
}

// IsDirectoryMarker reports whether key is a zero-payload "folder" entry.
func IsDirectoryMarker(key string) bool {
	return strings.HasSuffix(key, "/")
}

// NormalizePrefix turns a configured path into a listing prefix.
//
//	""        -> ""
//	"images"  -> "images/"
//	"images/" -> "images/"
func NormalizePrefix(path string) string {
	if path == "" || strings.HasSuffix(path, "/") {
		return path
	}
	return path + "/"
}

// BuildListing converts raw backend entries into descriptors.
//
// Entries with an empty key, directory markers and keys outside prefix are
// dropped. urlFor resolves the public URL of each remaining key. The result is
// sorted newest first; equal timestamps are ordered by key.
func BuildListing(entries []ObjectSummary, prefix string, urlFor func(key string) string) []ObjectDescriptor {
	items := make([]ObjectDescriptor, 0, len(entries))
	for _, e := range entries {
		if e.Key == "" || IsDirectoryMarker(e.Key) {
			continue
		}
		if prefix != "" && !strings.HasPrefix(e.Key, prefix) {
			continue
		}
		size := e.Size
		if size < 0 {
			size = 0
		}
		items = append(items, ObjectDescriptor{
			Key:          e.Key,
			LastModified: e.LastModified,
			Size:         size,
			URL:          urlFor(e.Key),
			IsImage:      IsImageKey(e.Key),
		})
	}
	SortNewestFirst(items)
	return items
}

// SortNewestFirst orders descriptors by LastModified descending, then by key.
func SortNewestFirst(items []ObjectDescriptor) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.LastModified.Equal(b.LastModified) {
			return a.LastModified.After(b.LastModified)
		}
		return a.Key < b.Key
	})
}
