// Package match narrows a listing for display using doublestar glob patterns
// and object attribute filters.
//
// Filtering happens on a copy of the items a view shows; it never changes what
// a provider lists or what the file list manager holds.
package match

import (
	"strings"
)

// Glob metacharacters that can be escaped with backslash in patterns.
const globEscapable = `*?[]{}\`

// NormalizePattern converts a user-provided glob pattern to canonical form.
//
// Backslashes become forward slashes unless they escape a glob
// metacharacter (\*, \?, \[ ...), in which case the escape is kept.
//
//	"2024/**"             -> "2024/**"
//	"2024\photos\a.png"   -> "2024/photos/a.png"
//	"shot\*.png"          -> "shot\*.png"
func NormalizePattern(pattern string) string {
	if pattern == "" {
		return ""
	}

	var result strings.Builder
	result.Grow(len(pattern))

	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '\\' {
			result.WriteRune(r)
			continue
		}
		if i+1 < len(runes) && strings.ContainsRune(globEscapable, runes[i+1]) {
			result.WriteRune('\\')
			result.WriteRune(runes[i+1])
			i++
			continue
		}
		result.WriteRune('/')
	}

	return result.String()
}

// IsHidden reports whether any "/"-separated segment of key starts with a dot.
//
//	"2024/a.png"         -> false
//	".thumbs/a.png"      -> true
//	"2024/.DS_Store"     -> true
//	"2024/a.png."        -> false
func IsHidden(key string) bool {
	for _, seg := range strings.Split(key, "/") {
		if seg != "" && strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}
