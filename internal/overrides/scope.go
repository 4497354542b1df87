package overrides

import (
	"strings"
	"unicode"
)

const maxScopeNameLen = 50

// SanitizeScopeName turns a city name into something safe to use as a file
// name or database key.
func SanitizeScopeName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r < 32, unicode.IsSpace(r), strings.ContainsRune(`<>:"/\|?*`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	out := b.String()
	if runes := []rune(out); len(runes) > maxScopeNameLen {
		out = string(runes[:maxScopeNameLen])
	}
	out = strings.TrimRight(out, ".")
	if out == "" {
		return "unnamed"
	}
	return out
}
