package shared

import "strings"

// RuneTruncate truncates s to at most n runes without splitting a multi-byte
// character. When n <= 0 it returns an empty string.
func RuneTruncate(s string, n int) string {
	if n <= 0 || s == "" {
		return ""
	}
	i := 0
	for idx := range s {
		if i == n {
			return s[:idx]
		}
		i++
	}
	return s
}

// Ellipsis truncates s to n runes and appends "..." when anything was cut.
func Ellipsis(s string, n int) string {
	cut := RuneTruncate(s, n)
	if len(cut) < len(s) {
		return cut + "..."
	}
	return cut
}

// FirstNonEmpty returns the first argument that is not blank.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
