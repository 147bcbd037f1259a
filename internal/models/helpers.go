package models

import "strings"

// FeedKeyFromLabel derives a feed key from a human label: lowercase, spaces
// become underscores, anything outside [a-z0-9_-] is dropped.
func FeedKeyFromLabel(label string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(label)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	return b.String()
}
