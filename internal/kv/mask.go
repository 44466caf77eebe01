package kv

import (
	"strings"
	"unicode/utf8"
)

const (
	maskRune     = "•"
	maskMaxWidth = 12
	emptyMarker  = "(empty)"
)

// MaskSecret renders a secret for display without revealing it. Secrets
// shorter than 12 characters get one placeholder per character; longer ones
// are capped at 12 so the display does not leak the length.
func MaskSecret(secret string) string {
	n := utf8.RuneCountInString(secret)
	if n == 0 {
		return emptyMarker
	}
	return strings.Repeat(maskRune, min(n, maskMaxWidth))
}
