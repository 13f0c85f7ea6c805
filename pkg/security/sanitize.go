package security

import (
	"strings"
	"unicode"
)

// RemoveControlCharacters strips ASCII control characters and other Unicode
// control runes, keeping newlines and tabs out as well. Form fields arriving
// from chat clients routinely carry these.
func RemoveControlCharacters(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NormalizeWhitespace collapses consecutive whitespace into single spaces and
// trims the ends.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TruncateString cuts s to at most max runes. Rune-aware so multibyte names
// are never split mid-character.
func TruncateString(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// SanitizeInput is the standard cleanup for free-text form fields: control
// characters removed, whitespace normalized, length capped.
func SanitizeInput(s string, maxLength int) string {
	return TruncateString(NormalizeWhitespace(RemoveControlCharacters(s)), maxLength)
}
