package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold returns the comparison form of s: lowercase, without combining
// marks ("José" -> "jose") and without surrounding whitespace.
func Fold(s string) string {
	s = strings.ToLower(s)

	// transform.Chain is stateful, so each call builds its own.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(folded)
}

// Equal reports whether a and b fold to the same string.
func Equal(a, b string) bool {
	return Fold(a) == Fold(b)
}
