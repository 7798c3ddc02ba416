package resolver

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// NormalizeName canonicalises a display name: NFC composition, full-width
// forms folded to their narrow equivalents, whitespace trimmed and collapsed.
// "Jiří" typed with a combining caron and with a precomposed ř compare equal.
func NormalizeName(name string) string {
	t := transform.Chain(norm.NFC, width.Fold)
	result, _, err := transform.String(t, name)
	if err != nil {
		result = name
	}
	return strings.Join(strings.Fields(result), " ")
}

// MaxNameLength is the longest display name, in characters, every store backend can hold.
const MaxNameLength = 255

// validName normalises name and checks that a store can hold it.
func validName(name string) (string, error) {
	name = NormalizeName(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if n := utf8.RuneCountInString(name); n > MaxNameLength {
		return "", fmt.Errorf("%w: name has %d characters, at most %d allowed", ErrInvalidName, n, MaxNameLength)
	}
	return name, nil
}
