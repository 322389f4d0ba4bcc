package textutil

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// NormalizeHandle is NormalizeName without the handle sigil.
func NormalizeHandle(handle string) string {
	return strings.TrimPrefix(NormalizeName(handle), "@")
}

// Similarity scores two handles from 0 (nothing in common) to 1 (identical
// once normalized).
func Similarity(a, b string) float64 {
	a = NormalizeHandle(a)
	b = NormalizeHandle(b)
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	return matchr.JaroWinkler(a, b, false)
}

// CollapseWhitespace replaces every whitespace run with a single space.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}
