package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Normalize lowercases text and collapses each run of whitespace into a
// single space.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = strings.Trim(text, " \n\t\r")
	text = whitespaceRegex.ReplaceAllString(text, " ")
	return text
}

// ContainsAny reports whether the normalized text contains any of the
// normalized needles, empty needles never match.
func ContainsAny(text string, needles ...string) bool {
	text = Normalize(text)
	for _, needle := range needles {
		needle = Normalize(needle)
		if needle != "" && strings.Contains(text, needle) {
			return true
		}
	}
	return false
}
