package wtwd

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// CompactSize turns a human readable size into the digits only form the
// portal searches by, 225/45R17 -> 2254517.
func CompactSize(size string) string {
	var out strings.Builder
	for _, r := range size {
		if unicode.IsDigit(r) {
			out.WriteRune(r)
		}
	}
	return out.String()
}

// matches sizes like LT265/65R20, 225/45R17, 205/55/16 once dashes have been
// turned into slashes
var sizePattern = regexp.MustCompile(`(?i)\b(?:LT)?\d{2,3}/\d{2}(?:R/?\d{1,2}|/\d{1,2})\b`)

// matches sizes written as a 7 digit run, 2756520 -> 275/65R20
var contiguousSizePattern = regexp.MustCompile(`\b([A-Za-z]*)(\d{3})(\d{2})(\d{2})\b`)

// SizeStrategy extracts a canonical size out of a piece of free text.
type SizeStrategy struct {
	Name  string
	Match func(text string) (string, bool)
}

// SizeStrategies are tried in order against the size cell and then the
// description of a row, the first match wins.
var SizeStrategies = []SizeStrategy{
	{Name: "pattern", Match: matchSizePattern},
	{Name: "contiguous", Match: matchContiguousSize},
}

func matchSizePattern(text string) (string, bool) {
	found := sizePattern.FindString(strings.ReplaceAll(text, "-", "/"))
	return found, found != ""
}

func matchContiguousSize(text string) (string, bool) {
	groups := contiguousSizePattern.FindStringSubmatch(text)
	if groups == nil {
		return "", false
	}
	return fmt.Sprintf("%s%s/%sR%s", groups[1], groups[2], groups[3], groups[4]), true
}

// ExtractSize falls back to the raw size cell when no strategy matches.
func ExtractSize(sizeCell, description string) string {
	for _, strategy := range SizeStrategies {
		for _, text := range []string{sizeCell, description} {
			if size, ok := strategy.Match(text); ok {
				return size
			}
		}
	}
	return sizeCell
}
