// Package textnorm cleans extracted or OCR'd text before it is segmented or
// sent to a translation backend.
package textnorm

import (
	"regexp"
	"strings"
)

var (
	spaceRe       = regexp.MustCompile(`[\s\p{Zs}]+`)
	lowerUpperRe  = regexp.MustCompile(`([a-z])([A-Z])`)
	digitUpperRe  = regexp.MustCompile(`(\d)([A-Z])`)
	lowerDigitRe  = regexp.MustCompile(`([a-z])(\d)`)
	punctuationRe = regexp.MustCompile(`[\s\p{Zs}]*([,.;:!?])[\s\p{Zs}]*`)
)

// Normalize collapses whitespace, splits tokens that scanning commonly glues
// together ("dateOf", "12May", "page3") and puts exactly one space after
// punctuation. Normalize is idempotent.
func Normalize(text string) string {
	if text == "" {
		return text
	}

	text = CollapseSpace(text)

	text = lowerUpperRe.ReplaceAllString(text, "${1} ${2}")
	text = digitUpperRe.ReplaceAllString(text, "${1} ${2}")
	text = lowerDigitRe.ReplaceAllString(text, "${1} ${2}")

	text = punctuationRe.ReplaceAllString(text, "${1} ")
	return CollapseSpace(text)
}

// CollapseSpace replaces every whitespace run with a single space and trims
// the result.
func CollapseSpace(text string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}
