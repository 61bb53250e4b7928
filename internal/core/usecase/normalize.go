package usecase

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeText returns the comparison key of text: case folded, without
// diacritics and with collapsed whitespace. ok is false for blank input.
func NormalizeText(text string) (key string, ok bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(stripper, text)
	if err != nil {
		stripped = text
	}
	folded := cases.Fold().String(stripped)
	key = strings.Join(strings.Fields(folded), " ")
	if key == "" {
		return "", false
	}
	return key, true
}
