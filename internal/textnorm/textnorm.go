// Package textnorm folds Portuguese text for loose comparisons.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// StripAccents removes combining marks ("Implantação" -> "Implantacao").
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Fold lowercases, strips accents and collapses whitespace.
func Fold(s string) string {
	return strings.Join(strings.Fields(StripAccents(strings.ToLower(s))), " ")
}

// Tokens returns the folded alphanumeric words of s longer than two runes.
func Tokens(s string) []string {
	folded := nonAlnum.ReplaceAllString(StripAccents(strings.ToLower(s)), " ")
	var out []string
	for _, tok := range strings.Fields(folded) {
		if len(tok) > 2 {
			out = append(out, tok)
		}
	}
	return out
}

// TokenSet is Tokens as a set.
func TokenSet(s string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, tok := range Tokens(s) {
		set[tok] = struct{}{}
	}
	return set
}
