package fuzzy

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Target is a prepared match target. Original keeps case for word
// boundary detection; Folded is aligned rune-for-rune with Original.
type Target struct {
	Text     string
	Original []rune
	Folded   []rune
}

// Prepare normalizes text once so it can be matched many times.
func Prepare(text string) Target {
	original := []rune(normalize(text))
	folded := make([]rune, len(original))
	for i, r := range original {
		folded[i] = unicode.ToLower(r)
	}
	return Target{Text: text, Original: original, Folded: folded}
}

// NormalizeQuery trims and case-folds a query. The result is the key
// used for caching and the rune sequence used for matching.
func NormalizeQuery(query string) string {
	return strings.ToLower(normalize(strings.TrimSpace(query)))
}

// normalize width-folds before composing, so half-width kana with a
// separate voicing mark (ｶﾞ) compose to the same rune as ガ.
func normalize(s string) string {
	return norm.NFC.String(width.Fold.String(s))
}
