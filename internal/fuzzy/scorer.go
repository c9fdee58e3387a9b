package fuzzy

import "unicode"

// Scorer calculates match scores.
type Scorer interface {
	// Score calculates a match score; higher is better.
	//
	// Parameters:
	//   - queryRunes: the folded query runes
	//   - originalRunes: original target runes (preserves case)
	//   - textRunes: folded target runes
	//   - matches: rune indices of matched characters in text
	Score(queryRunes, originalRunes, textRunes []rune, matches []int) int
}

// WeightedScorer scores matches with configurable integer weights.
type WeightedScorer struct {
	// BaseScore is the starting score for any match.
	BaseScore int

	// ConsecutiveBonus is added for each match directly after the previous one.
	ConsecutiveBonus int

	// WordBoundaryBonus is added for matches at word boundaries.
	WordBoundaryBonus int

	// PrefixBonus is added when the first match is at position 0.
	PrefixBonus int

	// ExactPrefixBonus is added when the query matches the start of the text exactly.
	ExactPrefixBonus int

	// GapPenalty is subtracted for each unmatched rune between the first and last match.
	GapPenalty int

	// LeadingPenalty is subtracted for each rune before the first match.
	LeadingPenalty int

	// LengthBonusThreshold rewards targets shorter than this many runes.
	LengthBonusThreshold int
}

// DefaultWeights returns the default scoring weights.
func DefaultWeights() WeightedScorer {
	return WeightedScorer{
		BaseScore:            100,
		ConsecutiveBonus:     20,
		WordBoundaryBonus:    15,
		PrefixBonus:          25,
		ExactPrefixBonus:     50,
		GapPenalty:           2,
		LeadingPenalty:       1,
		LengthBonusThreshold: 20,
	}
}

// Score implements the Scorer interface.
func (s WeightedScorer) Score(queryRunes, originalRunes, textRunes []rune, matches []int) int {
	if len(matches) == 0 {
		return 0
	}

	score := s.BaseScore

	for i := 1; i < len(matches); i++ {
		if matches[i] == matches[i-1]+1 {
			score += s.ConsecutiveBonus
		}
	}

	for _, idx := range matches {
		if isWordBoundary(originalRunes, idx) {
			score += s.WordBoundaryBonus
		}
	}

	if matches[0] == 0 {
		score += s.PrefixBonus
	}

	if len(matches) > 1 {
		totalGap := matches[len(matches)-1] - matches[0] - len(matches) + 1
		if totalGap > 0 {
			score -= totalGap * s.GapPenalty
		}
	}

	if matches[0] > 0 {
		score -= matches[0] * s.LeadingPenalty
	}

	if textLen := len(textRunes); textLen < s.LengthBonusThreshold {
		score += s.LengthBonusThreshold - textLen
	}

	if hasPrefix(textRunes, queryRunes) {
		score += s.ExactPrefixBonus
	}

	// Any match outranks no match.
	if score < 1 {
		score = 1
	}
	return score
}

func hasPrefix(text, prefix []rune) bool {
	if len(text) < len(prefix) {
		return false
	}
	for i, r := range prefix {
		if text[i] != r {
			return false
		}
	}
	return true
}

// isWordBoundary reports whether the rune at idx starts a word.
func isWordBoundary(runes []rune, idx int) bool {
	if idx == 0 {
		return true
	}
	if idx >= len(runes) {
		return false
	}

	prev := runes[idx-1]
	curr := runes[idx]

	// Separators: spaces, '(', '_', '.', '-' and other punctuation.
	if unicode.IsSpace(prev) || unicode.IsPunct(prev) {
		return true
	}

	// camelCase
	if unicode.IsLower(prev) && unicode.IsUpper(curr) {
		return true
	}

	// Digit runs inside identifiers such as Blur2.
	if unicode.IsLetter(prev) && unicode.IsDigit(curr) {
		return true
	}

	return false
}
