package fuzzy

import (
	"slices"
	"sync"
)

// Result is a matched target.
type Result struct {
	// Index is the position of the target in the slice passed to Match.
	Index int

	// Score is the match score (higher is better).
	Score int

	// Matches contains the rune indices of matched characters.
	Matches []int
}

// Options configures the matcher.
type Options struct {
	// Scorer ranks matches. Defaults to DefaultWeights().
	Scorer Scorer
}

// DefaultOptions returns the default matcher options.
func DefaultOptions() Options {
	return Options{Scorer: DefaultWeights()}
}

// Matcher performs fuzzy subsequence matching.
type Matcher struct {
	mu     sync.RWMutex
	scorer Scorer
}

// NewMatcher creates a matcher with the given options.
func NewMatcher(opts Options) *Matcher {
	if opts.Scorer == nil {
		opts.Scorer = DefaultWeights()
	}
	return &Matcher{scorer: opts.Scorer}
}

// SetScorer replaces the scoring algorithm.
func (m *Matcher) SetScorer(scorer Scorer) {
	if scorer == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scorer = scorer
}

// Match scores every target against query and returns the matching ones
// sorted by descending score. Equal scores keep their order in targets.
// An empty query matches nothing; callers decide what "show all" means.
func (m *Matcher) Match(query string, targets []Target) []Result {
	queryRunes := []rune(NormalizeQuery(query))
	if len(queryRunes) == 0 {
		return nil
	}

	m.mu.RLock()
	scorer := m.scorer
	m.mu.RUnlock()

	results := make([]Result, 0, len(targets))
	for i := range targets {
		score, matches, ok := matchTarget(scorer, queryRunes, &targets[i])
		if !ok {
			continue
		}
		results = append(results, Result{Index: i, Score: score, Matches: matches})
	}

	// Stable: ties must stay in target order.
	slices.SortStableFunc(results, func(a, b Result) int {
		return b.Score - a.Score
	})
	return results
}

// MatchOne scores a single target. ok is false when query is not a subsequence.
func (m *Matcher) MatchOne(query string, target Target) (score int, matches []int, ok bool) {
	queryRunes := []rune(NormalizeQuery(query))
	if len(queryRunes) == 0 {
		return 0, nil, false
	}
	m.mu.RLock()
	scorer := m.scorer
	m.mu.RUnlock()
	return matchTarget(scorer, queryRunes, &target)
}

// matchTarget tries every occurrence of the first query rune as a start
// position, scans greedily from there, and keeps the best score. The
// earliest start wins on equal scores.
func matchTarget(scorer Scorer, queryRunes []rune, t *Target) (int, []int, bool) {
	text := t.Folded
	if len(text) < len(queryRunes) {
		return 0, nil, false
	}

	best := 0
	var bestMatches []int
	for start := 0; start < len(text); start++ {
		if text[start] != queryRunes[0] {
			continue
		}
		matches := scanFrom(queryRunes, text, start)
		if matches == nil {
			// Later starts see a suffix of this text and cannot match either.
			break
		}
		score := scorer.Score(queryRunes, t.Original, text, matches)
		if bestMatches == nil || score > best {
			best = score
			bestMatches = matches
		}
	}

	if bestMatches == nil {
		return 0, nil, false
	}
	return best, bestMatches, true
}

// scanFrom matches queryRunes left to right starting at start.
// Returns nil if not every rune is found.
func scanFrom(queryRunes, text []rune, start int) []int {
	matches := make([]int, 0, len(queryRunes))
	qi := 0
	for i := start; i < len(text) && qi < len(queryRunes); i++ {
		if text[i] == queryRunes[qi] {
			matches = append(matches, i)
			qi++
		}
	}
	if qi != len(queryRunes) {
		return nil
	}
	return matches
}
