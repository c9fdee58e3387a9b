// Package search ranks catalog candidates against a typed query.
package search

import (
	"github.com/dshills/objsearch/internal/catalog"
	"github.com/dshills/objsearch/internal/fuzzy"
)

// Hit is a ranked candidate with its match details.
type Hit struct {
	Candidate catalog.Candidate
	Score     int
	Matches   []int // rune offsets into Candidate.Target()
}

// Options configures an Engine.
type Options struct {
	// CacheSize bounds the per-query result cache. Zero disables caching.
	CacheSize int

	// Scorer overrides the default fuzzy scorer.
	Scorer fuzzy.Scorer
}

// Engine searches an immutable candidate index. It is safe for
// concurrent use; the index is never mutated.
type Engine struct {
	index   *catalog.Index
	targets []fuzzy.Target
	matcher *fuzzy.Matcher
	cache   *fuzzy.Cache
}

// New prepares match targets for every candidate in index.
func New(index *catalog.Index, opts Options) *Engine {
	if index == nil {
		index = catalog.Empty()
	}

	targets := make([]fuzzy.Target, index.Len())
	for i := range targets {
		targets[i] = fuzzy.Prepare(index.At(i).Target())
	}

	e := &Engine{
		index:   index,
		targets: targets,
		matcher: fuzzy.NewMatcher(fuzzy.Options{Scorer: opts.Scorer}),
	}
	if opts.CacheSize > 0 {
		e.cache = fuzzy.NewCache(opts.CacheSize)
	}
	return e
}

// Index returns the index the engine searches.
func (e *Engine) Index() *catalog.Index {
	return e.index
}

// Search returns candidates matching query, best first. Equal scores keep
// index order. An empty or blank query returns the whole index in order.
func (e *Engine) Search(query string) []catalog.Candidate {
	hits := e.Rank(query)
	out := make([]catalog.Candidate, len(hits))
	for i, h := range hits {
		out[i] = h.Candidate
	}
	return out
}

// Rank is Search with scores. Empty queries yield zero scores.
func (e *Engine) Rank(query string) []Hit {
	normalized := fuzzy.NormalizeQuery(query)
	if normalized == "" {
		hits := make([]Hit, e.index.Len())
		for i := range hits {
			hits[i] = Hit{Candidate: e.index.At(i)}
		}
		return hits
	}

	results, ok := e.cached(normalized)
	if !ok {
		results = e.matcher.Match(normalized, e.targets)
		if e.cache != nil {
			e.cache.Set(normalized, results)
		}
	}

	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{
			Candidate: e.index.At(r.Index),
			Score:     r.Score,
			Matches:   r.Matches,
		}
	}
	return hits
}

func (e *Engine) cached(query string) ([]fuzzy.Result, bool) {
	if e.cache == nil {
		return nil, false
	}
	return e.cache.Get(query)
}
