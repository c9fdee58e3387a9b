// Package catalog builds the searchable effect index from parsed catalog
// sections.
package catalog

import (
	"strings"

	"github.com/dshills/objsearch/internal/ini"
)

// EffectPrefix marks sections that describe effects, e.g. [Effect.Fire_A].
// It is matched ASCII case-insensitively.
const EffectPrefix = "effect."

// LabelKey is the entry holding an effect's display name.
const LabelKey = "label"

// Candidate is one searchable catalog entry.
type Candidate struct {
	// Identifier is the section suffix used to reference the effect on insert.
	Identifier string `json:"identifier"`

	// Label is the human-readable display string.
	Label string `json:"label"`
}

// Target returns the text matched by search: "label (identifier)".
func (c Candidate) Target() string {
	return c.Label + " (" + c.Identifier + ")"
}

// Index is an immutable, insertion-ordered list of candidates.
// It is safe for concurrent use because nothing mutates it after Build.
type Index struct {
	candidates []Candidate
}

// Build extracts candidates from sections in section order.
// A section yields a candidate only if its first label entry is non-empty.
func Build(sections []ini.Section) *Index {
	candidates := make([]Candidate, 0, len(sections))
	for _, s := range sections {
		id, ok := effectIdentifier(s.Name)
		if !ok {
			continue
		}
		label, found := s.Get(LabelKey)
		if !found || label == "" {
			continue
		}
		candidates = append(candidates, Candidate{Identifier: id, Label: label})
	}
	return &Index{candidates: candidates}
}

// New creates an index from an explicit candidate list. The slice is copied.
func New(candidates []Candidate) *Index {
	cp := make([]Candidate, len(candidates))
	copy(cp, candidates)
	return &Index{candidates: cp}
}

// Empty returns an index with no candidates.
func Empty() *Index {
	return &Index{}
}

func effectIdentifier(section string) (string, bool) {
	if len(section) < len(EffectPrefix) || !strings.EqualFold(section[:len(EffectPrefix)], EffectPrefix) {
		return "", false
	}
	return section[len(EffectPrefix):], true
}

// Len returns the number of candidates.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.candidates)
}

// At returns the candidate at position i.
func (x *Index) At(i int) Candidate {
	return x.candidates[i]
}

// All returns a copy of the candidates in index order.
func (x *Index) All() []Candidate {
	out := make([]Candidate, x.Len())
	if x != nil {
		copy(out, x.candidates)
	}
	return out
}

// Each calls fn for each candidate in index order until fn returns false.
func (x *Index) Each(fn func(i int, c Candidate) bool) {
	if x == nil {
		return
	}
	for i, c := range x.candidates {
		if !fn(i, c) {
			return
		}
	}
}

// Lookup returns the first candidate with the given identifier.
func (x *Index) Lookup(identifier string) (Candidate, bool) {
	if x == nil {
		return Candidate{}, false
	}
	for _, c := range x.candidates {
		if c.Identifier == identifier {
			return c, true
		}
	}
	return Candidate{}, false
}
