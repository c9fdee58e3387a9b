// Package fuzzy implements case-insensitive fuzzy subsequence matching
// for the effect search popup.
//
// Every rune of the query must appear in the target in order, though not
// necessarily contiguously. Matches are scored with integer arithmetic
// only, so the ranking for a fixed target list and query is a total order.
//
// # Scoring
//
// The scorer favors:
//   - Consecutive character matches
//   - Word boundary matches (after spaces, punctuation, camelCase transitions)
//   - Matches at the start of the target
//   - Shorter targets
//
// and penalizes gaps between matched characters and leading unmatched text.
//
// # Normalization
//
// Targets and queries are NFC-normalized and width-folded so full-width
// input typed through an IME ("ｆｉｒｅ") matches ASCII targets.
//
// # Usage
//
//	m := fuzzy.NewMatcher(fuzzy.DefaultOptions())
//	targets := []fuzzy.Target{fuzzy.Prepare("Fire Effect Alpha (Fire_A)")}
//	for _, r := range m.Match("fira", targets) {
//	    fmt.Println(r.Index, r.Score)
//	}
//
// # Thread Safety
//
// Matcher and Cache are safe for concurrent use. Target values are
// read-only after Prepare.
package fuzzy
