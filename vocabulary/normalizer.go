// Package vocabulary implements the dynamic relationship vocabulary:
// staged-match normalization, value scoring, synonym detection, the
// cubic-Bezier aggressiveness curve, and the AITL consolidation loop.
package vocabulary

import (
	"strings"
)

// Normalizer maps LLM-generated relationship type labels onto the
// canonical vocabulary via the six-stage match spec.md §4.3 requires:
// exact, _BY rejection, prefix, containment, stem, fuzzy.
type Normalizer struct {
	// byType indexes canonical types for O(1) exact lookup.
	byType map[string]RelationshipMeta
	// types is the canonical set in stable order, for prefix/contains/
	// stem/fuzzy scans.
	types []string
}

// RelationshipMeta is the canonical-vocabulary metadata a match resolves to.
type RelationshipMeta struct {
	Category string
}

// NewNormalizer builds a Normalizer over the given canonical vocabulary
// (name -> category). Typically seeded from graphstore's active VocabTypes,
// refreshed whenever the vocabulary changes.
func NewNormalizer(vocab map[string]string) *Normalizer {
	n := &Normalizer{byType: make(map[string]RelationshipMeta, len(vocab))}
	for name, category := range vocab {
		n.byType[name] = RelationshipMeta{Category: category}
		n.types = append(n.types, name)
	}
	return n
}

// FuzzyThreshold is the default minimum similarity for stage 6 (typos
// only); ported from relationship_mapper.py's default of 0.8.
const FuzzyThreshold = 0.8

// Match is the result of normalizing a relationship type label.
type Match struct {
	CanonicalType string
	Category      string
	Score         float64
	Matched       bool
}

// Normalize runs the six-stage match. A zero-value, unmatched Match is
// returned when nothing clears the fuzzy threshold (including the
// directional _BY rejection case).
func (n *Normalizer) Normalize(llmType string) Match {
	return n.normalize(llmType, FuzzyThreshold)
}

// NormalizeWithThreshold is Normalize with an explicit fuzzy threshold,
// for callers tuning precision/recall (e.g. tests reproducing the
// Python examples at threshold 0.8 exactly).
func (n *Normalizer) NormalizeWithThreshold(llmType string, fuzzyThreshold float64) Match {
	return n.normalize(llmType, fuzzyThreshold)
}

func (n *Normalizer) normalize(llmType string, fuzzyThreshold float64) Match {
	upper := strings.ToUpper(strings.TrimSpace(llmType))

	// 1. Exact match.
	if meta, ok := n.byType[upper]; ok {
		return Match{CanonicalType: upper, Category: meta.Category, Score: 1.0, Matched: true}
	}

	// 2. Reject _BY reversed relationships.
	if strings.HasSuffix(upper, "_BY") {
		return Match{}
	}

	// 3. Prefix match: input is a prefix of a canonical type. Multiple
	// matches -> shortest (most specific).
	var prefixMatches []string
	for _, t := range n.types {
		if strings.HasPrefix(t, upper) {
			prefixMatches = append(prefixMatches, t)
		}
	}
	if len(prefixMatches) > 0 {
		best := shortest(prefixMatches)
		return Match{
			CanonicalType: best,
			Category:      n.byType[best].Category,
			Score:         ratio(upper, best),
			Matched:       true,
		}
	}

	// 4. Containment match: canonical type is a prefix of input. Multiple
	// matches -> longest (most specific).
	var containsMatches []string
	for _, t := range n.types {
		if strings.HasPrefix(upper, t) {
			containsMatches = append(containsMatches, t)
		}
	}
	if len(containsMatches) > 0 {
		best := longest(containsMatches)
		return Match{
			CanonicalType: best,
			Category:      n.byType[best].Category,
			Score:         ratio(upper, best),
			Matched:       true,
		}
	}

	// 5. Stem match (light suffix-stripping stemmer, not a general Porter
	// implementation - sufficient for the verb forms this vocabulary
	// actually contains).
	llmStem := stem(strings.ToLower(upper))
	for _, t := range n.types {
		if stem(strings.ToLower(t)) == llmStem {
			return Match{
				CanonicalType: t,
				Category:      n.byType[t].Category,
				Score:         ratio(upper, t),
				Matched:       true,
			}
		}
	}

	// 6. Fuzzy match, typos only.
	var best string
	var bestScore float64
	for _, t := range n.types {
		score := ratio(upper, t)
		if score > bestScore {
			bestScore = score
			best = t
		}
	}
	if bestScore >= fuzzyThreshold {
		return Match{
			CanonicalType: best,
			Category:      n.byType[best].Category,
			Score:         bestScore,
			Matched:       true,
		}
	}

	return Match{}
}

func shortest(ss []string) string {
	best := ss[0]
	for _, s := range ss[1:] {
		if len(s) < len(best) {
			best = s
		}
	}
	return best
}

func longest(ss []string) string {
	best := ss[0]
	for _, s := range ss[1:] {
		if len(s) > len(best) {
			best = s
		}
	}
	return best
}

// stem applies a small set of English suffix-stripping rules covering the
// verb-tense variations the relationship vocabulary actually exhibits
// (-ing, -ed, -ion, -s). This is deliberately not a general Porter
// stemmer implementation.
func stem(word string) string {
	switch {
	case strings.HasSuffix(word, "ing") && len(word) > 5:
		return word[:len(word)-3]
	case strings.HasSuffix(word, "ion") && len(word) > 5:
		return word[:len(word)-3]
	case strings.HasSuffix(word, "ed") && len(word) > 4:
		return word[:len(word)-2]
	case strings.HasSuffix(word, "es") && len(word) > 4:
		return word[:len(word)-2]
	case strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss") && len(word) > 3:
		return word[:len(word)-1]
	default:
		return word
	}
}
