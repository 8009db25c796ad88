package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundTo2(t *testing.T) {
	assert.Equal(t, 0.63, roundTo2(0.634))
	assert.Equal(t, 0.64, roundTo2(0.636))
	assert.Equal(t, 0.28, roundTo2(0.3-0.02))
}

func TestResolveEpistemicFilter_NoIncludes(t *testing.T) {
	assert.Nil(t, resolveEpistemicFilter(nil, nil))
}

func TestResolveEpistemicFilter_ExcludesWin(t *testing.T) {
	got := resolveEpistemicFilter([]string{"AFFIRMATIVE", "CONTESTED"}, []string{"CONTESTED"})
	assert.Equal(t, []string{"AFFIRMATIVE"}, got)
}

func TestSortByDistance(t *testing.T) {
	hits := []RelatedConceptHit{
		{Concept: stubConcept("c"), Distance: 3},
		{Concept: stubConcept("a"), Distance: 1},
		{Concept: stubConcept("b"), Distance: 2},
	}
	sortByDistance(hits)
	assert.Equal(t, "a", hits[0].Concept.ConceptID)
	assert.Equal(t, "b", hits[1].Concept.ConceptID)
	assert.Equal(t, "c", hits[2].Concept.ConceptID)
}
