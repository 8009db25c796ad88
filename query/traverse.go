package query

import (
	"context"
	"fmt"

	"github.com/c360studio/kgraph/graphmodel"
)

// RelatedConceptsRequest is RelatedConcepts' input (spec.md §4.6).
type RelatedConceptsRequest struct {
	ConceptID          string
	MaxDepth           int
	RelationshipTypes  []string
	EpistemicIncludes  []string
	EpistemicExcludes  []string
}

// RelatedConceptHit is one BFS result: the concept plus its hop distance
// from the start and the relationship types on the shortest path that
// reached it (spec.md §4.6: "concepts with {distance, path_types[]}
// ordered by distance").
type RelatedConceptHit struct {
	Concept   graphmodel.Concept
	Distance  int
	PathTypes []string
}

// RelatedConcepts performs a BFS expansion from a concept, annotating
// each result with its hop distance and the path's relationship types.
// The effective type filter intersects RelationshipTypes with whatever
// the caller's epistemic include/exclude lists resolve to.
func (s *Service) RelatedConcepts(ctx context.Context, req RelatedConceptsRequest) ([]RelatedConceptHit, error) {
	depth := req.MaxDepth
	if depth <= 0 {
		depth = 2
	}

	epistemicFilter := resolveEpistemicFilter(req.EpistemicIncludes, req.EpistemicExcludes)

	concepts, edges, err := s.store.RelatedConcepts(ctx, req.ConceptID, depth, req.RelationshipTypes, epistemicFilter)
	if err != nil {
		return nil, fmt.Errorf("query: related concepts %s: %w", req.ConceptID, err)
	}

	byID := make(map[string]graphmodel.Concept, len(concepts))
	for _, c := range concepts {
		byID[c.ConceptID] = c
	}

	type edgeRef struct {
		neighbor string
		relType  string
	}
	adjacency := make(map[string][]edgeRef)
	for _, e := range edges {
		adjacency[e.FromConceptID] = append(adjacency[e.FromConceptID], edgeRef{e.ToConceptID, e.RelationshipType})
		adjacency[e.ToConceptID] = append(adjacency[e.ToConceptID], edgeRef{e.FromConceptID, e.RelationshipType})
	}

	distances := map[string]int{req.ConceptID: 0}
	paths := map[string][]string{req.ConceptID: nil}
	frontier := []string{req.ConceptID}
	for len(frontier) > 0 {
		var next []string
		for _, id := range frontier {
			for _, ref := range adjacency[id] {
				if _, seen := distances[ref.neighbor]; seen {
					continue
				}
				distances[ref.neighbor] = distances[id] + 1
				paths[ref.neighbor] = append(append([]string{}, paths[id]...), ref.relType)
				next = append(next, ref.neighbor)
			}
		}
		frontier = next
	}

	hits := make([]RelatedConceptHit, 0, len(concepts))
	for _, c := range concepts {
		hits = append(hits, RelatedConceptHit{
			Concept:   c,
			Distance:  distances[c.ConceptID],
			PathTypes: paths[c.ConceptID],
		})
	}
	sortByDistance(hits)
	return hits, nil
}

func sortByDistance(hits []RelatedConceptHit) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].Distance < hits[j-1].Distance; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
}

// resolveEpistemicFilter mirrors spec.md's "first resolved to a concrete
// set of relationship types" step: excludes win over includes when both
// name the same status, then the result is passed through to
// graphstore.RelatedConcepts' epistemic-status filter.
func resolveEpistemicFilter(includes, excludes []string) []string {
	if len(includes) == 0 {
		return nil
	}
	excluded := make(map[string]bool, len(excludes))
	for _, e := range excludes {
		excluded[e] = true
	}
	var out []string
	for _, inc := range includes {
		if !excluded[inc] {
			out = append(out, inc)
		}
	}
	return out
}

// FindConnectionRequest is FindConnection's input.
type FindConnectionRequest struct {
	FromID            string
	ToID              string
	MaxHops           int
	MaxPaths          int
	RelationshipTypes []string
}

// FindConnection runs a bidirectional-style BFS between two concepts.
func (s *Service) FindConnection(ctx context.Context, req FindConnectionRequest) ([][]string, error) {
	hops := req.MaxHops
	if hops <= 0 {
		hops = 5
	}
	paths := req.MaxPaths
	if paths <= 0 {
		paths = 5
	}
	found, err := s.store.FindConnection(ctx, req.FromID, req.ToID, hops, paths, req.RelationshipTypes)
	if err != nil {
		return nil, fmt.Errorf("query: find connection %s -> %s: %w", req.FromID, req.ToID, err)
	}
	return found, nil
}

// FindConnectionBySearchRequest is FindConnectionBySearch's input.
type FindConnectionBySearchRequest struct {
	OntologyID string
	FromQuery  string
	ToQuery    string
	MaxHops    int
	Threshold  float64
}

// NearMissError reports that one of FindConnectionBySearch's two phrases
// had no match above threshold. SuggestedThreshold is the best match's
// similarity minus 0.02 when that match is a near-miss (similarity
// >= 0.3), and 0 when there is no near-miss, per spec.md §4.6's "emit 404
// with suggested_threshold".
type NearMissError struct {
	Phrase             string
	SuggestedThreshold float64
}

func (e *NearMissError) Error() string {
	return fmt.Sprintf("query: no match for %q above threshold; suggested_threshold=%.2f", e.Phrase, e.SuggestedThreshold)
}

// FindConnectionBySearch embeds two phrases, resolves each to its top
// match above threshold, then pathfinds between them.
func (s *Service) FindConnectionBySearch(ctx context.Context, req FindConnectionBySearchRequest) ([][]string, error) {
	threshold := req.Threshold
	if threshold <= 0 {
		threshold = 0.7
	}

	fromID, err := s.resolveTopMatch(ctx, req.OntologyID, req.FromQuery, threshold)
	if err != nil {
		return nil, err
	}
	toID, err := s.resolveTopMatch(ctx, req.OntologyID, req.ToQuery, threshold)
	if err != nil {
		return nil, err
	}

	return s.FindConnection(ctx, FindConnectionRequest{FromID: fromID, ToID: toID, MaxHops: req.MaxHops})
}

func (s *Service) resolveTopMatch(ctx context.Context, ontologyID, phrase string, threshold float64) (string, error) {
	vec, err := s.embed(ctx, phrase)
	if err != nil {
		return "", fmt.Errorf("query: embed phrase %q: %w", phrase, err)
	}
	scored, err := s.store.SearchConcepts(ctx, ontologyID, vec, 5)
	if err != nil {
		return "", fmt.Errorf("query: search phrase %q: %w", phrase, err)
	}
	if len(scored) == 0 {
		return "", &NearMissError{Phrase: phrase, SuggestedThreshold: 0}
	}

	best := scored[0]
	similarity := 1 - best.Distance
	if similarity >= threshold {
		return best.Concept.ConceptID, nil
	}
	if similarity >= smartThresholdFloor {
		return "", &NearMissError{Phrase: phrase, SuggestedThreshold: roundTo2(similarity - 0.02)}
	}
	return "", &NearMissError{Phrase: phrase, SuggestedThreshold: 0}
}
