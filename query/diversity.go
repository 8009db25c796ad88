package query

import (
	"context"
	"fmt"
)

// DiversityRequest is Diversity's input (spec.md §4.6).
type DiversityRequest struct {
	ConceptID string
	MaxHops   int
	Limit     int
}

// DiversityResult is Diversity's output. Diversity is nil when fewer than
// two embedded neighbors are found.
type DiversityResult struct {
	NeighborCount          int
	Diversity              *float64
	AuthenticatedDiversity *float64 // sign(grounding) * Diversity
}

// Diversity computes 1 - mean(pairwise cosine similarity) over up to
// Limit neighbors within MaxHops of ConceptID, an omnidirectional
// undirected traversal (spec.md §4.6's "Diversity").
func (s *Service) Diversity(ctx context.Context, req DiversityRequest) (*DiversityResult, error) {
	hops := req.MaxHops
	if hops <= 0 {
		hops = 1
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 25
	}

	concepts, _, err := s.store.RelatedConcepts(ctx, req.ConceptID, hops, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query: diversity neighbors for %s: %w", req.ConceptID, err)
	}

	var embedded [][]float32
	for _, c := range concepts {
		if len(c.Embedding) == 0 {
			continue
		}
		embedded = append(embedded, c.Embedding)
		if len(embedded) >= limit {
			break
		}
	}

	result := &DiversityResult{NeighborCount: len(embedded)}
	if len(embedded) < 2 {
		return result, nil
	}

	var sum float64
	var pairs int
	for i := 0; i < len(embedded); i++ {
		for j := i + 1; j < len(embedded); j++ {
			sum += cosineSimilarity(embedded[i], embedded[j])
			pairs++
		}
	}
	diversity := 1 - sum/float64(pairs)
	result.Diversity = &diversity

	grounding, err := s.conceptGrounding(ctx, req.ConceptID)
	if err != nil {
		return nil, err
	}
	if grounding != nil {
		authenticated := diversity
		if *grounding < 0 {
			authenticated = -diversity
		} else if *grounding == 0 {
			authenticated = 0
		}
		result.AuthenticatedDiversity = &authenticated
	}

	return result, nil
}
