package query

import (
	"context"
	"fmt"

	"github.com/c360studio/kgraph/graphmodel"
	"github.com/c360studio/kgraph/graphstore"
)

// ConceptDetailsRequest is ConceptDetails' input (spec.md §4.6).
type ConceptDetailsRequest struct {
	ConceptID        string
	IncludeGrounding bool
	IncludeDiversity bool
	DiversityMaxHops int
}

// ConceptDetailsResult is ConceptDetails' output: the concept, its
// instances ordered by document/paragraph, and its outbound relationships
// annotated with vocabulary category and epistemic status.
type ConceptDetailsResult struct {
	Concept       graphmodel.Concept
	Instances     []graphmodel.Instance
	Relationships []graphstore.AnnotatedRelationship
	Grounding     *float64
	Diversity     *float64
}

// ConceptDetails retrieves a concept plus its evidence and outbound
// relationships, optionally enriched with grounding and diversity.
func (s *Service) ConceptDetails(ctx context.Context, req ConceptDetailsRequest) (*ConceptDetailsResult, error) {
	concept, err := s.store.ConceptByID(ctx, req.ConceptID)
	if err != nil {
		return nil, fmt.Errorf("query: concept details %s: %w", req.ConceptID, err)
	}

	instances, err := s.store.InstancesByConcept(ctx, req.ConceptID)
	if err != nil {
		return nil, fmt.Errorf("query: concept instances %s: %w", req.ConceptID, err)
	}

	rels, err := s.store.RelationshipsByConcept(ctx, req.ConceptID)
	if err != nil {
		return nil, fmt.Errorf("query: concept relationships %s: %w", req.ConceptID, err)
	}

	result := &ConceptDetailsResult{Concept: concept, Instances: instances, Relationships: rels}

	if req.IncludeGrounding {
		g, err := s.conceptGrounding(ctx, req.ConceptID)
		if err != nil {
			return nil, err
		}
		result.Grounding = g
	}
	if req.IncludeDiversity {
		hops := req.DiversityMaxHops
		if hops <= 0 {
			hops = 1
		}
		d, err := s.Diversity(ctx, DiversityRequest{ConceptID: req.ConceptID, MaxHops: hops, Limit: 25})
		if err != nil {
			return nil, err
		}
		result.Diversity = d.Diversity
	}

	return result, nil
}
