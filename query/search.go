package query

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/c360studio/kgraph/graphmodel"
)

// smartThresholdFloor is the second-pass similarity floor the smart
// threshold hint falls back to (spec.md §4.6: "run a second search at
// 0.3").
const smartThresholdFloor = 0.3

// minResultsBeforeHint is the result count under which the hint kicks in.
const minResultsBeforeHint = 3

// searchHeadroom is extra candidates fetched beyond limit+offset so the
// threshold filter has something to trim from (spec.md §4.6: "limited to
// limit + offset + headroom").
const searchHeadroom = 20

// SearchRequest is SemanticSearch's input.
type SearchRequest struct {
	OntologyID         string
	Query              string
	Limit              int
	MinSimilarity      float64
	Offset             int
	IncludeDocuments   bool
	IncludeEvidence    bool
	IncludeGrounding   bool
	IncludeDiversity   bool
	IncludeSampleQuote bool
}

// SearchHit is one ranked match, enriched per the request's include flags.
type SearchHit struct {
	Concept       graphmodel.Concept
	Similarity    float64
	Documents     []string              `json:",omitempty"`
	EvidenceCount int                   `json:",omitempty"`
	Grounding     *float64              `json:",omitempty"`
	Diversity     *float64              `json:",omitempty"`
	SampleQuotes  []graphmodel.Instance `json:",omitempty"`
}

// SmartThresholdHint is attached to SearchResult when the primary pass
// returned too few results above a high threshold (spec.md §4.6).
type SmartThresholdHint struct {
	BelowThresholdCount int
	SuggestedThreshold  float64
	TopMatch            *SearchHit
}

// SearchResult is SemanticSearch's output.
type SearchResult struct {
	Hits []SearchHit
	Hint *SmartThresholdHint
}

// SemanticSearch embeds req.Query, runs a pgvector cosine search with
// limit+offset+headroom, filters by MinSimilarity, paginates, enriches
// each hit per the request's include flags, and attaches a smart-
// threshold hint when the primary pass starves (spec.md §4.6).
func (s *Service) SemanticSearch(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	if req.Limit <= 0 {
		req.Limit = 10
	}

	vec, err := s.embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("query: embed search query: %w", err)
	}

	hits, err := s.searchAt(ctx, req, vec, req.MinSimilarity)
	if err != nil {
		return nil, err
	}

	result := &SearchResult{Hits: hits}

	if len(hits) < minResultsBeforeHint && req.MinSimilarity > smartThresholdFloor {
		hint, err := s.smartThresholdHint(ctx, req, vec)
		if err != nil {
			return nil, err
		}
		result.Hint = hint
	}

	return result, nil
}

func (s *Service) searchAt(ctx context.Context, req SearchRequest, vec []float32, threshold float64) ([]SearchHit, error) {
	fetch := req.Limit + req.Offset + searchHeadroom
	scored, err := s.store.SearchConcepts(ctx, req.OntologyID, vec, fetch)
	if err != nil {
		return nil, fmt.Errorf("query: search concepts: %w", err)
	}

	var hits []SearchHit
	for _, sc := range scored {
		similarity := 1 - sc.Distance
		if similarity < threshold {
			continue
		}
		hits = append(hits, SearchHit{Concept: sc.Concept, Similarity: similarity})
	}

	if req.Offset >= len(hits) {
		return nil, nil
	}
	end := req.Offset + req.Limit
	if end > len(hits) {
		end = len(hits)
	}
	page := hits[req.Offset:end]

	for i := range page {
		if err := s.enrich(ctx, req, &page[i]); err != nil {
			return nil, err
		}
	}
	return page, nil
}

// smartThresholdHint runs the second-pass search at smartThresholdFloor
// and summarizes what the caller would get by lowering their threshold.
func (s *Service) smartThresholdHint(ctx context.Context, req SearchRequest, vec []float32) (*SmartThresholdHint, error) {
	secondPass, err := s.searchAt(ctx, req, vec, smartThresholdFloor)
	if err != nil {
		return nil, err
	}

	var below []SearchHit
	for _, h := range secondPass {
		if h.Similarity < req.MinSimilarity {
			below = append(below, h)
		}
	}
	if len(below) == 0 {
		return nil, nil
	}
	sort.Slice(below, func(i, j int) bool { return below[i].Similarity > below[j].Similarity })

	top := below[0]
	minScore := below[len(below)-1].Similarity
	return &SmartThresholdHint{
		BelowThresholdCount: len(below),
		SuggestedThreshold:  roundTo2(minScore - 0.02),
		TopMatch:            &top,
	}, nil
}

func (s *Service) enrich(ctx context.Context, req SearchRequest, hit *SearchHit) error {
	if !req.IncludeDocuments && !req.IncludeEvidence && !req.IncludeSampleQuote && !req.IncludeGrounding && !req.IncludeDiversity {
		return nil
	}

	instances, err := s.store.InstancesByConcept(ctx, hit.Concept.ConceptID)
	if err != nil {
		return fmt.Errorf("query: enrich instances for %s: %w", hit.Concept.ConceptID, err)
	}

	if req.IncludeEvidence {
		hit.EvidenceCount = len(instances)
	}
	if req.IncludeDocuments {
		hit.Documents = distinctDocuments(ctx, s, instances)
	}
	if req.IncludeSampleQuote {
		n := len(instances)
		if n > 3 {
			n = 3
		}
		hit.SampleQuotes = instances[:n]
	}
	if req.IncludeGrounding {
		g, err := s.conceptGrounding(ctx, hit.Concept.ConceptID)
		if err != nil {
			return err
		}
		hit.Grounding = g
	}
	if req.IncludeDiversity {
		d, err := s.Diversity(ctx, DiversityRequest{ConceptID: hit.Concept.ConceptID, MaxHops: 1, Limit: 25})
		if err != nil {
			return err
		}
		hit.Diversity = d.Diversity
	}
	return nil
}

func distinctDocuments(ctx context.Context, s *Service, instances []graphmodel.Instance) []string {
	seen := map[string]bool{}
	var docs []string
	for _, inst := range instances {
		src, err := s.store.SourceByID(ctx, inst.SourceID)
		if err != nil {
			continue
		}
		if !seen[src.Document] {
			seen[src.Document] = true
			docs = append(docs, src.Document)
		}
	}
	return docs
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
