package query

import (
	"context"
	"fmt"
	"math"
)

// supportsTypeName and contradictsTypeName are the builtin vocabulary
// types grounding is measured against (spec.md §4.4: "cosine similarity
// of the type's embedding to SUPPORTS minus similarity to CONTRADICTS").
const (
	supportsTypeName    = "SUPPORTS"
	contradictsTypeName = "CONTRADICTS"
)

// conceptGrounding averages each outbound relationship's type-level
// grounding contribution, confidence-weighted, yielding a single
// per-concept grounding score in [-1, 1]. Returns nil if the concept has
// no outbound relationships or the SUPPORTS/CONTRADICTS anchor types
// aren't embedded yet.
func (s *Service) conceptGrounding(ctx context.Context, conceptID string) (*float64, error) {
	rels, err := s.store.RelationshipsByConcept(ctx, conceptID)
	if err != nil {
		return nil, fmt.Errorf("query: grounding relationships for %s: %w", conceptID, err)
	}
	if len(rels) == 0 {
		return nil, nil
	}

	anchors, err := s.groundingAnchors(ctx)
	if err != nil {
		return nil, err
	}
	if anchors == nil {
		return nil, nil
	}

	vocab, err := s.store.VocabEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("query: vocab embeddings: %w", err)
	}
	byName := make(map[string][]float32, len(vocab))
	for _, v := range vocab {
		byName[v.Name] = v.Embedding
	}

	var weightedSum, weightTotal float64
	for _, r := range rels {
		emb, ok := byName[r.RelationshipType]
		if !ok || len(emb) == 0 {
			continue
		}
		contribution := cosineSimilarity(emb, anchors.supports) - cosineSimilarity(emb, anchors.contradicts)
		weightedSum += contribution * r.Confidence
		weightTotal += r.Confidence
	}
	if weightTotal == 0 {
		return nil, nil
	}
	g := weightedSum / weightTotal
	return &g, nil
}

type groundingAnchorSet struct {
	supports, contradicts []float32
}

func (s *Service) groundingAnchors(ctx context.Context) (*groundingAnchorSet, error) {
	vocab, err := s.store.VocabEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("query: vocab embeddings for anchors: %w", err)
	}
	var supports, contradicts []float32
	for _, v := range vocab {
		switch v.Name {
		case supportsTypeName:
			supports = v.Embedding
		case contradictsTypeName:
			contradicts = v.Embedding
		}
	}
	if len(supports) == 0 || len(contradicts) == 0 {
		return nil, nil
	}
	return &groundingAnchorSet{supports: supports, contradicts: contradicts}, nil
}

// cosineSimilarity computes the cosine of the angle between two
// embeddings. Returns 0 if either vector is zero or the dimensions
// mismatch.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
