package query

import (
	"context"
	"fmt"
	"math"
)

// gradientEpsilon is the minimum pole separation PolarityAxis accepts
// (spec.md §4.6: "Reject when |gradient| < 1e-8").
const gradientEpsilon = 1e-8

// PolarityRequest is PolarityAxis' input. UseParallel, DiscoverySlotPct,
// MaxWorkers, ChunkSize, and TimeoutSeconds are accepted for interface
// parity with the source implementation this ports from but are not
// acted on here (DESIGN.md records this as an open decision, not an
// oversight): candidate discovery in this store is a handful of
// metadata-only Postgres round trips, not the CPU-bound per-candidate
// fan-out the original parallelized.
type PolarityRequest struct {
	OntologyID    string
	PosConceptID  string
	NegConceptID  string
	CandidateIDs  []string
	AutoDiscover  bool
	MaxCandidates int
	MaxHops       int

	UseParallel      bool
	DiscoverySlotPct float64
	MaxWorkers       int
	ChunkSize        int
	TimeoutSeconds   int
}

// PolarityCandidate is one concept's projection onto a polarity axis.
type PolarityCandidate struct {
	ConceptID   string
	Position    float64 // -1 (neg pole) .. +1 (pos pole), 0 at midpoint
	AxisDistance float64
	Direction   string // "positive", "negative", "neutral"
	Grounding   *float64
}

// PolarityResult is PolarityAxis' output.
type PolarityResult struct {
	PosConceptID      string
	NegConceptID      string
	GradientMagnitude float64
	Candidates        []PolarityCandidate
	PearsonR          *float64
}

// PolarityAxis builds the axis between two pole concepts and projects
// candidates onto it (spec.md §4.6's "Polarity axis").
func (s *Service) PolarityAxis(ctx context.Context, req PolarityRequest) (*PolarityResult, error) {
	pos, err := s.store.ConceptByID(ctx, req.PosConceptID)
	if err != nil {
		return nil, fmt.Errorf("query: polarity pos concept %s: %w", req.PosConceptID, err)
	}
	neg, err := s.store.ConceptByID(ctx, req.NegConceptID)
	if err != nil {
		return nil, fmt.Errorf("query: polarity neg concept %s: %w", req.NegConceptID, err)
	}
	if len(pos.Embedding) == 0 || len(neg.Embedding) == 0 || len(pos.Embedding) != len(neg.Embedding) {
		return nil, fmt.Errorf("query: polarity poles must share embedding dimensionality")
	}

	gradient := subtract(pos.Embedding, neg.Embedding)
	magnitude := norm(gradient)
	if magnitude < gradientEpsilon {
		return nil, fmt.Errorf("query: polarity axis rejected: |gradient|=%g < %g", magnitude, gradientEpsilon)
	}
	unit := scale(gradient, 1/magnitude)

	candidateIDs, err := s.polarityCandidateIDs(ctx, req)
	if err != nil {
		return nil, err
	}

	candidates, err := s.store.ConceptsByIDs(ctx, candidateIDs)
	if err != nil {
		return nil, fmt.Errorf("query: polarity candidates: %w", err)
	}

	result := &PolarityResult{
		PosConceptID:      req.PosConceptID,
		NegConceptID:      req.NegConceptID,
		GradientMagnitude: magnitude,
	}

	var positions, groundings []float64
	for _, c := range candidates {
		if len(c.Embedding) != len(neg.Embedding) {
			continue
		}
		delta := subtract(c.Embedding, neg.Embedding)
		proj := dot(delta, unit)
		position := 2*(proj/magnitude) - 1
		residual := subtract(delta, scale(unit, proj))

		pc := PolarityCandidate{
			ConceptID:    c.ConceptID,
			Position:     position,
			AxisDistance: norm(residual),
			Direction:    directionLabel(position),
		}
		if g, err := s.conceptGrounding(ctx, c.ConceptID); err == nil && g != nil {
			pc.Grounding = g
			positions = append(positions, position)
			groundings = append(groundings, *g)
		}
		result.Candidates = append(result.Candidates, pc)
	}

	if r := pearsonR(positions, groundings); r != nil {
		result.PearsonR = r
	}

	return result, nil
}

func directionLabel(position float64) string {
	switch {
	case position > 0.3:
		return "positive"
	case position < -0.3:
		return "negative"
	default:
		return "neutral"
	}
}

// polarityCandidateIDs returns the caller-supplied candidate list, or (if
// AutoDiscover) the union of concepts reachable from either pole within
// MaxHops, capped at MaxCandidates.
func (s *Service) polarityCandidateIDs(ctx context.Context, req PolarityRequest) ([]string, error) {
	if len(req.CandidateIDs) > 0 {
		return req.CandidateIDs, nil
	}
	if !req.AutoDiscover {
		return nil, nil
	}

	hops := req.MaxHops
	if hops <= 0 {
		hops = 2
	}
	seen := map[string]bool{req.PosConceptID: true, req.NegConceptID: true}
	var ids []string
	for _, pole := range []string{req.PosConceptID, req.NegConceptID} {
		concepts, _, err := s.store.RelatedConcepts(ctx, pole, hops, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("query: polarity auto-discover from %s: %w", pole, err)
		}
		for _, c := range concepts {
			if seen[c.ConceptID] {
				continue
			}
			seen[c.ConceptID] = true
			ids = append(ids, c.ConceptID)
			if req.MaxCandidates > 0 && len(ids) >= req.MaxCandidates {
				return ids, nil
			}
		}
	}
	return ids, nil
}

func subtract(a, b []float32) []float32 {
	out := make([]float32, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

func scale(a []float32, k float64) []float32 {
	out := make([]float32, len(a))
	for i := range a {
		out[i] = float32(float64(a[i]) * k)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(a []float32) float64 {
	return math.Sqrt(dot(a, a))
}

// pearsonR computes the Pearson correlation coefficient between x and y.
// Returns nil if there are fewer than 2 pairs or either series has zero
// variance.
func pearsonR(x, y []float64) *float64 {
	n := len(x)
	if n < 2 || len(y) != n {
		return nil
	}
	var sumX, sumY float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
	}
	meanX, meanY := sumX/float64(n), sumY/float64(n)

	var cov, varX, varY float64
	for i := range x {
		dx, dy := x[i]-meanX, y[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return nil
	}
	r := cov / math.Sqrt(varX*varY)
	return &r
}
