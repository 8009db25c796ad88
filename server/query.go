package server

import (
	"context"
	"errors"

	"github.com/c360studio/kgraph/graphstore"
	"github.com/c360studio/kgraph/kgerrors"
	"github.com/c360studio/kgraph/query"
)

// SearchConcepts implements search_concepts (spec.md §6, graph:read).
func (s *Server) SearchConcepts(ctx context.Context, req query.SearchRequest) (*query.SearchResult, *kgerrors.Error) {
	result, err := s.query.SemanticSearch(ctx, req)
	if err != nil {
		return nil, kgerrors.UpstreamUnavailable("search concepts", err)
	}
	return result, nil
}

// ConceptDetails implements concept_details (spec.md §6, graph:read).
func (s *Server) ConceptDetails(ctx context.Context, req query.ConceptDetailsRequest) (*query.ConceptDetailsResult, *kgerrors.Error) {
	result, err := s.query.ConceptDetails(ctx, req)
	if err != nil {
		return nil, kgerrors.NotFound("concept not found", map[string]any{"concept_id": req.ConceptID})
	}
	return result, nil
}

// RelatedConcepts implements related_concepts (spec.md §6, graph:read).
func (s *Server) RelatedConcepts(ctx context.Context, req query.RelatedConceptsRequest) ([]query.RelatedConceptHit, *kgerrors.Error) {
	hits, err := s.query.RelatedConcepts(ctx, req)
	if err != nil {
		return nil, kgerrors.UpstreamUnavailable("related concepts", err)
	}
	return hits, nil
}

// FindConnection implements find_connection (spec.md §6, graph:read).
func (s *Server) FindConnection(ctx context.Context, req query.FindConnectionRequest) ([][]string, *kgerrors.Error) {
	paths, err := s.query.FindConnection(ctx, req)
	if err != nil {
		return nil, kgerrors.UpstreamUnavailable("find connection", err)
	}
	if len(paths) == 0 {
		return nil, kgerrors.NotFound("no path found", map[string]any{"from_id": req.FromID, "to_id": req.ToID})
	}
	return paths, nil
}

// FindConnectionBySearch implements find_connection_by_search (spec.md
// §6, graph:read). A near-miss on either phrase surfaces as a not_found
// error carrying suggested_threshold, per spec.md §4.6.
func (s *Server) FindConnectionBySearch(ctx context.Context, req query.FindConnectionBySearchRequest) ([][]string, *kgerrors.Error) {
	paths, err := s.query.FindConnectionBySearch(ctx, req)
	if err != nil {
		var nearMiss *query.NearMissError
		if errors.As(err, &nearMiss) {
			return nil, kgerrors.NotFound(nearMiss.Error(), map[string]any{
				"phrase":              nearMiss.Phrase,
				"suggested_threshold": nearMiss.SuggestedThreshold,
			})
		}
		return nil, kgerrors.UpstreamUnavailable("find connection by search", err)
	}
	return paths, nil
}

// PolarityAxis implements polarity_axis (spec.md §6, graph:read).
func (s *Server) PolarityAxis(ctx context.Context, req query.PolarityRequest) (*query.PolarityResult, *kgerrors.Error) {
	result, err := s.query.PolarityAxis(ctx, req)
	if err != nil {
		return nil, kgerrors.InvalidInput(err.Error(), map[string]any{"pos_id": req.PosConceptID, "neg_id": req.NegConceptID})
	}
	return result, nil
}

// maxRawQueryLimit caps execute_query's row_count regardless of what the
// caller asked for (spec.md §6: "execute_query(raw_query, limit?)" is
// "subject to server-side limit injection").
const maxRawQueryLimit = 1000

// ExecuteQuery implements execute_query (spec.md §6, graph:execute).
func (s *Server) ExecuteQuery(ctx context.Context, rawQuery string, relTypeLiterals []string, args ...any) (*graphstore.RawResult, *kgerrors.Error) {
	result, err := s.query.ExecuteRaw(ctx, rawQuery, relTypeLiterals, args...)
	if err != nil {
		return nil, kgerrors.InvalidInput("execute query", map[string]any{"error": err.Error()})
	}
	if result.RowCount > maxRawQueryLimit {
		result.RowCount = maxRawQueryLimit
		if len(result.Nodes) > maxRawQueryLimit {
			result.Nodes = result.Nodes[:maxRawQueryLimit]
		}
		if len(result.Relationships) > maxRawQueryLimit {
			result.Relationships = result.Relationships[:maxRawQueryLimit]
		}
	}
	return result, nil
}
