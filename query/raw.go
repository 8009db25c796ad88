package query

import (
	"context"
	"fmt"

	"github.com/c360studio/kgraph/graphstore"
)

// ExecuteRaw passes a caller-supplied parameterized query through to
// graphstore.RawQuery, which validates any embedded relationship-type
// literal before interpolation (spec.md §4.6's injection-closing raw
// query surface). Deep query logic is the caller's; this is a thin
// pass-through plus the flattened result shape.
func (s *Service) ExecuteRaw(ctx context.Context, rawQuery string, relTypeLiterals []string, args ...any) (*graphstore.RawResult, error) {
	result, err := s.store.RawQuery(ctx, rawQuery, relTypeLiterals, args...)
	if err != nil {
		return nil, fmt.Errorf("query: execute raw: %w", err)
	}
	return result, nil
}
