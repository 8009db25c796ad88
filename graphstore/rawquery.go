package graphstore

import (
	"context"
	"fmt"
	"time"

	"github.com/c360studio/kgraph/graphmodel"
)

// RawResult is ExecuteRaw's flattened response shape (spec.md §3.5).
type RawResult struct {
	Nodes           []map[string]any
	Relationships   []map[string]any
	RowCount        int
	ExecutionTimeMS int64
}

// RawQuery runs a parameterized query, validating any embedded
// relationship-type literal against graphmodel.ValidRelationshipType
// before interpolation - the injection-closing redesign spec.md's
// REDESIGN FLAGS call for. query must use $1, $2, ... placeholders for
// every value except relType literals the caller has chosen to inline;
// those are checked here instead of parameterized, because Postgres
// doesn't allow identifiers/keywords as bind parameters and some
// raw-query callers build dynamic relationship-type predicates.
func (s *Store) RawQuery(ctx context.Context, query string, relTypeLiterals []string, args ...any) (*RawResult, error) {
	for _, lit := range relTypeLiterals {
		if !graphmodel.ValidRelationshipType(lit) {
			return nil, fmt.Errorf("graphstore: rejected relationship-type literal %q: must match %s", lit, `^[A-Z][A-Z0-9_]{0,99}$`)
		}
	}

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("graphstore: raw query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var results []map[string]any
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("graphstore: raw query scan: %w", err)
		}
		row := make(map[string]any, len(fields))
		for i, f := range fields {
			row[string(f.Name)] = vals[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("graphstore: raw query rows: %w", err)
	}

	nodes, relationships := splitNodesAndRelationships(results)
	return &RawResult{
		Nodes:           nodes,
		Relationships:   relationships,
		RowCount:        len(results),
		ExecutionTimeMS: time.Since(start).Milliseconds(),
	}, nil
}

// splitNodesAndRelationships buckets raw rows by whether they carry a
// relationship_id column (an edge row) or a concept_id column (a node
// row), the two shapes ExecuteRaw's callers query for.
func splitNodesAndRelationships(rows []map[string]any) (nodes, relationships []map[string]any) {
	for _, row := range rows {
		if _, ok := row["relationship_id"]; ok {
			relationships = append(relationships, row)
			continue
		}
		nodes = append(nodes, row)
	}
	return nodes, relationships
}
