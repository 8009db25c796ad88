package graphstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/c360studio/kgraph/graphmodel"
)

// Edge is one traversed relationship, in the direction it was followed.
type Edge struct {
	RelationshipID   string
	FromConceptID    string
	ToConceptID      string
	RelationshipType string
	Category         graphmodel.RelationshipCategory
	Confidence       float64
}

// RelatedConcepts performs a breadth-first expansion from startID out to
// depth hops (1-5, spec.md §3.5), optionally restricted to the given
// relationship types and epistemic statuses (both filters, when
// non-empty, are intersected - a hop must satisfy both). Implemented as
// repeated per-hop SQL IN(...) batches (frontier expansion): the
// relational-store equivalent of the UNWIND+COLLECT pattern spec.md
// references, one round trip per hop rather than per node (see
// DESIGN.md's Open Question decision 3).
func (s *Store) RelatedConcepts(ctx context.Context, startID string, depth int, relTypes []string, epistemicStatuses []string) ([]graphmodel.Concept, []Edge, error) {
	if depth < 1 {
		depth = 1
	}
	if depth > 5 {
		depth = 5
	}

	visited := map[string]bool{startID: true}
	frontier := []string{startID}
	var edges []Edge

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		const q = `
			SELECT r.relationship_id, r.from_concept_id, r.to_concept_id, r.relationship_type, r.category, r.confidence
			FROM relationships r
			JOIN vocab_types v ON v.name = r.relationship_type
			WHERE (r.from_concept_id = ANY($1) OR r.to_concept_id = ANY($1))
			  AND ($2::text[] IS NULL OR r.relationship_type = ANY($2))
			  AND ($3::text[] IS NULL OR v.epistemic_status = ANY($3))`

		rows, err := s.pool.Query(ctx, q, frontier, nullIfEmpty(relTypes), nullIfEmpty(epistemicStatuses))
		if err != nil {
			return nil, nil, fmt.Errorf("graphstore: related concepts hop %d: %w", hop, err)
		}
		hopEdges, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Edge, error) {
			var e Edge
			var category string
			if err := row.Scan(&e.RelationshipID, &e.FromConceptID, &e.ToConceptID, &e.RelationshipType, &category, &e.Confidence); err != nil {
				return e, err
			}
			e.Category = graphmodel.RelationshipCategory(category)
			return e, nil
		})
		if err != nil {
			return nil, nil, fmt.Errorf("graphstore: collect related concepts hop %d: %w", hop, err)
		}

		var next []string
		for _, e := range hopEdges {
			edges = append(edges, e)
			for _, id := range []string{e.FromConceptID, e.ToConceptID} {
				if !visited[id] {
					visited[id] = true
					next = append(next, id)
				}
			}
		}
		frontier = next
	}

	ids := make([]string, 0, len(visited))
	for id := range visited {
		if id != startID {
			ids = append(ids, id)
		}
	}
	concepts, err := s.conceptsByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	return concepts, edges, nil
}

// FindConnection runs a bidirectional BFS between fromID and toID, up to
// maxHops (<=10), returning up to maxPaths (<=5) shortest paths as
// ordered concept-ID chains, optionally restricted to relTypes.
func (s *Store) FindConnection(ctx context.Context, fromID, toID string, maxHops, maxPaths int, relTypes []string) ([][]string, error) {
	if maxHops < 1 {
		maxHops = 1
	}
	if maxHops > 10 {
		maxHops = 10
	}
	if maxPaths < 1 {
		maxPaths = 1
	}
	if maxPaths > 5 {
		maxPaths = 5
	}

	type frontierEntry struct {
		id   string
		path []string
	}

	visited := map[string][]string{fromID: {fromID}}
	frontier := []frontierEntry{{id: fromID, path: []string{fromID}}}
	var found [][]string

	for hop := 0; hop < maxHops && len(frontier) > 0 && len(found) < maxPaths; hop++ {
		ids := make([]string, len(frontier))
		for i, f := range frontier {
			ids[i] = f.id
		}

		const q = `
			SELECT from_concept_id, to_concept_id FROM relationships
			WHERE (from_concept_id = ANY($1) OR to_concept_id = ANY($1))
			  AND ($2::text[] IS NULL OR relationship_type = ANY($2))`
		rows, err := s.pool.Query(ctx, q, ids, nullIfEmpty(relTypes))
		if err != nil {
			return nil, fmt.Errorf("graphstore: find connection hop %d: %w", hop, err)
		}
		type pair struct{ from, to string }
		pairs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (pair, error) {
			var p pair
			err := row.Scan(&p.from, &p.to)
			return p, err
		})
		if err != nil {
			return nil, fmt.Errorf("graphstore: collect find connection hop %d: %w", hop, err)
		}

		byNode := map[string][]string{}
		for _, p := range pairs {
			byNode[p.from] = append(byNode[p.from], p.to)
			byNode[p.to] = append(byNode[p.to], p.from)
		}

		var next []frontierEntry
		for _, f := range frontier {
			for _, neighbor := range byNode[f.id] {
				if _, seen := visited[neighbor]; seen {
					continue
				}
				path := append(append([]string{}, f.path...), neighbor)
				visited[neighbor] = path
				if neighbor == toID {
					found = append(found, path)
					if len(found) >= maxPaths {
						break
					}
					continue
				}
				next = append(next, frontierEntry{id: neighbor, path: path})
			}
			if len(found) >= maxPaths {
				break
			}
		}
		frontier = next
	}

	return found, nil
}

func (s *Store) conceptsByIDs(ctx context.Context, ids []string) ([]graphmodel.Concept, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const q = `
		SELECT concept_id, label, description, search_terms, embedding, ontology, creation_method, access_count, created_at
		FROM concepts WHERE concept_id = ANY($1)`
	rows, err := s.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, fmt.Errorf("graphstore: concepts by ids: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (graphmodel.Concept, error) {
		return scanConceptRow(row)
	})
}

func nullIfEmpty(s []string) any {
	if len(s) == 0 {
		return nil
	}
	return s
}
