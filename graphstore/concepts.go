package graphstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/c360studio/kgraph/graphmodel"
	"github.com/c360studio/kgraph/ingest"
)

// InsertConcept implements ingest.Store. Assigns a new concept ID if c
// doesn't already carry one.
func (s *Store) InsertConcept(ctx context.Context, c graphmodel.Concept) (string, error) {
	if c.ConceptID == "" {
		c.ConceptID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	// concepts.ontology references ontologies(name); make sure the row exists.
	if _, err := s.pool.Exec(ctx, `INSERT INTO ontologies (name) VALUES ($1) ON CONFLICT DO NOTHING`, c.Ontology); err != nil {
		return "", fmt.Errorf("graphstore: ensure ontology: %w", err)
	}

	const q = `
		INSERT INTO concepts (concept_id, label, description, search_terms, embedding, ontology, creation_method, access_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, q,
		c.ConceptID, c.Label, c.Description, c.SearchTerms, vectorOrNil(c.Embedding),
		c.Ontology, string(c.CreationMethod), c.AccessCount, c.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("graphstore: insert concept: %w", err)
	}
	return c.ConceptID, nil
}

// ConceptByID fetches one concept, incrementing its access_count (every
// read through the graph counts toward "most-accessed", matching how
// RecentConcepts/TopAccessedConcepts rank carry-over context).
func (s *Store) ConceptByID(ctx context.Context, id string) (graphmodel.Concept, error) {
	const q = `
		UPDATE concepts SET access_count = access_count + 1 WHERE concept_id = $1
		RETURNING concept_id, label, description, search_terms, embedding, ontology, creation_method, access_count, created_at`

	row := s.pool.QueryRow(ctx, q, id)
	return scanConcept(row)
}

// RecentConcepts implements ingest.Store: the n most recently created
// concepts in the ontology.
func (s *Store) RecentConcepts(ctx context.Context, ontologyID string, n int) ([]graphmodel.Concept, error) {
	const q = `
		SELECT concept_id, label, description, search_terms, embedding, ontology, creation_method, access_count, created_at
		FROM concepts WHERE ontology = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := s.pool.Query(ctx, q, ontologyID, n)
	if err != nil {
		return nil, fmt.Errorf("graphstore: recent concepts: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (graphmodel.Concept, error) {
		return scanConceptRow(row)
	})
}

// TopAccessedConcepts implements ingest.Store: the n most-accessed concepts
// in the ontology, for carry-over context (spec.md §4.2 step 2).
func (s *Store) TopAccessedConcepts(ctx context.Context, ontologyID string, n int) ([]graphmodel.Concept, error) {
	const q = `
		SELECT concept_id, label, description, search_terms, embedding, ontology, creation_method, access_count, created_at
		FROM concepts WHERE ontology = $1 ORDER BY access_count DESC LIMIT $2`
	rows, err := s.pool.Query(ctx, q, ontologyID, n)
	if err != nil {
		return nil, fmt.Errorf("graphstore: top accessed concepts: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (graphmodel.Concept, error) {
		return scanConceptRow(row)
	})
}

// SearchConcepts implements ingest.Store: pgvector cosine search ordered
// by increasing distance (spec.md §4.2 step 4).
func (s *Store) SearchConcepts(ctx context.Context, ontologyID string, embedding []float32, limit int) ([]ingest.ScoredConcept, error) {
	const q = `
		SELECT concept_id, label, description, search_terms, embedding, ontology, creation_method, access_count, created_at,
		       embedding <=> $1 AS distance
		FROM concepts WHERE ontology = $2
		ORDER BY distance LIMIT $3`
	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(embedding), ontologyID, limit)
	if err != nil {
		return nil, fmt.Errorf("graphstore: search concepts: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ingest.ScoredConcept, error) {
		c, dist, err := scanConceptWithDistance(row)
		return ingest.ScoredConcept{Concept: c, Distance: dist}, err
	})
}

func vectorOrNil(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	return pgvector.NewVector(v)
}

func scanConcept(row pgx.Row) (graphmodel.Concept, error) {
	var c graphmodel.Concept
	var vec pgvector.Vector
	var creationMethod string
	if err := row.Scan(&c.ConceptID, &c.Label, &c.Description, &c.SearchTerms, &vec, &c.Ontology, &creationMethod, &c.AccessCount, &c.CreatedAt); err != nil {
		return c, fmt.Errorf("graphstore: scan concept: %w", err)
	}
	c.CreationMethod = graphmodel.CreationMethod(creationMethod)
	c.Embedding = vec.Slice()
	return c, nil
}

func scanConceptRow(row pgx.CollectableRow) (graphmodel.Concept, error) {
	var c graphmodel.Concept
	var vec pgvector.Vector
	var creationMethod string
	if err := row.Scan(&c.ConceptID, &c.Label, &c.Description, &c.SearchTerms, &vec, &c.Ontology, &creationMethod, &c.AccessCount, &c.CreatedAt); err != nil {
		return c, fmt.Errorf("graphstore: scan concept: %w", err)
	}
	c.CreationMethod = graphmodel.CreationMethod(creationMethod)
	c.Embedding = vec.Slice()
	return c, nil
}

func scanConceptWithDistance(row pgx.CollectableRow) (graphmodel.Concept, float64, error) {
	var c graphmodel.Concept
	var vec pgvector.Vector
	var creationMethod string
	var dist float64
	if err := row.Scan(&c.ConceptID, &c.Label, &c.Description, &c.SearchTerms, &vec, &c.Ontology, &creationMethod, &c.AccessCount, &c.CreatedAt, &dist); err != nil {
		return c, 0, fmt.Errorf("graphstore: scan concept with distance: %w", err)
	}
	c.CreationMethod = graphmodel.CreationMethod(creationMethod)
	c.Embedding = vec.Slice()
	return c, dist, nil
}
