package ingest

import (
	"context"

	"github.com/c360studio/kgraph/graphmodel"
)

// ScoredConcept pairs a concept with its cosine distance from a query
// embedding, the shape graphstore.SearchConcepts returns.
type ScoredConcept struct {
	Concept  graphmodel.Concept
	Distance float64 // pgvector `<=>` cosine distance; lower is closer
}

// Store is the graph-storage seam ingest.Pipeline depends on. graphstore's
// pgx/pgvector-backed implementation satisfies this interface; tests use an
// in-memory fake. Method set corresponds exactly to spec.md §4.2's
// numbered per-chunk steps.
type Store interface {
	// RecentConcepts returns the n most recently created concepts of the
	// ontology this source belongs to, most recent first (step 2).
	RecentConcepts(ctx context.Context, ontologyID string, n int) ([]graphmodel.Concept, error)

	// TopAccessedConcepts returns the ontology's most-accessed concepts,
	// for carry-over context alongside RecentConcepts (step 2).
	TopAccessedConcepts(ctx context.Context, ontologyID string, n int) ([]graphmodel.Concept, error)

	// SearchConcepts performs a pgvector cosine search and returns matches
	// ordered by increasing distance (step 4).
	SearchConcepts(ctx context.Context, ontologyID string, embedding []float32, limit int) ([]ScoredConcept, error)

	// InsertConcept creates a new concept and returns its assigned ID.
	InsertConcept(ctx context.Context, c graphmodel.Concept) (string, error)

	// InsertInstance creates an instance plus its EVIDENCED_BY/FROM_SOURCE
	// edges (step 5).
	InsertInstance(ctx context.Context, inst graphmodel.Instance) (string, error)

	// CreateRelationship creates a typed edge between two concepts (step 6).
	CreateRelationship(ctx context.Context, rel graphmodel.Relationship) error

	// VocabularyTypes returns the current canonical relationship-type
	// vocabulary as a map of type name -> category, for
	// vocabulary.Normalizer. The vocabulary is shared across ontologies
	// (graphmodel.VocabType carries no ontology scope).
	VocabularyTypes(ctx context.Context) (map[string]string, error)

	// AddVocabType registers a newly auto-expanded relationship type (the
	// ADR-032 "category=llm_generated" pattern, step 6) and returns once
	// its embedding has been synchronously stored.
	AddVocabType(ctx context.Context, vt graphmodel.VocabType) error
}

// ProgressReporter is the jobs-package seam for per-chunk progress updates
// (step 7); jobs.Queue.UpdateProgress satisfies this.
type ProgressReporter interface {
	UpdateProgress(ctx context.Context, jobID string, chunksDone, chunksTotal int) error
	MarkFailed(ctx context.Context, jobID string, reason string) error
}
