package graphstore

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/kgraph/graphmodel"
)

// CreateRelationship implements ingest.Store. Both endpoints must already
// exist (enforced by the relationships table's foreign keys, checked
// inside this call's transaction per spec.md §3.5).
func (s *Store) CreateRelationship(ctx context.Context, rel graphmodel.Relationship) error {
	if rel.RelationshipID == "" {
		rel.RelationshipID = uuid.NewString()
	}
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now()
	}
	if rel.Category == "" {
		rel.Category = graphmodel.CategoryStructural
	}
	if rel.DirectionSemantics == "" {
		rel.DirectionSemantics = graphmodel.DirectionOutward
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("graphstore: begin relationship tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const checkEndpoints = `SELECT count(*) FROM concepts WHERE concept_id IN ($1, $2)`
	var n int
	if err := tx.QueryRow(ctx, checkEndpoints, rel.FromConceptID, rel.ToConceptID).Scan(&n); err != nil {
		return fmt.Errorf("graphstore: check relationship endpoints: %w", err)
	}
	if n != 2 {
		return fmt.Errorf("graphstore: relationship endpoints must both exist (from=%s to=%s)", rel.FromConceptID, rel.ToConceptID)
	}

	const insert = `
		INSERT INTO relationships (relationship_id, from_concept_id, to_concept_id, relationship_type, category, confidence, source, created_by, created_at, document_id, direction_semantics)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = tx.Exec(ctx, insert,
		rel.RelationshipID, rel.FromConceptID, rel.ToConceptID, rel.RelationshipType, string(rel.Category),
		rel.Confidence, string(rel.Source), rel.CreatedBy, rel.CreatedAt, rel.DocumentID, string(rel.DirectionSemantics),
	)
	if err != nil {
		return fmt.Errorf("graphstore: insert relationship: %w", err)
	}

	const bumpUsage = `UPDATE vocab_types SET usage_count = usage_count + 1 WHERE name = $1`
	if _, err := tx.Exec(ctx, bumpUsage, rel.RelationshipType); err != nil {
		return fmt.Errorf("graphstore: bump vocab usage: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("graphstore: commit relationship tx: %w", err)
	}
	return nil
}

// relationshipTypeLockKey derives the pg_advisory_xact_lock key for a
// vocabulary merge, matching spec.md §3.5's hashtext(relationship_type)
// scheme (FNV-1a here since Postgres's hashtext isn't reproducible
// client-side; both are just deterministic 32-bit hashes used purely to
// pick a lock key, so the specific hash function doesn't need to match
// Postgres's internal one).
func relationshipTypeLockKey(relationshipType string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(relationshipType))
	return int64(h.Sum32())
}
