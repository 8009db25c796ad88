package graphstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/c360studio/kgraph/graphmodel"
	"github.com/c360studio/kgraph/vocabulary"
)

// VocabularyTypes implements ingest.Store: the active vocabulary as a
// name -> category map for vocabulary.Normalizer. Shared across
// ontologies (graphmodel.VocabType carries no ontology scope).
func (s *Store) VocabularyTypes(ctx context.Context) (map[string]string, error) {
	const q = `SELECT name, category FROM vocab_types WHERE is_active`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("graphstore: vocabulary types: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, category string
		if err := rows.Scan(&name, &category); err != nil {
			return nil, fmt.Errorf("graphstore: scan vocab type: %w", err)
		}
		out[name] = category
	}
	return out, rows.Err()
}

// AddVocabType implements ingest.Store: registers a newly auto-expanded
// relationship type (ADR-032, spec.md §4.2 step 6).
func (s *Store) AddVocabType(ctx context.Context, vt graphmodel.VocabType) error {
	if vt.CreatedAt.IsZero() {
		vt.CreatedAt = time.Now()
	}
	if vt.EpistemicStatus == "" {
		vt.EpistemicStatus = graphmodel.EpistemicUnclassified
	}
	if vt.DirectionSemantics == "" {
		vt.DirectionSemantics = graphmodel.DirectionOutward
	}

	const q = `
		INSERT INTO vocab_types (name, category, description, embedding, is_builtin, is_active, usage_count, epistemic_status, avg_grounding, direction_semantics, creation_method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (name) DO NOTHING`
	_, err := s.pool.Exec(ctx, q,
		vt.Name, string(vt.Category), vt.Description, vectorOrNil(vt.Embedding), vt.IsBuiltin, vt.IsActive,
		vt.UsageCount, string(vt.EpistemicStatus), vt.EpistemicStats.AvgGrounding, string(vt.DirectionSemantics),
		string(vt.CreationMethod), vt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("graphstore: add vocab type: %w", err)
	}
	return nil
}

// VocabSize implements vocabulary.Store: the number of active vocabulary
// types, for vocab_min/vocab_max/vocab_emergency bounds checks.
func (s *Store) VocabSize(ctx context.Context) (int, error) {
	var n int
	const q = `SELECT count(*) FROM vocab_types WHERE is_active`
	if err := s.pool.QueryRow(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("graphstore: vocab size: %w", err)
	}
	return n, nil
}

// EdgeMetrics implements vocabulary.Store: per-type usage counts driving
// scoring.go's weights/bridge/trend formula. BridgeCount and the
// recent/prior traversal windows require a traversal-log table this
// schema doesn't carry (spec.md doesn't specify one), so they're reported
// as zero here — a deliberate scope limit, see DESIGN.md.
func (s *Store) EdgeMetrics(ctx context.Context) ([]vocabulary.EdgeMetrics, error) {
	const q = `
		SELECT relationship_type, count(*)
		FROM relationships GROUP BY relationship_type`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("graphstore: edge metrics: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (vocabulary.EdgeMetrics, error) {
		var m vocabulary.EdgeMetrics
		if err := row.Scan(&m.RelationshipType, &m.EdgeCount); err != nil {
			return m, fmt.Errorf("graphstore: scan edge metrics: %w", err)
		}
		return m, nil
	})
}

// VocabEmbeddings implements vocabulary.Store: every active type's
// embedding, for synonyms.go's pairwise-similarity sweep.
func (s *Store) VocabEmbeddings(ctx context.Context) ([]vocabulary.VocabEmbedding, error) {
	const q = `SELECT name, embedding FROM vocab_types WHERE is_active AND embedding IS NOT NULL`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("graphstore: vocab embeddings: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (vocabulary.VocabEmbedding, error) {
		var ve vocabulary.VocabEmbedding
		var vec pgvector.Vector
		if err := row.Scan(&ve.Name, &vec); err != nil {
			return ve, fmt.Errorf("graphstore: scan vocab embedding: %w", err)
		}
		ve.Embedding = vec.Slice()
		return ve, nil
	})
}

// ExecuteMerge implements vocabulary.Store: rewrites every edge of type
// deprecated to target, bumps target's usage_count, and marks deprecated
// inactive - all inside one transaction, holding the advisory lock keyed
// by deprecated's hash for the duration (spec.md §3.5). Never a hard
// delete.
func (s *Store) ExecuteMerge(ctx context.Context, deprecated, target string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("graphstore: begin merge tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, relationshipTypeLockKey(deprecated)); err != nil {
		return fmt.Errorf("graphstore: acquire merge lock: %w", err)
	}

	var rewritten int64
	rewriteTag, err := tx.Exec(ctx, `UPDATE relationships SET relationship_type = $1 WHERE relationship_type = $2`, target, deprecated)
	if err != nil {
		return fmt.Errorf("graphstore: rewrite edges: %w", err)
	}
	rewritten = rewriteTag.RowsAffected()

	if _, err := tx.Exec(ctx, `UPDATE vocab_types SET usage_count = usage_count + $1 WHERE name = $2`, rewritten, target); err != nil {
		return fmt.Errorf("graphstore: bump target usage: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE vocab_types SET is_active = false WHERE name = $1`, deprecated); err != nil {
		return fmt.Errorf("graphstore: deactivate deprecated type: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("graphstore: commit merge tx: %w", err)
	}
	return nil
}

// Deprecate implements vocabulary.Store: marks a vocabulary type inactive
// without rewriting its edges (the naive-pruning-mode path, spec.md §4.4).
func (s *Store) Deprecate(ctx context.Context, relType string) error {
	const q = `UPDATE vocab_types SET is_active = false WHERE name = $1`
	if _, err := s.pool.Exec(ctx, q, relType); err != nil {
		return fmt.Errorf("graphstore: deprecate: %w", err)
	}
	return nil
}
