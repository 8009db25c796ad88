package graphstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/c360studio/kgraph/graphmodel"
)

// InsertArtifact persists an artifact record. Exactly one of
// InlineResult/GarageKey is expected to be set by storage.ArtifactStore
// before this is called.
func (s *Store) InsertArtifact(ctx context.Context, a graphmodel.Artifact) error {
	params, err := json.Marshal(a.Parameters)
	if err != nil {
		return fmt.Errorf("graphstore: marshal artifact parameters: %w", err)
	}
	meta, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("graphstore: marshal artifact metadata: %w", err)
	}

	const q = `
		INSERT INTO artifacts (artifact_id, artifact_type, representation, owner_id, graph_epoch, parameters, metadata, ontology, concept_ids, inline_result, garage_key, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (artifact_id) DO UPDATE SET
			inline_result = EXCLUDED.inline_result,
			garage_key = EXCLUDED.garage_key`
	_, err = s.pool.Exec(ctx, q, a.ID, a.ArtifactType, a.Representation, a.OwnerID, a.GraphEpoch, params, meta, a.Ontology, a.ConceptIDs, a.InlineResult, a.GarageKey, a.ExpiresAt)
	if err != nil {
		return fmt.Errorf("graphstore: insert artifact: %w", err)
	}
	return nil
}

// ArtifactByID retrieves one artifact by ID.
func (s *Store) ArtifactByID(ctx context.Context, id string) (graphmodel.Artifact, error) {
	const q = `
		SELECT artifact_id, artifact_type, representation, owner_id, graph_epoch, parameters, metadata, ontology, concept_ids, inline_result, garage_key, created_at, expires_at
		FROM artifacts WHERE artifact_id = $1`
	row := s.pool.QueryRow(ctx, q, id)
	return scanArtifact(row)
}

// ExpiredArtifacts returns every artifact whose expires_at has passed as of
// now, the candidate set for storage.RetentionPolicy cleanup (spec.md
// §4.5/§8.5, invariant: never delete an artifact with a null expires_at).
func (s *Store) ExpiredArtifacts(ctx context.Context, now time.Time) ([]graphmodel.Artifact, error) {
	const q = `
		SELECT artifact_id, artifact_type, representation, owner_id, graph_epoch, parameters, metadata, ontology, concept_ids, inline_result, garage_key, created_at, expires_at
		FROM artifacts WHERE expires_at IS NOT NULL AND expires_at < $1`
	rows, err := s.pool.Query(ctx, q, now)
	if err != nil {
		return nil, fmt.Errorf("graphstore: expired artifacts: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (graphmodel.Artifact, error) {
		return scanArtifact(row)
	})
}

// ArtifactsByOwner lists an owner's artifacts, most recent first, for
// server's list_artifacts RPC.
func (s *Store) ArtifactsByOwner(ctx context.Context, ownerID string, limit int) ([]graphmodel.Artifact, error) {
	const q = `
		SELECT artifact_id, artifact_type, representation, owner_id, graph_epoch, parameters, metadata, ontology, concept_ids, inline_result, garage_key, created_at, expires_at
		FROM artifacts WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := s.pool.Query(ctx, q, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("graphstore: artifacts by owner: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (graphmodel.Artifact, error) {
		return scanArtifact(row)
	})
}

// DeleteArtifact removes the Postgres row. Callers must delete any blob at
// GarageKey first (storage.RetentionPolicy does this blob-first so a crash
// mid-cleanup never leaves an orphaned Postgres pointer to a live blob,
// only the reverse which a later sweep can still catch).
func (s *Store) DeleteArtifact(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM artifacts WHERE artifact_id = $1`, id)
	if err != nil {
		return fmt.Errorf("graphstore: delete artifact %s: %w", id, err)
	}
	return nil
}

func scanArtifact(row pgx.Row) (graphmodel.Artifact, error) {
	var a graphmodel.Artifact
	var params, meta []byte
	if err := row.Scan(&a.ID, &a.ArtifactType, &a.Representation, &a.OwnerID, &a.GraphEpoch, &params, &meta, &a.Ontology, &a.ConceptIDs, &a.InlineResult, &a.GarageKey, &a.CreatedAt, &a.ExpiresAt); err != nil {
		return a, fmt.Errorf("graphstore: scan artifact: %w", err)
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &a.Parameters); err != nil {
			return a, fmt.Errorf("graphstore: unmarshal artifact parameters: %w", err)
		}
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &a.Metadata); err != nil {
			return a, fmt.Errorf("graphstore: unmarshal artifact metadata: %w", err)
		}
	}
	return a, nil
}
