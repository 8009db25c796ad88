package graphstore

import (
	"context"
	"fmt"

	"github.com/c360studio/kgraph/graphmodel"
)

// InsertInstance implements ingest.Store: creates the evidence node
// bridging a Concept to the Source it came from (spec.md §4.2 step 5).
func (s *Store) InsertInstance(ctx context.Context, inst graphmodel.Instance) (string, error) {
	const q = `
		INSERT INTO instances (instance_id, concept_id, source_id, quote)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (instance_id) DO UPDATE SET quote = EXCLUDED.quote`
	if _, err := s.pool.Exec(ctx, q, inst.InstanceID, inst.ConceptID, inst.SourceID, inst.Quote); err != nil {
		return "", fmt.Errorf("graphstore: insert instance: %w", err)
	}
	return inst.InstanceID, nil
}

// InsertSource upserts a Source row (a document or chunk). Called by
// graphpublish's consumer equivalent or directly by callers that persist
// ahead of publishing triples.
func (s *Store) InsertSource(ctx context.Context, src graphmodel.Source) error {
	const q = `
		INSERT INTO sources (source_id, document, paragraph, full_text, content_type, storage_key, offset_start, offset_end, content_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (source_id) DO UPDATE SET
			full_text = EXCLUDED.full_text, storage_key = EXCLUDED.storage_key, content_hash = EXCLUDED.content_hash`
	_, err := s.pool.Exec(ctx, q,
		src.SourceID, src.Document, src.Paragraph, src.FullText, string(src.ContentType),
		src.StorageKey, src.OffsetStart, src.OffsetEnd, src.ContentHash,
	)
	if err != nil {
		return fmt.Errorf("graphstore: insert source: %w", err)
	}
	return nil
}
