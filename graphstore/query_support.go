package graphstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/c360studio/kgraph/graphmodel"
)

// InstancesByConcept returns a concept's instances ordered by the source
// document/paragraph they were extracted from (spec.md §4.6 concept
// details: "Instances ordered by document/paragraph").
func (s *Store) InstancesByConcept(ctx context.Context, conceptID string) ([]graphmodel.Instance, error) {
	const q = `
		SELECT i.instance_id, i.concept_id, i.source_id, i.quote
		FROM instances i JOIN sources src ON src.source_id = i.source_id
		WHERE i.concept_id = $1
		ORDER BY src.document, src.paragraph`
	rows, err := s.pool.Query(ctx, q, conceptID)
	if err != nil {
		return nil, fmt.Errorf("graphstore: instances by concept: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (graphmodel.Instance, error) {
		var inst graphmodel.Instance
		err := row.Scan(&inst.InstanceID, &inst.ConceptID, &inst.SourceID, &inst.Quote)
		return inst, err
	})
}

// SourceByID fetches one source row, for instance-to-document provenance.
func (s *Store) SourceByID(ctx context.Context, sourceID string) (graphmodel.Source, error) {
	const q = `
		SELECT source_id, document, paragraph, full_text, content_type, storage_key, offset_start, offset_end, content_hash
		FROM sources WHERE source_id = $1`
	var src graphmodel.Source
	var contentType string
	row := s.pool.QueryRow(ctx, q, sourceID)
	err := row.Scan(&src.SourceID, &src.Document, &src.Paragraph, &src.FullText, &contentType,
		&src.StorageKey, &src.OffsetStart, &src.OffsetEnd, &src.ContentHash)
	if err != nil {
		return graphmodel.Source{}, fmt.Errorf("graphstore: source by id: %w", err)
	}
	src.ContentType = graphmodel.ContentType(contentType)
	return src, nil
}

// AnnotatedRelationship is an outbound edge joined with its vocabulary
// type's category and epistemic status, the shape concept_details reports
// (spec.md §4.6: "all outbound relationships annotated with vocabulary
// category and epistemic status").
type AnnotatedRelationship struct {
	graphmodel.Relationship
	VocabCategory   graphmodel.RelationshipCategory
	EpistemicStatus graphmodel.EpistemicStatus
}

// RelationshipsByConcept returns every relationship with conceptID as its
// from-endpoint, annotated with the edge type's vocabulary category and
// epistemic status.
func (s *Store) RelationshipsByConcept(ctx context.Context, conceptID string) ([]AnnotatedRelationship, error) {
	const q = `
		SELECT r.relationship_id, r.from_concept_id, r.to_concept_id, r.relationship_type, r.category,
		       r.confidence, r.source, r.created_by, r.created_at, r.document_id, r.direction_semantics,
		       v.category, v.epistemic_status
		FROM relationships r JOIN vocab_types v ON v.name = r.relationship_type
		WHERE r.from_concept_id = $1
		ORDER BY r.created_at`
	rows, err := s.pool.Query(ctx, q, conceptID)
	if err != nil {
		return nil, fmt.Errorf("graphstore: relationships by concept: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (AnnotatedRelationship, error) {
		var ar AnnotatedRelationship
		var category, source, direction, vocabCategory, epistemicStatus string
		err := row.Scan(&ar.RelationshipID, &ar.FromConceptID, &ar.ToConceptID, &ar.RelationshipType, &category,
			&ar.Confidence, &source, &ar.CreatedBy, &ar.CreatedAt, &ar.DocumentID, &direction,
			&vocabCategory, &epistemicStatus)
		if err != nil {
			return ar, err
		}
		ar.Category = graphmodel.RelationshipCategory(category)
		ar.Source = graphmodel.RelationshipSource(source)
		ar.DirectionSemantics = graphmodel.DirectionSemantics(direction)
		ar.VocabCategory = graphmodel.RelationshipCategory(vocabCategory)
		ar.EpistemicStatus = graphmodel.EpistemicStatus(epistemicStatus)
		return ar, nil
	})
}

// ConceptsByIDs is the exported form of conceptsByIDs, for query's
// polarity/diversity candidate-embedding lookups.
func (s *Store) ConceptsByIDs(ctx context.Context, ids []string) ([]graphmodel.Concept, error) {
	return s.conceptsByIDs(ctx, ids)
}
