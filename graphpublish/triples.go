// Package graphpublish builds and publishes the triple representation of
// extraction results to the graph ingestion stream, generalizing
// graph/publish.go's proposal-entity triple builders (and
// processor/web-ingester/handler.go's parent/chunk entity split) from the
// teacher's software-proposal domain to concepts, instances, relationships,
// and sources.
package graphpublish

import (
	"time"

	"github.com/c360studio/semstreams/message"
)

// Predicate names used across the entity triples this package builds.
// Mirrors vocabulary/semspec's flat-constant style but names KG entities
// instead of workflow proposals.
const (
	PredicateEntityType     = "entity_type"
	PredicateLabel          = "label"
	PredicateDescription    = "description"
	PredicateEmbedding      = "embedding"
	PredicateCreatedAt      = "created_at"
	PredicateUpdatedAt      = "updated_at"
	PredicateAccessCount    = "access_count"
	PredicateOntologyID     = "ontology_id"
	PredicateConceptID      = "concept_id"
	PredicateSourceID       = "source_id"
	PredicateEvidenceQuote  = "evidence_quote"
	PredicateRelType        = "relationship_type"
	PredicateConfidence     = "confidence_score"
	PredicateSourceURI      = "source_uri"
	PredicateSourceFormat   = "source_format"
	PredicateContentHash    = "content_hash"
	PredicateChunkIndex     = "chunk_index"
	PredicateChunkSection   = "chunk_section"
	PredicateBoundaryType   = "boundary_type"
	PredicateEvidencedBy    = "EVIDENCED_BY"
	PredicateFromSource     = "FROM_SOURCE"
)

// publisherName tags triples with their origin, mirroring message.Triple's
// Source field usage in graph/publish.go.
const publisherName = "kgraph.ingest"

// triple is a convenience constructor stamping Source/Timestamp/Confidence
// consistently, matching graph/publish.go's per-triple literal style but
// avoiding repeating those three fields at every call site.
func triple(subject, predicate string, object any, confidence float64, ts time.Time) message.Triple {
	return message.Triple{
		Subject:    subject,
		Predicate:  predicate,
		Object:     object,
		Source:     publisherName,
		Timestamp:  ts,
		Confidence: confidence,
	}
}

// ConceptTriples builds the triple set for a concept entity: label,
// description, embedding, ontology membership, timestamps.
func ConceptTriples(conceptID, ontologyID, label, description string, embedding []float32, now time.Time) []message.Triple {
	triples := []message.Triple{
		triple(conceptID, PredicateEntityType, "concept", 1.0, now),
		triple(conceptID, PredicateLabel, label, 1.0, now),
		triple(conceptID, PredicateOntologyID, ontologyID, 1.0, now),
		triple(conceptID, PredicateCreatedAt, now.Format(time.RFC3339), 1.0, now),
		triple(conceptID, PredicateUpdatedAt, now.Format(time.RFC3339), 1.0, now),
	}
	if description != "" {
		triples = append(triples, triple(conceptID, PredicateDescription, description, 1.0, now))
	}
	if len(embedding) > 0 {
		triples = append(triples, triple(conceptID, PredicateEmbedding, embedding, 1.0, now))
	}
	return triples
}

// InstanceTriples builds the triple set for an instance entity: the concept
// it evidences, the source chunk it came from, and its evidence quote.
func InstanceTriples(instanceID, conceptID, sourceID, quote string, confidence float64, now time.Time) []message.Triple {
	triples := []message.Triple{
		triple(instanceID, PredicateEntityType, "instance", confidence, now),
		triple(instanceID, PredicateConceptID, conceptID, confidence, now),
		triple(instanceID, PredicateSourceID, sourceID, confidence, now),
		triple(instanceID, PredicateCreatedAt, now.Format(time.RFC3339), confidence, now),
	}
	if quote != "" {
		triples = append(triples, triple(instanceID, PredicateEvidenceQuote, quote, confidence, now))
	}
	return triples
}

// RelationshipTriples builds the triple for an edge between two concepts.
// The relationship's subject/object ARE the concept IDs; the relationship
// type and confidence ride as predicate/metadata, matching how a graph
// store materializes typed edges rather than flat entity rows.
func RelationshipTriples(fromConceptID, toConceptID, relType string, confidence float64, now time.Time) []message.Triple {
	return []message.Triple{
		{
			Subject:    fromConceptID,
			Predicate:  relType,
			Object:     toConceptID,
			Source:     publisherName,
			Timestamp:  now,
			Confidence: confidence,
		},
	}
}

// SourceTriples builds the triple set for a Source entity: a document or a
// chunk of one, published last within a document's batch so nothing
// referencing it is ever orphaned (the "publish chunks then parent"
// ordering from processor/web-ingester/component.go, generalized to
// "publish chunk content then the document Source" here).
func SourceTriples(sourceID, parentID, uri, format, contentHash string, chunkIndex int, section string, boundaryType string, now time.Time) []message.Triple {
	triples := []message.Triple{
		triple(sourceID, PredicateEntityType, "source", 1.0, now),
		triple(sourceID, PredicateSourceFormat, format, 1.0, now),
		triple(sourceID, PredicateContentHash, contentHash, 1.0, now),
		triple(sourceID, PredicateCreatedAt, now.Format(time.RFC3339), 1.0, now),
	}
	if uri != "" {
		triples = append(triples, triple(sourceID, PredicateSourceURI, uri, 1.0, now))
	}
	if parentID != "" {
		triples = append(triples, triple(sourceID, PredicateFromSource, parentID, 1.0, now))
		triples = append(triples, triple(sourceID, PredicateChunkIndex, chunkIndex, 1.0, now))
		if section != "" {
			triples = append(triples, triple(sourceID, PredicateChunkSection, section, 1.0, now))
		}
		if boundaryType != "" {
			triples = append(triples, triple(sourceID, PredicateBoundaryType, boundaryType, 1.0, now))
		}
	}
	return triples
}
