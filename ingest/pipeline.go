package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360studio/kgraph/embedding"
	"github.com/c360studio/kgraph/graphmodel"
	"github.com/c360studio/kgraph/graphpublish"
	"github.com/c360studio/kgraph/kgerrors"
	"github.com/c360studio/kgraph/llm"
	"github.com/c360studio/kgraph/preprocess"
	"github.com/c360studio/kgraph/vocabulary"
	"github.com/c360studio/semstreams/message"
)

// conceptLinkThreshold is the pgvector cosine-distance cutoff below which
// an extracted concept links to an existing one instead of creating a new
// concept (spec.md §4.2 step 4: similarity 0.85 -> distance 0.15).
const conceptLinkThreshold = 0.15

// carryOverChunks sizes the carry-over context: nextCarryOver keeps the
// latest carryOverChunks*8 concept labels.
const carryOverChunks = 3

// topAccessedContext is how many of the ontology's most-accessed concepts
// are added to carry-over context alongside the recent ones.
const topAccessedContext = 5

// Stats tallies per-document ingestion outcomes (spec.md §4.2 step 7).
type Stats struct {
	ChunksProcessed      int
	ChunksFailed         int
	ConceptsExtracted    int
	ConceptsLinked       int
	ConceptsCreated      int
	InstancesCreated     int
	RelationshipsCreated int
	VocabExpansions      int
}

// DocumentSubmitted is the ingest.document.submitted request payload.
type DocumentSubmitted struct {
	JobID      string
	OntologyID string
	Filename   string
	Format     string
	Content    []byte
}

// Pipeline processes a single document's chunks in strict order (never a
// goroutine per chunk), enforcing spec.md §4.2's within-document ordering
// guarantee. Separate Pipeline instances (one per consumer delivery) may
// run concurrently across documents, per spec.md §5.
type Pipeline struct {
	store       Store
	llmClient   *llm.Client
	embedder    *embedding.Worker
	translator  *preprocess.Translator
	publisher   *graphpublish.Publisher
	progress    ProgressReporter
	chunkConfig preprocess.Config
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithChunkConfig overrides the default preprocess.Config.
func WithChunkConfig(cfg preprocess.Config) Option {
	return func(p *Pipeline) { p.chunkConfig = cfg }
}

// NewPipeline builds a Pipeline from its collaborators.
func NewPipeline(store Store, llmClient *llm.Client, embedder *embedding.Worker, translator *preprocess.Translator, publisher *graphpublish.Publisher, progress ProgressReporter, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:       store,
		llmClient:   llmClient,
		embedder:    embedder,
		translator:  translator,
		publisher:   publisher,
		progress:    progress,
		chunkConfig: preprocess.DefaultConfig(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run preprocesses and ingests one document end to end.
func (p *Pipeline) Run(ctx context.Context, req DocumentSubmitted) (*Stats, error) {
	doc, err := preprocess.Preprocess(ctx, p.translator, p.chunkConfig, req.Format, req.Filename, req.Content)
	if err != nil {
		return nil, fmt.Errorf("preprocess document: %w", err)
	}

	stats := &Stats{}
	var carryOver []string

	for i, chunk := range doc.Chunks {
		chunkConcepts, err := p.runChunk(ctx, req, doc, chunk, carryOver, stats)
		if err != nil {
			stats.ChunksFailed++
			p.logger.Error("chunk ingestion failed", "chunk_id", chunk.ID, "err", err)
			if p.progress != nil {
				_ = p.progress.MarkFailed(ctx, req.JobID, err.Error())
			}
			return stats, kgerrors.Fatal("likely embedding service outage", err)
		}

		stats.ChunksProcessed++
		carryOver = nextCarryOver(carryOver, chunkConcepts)

		if p.progress != nil {
			if err := p.progress.UpdateProgress(ctx, req.JobID, i+1, len(doc.Chunks)); err != nil {
				p.logger.Warn("progress update failed", "job_id", req.JobID, "err", err)
			}
		}
	}

	return stats, nil
}

// runChunk executes spec.md §4.2's per-chunk steps 1-6 and returns the
// concept labels this chunk touched, for carry-over into the next chunk.
func (p *Pipeline) runChunk(ctx context.Context, req DocumentSubmitted, doc *preprocess.Document, chunk preprocess.DocumentChunk, carryOver []string, stats *Stats) ([]string, error) {
	now := time.Now()

	contextConcepts, err := p.buildContext(ctx, req.OntologyID, carryOver)
	if err != nil {
		p.logger.Warn("carry-over context lookup failed, continuing without it", "err", err)
	}

	extraction, err := p.llmClient.ExtractConcepts(ctx, chunk.Text, contextConcepts)
	if err != nil {
		return nil, fmt.Errorf("extract concepts: %w", err)
	}

	idMap := make(map[string]string, len(extraction.Concepts)) // LLM label -> concept ID
	var touchedLabels []string
	var chunkFailures int

	for _, ec := range extraction.Concepts {
		conceptID, isNew, err := p.resolveConcept(ctx, req.OntologyID, ec)
		if err != nil {
			chunkFailures++
			p.logger.Warn("concept resolution failed", "label", ec.Label, "err", err)
			continue
		}
		idMap[ec.Label] = conceptID
		touchedLabels = append(touchedLabels, ec.Label)
		stats.ConceptsExtracted++
		if isNew {
			stats.ConceptsCreated++
			p.publishEntity(ctx, conceptID, graphpublish.ConceptTriples(conceptID, req.OntologyID, ec.Label, ec.Description, nil, now))
		} else {
			stats.ConceptsLinked++
		}

		instanceID := chunk.ID + "_instance_" + preprocess.SanitizeIDPart(ec.Label)
		if _, err := p.store.InsertInstance(ctx, graphmodel.Instance{
			InstanceID: instanceID,
			ConceptID:  conceptID,
			SourceID:   chunk.ID,
			Quote:      ec.Quote,
		}); err != nil {
			chunkFailures++
			p.logger.Warn("instance insert failed", "concept_id", conceptID, "err", err)
			continue
		}
		stats.InstancesCreated++
		p.publishEntity(ctx, instanceID, graphpublish.InstanceTriples(instanceID, conceptID, chunk.ID, ec.Quote, 1.0, now))
	}

	if len(extraction.Concepts) > 0 && chunkFailures == len(extraction.Concepts) {
		return nil, fmt.Errorf("all %d concepts in chunk failed", len(extraction.Concepts))
	}

	vocab, err := p.store.VocabularyTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}
	normalizer := vocabulary.NewNormalizer(vocab)

	for _, er := range extraction.Relationships {
		fromID, fromOK := idMap[er.FromLabel]
		toID, toOK := idMap[er.ToLabel]
		if !fromOK || !toOK {
			continue
		}

		relType := er.RelationshipType
		match := normalizer.Normalize(relType)
		if match.Matched {
			relType = match.CanonicalType
		} else {
			if err := p.expandVocabulary(ctx, req.OntologyID, relType); err != nil {
				p.logger.Warn("vocabulary auto-expand failed", "type", relType, "err", err)
				continue
			}
			stats.VocabExpansions++
		}

		if err := p.store.CreateRelationship(ctx, graphmodel.Relationship{
			FromConceptID:    fromID,
			ToConceptID:      toID,
			RelationshipType: relType,
			Confidence:       er.Confidence,
			Source:           graphmodel.RelSourceLLMExtraction,
		}); err != nil {
			p.logger.Warn("relationship creation failed", "type", relType, "err", err)
			continue
		}
		stats.RelationshipsCreated++
		relID := fromID + "_" + relType + "_" + toID
		p.publishEntity(ctx, relID, graphpublish.RelationshipTriples(fromID, toID, relType, er.Confidence, now))
	}

	boundary := string(chunk.BoundaryType)
	sourceTriples := graphpublish.SourceTriples(chunk.ID, doc.ID, "", req.Format, doc.ContentHash, chunk.Index, chunk.Section, boundary, now)
	p.publishEntity(ctx, chunk.ID, sourceTriples)

	return touchedLabels, nil
}

// publishEntity publishes one entity's triples, logging but not failing
// the chunk on a publish error (the graph engine is eventually consistent
// with the authoritative graphstore writes above).
func (p *Pipeline) publishEntity(ctx context.Context, entityID string, triples []message.Triple) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, entityID, triples, time.Now()); err != nil {
		p.logger.Warn("entity publish failed", "entity_id", entityID, "err", err)
	}
}

// resolveConcept embeds an extracted concept's text, searches for a close
// existing concept, and either links to it or creates a new one
// (spec.md §4.2 step 4, threshold 0.85 similarity / 0.15 distance). The
// bool return reports whether a new concept was created.
func (p *Pipeline) resolveConcept(ctx context.Context, ontologyID string, ec llm.ExtractedConcept) (string, bool, error) {
	text := ec.Label + ": " + ec.Description
	vec, err := p.embedder.Embed(ctx, embedding.KindConcept, text)
	if err != nil {
		return "", false, fmt.Errorf("embed concept: %w", err)
	}

	matches, err := p.store.SearchConcepts(ctx, ontologyID, vec, 1)
	if err != nil {
		return "", false, fmt.Errorf("search concepts: %w", err)
	}
	if len(matches) > 0 && matches[0].Distance <= conceptLinkThreshold {
		return matches[0].Concept.ConceptID, false, nil
	}

	id, err := p.store.InsertConcept(ctx, graphmodel.Concept{
		Label:          ec.Label,
		Description:    ec.Description,
		Embedding:      vec,
		Ontology:       ontologyID,
		CreationMethod: graphmodel.CreationLLMExtraction,
	})
	if err != nil {
		return "", false, fmt.Errorf("insert concept: %w", err)
	}
	return id, true, nil
}

// expandVocabulary registers a brand-new relationship type the normalizer
// couldn't match to anything canonical, synchronously embedding it before
// returning (ADR-032 pattern, spec.md §4.2 step 6). The vocabulary is
// shared across ontologies, so the new type carries no ontology scope;
// its epistemic status starts INSUFFICIENT_DATA until enough edges
// accumulate to classify it, and its CreationMethod records the
// auto-expand provenance (distinct from Category, see DESIGN.md).
func (p *Pipeline) expandVocabulary(ctx context.Context, ontologyID, relType string) error {
	vec, err := p.embedder.Embed(ctx, embedding.KindVocab, relType)
	if err != nil {
		return fmt.Errorf("embed new vocab type: %w", err)
	}
	return p.store.AddVocabType(ctx, graphmodel.VocabType{
		Name:            relType,
		Category:        graphmodel.CategoryStructural,
		Embedding:       vec,
		IsActive:        true,
		EpistemicStatus: graphmodel.EpistemicInsufficientData,
		CreationMethod:  graphmodel.CreationLLMExtraction,
		CreatedAt:       time.Now(),
	})
}

// buildContext assembles carry-over context concepts: the carry-over labels
// kept by nextCarryOver plus the ontology's most-accessed concepts.
func (p *Pipeline) buildContext(ctx context.Context, ontologyID string, carryOver []string) ([]string, error) {
	top, err := p.store.TopAccessedConcepts(ctx, ontologyID, topAccessedContext)
	if err != nil {
		return carryOver, err
	}
	out := append([]string{}, carryOver...)
	for _, c := range top {
		out = append(out, c.Label)
	}
	return out, nil
}

// nextCarryOver keeps the most recent carryOverChunks*8 (24) concept labels,
// flattened across chunks; a chunk with zero concepts leaves the carry-over
// unchanged. Chunk boundaries are not tracked, so when chunks contribute
// fewer than 8 labels each, labels from more than carryOverChunks chunks
// back remain in the carry-over.
func nextCarryOver(prev []string, thisChunk []string) []string {
	if len(thisChunk) == 0 {
		return prev
	}
	combined := append(append([]string{}, prev...), thisChunk...)
	maxLabels := carryOverChunks * 8 // rough cap; exact chunk boundaries aren't tracked per-label
	if len(combined) > maxLabels {
		combined = combined[len(combined)-maxLabels:]
	}
	return combined
}
