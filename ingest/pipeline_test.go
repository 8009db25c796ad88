package ingest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/c360studio/kgraph/embedding"
	_ "github.com/c360studio/kgraph/embedding/providers"
	"github.com/c360studio/kgraph/graphmodel"
	"github.com/c360studio/kgraph/llm"
	_ "github.com/c360studio/kgraph/llm/providers"
	"github.com/c360studio/kgraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory Store used by pipeline tests, following the
// teacher's preference for hand-written fakes over a mocking framework
// (see llm/client_test.go, storage/entity_test.go).
type fakeStore struct {
	mu            sync.Mutex
	concepts      map[string]graphmodel.Concept
	instances     map[string]graphmodel.Instance
	relationships []graphmodel.Relationship
	vocab         map[string]string
	nextID        int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		concepts:  make(map[string]graphmodel.Concept),
		instances: make(map[string]graphmodel.Instance),
		vocab:     map[string]string{"CAUSES": "causal"},
	}
}

func (s *fakeStore) RecentConcepts(ctx context.Context, ontologyID string, n int) ([]graphmodel.Concept, error) {
	return nil, nil
}

func (s *fakeStore) TopAccessedConcepts(ctx context.Context, ontologyID string, n int) ([]graphmodel.Concept, error) {
	return nil, nil
}

func (s *fakeStore) SearchConcepts(ctx context.Context, ontologyID string, embedding []float32, limit int) ([]ScoredConcept, error) {
	// Never links: every extracted concept in these tests is novel.
	return nil, nil
}

func (s *fakeStore) InsertConcept(ctx context.Context, c graphmodel.Concept) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := fmt.Sprintf("concept-%d", s.nextID)
	c.ConceptID = id
	s.concepts[id] = c
	return id, nil
}

func (s *fakeStore) InsertInstance(ctx context.Context, inst graphmodel.Instance) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances[inst.InstanceID] = inst
	return inst.InstanceID, nil
}

func (s *fakeStore) CreateRelationship(ctx context.Context, rel graphmodel.Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relationships = append(s.relationships, rel)
	return nil
}

func (s *fakeStore) VocabularyTypes(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.vocab))
	for k, v := range s.vocab {
		out[k] = v
	}
	return out, nil
}

func (s *fakeStore) AddVocabType(ctx context.Context, vt graphmodel.VocabType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vocab[vt.Name] = string(vt.Category)
	return nil
}

// fakeProgress is an in-memory ProgressReporter.
type fakeProgress struct {
	mu      sync.Mutex
	updates []string
	failed  string
}

func (p *fakeProgress) UpdateProgress(ctx context.Context, jobID string, done, total int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, fmt.Sprintf("%s:%d/%d", jobID, done, total))
	return nil
}

func (p *fakeProgress) MarkFailed(ctx context.Context, jobID string, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = reason
	return nil
}

func newTestLLMClient(t *testing.T) *llm.Client {
	t.Helper()
	registry := model.NewRegistry(
		map[model.Capability]*model.CapabilityConfig{
			model.CapabilityExtraction:  {Preferred: []string{"mock-model"}},
			model.CapabilityTranslation: {Preferred: []string{"mock-model"}},
			model.CapabilityVocabMerge:  {Preferred: []string{"mock-model"}},
		},
		map[string]*model.EndpointConfig{
			"mock-model": {Provider: "mock", URL: "http://unused", Model: "mock-model"},
		},
	)
	return llm.NewClient(registry)
}

func newTestEmbedder(t *testing.T) *embedding.Worker {
	t.Helper()
	w, err := embedding.NewWorker("mock")
	require.NoError(t, err)
	return w
}

func TestPipeline_Run_IngestsDocumentEndToEnd(t *testing.T) {
	store := newFakeStore()
	progress := &fakeProgress{}
	pipeline := NewPipeline(store, newTestLLMClient(t), newTestEmbedder(t), nil, nil, progress)

	content := []byte("# Title\n\nSome paragraph content long enough to form one chunk of text for ingestion testing purposes across the full pipeline.\n")
	req := DocumentSubmitted{
		JobID:      "job-1",
		OntologyID: "ontology-1",
		Filename:   "doc.md",
		Format:     "markdown",
		Content:    content,
	}

	stats, err := pipeline.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ChunksProcessed)
	assert.Equal(t, 0, stats.ChunksFailed)
	assert.Equal(t, 1, stats.ConceptsExtracted)
	assert.Equal(t, 1, stats.ConceptsCreated)
	assert.Equal(t, 1, stats.InstancesCreated)

	assert.Len(t, store.concepts, 1)
	assert.Len(t, store.instances, 1)
	assert.NotEmpty(t, progress.updates)
	assert.Empty(t, progress.failed)
}

func TestPipeline_Run_ToleratesEmptyVocabulary(t *testing.T) {
	store := newFakeStore()
	store.vocab = map[string]string{} // force an auto-expand path if a relationship appears
	progress := &fakeProgress{}
	pipeline := NewPipeline(store, newTestLLMClient(t), newTestEmbedder(t), nil, nil, progress)

	content := []byte("Just one short paragraph, no heading, to keep this a single chunk.\n")
	req := DocumentSubmitted{JobID: "job-2", OntologyID: "ontology-1", Filename: "doc.md", Format: "markdown", Content: content}

	stats, err := pipeline.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ChunksProcessed)
	// The mock extraction response never proposes relationships, so no
	// vocabulary expansion is exercised here; this confirms the pipeline
	// tolerates an empty vocabulary without erroring.
	assert.Equal(t, 0, stats.VocabExpansions)
}
