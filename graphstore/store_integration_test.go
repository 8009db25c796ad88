//go:build integration

package graphstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/c360studio/kgraph/graphmodel"
	"github.com/c360studio/kgraph/graphstore"
)

func openTestStore(t *testing.T) *graphstore.Store {
	t.Helper()
	dsn := os.Getenv("KGRAPH_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("KGRAPH_TEST_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := graphstore.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestStore_ConceptRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.InsertConcept(ctx, graphmodel.Concept{
		Label:          "Widget",
		Description:    "a test widget",
		Ontology:       "test-ontology",
		CreationMethod: graphmodel.CreationLLMExtraction,
		Embedding:      make([]float32, 1536), // schema column is vector(1536)
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.ConceptByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Widget", got.Label)
	require.Equal(t, 1, got.AccessCount)
}

func TestStore_RelationshipRequiresBothEndpoints(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.CreateRelationship(ctx, graphmodel.Relationship{
		FromConceptID:    "nonexistent-a",
		ToConceptID:      "nonexistent-b",
		RelationshipType: "CAUSES",
		Confidence:       0.9,
	})
	require.Error(t, err)
}

func TestStore_VocabMergeRewritesEdges(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddVocabType(ctx, graphmodel.VocabType{Name: "LEADS_TO", Category: graphmodel.CategoryCausal, IsActive: true}))
	require.NoError(t, s.AddVocabType(ctx, graphmodel.VocabType{Name: "CAUSES", Category: graphmodel.CategoryCausal, IsActive: true}))

	a, err := s.InsertConcept(ctx, graphmodel.Concept{Label: "A", Ontology: "test-ontology"})
	require.NoError(t, err)
	b, err := s.InsertConcept(ctx, graphmodel.Concept{Label: "B", Ontology: "test-ontology"})
	require.NoError(t, err)
	require.NoError(t, s.CreateRelationship(ctx, graphmodel.Relationship{FromConceptID: a, ToConceptID: b, RelationshipType: "LEADS_TO", Confidence: 0.8}))

	require.NoError(t, s.ExecuteMerge(ctx, "LEADS_TO", "CAUSES"))

	vocab, err := s.VocabularyTypes(ctx)
	require.NoError(t, err)
	_, stillActive := vocab["LEADS_TO"]
	require.False(t, stillActive)
	_, targetActive := vocab["CAUSES"]
	require.True(t, targetActive)
}
