package preprocess

import (
	"context"
	"testing"

	"github.com/c360studio/kgraph/llm"
	_ "github.com/c360studio/kgraph/llm/providers" // registers "mock"
	"github.com/c360studio/kgraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockClient(t *testing.T) *llm.Client {
	t.Helper()
	registry := model.NewRegistry(
		map[model.Capability]*model.CapabilityConfig{
			model.CapabilityTranslation: {
				Description: "translate blocks to prose",
				Preferred:   []string{"mock-model"},
			},
		},
		map[string]*model.EndpointConfig{
			"mock-model": {
				Provider: "mock",
				Model:    "mock-model",
			},
		},
	)
	return llm.NewClient(registry)
}

func TestTranslator_ShortBlockUsesPlaceholder(t *testing.T) {
	tr := NewTranslator(mockClient(t), 3, nil)
	nodes := []Node{
		{Kind: KindCode, Lang: "go", Text: "x := 1", Lines: 1},
	}
	tr.Translate(context.Background(), nodes)
	assert.Contains(t, nodes[0].Text, "CODE BLOCK: go - 1 lines")
}

func TestTranslator_LongBlockCallsLLM(t *testing.T) {
	tr := NewTranslator(mockClient(t), 3, nil)
	nodes := []Node{
		{Kind: KindCode, Lang: "go", Text: "line1\nline2\nline3\nline4", Lines: 4},
	}
	tr.Translate(context.Background(), nodes)
	require.NotEmpty(t, nodes[0].Text)
	assert.Contains(t, nodes[0].Text, "mock translation")
}

func TestTranslator_NonTranslatableNodesUntouched(t *testing.T) {
	tr := NewTranslator(mockClient(t), 3, nil)
	nodes := []Node{
		{Kind: KindText, Text: "plain prose, nothing to translate"},
	}
	tr.Translate(context.Background(), nodes)
	assert.Equal(t, "plain prose, nothing to translate", nodes[0].Text)
}

func TestTranslator_MixedBatchConcurrency(t *testing.T) {
	tr := NewTranslator(mockClient(t), 2, nil)
	nodes := make([]Node, 5)
	for i := range nodes {
		nodes[i] = Node{Kind: KindJSON, Text: "a\nb\nc\nd\ne", Lines: 5}
	}
	tr.Translate(context.Background(), nodes)
	for _, n := range nodes {
		assert.NotEmpty(t, n.Text)
	}
}
