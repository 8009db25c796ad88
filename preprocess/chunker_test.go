package preprocess

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = "word"
	}
	return strings.Join(w, " ")
}

func TestAssemble_SimpleDocumentOneChunk(t *testing.T) {
	nodes := []Node{
		{Kind: KindHeading, Level: 1, Text: "Intro"},
		{Kind: KindText, Text: words(50)},
	}
	chunks, err := Assemble(nodes, DefaultConfig(), nil)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, BoundaryEndOfDocument, chunks[0].BoundaryType)
	assert.Equal(t, "Intro", chunks[0].Section)
}

func TestAssemble_NaturalBoundaryAtHeadingPastTarget(t *testing.T) {
	cfg := Config{TargetWords: 100, MinWords: 10, MaxWords: 300}
	nodes := []Node{
		{Kind: KindHeading, Level: 1, Text: "A"},
		{Kind: KindText, Text: words(150)},
		{Kind: KindHeading, Level: 1, Text: "B"},
		{Kind: KindText, Text: words(50)},
	}
	chunks, err := Assemble(nodes, cfg, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, BoundarySemantic, chunks[0].BoundaryType)
	assert.Equal(t, "A", chunks[0].Section)
	assert.Equal(t, "B", chunks[1].Section)
}

func TestAssemble_ForcedBoundaryAtMax(t *testing.T) {
	cfg := Config{TargetWords: 100, MinWords: 10, MaxWords: 150}
	nodes := []Node{
		{Kind: KindText, Text: words(120)},
		{Kind: KindText, Text: words(120)},
	}
	chunks, err := Assemble(nodes, cfg, nil)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)
	for _, c := range chunks[:len(chunks)-1] {
		assert.LessOrEqual(t, c.WordCount, cfg.MaxWords)
	}
}

func TestAssemble_OversizedNodeHardCut(t *testing.T) {
	cfg := Config{TargetWords: 100, MinWords: 10, MaxWords: 200}
	text := words(500)
	nodes := []Node{{Kind: KindText, Text: text}}
	chunks, err := Assemble(nodes, cfg, nil)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, c.WordCount, cfg.MaxWords)
	}
	assert.Equal(t, BoundaryHardCut, chunks[0].BoundaryType)
}

func TestAssemble_SentenceAwareHardCut(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 300; i++ {
		sb.WriteString("word. ")
	}
	cfg := Config{TargetWords: 50, MinWords: 5, MaxWords: 100}
	nodes := []Node{{Kind: KindText, Text: strings.TrimSpace(sb.String())}}
	chunks, err := Assemble(nodes, cfg, nil)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(chunks[0].Text), "."))
}

func TestAssemble_ZeroConfigFallsBackToDefault(t *testing.T) {
	_, err := Assemble([]Node{{Kind: KindText, Text: "x"}}, Config{}, nil)
	assert.NoError(t, err)
}

func TestAssemble_InvalidConfigIsFatal(t *testing.T) {
	_, err := Assemble([]Node{{Kind: KindText, Text: "x"}}, Config{TargetWords: 100, MinWords: 200, MaxWords: 50}, nil)
	assert.Error(t, err)
}

func TestAssemble_ForceBreakHint(t *testing.T) {
	cfg := Config{TargetWords: 1000, MinWords: 10, MaxWords: 2000}
	nodes := []Node{
		{Kind: KindHeading, Level: 2, Text: "A"},
		{Kind: KindText, Text: words(20)},
		{Kind: KindHeading, Level: 2, Text: "B"},
		{Kind: KindText, Text: words(20)},
	}
	chunks, err := Assemble(nodes, cfg, &ChunkHints{ForceBreakAtLevel: 2})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
}

func TestMergeSmallChunks_CombinesBelowMin(t *testing.T) {
	cfg := Config{TargetWords: 100, MinWords: 50, MaxWords: 300}
	chunks := []Chunk{
		{Index: 0, Text: words(10), WordCount: 10, BoundaryType: BoundarySemantic},
		{Index: 1, Text: words(60), WordCount: 60, BoundaryType: BoundaryEndOfDocument},
	}
	merged := mergeSmallChunks(chunks, cfg)
	require.Len(t, merged, 1)
	assert.Equal(t, 70, merged[0].WordCount)
}
