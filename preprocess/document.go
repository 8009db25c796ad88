package preprocess

import (
	"context"
	"log/slog"

	"github.com/c360studio/kgraph/kgerrors"
)

// Document is the result of preprocessing one source file: its frontmatter,
// stable IDs, and the semantic chunks ready for the ingestion pipeline.
type Document struct {
	ID          string
	ContentHash string
	Frontmatter *Frontmatter
	Chunks      []DocumentChunk
}

// DocumentChunk pairs an assembled Chunk with the deterministic chunk ID
// the ingestion pipeline will use as that chunk's Source entity ID.
type DocumentChunk struct {
	ID string
	Chunk
}

// Preprocess runs the full pipeline spec.md §4.1 describes: frontmatter
// extraction, AST scan, bounded-parallel code/diagram translation, prose
// post-filtering, and word-budget semantic chunk assembly. format is the
// source format tag used in the generated entity IDs (e.g. "markdown").
func Preprocess(ctx context.Context, translator *Translator, cfg Config, format, filename string, content []byte) (*Document, error) {
	frontmatter, body := ExtractFrontmatter(string(content))

	nodes := Scan(body)
	if len(nodes) == 0 {
		return nil, kgerrors.InvalidInput("document has no parseable content", nil)
	}

	if translator != nil {
		translator.Translate(ctx, nodes)
	} else {
		for i, n := range nodes {
			if translatable(n.Kind) {
				nodes[i].Text = "[CODE BLOCK: " + displayLang(n) + "]"
			}
		}
	}

	for i, n := range nodes {
		nodes[i].Text = PostFilter(n.Text)
	}

	var hints *ChunkHints
	if frontmatter != nil {
		hints = frontmatter.ChunkHints
	}

	chunks, err := Assemble(nodes, cfg, hints)
	if err != nil {
		return nil, err
	}

	docID := GenerateDocID(format, filename, content)
	hash := ContentHash(content)

	out := make([]DocumentChunk, len(chunks))
	for i, c := range chunks {
		out[i] = DocumentChunk{
			ID:    GenerateChunkID(format, content, i),
			Chunk: c,
		}
	}

	slog.Default().Debug("preprocessed document", "doc_id", docID, "chunks", len(out))

	return &Document{
		ID:          docID,
		ContentHash: hash,
		Frontmatter: frontmatter,
		Chunks:      out,
	}, nil
}
