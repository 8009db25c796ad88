package preprocess

import (
	"strings"

	"github.com/c360studio/kgraph/kgerrors"
)

// BoundaryType records why a chunk ended where it did.
type BoundaryType string

const (
	BoundarySemantic      BoundaryType = "semantic"
	BoundaryHardCut       BoundaryType = "hard_cut"
	BoundaryEndOfDocument BoundaryType = "end_of_document"
)

// Chunk is one semantically bounded piece of a preprocessed document.
type Chunk struct {
	Index        int
	Section      string // nearest enclosing heading text, if any
	Text         string
	WordCount    int
	BoundaryType BoundaryType
}

// Config holds chunk-assembly tuning, generalized from
// source/chunker/chunker.go's token-budget Config to a word-budget model
// (spec.md §3.1/§1.3: target_words/min_words/max_words).
type Config struct {
	TargetWords int
	MinWords    int
	MaxWords    int

	// MaxParallelTranslations bounds the Translator's concurrency (default 3).
	MaxParallelTranslations int
}

// DefaultConfig returns the spec's default chunking budget.
func DefaultConfig() Config {
	return Config{
		TargetWords:             1000,
		MinWords:                200,
		MaxWords:                1500,
		MaxParallelTranslations: 3,
	}
}

// hardCutSearchFraction is how far back from the max-word boundary the
// hard-cut fallback searches for a sentence terminator (spec.md §3.1: "last
// 20% of the max-word window").
const hardCutSearchFraction = 0.20

// Assemble builds semantic chunks from a translated, filtered Node
// sequence, generalizing Chunker.Chunk/parseSections/splitLargeSection/
// mergeSmallChunks from source/chunker/chunker.go: a natural boundary opens
// at a heading once target words are reached, a forced boundary cuts at
// max words, and an oversized single node is hard-cut at a sentence
// terminator (or exactly at max words, if none is found nearby).
func Assemble(nodes []Node, cfg Config, hints *ChunkHints) ([]Chunk, error) {
	if cfg.TargetWords <= 0 {
		cfg = DefaultConfig()
	}
	if cfg.MinWords <= 0 || cfg.TargetWords <= 0 || cfg.MaxWords <= 0 || cfg.MinWords >= cfg.TargetWords || cfg.TargetWords > cfg.MaxWords {
		return nil, kgerrors.Fatal("invalid chunk config", nil)
	}

	var chunks []Chunk
	var buf strings.Builder
	var section string
	bufWords := 0

	flush := func(boundary BoundaryType) {
		text := strings.TrimSpace(buf.String())
		if text == "" {
			return
		}
		chunks = append(chunks, Chunk{
			Index:        len(chunks),
			Section:      section,
			Text:         text,
			WordCount:    wordCount(text),
			BoundaryType: boundary,
		})
		buf.Reset()
		bufWords = 0
	}

	forceBreakLevel := 0
	if hints != nil {
		forceBreakLevel = hints.ForceBreakAtLevel
	}

	for _, n := range nodes {
		if n.Kind == KindHeading {
			if forceBreakLevel > 0 && n.Level <= forceBreakLevel && bufWords > 0 {
				flush(BoundarySemantic)
			} else if bufWords >= cfg.TargetWords {
				flush(BoundarySemantic)
			}
			section = n.Text
			continue
		}

		text := n.Text
		words := wordCount(text)

		if words > cfg.MaxWords {
			if bufWords > 0 {
				flush(BoundarySemantic)
			}
			for _, piece := range hardCutOversized(text, cfg.MaxWords) {
				chunks = append(chunks, Chunk{
					Index:        len(chunks),
					Section:      section,
					Text:         piece,
					WordCount:    wordCount(piece),
					BoundaryType: BoundaryHardCut,
				})
			}
			continue
		}

		if bufWords > 0 && bufWords+words > cfg.MaxWords {
			flush(BoundaryHardCut)
		} else if bufWords >= cfg.TargetWords {
			flush(BoundarySemantic)
		}

		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(text)
		bufWords += words
	}

	if bufWords > 0 {
		flush(BoundaryEndOfDocument)
	} else if len(chunks) > 0 {
		chunks[len(chunks)-1].BoundaryType = BoundaryEndOfDocument
	}

	return mergeSmallChunks(chunks, cfg), nil
}

// hardCutOversized splits a single too-large node's text into <=maxWords
// pieces, preferring a sentence terminator within the last 20% of the
// window and falling back to an exact word-count cut.
func hardCutOversized(text string, maxWords int) []string {
	words := strings.Fields(text)
	var pieces []string
	for len(words) > maxWords {
		cut := findSentenceCut(words, maxWords)
		pieces = append(pieces, strings.Join(words[:cut], " "))
		words = words[cut:]
	}
	if len(words) > 0 {
		pieces = append(pieces, strings.Join(words, " "))
	}
	return pieces
}

func findSentenceCut(words []string, maxWords int) int {
	searchStart := maxWords - int(float64(maxWords)*hardCutSearchFraction)
	if searchStart < 0 {
		searchStart = 0
	}
	for i := maxWords - 1; i >= searchStart; i-- {
		if i >= len(words) {
			continue
		}
		w := words[i]
		if strings.HasSuffix(w, ".") || strings.HasSuffix(w, "!") || strings.HasSuffix(w, "?") {
			return i + 1
		}
	}
	return maxWords
}

func mergeSmallChunks(chunks []Chunk, cfg Config) []Chunk {
	if len(chunks) <= 1 {
		return chunks
	}
	var result []Chunk
	for i := 0; i < len(chunks); i++ {
		c := chunks[i]
		if c.WordCount < cfg.MinWords && i < len(chunks)-1 {
			next := chunks[i+1]
			combinedWords := c.WordCount + next.WordCount
			if combinedWords <= cfg.MaxWords {
				chunks[i+1] = Chunk{
					Section:      c.Section,
					Text:         c.Text + "\n\n" + next.Text,
					WordCount:    combinedWords,
					BoundaryType: next.BoundaryType,
				}
				continue
			}
		}
		result = append(result, c)
	}
	for i := range result {
		result[i].Index = i
	}
	return result
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
