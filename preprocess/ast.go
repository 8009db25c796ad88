// Package preprocess turns raw document bytes into semantically chunked,
// translation-normalized text ready for concept extraction. It ports
// source/parser/markdown.go's frontmatter/id handling and
// source/chunker/chunker.go's section-boundary chunking, generalized to a
// typed AST and a word-budget model (SPEC_FULL.md §3.1).
package preprocess

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// NodeKind tags the variant held by a Node.
type NodeKind string

const (
	KindHeading NodeKind = "heading"
	KindText    NodeKind = "text"
	KindList    NodeKind = "list"
	KindCode    NodeKind = "code"
	KindMermaid NodeKind = "mermaid"
	KindJSON    NodeKind = "json"
	KindYAML    NodeKind = "yaml"
	KindOther   NodeKind = "other"
)

// Node is one block-level element of the parsed document. Only the fields
// relevant to Kind are meaningful; the tagged-union shape mirrors how the
// teacher's chunker treated sections (isCodeFence/isHeading/parseHeading)
// but carries enough structure for typed translation and boundary rules.
type Node struct {
	Kind     NodeKind
	Level    int    // heading level (1-6); unused otherwise
	Ordered  bool   // list: true for numbered lists
	Lang     string // code/mermaid: fence info string
	Text     string // rendered plain-ish text for this node
	Lines    int    // source line count, used for the "≥3 lines" translation rule
}

// Frontmatter is the parsed YAML header of a document, if present.
type Frontmatter struct {
	Raw        map[string]any
	ChunkHints *ChunkHints
}

// ChunkHints is an optional frontmatter override of the generic chunking
// algorithm, ported from original_source/src/api/lib/markdown_preprocessor.py
// (not explicit in spec.md's distilled text, but present in the original and
// worth preserving: authors can pin a heading level as the forced-break
// boundary instead of relying on the word-budget heuristic alone).
type ChunkHints struct {
	// ForceBreakAtLevel, when >0, forces a chunk boundary at every heading
	// of this level or shallower, regardless of the word budget.
	ForceBreakAtLevel int `yaml:"force_break_at_level"`
}

// ExtractFrontmatter splits a leading "---\n...\n---\n" YAML block from the
// document body. Ported from parser.extractFrontmatter; on malformed
// frontmatter the whole input is returned as body with a nil Frontmatter,
// matching the teacher's "best effort" fallback rather than failing parse.
func ExtractFrontmatter(content string) (*Frontmatter, string) {
	if !strings.HasPrefix(content, "---\n") && !strings.HasPrefix(content, "---\r\n") {
		return nil, content
	}

	const delimiter = "---"
	start := len(delimiter)
	if len(content) > start && content[start] == '\r' {
		start++
	}
	if len(content) > start && content[start] == '\n' {
		start++
	}

	closeIdx := strings.Index(content[start:], "\n"+delimiter)
	if closeIdx == -1 {
		closeIdx = strings.Index(content[start:], "\r\n"+delimiter)
	}
	if closeIdx == -1 {
		return nil, content
	}

	yamlContent := content[start : start+closeIdx]
	bodyStart := start + closeIdx + 1 + len(delimiter)
	for bodyStart < len(content) && (content[bodyStart] == '\n' || content[bodyStart] == '\r') {
		bodyStart++
	}
	body := ""
	if bodyStart < len(content) {
		body = content[bodyStart:]
	}

	var raw map[string]any
	if err := yaml.Unmarshal([]byte(yamlContent), &raw); err != nil {
		return nil, content
	}

	fm := &Frontmatter{Raw: raw}
	if hints, ok := raw["chunk_hints"].(map[string]any); ok {
		ch := &ChunkHints{}
		if lvl, ok := hints["force_break_at_level"].(int); ok {
			ch.ForceBreakAtLevel = lvl
		}
		fm.ChunkHints = ch
	}
	return fm, body
}

// String renders a Node for debugging/logging.
func (n Node) String() string {
	return fmt.Sprintf("%s(level=%d lang=%q lines=%d)", n.Kind, n.Level, n.Lang, n.Lines)
}
