package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// ExtractedConcept is one concept the LLM proposed from a chunk of text.
type ExtractedConcept struct {
	Label       string   `json:"label"`
	Description string   `json:"description"`
	SearchTerms []string `json:"search_terms"`
	Quote       string   `json:"quote"`
}

// ExtractedRelationship is one proposed edge between two extracted labels
// (or an existing concept label carried over from context).
type ExtractedRelationship struct {
	FromLabel        string  `json:"from"`
	ToLabel          string  `json:"to"`
	RelationshipType string  `json:"relationship_type"`
	Confidence       float64 `json:"confidence"`
}

// ExtractionResult is the structured output of ExtractConcepts.
type ExtractionResult struct {
	Concepts      []ExtractedConcept       `json:"concepts"`
	Relationships []ExtractedRelationship  `json:"relationships"`
}

// ExtractConcepts asks the LLM to propose concepts, evidence quotes, and
// relationships from a chunk of text, given carry-over context concepts
// from preceding chunks and the ontology's most-accessed concepts (see
// spec.md §4.2 step 2-3). Uses capability "extraction".
func (c *Client) ExtractConcepts(ctx context.Context, chunkText string, contextConcepts []string) (*ExtractionResult, error) {
	prompt := buildExtractionPrompt(chunkText, contextConcepts)

	resp, err := c.Complete(ctx, Request{
		Capability: string(extractionCapability),
		Messages: []Message{
			{Role: "system", Content: extractionSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: floatPtr(0.0),
	})
	if err != nil {
		return nil, fmt.Errorf("extract concepts: %w", err)
	}

	raw := ExtractJSON(resp.Content)
	if raw == "" {
		return nil, NewFatalError(fmt.Errorf("no JSON object found in extraction response"))
	}

	var result ExtractionResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, NewFatalError(fmt.Errorf("parse extraction response: %w", err))
	}
	return &result, nil
}

// TranslateToProse asks the LLM to describe a code/diagram/data block in
// plain prose, for the chunking pipeline's code-translation stage
// (spec.md §4.1 step 2). Uses capability "translation".
func (c *Client) TranslateToProse(ctx context.Context, lang, block string) (string, error) {
	resp, err := c.Complete(ctx, Request{
		Capability: string(translationCapability),
		Messages: []Message{
			{Role: "system", Content: translationSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Language/kind: %s\n\n%s", lang, block)},
		},
		Temperature: floatPtr(0.2),
	})
	if err != nil {
		return "", fmt.Errorf("translate to prose: %w", err)
	}
	return resp.Content, nil
}

// MergeJudgment is the structured response from JudgeMerge.
type MergeJudgment struct {
	ShouldMerge   bool   `json:"should_merge"`
	CanonicalName string `json:"canonical_name"`
	Reason        string `json:"reason"`
}

// JudgeMerge asks the LLM whether two vocabulary types should be merged
// and, if so, what the blended canonical name should be (spec.md §4.4
// step 4). Uses capability "vocab-merge".
func (c *Client) JudgeMerge(ctx context.Context, typeA, typeB string, similarity float64) (*MergeJudgment, error) {
	prompt := fmt.Sprintf(
		"Relationship type A: %s\nRelationship type B: %s\nEmbedding similarity: %.3f\n\n"+
			"Should these be merged into a single canonical relationship type? "+
			"If yes, propose a canonical_name that is a single verb or a VERB_PREPOSITION "+
			"form (e.g. CAUSES, LEADS_TO) - never a verb+noun compound and never an OR clause. "+
			"Respond as JSON: {\"should_merge\": bool, \"canonical_name\": string, \"reason\": string}",
		typeA, typeB, similarity)

	resp, err := c.Complete(ctx, Request{
		Capability: string(vocabMergeCapability),
		Messages: []Message{
			{Role: "system", Content: vocabMergeSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: floatPtr(0.0),
	})
	if err != nil {
		return nil, fmt.Errorf("judge merge: %w", err)
	}

	raw := ExtractJSON(resp.Content)
	if raw == "" {
		return nil, NewFatalError(fmt.Errorf("no JSON object found in merge-judgment response"))
	}

	var judgment MergeJudgment
	if err := json.Unmarshal([]byte(raw), &judgment); err != nil {
		return nil, NewFatalError(fmt.Errorf("parse merge judgment: %w", err))
	}
	return &judgment, nil
}

// capability name constants kept local to avoid a dependency on model.Capability
// string literals scattered across call sites.
const (
	extractionCapability  = capabilityName("extraction")
	translationCapability = capabilityName("translation")
	vocabMergeCapability  = capabilityName("vocab-merge")
)

type capabilityName string

const extractionSystemPrompt = `You are a knowledge extraction engine. Given a chunk of document text and ` +
	`optional context concepts, identify the concepts discussed, a grounding quote for each, and the ` +
	`relationships between them. Respond only with a single JSON object matching the requested schema.`

const translationSystemPrompt = `You translate code, diagrams, and structured data blocks into plain prose ` +
	`descriptions suitable for semantic search and concept extraction. Describe what the block does or ` +
	`represents; do not reproduce its syntax verbatim.`

const vocabMergeSystemPrompt = `You are a vocabulary curator for a knowledge graph's relationship-type ` +
	`taxonomy. You judge whether two candidate relationship types are synonymous enough to merge.`

func buildExtractionPrompt(chunkText string, contextConcepts []string) string {
	if len(contextConcepts) == 0 {
		return fmt.Sprintf("Text:\n%s\n\nRespond with JSON: {\"concepts\": [...], \"relationships\": [...]}", chunkText)
	}
	return fmt.Sprintf(
		"Known concepts from surrounding context: %v\n\nText:\n%s\n\n"+
			"Respond with JSON: {\"concepts\": [...], \"relationships\": [...]}",
		contextConcepts, chunkText)
}

func floatPtr(f float64) *float64 { return &f }
