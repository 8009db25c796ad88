package vocabulary

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/c360studio/kgraph/llm"
)

// PruningMode selects which decision table spec.md §4.4 applies.
type PruningMode string

const (
	PruningNaive PruningMode = "naive"
	PruningHITL  PruningMode = "hitl"
	PruningAITL  PruningMode = "aitl"
)

// Store is the persistence seam the Manager needs from graphstore: vocab
// size, per-type usage metrics, embeddings for synonym detection, and
// transactional merge/deprecate execution. graphstore.Store implements
// this; keeping it as an interface here avoids a vocabulary->graphstore
// import and lets tests supply an in-memory fake.
type Store interface {
	VocabSize(ctx context.Context) (int, error)
	EdgeMetrics(ctx context.Context) ([]EdgeMetrics, error)
	VocabEmbeddings(ctx context.Context) ([]VocabEmbedding, error)
	// ExecuteMerge rewrites every edge of type `deprecated` to `target`,
	// increments target's usage_count, and marks deprecated inactive -
	// all inside one transaction. Never a hard delete.
	ExecuteMerge(ctx context.Context, deprecated, target string) error
	Deprecate(ctx context.Context, relType string) error
}

// ReviewRequest is a pending human-review item produced by HITL mode
// (spec.md's Non-goals don't exclude it; restored from
// pruning_strategies.py per DESIGN.md's Open Question decision).
type ReviewRequest struct {
	Kind       string // "merge" or "deprecate"
	TypeA      string
	TypeB      string // empty for deprecate
	Similarity float64
	Reason     string
}

// Manager runs the scoring/synonym/consolidation machinery described in
// spec.md §4.4.
type Manager struct {
	store      Store
	llmClient  *llm.Client
	scorer     *Scorer
	synonyms   *SynonymDetector
	mode       PruningMode
	minSimilarity float64
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithPruningMode sets the pruning mode (default PruningAITL).
func WithPruningMode(mode PruningMode) ManagerOption {
	return func(m *Manager) { m.mode = mode }
}

// WithMinSimilarity sets the minimum synonym similarity considered during
// consolidation prioritization (default ModerateSynonymThreshold).
func WithMinSimilarity(v float64) ManagerOption {
	return func(m *Manager) { m.minSimilarity = v }
}

// NewManager builds a Manager. llmClient may be nil, in which case AITL
// mode sends every moderate-similarity pair to the heuristic fallback
// (heuristicDecide: similarity >= 0.80 merge, else skip); low-value types
// with no bridges are deprecated by deprecateDeadTypes either way.
func NewManager(store Store, llmClient *llm.Client, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:         store,
		llmClient:     llmClient,
		scorer:        NewScorer(),
		synonyms:      NewSynonymDetector(),
		mode:          PruningAITL,
		minSimilarity: ModerateSynonymThreshold,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// consolidationCandidate is a prioritized synonym pair awaiting a
// merge/skip/deprecate decision.
type consolidationCandidate struct {
	SynonymCandidate
	priority float64
}

// ConsolidationResult summarizes one RunConsolidation pass.
type ConsolidationResult struct {
	Merged      []string // "A -> B" descriptions
	Deprecated  []string
	Skipped     []string
	Reviews     []ReviewRequest // populated only in HITL mode
	Iterations  int
}

// RunConsolidation executes the vocabulary consolidation loop until the
// vocabulary shrinks to targetSize or the iteration cap is hit:
// max(10, initialSize/2), per spec.md §4.4 step 6.
func (m *Manager) RunConsolidation(ctx context.Context, targetSize int) (*ConsolidationResult, error) {
	initialSize, err := m.store.VocabSize(ctx)
	if err != nil {
		return nil, fmt.Errorf("vocab size: %w", err)
	}

	cap := initialSize / 2
	if cap < 10 {
		cap = 10
	}

	result := &ConsolidationResult{}
	processed := make(map[string]bool)

	for iter := 0; iter < cap; iter++ {
		result.Iterations = iter + 1

		size, err := m.store.VocabSize(ctx)
		if err != nil {
			return result, fmt.Errorf("vocab size: %w", err)
		}
		if size <= targetSize {
			break
		}

		metrics, err := m.store.EdgeMetrics(ctx)
		if err != nil {
			return result, fmt.Errorf("edge metrics: %w", err)
		}
		embeddings, err := m.store.VocabEmbeddings(ctx)
		if err != nil {
			return result, fmt.Errorf("vocab embeddings: %w", err)
		}
		scores := m.scorer.ValueScores(metrics, true)

		candidate, ok := m.pickCandidate(embeddings, scores, processed)
		if !ok {
			// Zero-edge and low-value passes when there's nothing left
			// to merge.
			if m.deprecateDeadTypes(ctx, metrics, result) {
				continue
			}
			break
		}

		key := candidate.A + "|" + candidate.B
		processed[key] = true

		if err := m.decide(ctx, candidate, scores, result); err != nil {
			return result, err
		}
	}

	return result, nil
}

// pickCandidate implements step 2-3 of spec.md §4.4: filter by
// minSimilarity, reject inverse pairs (already excluded by
// SynonymDetector), score priority = similarity*2 - min(edge_count)/100,
// sort descending, return the head not yet processed this session.
func (m *Manager) pickCandidate(embeddings []VocabEmbedding, scores map[string]EdgeTypeScore, processed map[string]bool) (SynonymCandidate, bool) {
	raw := m.synonyms.Candidates(embeddings)

	var ranked []consolidationCandidate
	for _, c := range raw {
		if c.Similarity < m.minSimilarity {
			continue
		}
		key := c.A + "|" + c.B
		if processed[key] {
			continue
		}
		minEdges := minInt(scores[c.A].EdgeCount, scores[c.B].EdgeCount)
		priority := c.Similarity*2 - float64(minEdges)/100.0
		ranked = append(ranked, consolidationCandidate{SynonymCandidate: c, priority: priority})
	}
	if len(ranked) == 0 {
		return SynonymCandidate{}, false
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].priority > ranked[j].priority })
	return ranked[0].SynonymCandidate, true
}

// decide applies the mode-specific decision table for one candidate pair.
func (m *Manager) decide(ctx context.Context, c SynonymCandidate, scores map[string]EdgeTypeScore, result *ConsolidationResult) error {
	switch m.mode {
	case PruningHITL:
		result.Reviews = append(result.Reviews, ReviewRequest{
			Kind: "merge", TypeA: c.A, TypeB: c.B, Similarity: c.Similarity,
			Reason: "needs human review before merge",
		})
		return nil

	case PruningNaive:
		if c.Band == SynonymStrong {
			return m.executeMerge(ctx, c, result)
		}
		result.Skipped = append(result.Skipped, fmt.Sprintf("%s/%s (naive: moderate similarity skipped)", c.A, c.B))
		return nil

	default: // PruningAITL
		if c.Band == SynonymStrong {
			return m.executeMerge(ctx, c, result)
		}
		return m.judgeAndMerge(ctx, c, result)
	}
}

// judgeAndMerge handles the AITL "moderate similarity" branch: ask the LLM
// (or fall back to the heuristic) whether to merge.
func (m *Manager) judgeAndMerge(ctx context.Context, c SynonymCandidate, result *ConsolidationResult) error {
	if m.llmClient == nil {
		return m.heuristicDecide(ctx, c, result)
	}

	judgment, err := m.llmClient.JudgeMerge(ctx, c.A, c.B, c.Similarity)
	if err != nil {
		if llm.IsTransient(err) || llm.IsFatal(err) {
			// Upstream unavailable - heuristic fallback per spec.md §4.4.
			return m.heuristicDecide(ctx, c, result)
		}
		return err
	}

	if !judgment.ShouldMerge {
		result.Skipped = append(result.Skipped, fmt.Sprintf("%s/%s (llm judged: %s)", c.A, c.B, judgment.Reason))
		return nil
	}

	canonical := judgment.CanonicalName
	if !validCanonicalName(canonical) {
		result.Skipped = append(result.Skipped, fmt.Sprintf("%s/%s (llm proposed invalid canonical name %q)", c.A, c.B, canonical))
		return nil
	}

	target, deprecated := c.B, c.A
	if canonical == c.A {
		target, deprecated = c.A, c.B
	}
	if err := m.store.ExecuteMerge(ctx, deprecated, target); err != nil {
		return fmt.Errorf("execute merge %s->%s: %w", deprecated, target, err)
	}
	result.Merged = append(result.Merged, fmt.Sprintf("%s -> %s", deprecated, target))
	return nil
}

// heuristicDecide is the LLM-unavailable fallback for one synonym pair:
// similarity >= 0.80 merge, else skip. Low-value types with no bridges
// are deprecated separately, by deprecateDeadTypes, once no synonym
// candidate remains.
func (m *Manager) heuristicDecide(ctx context.Context, c SynonymCandidate, result *ConsolidationResult) error {
	if c.Similarity >= 0.80 {
		return m.executeMerge(ctx, c, result)
	}
	result.Skipped = append(result.Skipped, fmt.Sprintf("%s/%s (heuristic: below 0.80 fallback threshold)", c.A, c.B))
	return nil
}

// executeMerge merges the pair into whichever name sorts first
// lexicographically (used when callers don't otherwise indicate a
// preference, e.g. the naive and strong-synonym branches).
func (m *Manager) executeMerge(ctx context.Context, c SynonymCandidate, result *ConsolidationResult) error {
	target, deprecated := c.A, c.B
	if strings.Compare(c.B, c.A) < 0 {
		target, deprecated = c.B, c.A
	}
	if err := m.store.ExecuteMerge(ctx, deprecated, target); err != nil {
		return fmt.Errorf("execute merge %s->%s: %w", deprecated, target, err)
	}
	result.Merged = append(result.Merged, fmt.Sprintf("%s -> %s", deprecated, target))
	return nil
}

// deprecateDeadTypes handles the "zero-edge type" and "low-value with
// edges" rows of the decision table when no synonym candidate remains.
// Returns true if it made progress (so the caller can continue looping).
func (m *Manager) deprecateDeadTypes(ctx context.Context, metrics []EdgeMetrics, result *ConsolidationResult) bool {
	scores := m.scorer.ValueScores(metrics, false)
	for relType, score := range scores {
		if score.IsBuiltin {
			continue
		}
		switch m.mode {
		case PruningHITL:
			if score.EdgeCount == 0 || (score.ValueScore < 0.5 && score.BridgeCount == 0) {
				result.Reviews = append(result.Reviews, ReviewRequest{
					Kind: "deprecate", TypeA: relType, Reason: "zero-edge or low-value with no bridges",
				})
				return true
			}
		default: // naive and aitl both auto-prune zero-edge; aitl also
			// judges low-value-with-edges via the heuristic (no LLM
			// signal needed for a deprecate-only decision).
			if score.EdgeCount == 0 {
				if err := m.store.Deprecate(ctx, relType); err == nil {
					result.Deprecated = append(result.Deprecated, relType)
					return true
				}
			} else if m.mode == PruningAITL && score.ValueScore < 0.5 && score.BridgeCount == 0 {
				if err := m.store.Deprecate(ctx, relType); err == nil {
					result.Deprecated = append(result.Deprecated, relType)
					return true
				}
			}
		}
	}
	return false
}

// validCanonicalName accepts a valid type name of one or two
// underscore-separated parts (a single word, or WORD_WORD such as
// VERB_PREPOSITION) and rejects OR clauses and names of three or more
// parts. It does not check that a second part is a preposition, so
// two-part verb+noun compounds are accepted.
func validCanonicalName(name string) bool {
	if name == "" || !ValidRelationshipTypeName(name) {
		return false
	}
	if strings.Contains(name, " OR ") || strings.Contains(strings.ToUpper(name), "_OR_") {
		return false
	}
	parts := strings.Split(name, "_")
	return len(parts) <= 2
}

// ValidRelationshipTypeName checks the canonical tag shape
// (^[A-Z][A-Z0-9_]{0,99}$), delegated to graphmodel in production code;
// duplicated as a tiny local check here to keep vocabulary free of a
// graphmodel import for one regex.
func ValidRelationshipTypeName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		case r == '_' && i > 0:
		default:
			return false
		}
	}
	return len(name) <= 100
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
