package preprocess

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/c360studio/kgraph/llm"
)

// minTranslateLines is the line threshold below which a code/data block is
// rendered as a short placeholder instead of being sent to the LLM.
const minTranslateLines = 3

// perCallTranslateTimeout bounds a single TranslateToProse call; the overall
// deadline for the whole batch is derived from it (spec.md §3.1: "overall
// deadline max(translations) * 1.5").
const perCallTranslateTimeout = 20 * time.Second

// Translator runs the bounded-parallel code/diagram/data-to-prose
// translation stage (spec.md §4.1 step 2), grounded on
// processor/web-ingester's sync.WaitGroup + cancel pattern for bounding
// concurrent per-item work, generalized from an HTTP fetch pool to an LLM
// call pool.
type Translator struct {
	client      *llm.Client
	maxParallel int
	logger      *slog.Logger
}

// NewTranslator builds a Translator bound to an LLM client. maxParallel
// defaults to 3 (Config.MaxParallelTranslations) when <= 0.
func NewTranslator(client *llm.Client, maxParallel int, logger *slog.Logger) *Translator {
	if maxParallel <= 0 {
		maxParallel = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Translator{client: client, maxParallel: maxParallel, logger: logger}
}

// translatable reports whether a Node kind is a candidate for prose
// translation at all (headings/text/lists pass through untouched).
func translatable(k NodeKind) bool {
	switch k {
	case KindCode, KindMermaid, KindJSON, KindYAML:
		return true
	default:
		return false
	}
}

// Translate replaces every eligible Code/Mermaid/JSON/YAML node's Text with
// either its LLM-generated prose description or a short placeholder,
// in place, sized to run at most Translator.maxParallel calls concurrently.
// A barrier (sync.WaitGroup.Wait) gates return, matching the teacher's
// "wait for the whole batch before moving on" shape.
func (t *Translator) Translate(ctx context.Context, nodes []Node) {
	var longBlocks []int
	for i, n := range nodes {
		if translatable(n.Kind) && n.Lines >= minTranslateLines {
			longBlocks = append(longBlocks, i)
		} else if translatable(n.Kind) {
			nodes[i].Text = fmt.Sprintf("[CODE BLOCK: %s - %d lines]", displayLang(n), n.Lines)
		}
	}
	if len(longBlocks) == 0 {
		return
	}

	deadline := time.Duration(float64(perCallTranslateTimeout) * 1.5)
	batchCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	sem := make(chan struct{}, t.maxParallel)
	var wg sync.WaitGroup

	for _, idx := range longBlocks {
		idx := idx
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			t.translateOne(batchCtx, nodes, idx)
		}()
	}
	wg.Wait()
}

func (t *Translator) translateOne(ctx context.Context, nodes []Node, idx int) {
	n := nodes[idx]
	callCtx, cancel := context.WithTimeout(ctx, perCallTranslateTimeout)
	defer cancel()

	prose, err := t.client.TranslateToProse(callCtx, displayLang(n), n.Text)
	if err != nil {
		t.logger.Warn("block translation failed", "kind", n.Kind, "lang", n.Lang, "err", err)
		nodes[idx].Text = fmt.Sprintf("[Translation failed: %s]", err.Error())
		return
	}
	nodes[idx].Text = prose
}

func displayLang(n Node) string {
	if n.Lang != "" {
		return n.Lang
	}
	return string(n.Kind)
}
