package embedding

import (
	"context"
	"fmt"
)

// VocabSource is the seam Worker.ColdStart and Regenerate need from
// graphstore: listing vocabulary types missing or stale embeddings, and
// writing computed embeddings back.
type VocabSource interface {
	// BuiltinTypesMissingEmbedding returns builtin vocabulary type names
	// with a nil embedding.
	BuiltinTypesMissingEmbedding(ctx context.Context) ([]string, error)
	// TypesMissingEmbedding returns all (not just builtin) vocabulary
	// type names with a nil embedding, ordered by usage_count descending.
	TypesMissingEmbedding(ctx context.Context) ([]string, error)
	// StaleTypes returns vocabulary type names whose embedding predates
	// the current embedding model/dimension, ordered by usage_count
	// descending.
	StaleTypes(ctx context.Context) ([]string, error)
	// SetEmbedding persists the computed embedding for a vocabulary type.
	SetEmbedding(ctx context.Context, relType string, embedding []float32) error
	// InitializationComplete reports whether cold-start has already run
	// (checked so ColdStart is idempotent).
	InitializationComplete(ctx context.Context) (bool, error)
	// MarkInitializationComplete records that cold-start has finished.
	MarkInitializationComplete(ctx context.Context) error
}

// ColdStartResult summarizes one ColdStart run.
type ColdStartResult struct {
	AlreadyInitialized bool
	Embedded           int
}

// ColdStart embeds every builtin VocabType with a nil embedding on first
// startup. Idempotent: if system_initialization_status already shows
// complete, it's a no-op.
func (w *Worker) ColdStart(ctx context.Context, source VocabSource) (*ColdStartResult, error) {
	done, err := source.InitializationComplete(ctx)
	if err != nil {
		return nil, fmt.Errorf("check initialization status: %w", err)
	}
	if done {
		return &ColdStartResult{AlreadyInitialized: true}, nil
	}

	names, err := source.BuiltinTypesMissingEmbedding(ctx)
	if err != nil {
		return nil, fmt.Errorf("list builtin types missing embedding: %w", err)
	}

	embedded, err := w.embedAndStore(ctx, source, names)
	if err != nil {
		return nil, err
	}

	if err := source.MarkInitializationComplete(ctx); err != nil {
		return nil, fmt.Errorf("mark initialization complete: %w", err)
	}

	return &ColdStartResult{Embedded: embedded}, nil
}

// RegenerateOptions controls which vocabulary types Regenerate targets.
type RegenerateOptions struct {
	OnlyMissing bool
	OnlyStale   bool
}

// RegenerateResult summarizes one Regenerate run.
type RegenerateResult struct {
	Embedded int
}

// Regenerate re-embeds vocabulary types in usage-count order, batching the
// work so a caller can surface progress via jobs.Queue.UpdateProgress.
func (w *Worker) Regenerate(ctx context.Context, source VocabSource, opts RegenerateOptions, onProgress func(done, total int)) (*RegenerateResult, error) {
	var names []string
	var err error

	switch {
	case opts.OnlyMissing:
		names, err = source.TypesMissingEmbedding(ctx)
	case opts.OnlyStale:
		names, err = source.StaleTypes(ctx)
	default:
		missing, mErr := source.TypesMissingEmbedding(ctx)
		stale, sErr := source.StaleTypes(ctx)
		if mErr != nil {
			err = mErr
		} else if sErr != nil {
			err = sErr
		} else {
			names = append(missing, stale...)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("list vocabulary types for regeneration: %w", err)
	}

	total := len(names)
	embedded := 0
	for i, name := range names {
		if _, err := w.embedAndStore(ctx, source, []string{name}); err != nil {
			return &RegenerateResult{Embedded: embedded}, err
		}
		embedded++
		if onProgress != nil {
			onProgress(i+1, total)
		}
	}

	return &RegenerateResult{Embedded: embedded}, nil
}

func (w *Worker) embedAndStore(ctx context.Context, source VocabSource, names []string) (int, error) {
	embedded := 0
	for _, name := range names {
		vec, err := w.Embed(ctx, KindVocab, name)
		if err != nil {
			return embedded, fmt.Errorf("embed vocabulary type %q: %w", name, err)
		}
		if err := source.SetEmbedding(ctx, name, vec); err != nil {
			return embedded, fmt.Errorf("store embedding for %q: %w", name, err)
		}
		embedded++
	}
	return embedded, nil
}
