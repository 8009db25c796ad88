package main

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/c360studio/kgraph/config"
	"github.com/c360studio/kgraph/vocabulary"
)

// vocabSweep runs vocabulary.Manager.RunConsolidation on a cron schedule,
// mirroring jobs.Cleanup's own cron.Cron usage for the retention sweep.
// Vocabulary consolidation isn't part of the per-document ingest path
// (spec.md §4.4 step 6 runs it independently of any one chunk), so it
// gets its own lightweight scheduler here rather than a jobs.Pool entry.
type vocabSweep struct {
	manager *vocabulary.Manager
	cfg     config.VocabularyConfig
	cron    *cron.Cron
	logger  *slog.Logger
}

func newVocabSweep(manager *vocabulary.Manager, cfg config.VocabularyConfig, logger *slog.Logger) *vocabSweep {
	return &vocabSweep{manager: manager, cfg: cfg, cron: cron.New(), logger: logger}
}

func (v *vocabSweep) Start() error {
	_, err := v.cron.AddFunc("@every 1h", func() {
		v.runOnce(context.Background())
	})
	if err != nil {
		return err
	}
	v.cron.Start()
	return nil
}

func (v *vocabSweep) Stop() {
	ctx := v.cron.Stop()
	<-ctx.Done()
}

func (v *vocabSweep) runOnce(ctx context.Context) {
	result, err := v.manager.RunConsolidation(ctx, v.cfg.VocabMax)
	if err != nil {
		v.logger.Error("vocabulary sweep failed", "error", err)
		return
	}
	v.logger.Info("vocabulary sweep complete",
		"merged", len(result.Merged),
		"deprecated", len(result.Deprecated),
		"skipped", len(result.Skipped),
		"reviews", len(result.Reviews),
		"iterations", result.Iterations)
}
