package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/kgraph/graphmodel"
	"github.com/c360studio/kgraph/graphpublish"
	"github.com/c360studio/kgraph/graphstore"
	"github.com/c360studio/kgraph/embedding"
	"github.com/c360studio/kgraph/ingest"
	"github.com/c360studio/kgraph/jobs"
	"github.com/c360studio/kgraph/llm"
	"github.com/c360studio/kgraph/preprocess"
	"github.com/c360studio/kgraph/server"
	"github.com/c360studio/kgraph/storage"
)

// newIngestHandler builds the jobs.Handler the "ingest" pool runs: it
// resolves the blob stashed by server.SubmitIngestJob, drives
// ingest.Pipeline end to end, and records the resulting stats as an
// ingestion_summary artifact (spec.md §4.5's ArtifactIngestionSummary).
func newIngestHandler(
	srv *server.Server,
	sources *storage.SourceStore,
	store *graphstore.Store,
	llmClient *llm.Client,
	embedder *embedding.Worker,
	translator *preprocess.Translator,
	publisher *graphpublish.Publisher,
	progress ingest.ProgressReporter,
	logger *slog.Logger,
) jobs.Handler {
	pipeline := ingest.NewPipeline(store, llmClient, embedder, translator, publisher, progress, ingest.WithLogger(logger))

	return func(ctx context.Context, job graphmodel.Job) (string, error) {
		pending, ok := srv.TakePendingIngest(job.JobID)
		if !ok {
			return "", fmt.Errorf("ingest handler: no pending blob for job %s", job.JobID)
		}

		content, err := sources.Get(ctx, pending.BlobKey)
		if err != nil {
			return "", fmt.Errorf("ingest handler: fetch blob %s: %w", pending.BlobKey, err)
		}

		stats, err := pipeline.Run(ctx, ingest.DocumentSubmitted{
			JobID:      job.JobID,
			OntologyID: pending.Ontology,
			Filename:   pending.Filename,
			Format:     documentFormat(pending.Extension),
			Content:    content,
		})
		if err != nil {
			return "", err
		}

		return recordIngestionSummary(ctx, store, job, pending, stats)
	}
}

// documentFormat maps a source file extension to preprocess.Preprocess's
// format argument, defaulting to plain text for unrecognized extensions.
func documentFormat(extension string) string {
	switch strings.ToLower(strings.TrimPrefix(extension, ".")) {
	case "md", "markdown":
		return "markdown"
	case "go", "py", "js", "ts", "java", "rb", "rs", "c", "cpp", "h":
		return "code"
	default:
		return "text"
	}
}

func recordIngestionSummary(ctx context.Context, store *graphstore.Store, job graphmodel.Job, pending server.PendingIngest, stats *ingest.Stats) (string, error) {
	payload, err := json.Marshal(stats)
	if err != nil {
		return "", fmt.Errorf("ingest handler: marshal stats: %w", err)
	}

	artifact := graphmodel.Artifact{
		ID:             uuid.NewString(),
		ArtifactType:   graphmodel.ArtifactIngestionSummary,
		Representation: graphmodel.RepresentationRaw,
		OwnerID:        job.UserID,
		Ontology:       pending.Ontology,
		InlineResult:   payload,
		CreatedAt:      time.Now(),
	}
	if err := store.InsertArtifact(ctx, artifact); err != nil {
		return "", fmt.Errorf("ingest handler: insert ingestion summary: %w", err)
	}
	return artifact.ID, nil
}
