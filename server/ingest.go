package server

import (
	"context"
	"encoding/base64"

	"github.com/c360studio/kgraph/kgerrors"
	"github.com/c360studio/kgraph/storage"
)

// IngestJobRequest is submit_ingest_job's input (spec.md §6,
// kg:ingest): base64-encoded content plus the target ontology and
// source filename.
type IngestJobRequest struct {
	ContentB64 string
	Ontology   string
	Filename   string
	UserID     string
	Extension  string
}

// SubmitIngestJob implements submit_ingest_job (spec.md §6/§4.7):
// decodes and content-addresses the source, enqueues a job, and returns
// its ID. jobs.Pool (wired separately, by job type "ingest") picks the
// job up and drives ingest.Pipeline.Run.
func (s *Server) SubmitIngestJob(ctx context.Context, req IngestJobRequest) (string, *kgerrors.Error) {
	content, err := base64.StdEncoding.DecodeString(req.ContentB64)
	if err != nil {
		return "", kgerrors.InvalidInput("content_b64 is not valid base64", nil)
	}
	if req.Ontology == "" {
		return "", kgerrors.InvalidInput("ontology is required", nil)
	}

	identity, err := s.sources.Store(ctx, req.Ontology, content, req.Extension, sourceMetadataFromRequest(req))
	if err != nil {
		return "", kgerrors.UpstreamUnavailable("store source", err)
	}

	jobID, err := s.jobs.Enqueue(ctx, req.UserID)
	if err != nil {
		return "", kgerrors.UpstreamUnavailable("enqueue ingest job", err)
	}
	s.pending.put(jobID, PendingIngest{
		BlobKey:   identity.BlobKey,
		Ontology:  req.Ontology,
		Filename:  req.Filename,
		Extension: req.Extension,
	})

	s.logger.Info("server: ingest job submitted", "job_id", jobID, "ontology", req.Ontology, "blob_key", identity.BlobKey)
	return jobID, nil
}

func sourceMetadataFromRequest(req IngestJobRequest) storage.DocumentMetadata {
	return storage.DocumentMetadata{
		OriginalFilename: req.Filename,
	}
}
