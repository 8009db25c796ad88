// Package jobs implements the background job queue and worker pool that
// drive document ingestion, vocabulary maintenance, and retention sweeps
// (spec.md §4.7, Module L). Queue is a single NATS JetStream KV bucket
// keyed by job ID, the same History-bounded bucket pattern the teacher used
// for its proposal/task/result entities, generalized to one Job type with
// an explicit, backward-transition-free state machine.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/kgraph/graphmodel"
)

// Bucket is the KV bucket name for job records.
const Bucket = "KGRAPH_JOBS"

// ErrNotFound is returned when a job ID has no matching record.
var ErrNotFound = errors.New("job not found")

// ErrInvalidTransition is returned when a status update would move a job
// backward in its state machine (invariant: queued -> processing ->
// {completed, failed, cancelled}, never the reverse).
var ErrInvalidTransition = errors.New("invalid job status transition")

// terminalStates are JobStatus values a job cannot leave once reached.
var terminalStates = map[graphmodel.JobStatus]bool{
	graphmodel.JobCompleted: true,
	graphmodel.JobFailed:    true,
	graphmodel.JobCancelled: true,
}

// Queue stores Job records in a single NATS JetStream KV bucket and
// satisfies ingest.ProgressReporter, so ingest.Pipeline can report
// per-chunk progress without importing this package.
type Queue struct {
	kv jetstream.KeyValue
}

// NewQueue creates or attaches to the jobs KV bucket.
func NewQueue(ctx context.Context, js jetstream.JetStream) (*Queue, error) {
	kv, err := js.KeyValue(ctx, Bucket)
	if err != nil {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      Bucket,
			Description: "kgraph background job records",
			History:     5,
		})
		if err != nil {
			return nil, fmt.Errorf("jobs: create jobs bucket: %w", err)
		}
	}
	return &Queue{kv: kv}, nil
}

// Enqueue creates a new job in the queued state and returns its ID.
func (q *Queue) Enqueue(ctx context.Context, userID string) (string, error) {
	job := graphmodel.Job{
		JobID:     uuid.New().String(),
		UserID:    userID,
		Status:    graphmodel.JobQueued,
		Progress:  map[string]any{},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := q.put(ctx, job); err != nil {
		return "", err
	}
	return job.JobID, nil
}

// Get retrieves a job by ID.
func (q *Queue) Get(ctx context.Context, jobID string) (graphmodel.Job, error) {
	entry, err := q.kv.Get(ctx, jobID)
	if err != nil {
		if isKVNotFound(err) {
			return graphmodel.Job{}, ErrNotFound
		}
		return graphmodel.Job{}, fmt.Errorf("jobs: get %s: %w", jobID, err)
	}
	var job graphmodel.Job
	if err := json.Unmarshal(entry.Value(), &job); err != nil {
		return graphmodel.Job{}, fmt.Errorf("jobs: unmarshal %s: %w", jobID, err)
	}
	return job, nil
}

// Claim transitions a queued job to processing, the first step in
// jobs.Pool's worker loop picking it up. Returns ErrInvalidTransition if
// the job is not currently queued.
func (q *Queue) Claim(ctx context.Context, jobID string) (graphmodel.Job, error) {
	job, err := q.Get(ctx, jobID)
	if err != nil {
		return graphmodel.Job{}, err
	}
	if job.Status != graphmodel.JobQueued {
		return graphmodel.Job{}, fmt.Errorf("%w: %s is %s, not queued", ErrInvalidTransition, jobID, job.Status)
	}
	job.Status = graphmodel.JobProcessing
	job.UpdatedAt = time.Now()
	if err := q.put(ctx, job); err != nil {
		return graphmodel.Job{}, err
	}
	return job, nil
}

// UpdateProgress records chunksDone/chunksTotal on a processing job.
// Satisfies ingest.ProgressReporter.
func (q *Queue) UpdateProgress(ctx context.Context, jobID string, chunksDone, chunksTotal int) error {
	job, err := q.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if terminalStates[job.Status] {
		return fmt.Errorf("%w: %s is already %s", ErrInvalidTransition, jobID, job.Status)
	}
	job.Progress["chunks_done"] = chunksDone
	job.Progress["chunks_total"] = chunksTotal
	job.UpdatedAt = time.Now()
	return q.put(ctx, job)
}

// Complete transitions a job to completed and records its artifact ID.
func (q *Queue) Complete(ctx context.Context, jobID, artifactID string) error {
	job, err := q.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if terminalStates[job.Status] {
		return fmt.Errorf("%w: %s is already %s", ErrInvalidTransition, jobID, job.Status)
	}
	job.Status = graphmodel.JobCompleted
	job.ArtifactID = artifactID
	job.UpdatedAt = time.Now()
	return q.put(ctx, job)
}

// MarkFailed transitions a job to failed and records the reason.
// Satisfies ingest.ProgressReporter.
func (q *Queue) MarkFailed(ctx context.Context, jobID string, reason string) error {
	job, err := q.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if terminalStates[job.Status] {
		return fmt.Errorf("%w: %s is already %s", ErrInvalidTransition, jobID, job.Status)
	}
	job.Status = graphmodel.JobFailed
	job.Progress["failure_reason"] = reason
	job.UpdatedAt = time.Now()
	return q.put(ctx, job)
}

// Cancel transitions a queued or processing job to cancelled.
func (q *Queue) Cancel(ctx context.Context, jobID string) error {
	job, err := q.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if terminalStates[job.Status] {
		return fmt.Errorf("%w: %s is already %s", ErrInvalidTransition, jobID, job.Status)
	}
	job.Status = graphmodel.JobCancelled
	job.UpdatedAt = time.Now()
	return q.put(ctx, job)
}

// ListByStatus returns every job currently in the given status, the set
// jobs.Pool polls for queued work.
func (q *Queue) ListByStatus(ctx context.Context, status graphmodel.JobStatus) ([]graphmodel.Job, error) {
	keys, err := q.kv.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("jobs: list keys: %w", err)
	}

	var jobs []graphmodel.Job
	for _, key := range keys {
		job, err := q.Get(ctx, key)
		if err != nil {
			continue
		}
		if job.Status == status {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

func (q *Queue) put(ctx context.Context, job graphmodel.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("jobs: marshal %s: %w", job.JobID, err)
	}
	if _, err := q.kv.Put(ctx, job.JobID, data); err != nil {
		return fmt.Errorf("jobs: put %s: %w", job.JobID, err)
	}
	return nil
}

func isKVNotFound(err error) bool {
	return err != nil && (errors.Is(err, jetstream.ErrKeyNotFound) || strings.Contains(err.Error(), "key not found"))
}
