package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/c360studio/kgraph/graphmodel"
)

// ArtifactFinder is the graphstore surface RetentionPolicy needs to find
// and remove expired rows; narrowed so this package doesn't import
// graphstore directly (storage and graphstore are siblings, both
// consumed by jobs.Cleanup).
type ArtifactFinder interface {
	ExpiredArtifacts(ctx context.Context, now time.Time) ([]graphmodel.Artifact, error)
	DeleteArtifact(ctx context.Context, id string) error
}

// CleanupResult reports what a retention sweep did, the shape
// jobs.Cleanup's daily job surfaces to its caller (spec.md §4.7).
type CleanupResult struct {
	ExpiredFound int
	Deleted      int
	OrphanErrors []string
}

// RetentionPolicy enforces artifact expiry: sources and raw document blobs
// are kept_always (re-extraction insurance, spec.md §4.5), but computed
// artifacts with a non-nil ExpiresAt are deleted blob-first, then by
// Postgres row, so a crash mid-sweep never leaves a live blob with no
// Postgres pointer pointing the other way (invariant §8.5).
type RetentionPolicy struct {
	artifacts ArtifactFinder
	blobStore *ArtifactStore
}

// NewRetentionPolicy wires the artifact finder and blob-aware artifact store.
func NewRetentionPolicy(artifacts ArtifactFinder, blobStore *ArtifactStore) *RetentionPolicy {
	return &RetentionPolicy{artifacts: artifacts, blobStore: blobStore}
}

// CleanupExpiredArtifacts deletes every artifact whose expires_at has
// passed as of now. Blob deletion failures are recorded as orphan errors
// and do not stop the sweep; a failed blob delete leaves the Postgres row
// in place so the next sweep retries it.
func (r *RetentionPolicy) CleanupExpiredArtifacts(ctx context.Context, now time.Time) (CleanupResult, error) {
	expired, err := r.artifacts.ExpiredArtifacts(ctx, now)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("storage: list expired artifacts: %w", err)
	}

	result := CleanupResult{ExpiredFound: len(expired)}
	for _, artifact := range expired {
		if artifact.GarageKey != "" {
			if err := r.blobStore.Delete(ctx, artifact); err != nil {
				result.OrphanErrors = append(result.OrphanErrors, fmt.Sprintf("%s: %v", artifact.ID, err))
				continue
			}
		}
		if err := r.artifacts.DeleteArtifact(ctx, artifact.ID); err != nil {
			result.OrphanErrors = append(result.OrphanErrors, fmt.Sprintf("%s: %v", artifact.ID, err))
			continue
		}
		result.Deleted++
	}

	return result, nil
}
