package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/c360studio/kgraph/graphmodel"
)

// ArtifactStore routes computed artifacts (polarity analyses, projections,
// query results, diversity reports, ingestion summaries) between inline
// Postgres storage and the blob store, based on payload size
// (storage.inline_artifact_threshold_bytes, spec.md §4.5/§8.4).
type ArtifactStore struct {
	blob      *BlobStore
	threshold int
}

// NewArtifactStore wires a BlobStore with the inline/blob size threshold.
func NewArtifactStore(blob *BlobStore, thresholdBytes int) *ArtifactStore {
	return &ArtifactStore{blob: blob, threshold: thresholdBytes}
}

// PrepareForStorage decides whether payload fits inline and, if not,
// uploads it to the blob store, returning the artifact with exactly one of
// InlineResult/GarageKey set (invariant §8.4).
func (a *ArtifactStore) PrepareForStorage(ctx context.Context, artifact graphmodel.Artifact, payload []byte) (graphmodel.Artifact, error) {
	if len(payload) < a.threshold {
		artifact.InlineResult = payload
		artifact.GarageKey = ""
		return artifact, nil
	}

	key := artifactKey(artifact.ArtifactType, artifact.ID)
	_, err := a.blob.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.blob.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"artifact-type": string(artifact.ArtifactType),
			"artifact-id":   artifact.ID,
		},
	})
	if err != nil {
		return graphmodel.Artifact{}, fmt.Errorf("storage: put artifact %s: %w", key, err)
	}

	artifact.GarageKey = key
	artifact.InlineResult = nil
	return artifact, nil
}

// Load returns the artifact payload, reading from Postgres-backed
// InlineResult when set, otherwise fetching the blob at GarageKey.
func (a *ArtifactStore) Load(ctx context.Context, artifact graphmodel.Artifact) ([]byte, error) {
	if artifact.InlineResult != nil {
		return artifact.InlineResult, nil
	}
	if artifact.GarageKey == "" {
		return nil, fmt.Errorf("storage: artifact %s has neither inline result nor blob key", artifact.ID)
	}

	out, err := a.blob.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.blob.bucket),
		Key:    aws.String(artifact.GarageKey),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: get artifact %s: %w", artifact.GarageKey, err)
	}
	defer out.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(out.Body); err != nil {
		return nil, fmt.Errorf("storage: read artifact %s: %w", artifact.GarageKey, err)
	}
	return buf.Bytes(), nil
}

// Delete removes a blob-backed artifact. Inline artifacts need no blob
// cleanup; callers should also delete the Postgres row.
func (a *ArtifactStore) Delete(ctx context.Context, artifact graphmodel.Artifact) error {
	if artifact.GarageKey == "" {
		return nil
	}
	_, err := a.blob.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.blob.bucket),
		Key:    aws.String(artifact.GarageKey),
	})
	if err != nil {
		return fmt.Errorf("storage: delete artifact %s: %w", artifact.GarageKey, err)
	}
	return nil
}

func artifactKey(artifactType graphmodel.ArtifactType, artifactID string) string {
	return fmt.Sprintf("artifacts/%s/%s.json", artifactType, artifactID)
}
