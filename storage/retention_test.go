package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/kgraph/graphmodel"
)

type fakeArtifactFinder struct {
	expired []graphmodel.Artifact
	deleted []string
	delErr  error
}

func (f *fakeArtifactFinder) ExpiredArtifacts(ctx context.Context, now time.Time) ([]graphmodel.Artifact, error) {
	return f.expired, nil
}

func (f *fakeArtifactFinder) DeleteArtifact(ctx context.Context, id string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func TestRetentionPolicy_CleanupExpiredArtifacts_DeletesBlobAndRow(t *testing.T) {
	blobStore := NewArtifactStore(NewBlobStoreWithClient(newFakeS3(), "test-bucket"), 0)
	ctx := context.Background()

	artifact, err := blobStore.PrepareForStorage(ctx, graphmodel.Artifact{
		ID:           "a1",
		ArtifactType: graphmodel.ArtifactIngestionSummary,
	}, []byte("expired payload"))
	require.NoError(t, err)

	finder := &fakeArtifactFinder{expired: []graphmodel.Artifact{artifact}}
	policy := NewRetentionPolicy(finder, blobStore)

	result, err := policy.CleanupExpiredArtifacts(ctx, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, result.ExpiredFound)
	assert.Equal(t, 1, result.Deleted)
	assert.Empty(t, result.OrphanErrors)
	assert.Equal(t, []string{"a1"}, finder.deleted)
}

func TestRetentionPolicy_CleanupExpiredArtifacts_InlineSkipsBlobDelete(t *testing.T) {
	blobStore := NewArtifactStore(NewBlobStoreWithClient(newFakeS3(), "test-bucket"), 1024)

	finder := &fakeArtifactFinder{expired: []graphmodel.Artifact{
		{ID: "a2", InlineResult: []byte("small")},
	}}
	policy := NewRetentionPolicy(finder, blobStore)

	result, err := policy.CleanupExpiredArtifacts(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, []string{"a2"}, finder.deleted)
}

func TestRetentionPolicy_CleanupExpiredArtifacts_RecordsOrphanOnRowDeleteFailure(t *testing.T) {
	blobStore := NewArtifactStore(NewBlobStoreWithClient(newFakeS3(), "test-bucket"), 1024)

	finder := &fakeArtifactFinder{
		expired: []graphmodel.Artifact{{ID: "a3", InlineResult: []byte("small")}},
		delErr:  retentionTestError("row locked"),
	}
	policy := NewRetentionPolicy(finder, blobStore)

	result, err := policy.CleanupExpiredArtifacts(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 0, result.Deleted)
	assert.Len(t, result.OrphanErrors, 1)
}

type retentionTestError string

func (e retentionTestError) Error() string { return string(e) }
