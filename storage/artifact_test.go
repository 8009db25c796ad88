package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/kgraph/graphmodel"
)

func TestArtifactStore_PrepareForStorage_Inline(t *testing.T) {
	store := NewArtifactStore(NewBlobStoreWithClient(newFakeS3(), "test-bucket"), 1024)

	artifact, err := store.PrepareForStorage(context.Background(), graphmodel.Artifact{
		ID:           "a1",
		ArtifactType: graphmodel.ArtifactIngestionSummary,
	}, []byte("small payload"))
	require.NoError(t, err)

	assert.Equal(t, "small payload", string(artifact.InlineResult))
	assert.Empty(t, artifact.GarageKey)
}

func TestArtifactStore_PrepareForStorage_Blob(t *testing.T) {
	store := NewArtifactStore(NewBlobStoreWithClient(newFakeS3(), "test-bucket"), 4)

	artifact, err := store.PrepareForStorage(context.Background(), graphmodel.Artifact{
		ID:           "a1",
		ArtifactType: graphmodel.ArtifactIngestionSummary,
	}, []byte("payload larger than threshold"))
	require.NoError(t, err)

	assert.Nil(t, artifact.InlineResult)
	assert.NotEmpty(t, artifact.GarageKey)

	loaded, err := store.Load(context.Background(), artifact)
	require.NoError(t, err)
	assert.Equal(t, "payload larger than threshold", string(loaded))
}

func TestArtifactStore_Load_Inline(t *testing.T) {
	store := NewArtifactStore(NewBlobStoreWithClient(newFakeS3(), "test-bucket"), 1024)

	got, err := store.Load(context.Background(), graphmodel.Artifact{InlineResult: []byte("cached")})
	require.NoError(t, err)
	assert.Equal(t, "cached", string(got))
}

func TestArtifactStore_Delete_InlineIsNoop(t *testing.T) {
	store := NewArtifactStore(NewBlobStoreWithClient(newFakeS3(), "test-bucket"), 1024)
	err := store.Delete(context.Background(), graphmodel.Artifact{ID: "a1"})
	assert.NoError(t, err)
}

func TestArtifactStore_Delete_BlobBacked(t *testing.T) {
	store := NewArtifactStore(NewBlobStoreWithClient(newFakeS3(), "test-bucket"), 0)
	ctx := context.Background()

	artifact, err := store.PrepareForStorage(ctx, graphmodel.Artifact{
		ID:           "a2",
		ArtifactType: graphmodel.ArtifactIngestionSummary,
	}, []byte("blob payload"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, artifact))
	_, err = store.Load(ctx, artifact)
	assert.ErrorIs(t, err, ErrNotFound)
}
