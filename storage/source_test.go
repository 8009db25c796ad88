package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSourceStore() *SourceStore {
	return NewSourceStore(NewBlobStoreWithClient(newFakeS3(), "test-bucket"))
}

func TestSourceStore_StoreAndGetRoundTrip(t *testing.T) {
	store := newTestSourceStore()
	ctx := context.Background()

	identity, err := store.Store(ctx, "acme", []byte("hello world"), ".md", DocumentMetadata{OriginalFilename: "hello.md"})
	require.NoError(t, err)
	assert.NotEmpty(t, identity.ContentHash)
	assert.Equal(t, 11, identity.SizeBytes)

	got, err := store.Get(ctx, identity.BlobKey)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))
}

func TestSourceStore_StoreIsContentAddressed(t *testing.T) {
	store := newTestSourceStore()
	ctx := context.Background()

	a, err := store.Store(ctx, "acme", []byte("same bytes"), ".txt", DocumentMetadata{})
	require.NoError(t, err)
	b, err := store.Store(ctx, "acme", []byte("same bytes"), ".txt", DocumentMetadata{})
	require.NoError(t, err)

	assert.Equal(t, a.BlobKey, b.BlobKey)
}

func TestSourceStore_GetMissingReturnsNotFound(t *testing.T) {
	store := newTestSourceStore()
	_, err := store.Get(context.Background(), "sources/acme/missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSourceStore_ExistsAndDelete(t *testing.T) {
	store := newTestSourceStore()
	ctx := context.Background()

	identity, err := store.Store(ctx, "acme", []byte("payload"), ".txt", DocumentMetadata{})
	require.NoError(t, err)

	ok, err := store.Exists(ctx, identity.BlobKey)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Delete(ctx, identity.BlobKey))

	ok, err = store.Exists(ctx, identity.BlobKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSourceStore_DeleteByOntology(t *testing.T) {
	store := newTestSourceStore()
	ctx := context.Background()

	_, err := store.Store(ctx, "acme", []byte("doc one"), ".txt", DocumentMetadata{})
	require.NoError(t, err)
	_, err = store.Store(ctx, "acme", []byte("doc two"), ".txt", DocumentMetadata{})
	require.NoError(t, err)
	_, err = store.Store(ctx, "other", []byte("unrelated"), ".txt", DocumentMetadata{})
	require.NoError(t, err)

	deleted, err := store.DeleteByOntology(ctx, "acme")
	require.NoError(t, err)
	assert.Len(t, deleted, 2)

	stillThere, err := store.Exists(ctx, ComputeIdentity("other", []byte("unrelated"), ".txt").BlobKey)
	require.NoError(t, err)
	assert.True(t, stillThere)
}
