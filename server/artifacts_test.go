package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/kgraph/graphmodel"
)

type fakeArtifactFinder struct {
	byID    map[string]graphmodel.Artifact
	byOwner map[string][]graphmodel.Artifact
	err     error
}

func (f *fakeArtifactFinder) ArtifactByID(ctx context.Context, id string) (graphmodel.Artifact, error) {
	if f.err != nil {
		return graphmodel.Artifact{}, f.err
	}
	a, ok := f.byID[id]
	if !ok {
		return graphmodel.Artifact{}, errors.New("not found")
	}
	return a, nil
}

func (f *fakeArtifactFinder) ArtifactsByOwner(ctx context.Context, ownerID string, limit int) ([]graphmodel.Artifact, error) {
	if f.err != nil {
		return nil, f.err
	}
	all := f.byOwner[ownerID]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func TestGetArtifact_NotFound(t *testing.T) {
	finder := &fakeArtifactFinder{byID: map[string]graphmodel.Artifact{}}
	_, kerr := GetArtifact(context.Background(), finder, "missing")
	require.NotNil(t, kerr)
	assert.Equal(t, "not_found", string(kerr.Kind))
}

func TestGetArtifact_Found(t *testing.T) {
	finder := &fakeArtifactFinder{byID: map[string]graphmodel.Artifact{
		"a1": {ID: "a1", OwnerID: "user-1"},
	}}
	a, kerr := GetArtifact(context.Background(), finder, "a1")
	require.Nil(t, kerr)
	assert.Equal(t, "user-1", a.OwnerID)
}

func TestListArtifacts_DefaultsLimit(t *testing.T) {
	owned := make([]graphmodel.Artifact, 0, 80)
	for i := 0; i < 80; i++ {
		owned = append(owned, graphmodel.Artifact{ID: "a"})
	}
	finder := &fakeArtifactFinder{byOwner: map[string][]graphmodel.Artifact{"user-1": owned}}

	got, kerr := ListArtifacts(context.Background(), finder, "user-1", 0)
	require.Nil(t, kerr)
	assert.Len(t, got, 50)
}

func TestListArtifacts_UpstreamError(t *testing.T) {
	finder := &fakeArtifactFinder{err: errors.New("connection refused")}
	_, kerr := ListArtifacts(context.Background(), finder, "user-1", 10)
	require.NotNil(t, kerr)
	assert.Equal(t, "upstream_unavailable", string(kerr.Kind))
}
