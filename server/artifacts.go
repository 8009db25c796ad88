package server

import (
	"context"

	"github.com/c360studio/kgraph/graphmodel"
	"github.com/c360studio/kgraph/kgerrors"
)

// ArtifactFinder is the narrow graphstore surface list_artifacts and
// get_artifact need; kept as an interface so server doesn't pull in all
// of graphstore.Store just to read artifact rows.
type ArtifactFinder interface {
	ArtifactByID(ctx context.Context, id string) (graphmodel.Artifact, error)
	ArtifactsByOwner(ctx context.Context, ownerID string, limit int) ([]graphmodel.Artifact, error)
}

// GetArtifact implements get_artifact (spec.md §6, artifacts:rw).
func GetArtifact(ctx context.Context, finder ArtifactFinder, artifactID string) (graphmodel.Artifact, *kgerrors.Error) {
	a, err := finder.ArtifactByID(ctx, artifactID)
	if err != nil {
		return graphmodel.Artifact{}, kgerrors.NotFound("artifact not found", map[string]any{"artifact_id": artifactID})
	}
	return a, nil
}

// ListArtifacts implements list_artifacts (spec.md §6, artifacts:rw).
func ListArtifacts(ctx context.Context, finder ArtifactFinder, ownerID string, limit int) ([]graphmodel.Artifact, *kgerrors.Error) {
	if limit <= 0 {
		limit = 50
	}
	artifacts, err := finder.ArtifactsByOwner(ctx, ownerID, limit)
	if err != nil {
		return nil, kgerrors.UpstreamUnavailable("list artifacts", err)
	}
	return artifacts, nil
}

// GetArtifactPayload implements get_artifact_payload (spec.md §6,
// artifacts:rw): resolves the artifact's inline or blob-backed payload.
func (s *Server) GetArtifactPayload(ctx context.Context, finder ArtifactFinder, artifactID string) ([]byte, *kgerrors.Error) {
	a, kerr := GetArtifact(ctx, finder, artifactID)
	if kerr != nil {
		return nil, kerr
	}
	payload, err := s.artifacts.Load(ctx, a)
	if err != nil {
		return nil, kgerrors.UpstreamUnavailable("load artifact payload", err)
	}
	return payload, nil
}

// DeleteArtifact implements delete_artifact (spec.md §6, artifacts:rw).
func (s *Server) DeleteArtifact(ctx context.Context, finder ArtifactFinder, artifactID string) *kgerrors.Error {
	a, kerr := GetArtifact(ctx, finder, artifactID)
	if kerr != nil {
		return kerr
	}
	if err := s.artifacts.Delete(ctx, a); err != nil {
		return kgerrors.UpstreamUnavailable("delete artifact blob", err)
	}
	return nil
}
