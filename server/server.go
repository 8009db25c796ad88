// Package server is the thin RPC surface spec.md §6 describes: one Go
// method per table row, each translating its collaborator's plain error
// into a typed *kgerrors.Error so a transport adapter (HTTP, MCP, gRPC -
// none of which this package picks) has a stable, classifiable result to
// render. No transport, no auth middleware lives here; those are a
// caller's concern layered on top (spec.md §6's "Authorization" column is
// enforced by that caller, not by these methods).
package server

import (
	"log/slog"

	"github.com/c360studio/kgraph/jobs"
	"github.com/c360studio/kgraph/query"
	"github.com/c360studio/kgraph/storage"
)

// Server exposes the external operation surface over its collaborators.
type Server struct {
	query     *query.Service
	jobs      *jobs.Queue
	sources   *storage.SourceStore
	artifacts *storage.ArtifactStore
	logger    *slog.Logger
	pending   *pendingIngests
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New builds a Server from its collaborators.
func New(q *query.Service, jobQueue *jobs.Queue, sources *storage.SourceStore, artifacts *storage.ArtifactStore, opts ...Option) *Server {
	s := &Server{query: q, jobs: jobQueue, sources: sources, artifacts: artifacts, logger: slog.Default(), pending: newPendingIngests()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
