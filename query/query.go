// Package query is the read-path service atop graphstore: semantic
// concept search with the smart-threshold hint, concept detail
// enrichment, BFS traversal/pathfinding wrappers, polarity-axis
// projection, embedding-space diversity, and the raw-query pass-through
// (spec.md §4.6, SPEC_FULL.md §3.5, Modules J and K). Every method here
// is read-only except the access-count bump graphstore.ConceptByID
// already performs on read.
package query

import (
	"context"
	"log/slog"

	"github.com/c360studio/kgraph/embedding"
	"github.com/c360studio/kgraph/graphstore"
)

// Service wires graphstore's query primitives to an embedding worker. It
// holds no state of its own beyond its dependencies' handles.
type Service struct {
	store    *graphstore.Store
	embedder *embedding.Worker
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService builds a query Service.
func NewService(store *graphstore.Store, embedder *embedding.Worker, opts ...Option) *Service {
	s := &Service{store: store, embedder: embedder, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) embed(ctx context.Context, text string) ([]float32, error) {
	return s.embedder.Embed(ctx, embedding.KindQuery, text)
}
