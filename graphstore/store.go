// Package graphstore is the Postgres+pgvector-backed implementation of the
// graph storage capability spec.md models abstractly: concepts, instances,
// relationships, and the relationship-type vocabulary, plus the
// traversal/search primitives query builds on. Grounded on
// MrWong99-glyphoxa's pkg/memory/postgres/semantic_index.go for the
// pgx/pgvector query shape (pgvector.NewVector, the `<=>` cosine operator,
// pgx.CollectRows), generalized from a single chunks table to the full
// concept/instance/relationship/vocab schema.
package graphstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the Postgres-backed graph store. All methods are safe for
// concurrent use; the pool manages its own connection lifecycle.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Open connects to Postgres using dsn and returns a ready Store. Callers
// own the returned Store's lifetime and must call Close.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("graphstore: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("graphstore: ping: %w", err)
	}
	s := &Store{pool: pool, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// New wraps an already-constructed pool, for callers (tests, cmd/kgraph)
// that manage the pool's lifecycle themselves.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{pool: pool, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
