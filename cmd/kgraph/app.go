package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"

	"github.com/c360studio/semstreams/natsclient"

	"github.com/c360studio/kgraph/config"
	"github.com/c360studio/kgraph/embedding"
	"github.com/c360studio/kgraph/graphpublish"
	"github.com/c360studio/kgraph/graphstore"
	"github.com/c360studio/kgraph/jobs"
	"github.com/c360studio/kgraph/llm"
	"github.com/c360studio/kgraph/model"
	"github.com/c360studio/kgraph/preprocess"
	"github.com/c360studio/kgraph/query"
	"github.com/c360studio/kgraph/server"
	"github.com/c360studio/kgraph/storage"
	"github.com/c360studio/kgraph/vocabulary"
)

// App wires every subsystem spec.md §3/§4 describes into a running
// process: the pgvector-backed graph store, the embedding worker, the
// ingest job pool, the retention sweep, and the server RPC surface.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	embeddedServer *natsserver.Server
	natsClient     *natsclient.Client

	store      *graphstore.Store
	blobs      *storage.BlobStore
	sources    *storage.SourceStore
	artifacts  *storage.ArtifactStore
	queue      *jobs.Queue
	ingestPool *jobs.Pool
	cleanup    *jobs.Cleanup
	vocabSweep *vocabSweep

	Server *server.Server
}

// NewApp constructs App's collaborators. Nothing is started yet; call
// Start to begin serving.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{cfg: cfg, logger: logger}

	if err := app.startNATS(ctx); err != nil {
		return nil, fmt.Errorf("start NATS: %w", err)
	}

	store, err := graphstore.Open(ctx, cfg.Storage.PostgresDSN, graphstore.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open graph store: %w", err)
	}
	app.store = store

	blobs, err := storage.NewBlobStore(ctx, cfg.Storage.S3Bucket, cfg.Storage.S3Endpoint)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	app.blobs = blobs
	app.sources = storage.NewSourceStore(blobs)
	app.artifacts = storage.NewArtifactStore(blobs, cfg.Storage.InlineArtifactThresholdBytes)

	embedder, err := embedding.NewWorker(cfg.EmbeddingModel, embedding.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("init embedding worker: %w", err)
	}

	registry := model.NewDefaultRegistry()
	llmClient := llm.NewClient(registry, llm.WithLogger(logger))

	translator := preprocess.NewTranslator(llmClient, cfg.Chunking.MaxParallelTranslations, logger)
	publisher := graphpublish.NewPublisher(app.natsClient)

	js, err := app.natsClient.JetStream()
	if err != nil {
		return nil, fmt.Errorf("get jetstream context: %w", err)
	}
	queue, err := jobs.NewQueue(ctx, js)
	if err != nil {
		return nil, fmt.Errorf("init job queue: %w", err)
	}
	app.queue = queue

	retention := storage.NewRetentionPolicy(store, app.artifacts)
	app.cleanup = jobs.NewCleanup(retention, cfg.Jobs.CleanupInterval, logger)

	vocabManager := vocabulary.NewManager(store, llmClient,
		vocabulary.WithPruningMode(vocabulary.PruningMode(cfg.Vocabulary.PruningMode)),
		vocabulary.WithMinSimilarity(cfg.Vocabulary.SynonymThresholdModerate))
	app.vocabSweep = newVocabSweep(vocabManager, cfg.Vocabulary, logger)

	querySvc := query.NewService(store, embedder, query.WithLogger(logger))
	app.Server = server.New(querySvc, queue, app.sources, app.artifacts, server.WithLogger(logger))

	app.ingestPool = jobs.NewPool("ingest", queue, cfg.Jobs.MaxConcurrentPerType,
		newIngestHandler(app.Server, app.sources, store, llmClient, embedder, translator, publisher, queue, logger),
		jobs.WithLogger(logger))

	return app, nil
}

func (a *App) startNATS(ctx context.Context) error {
	if a.cfg.NATS.URL != "" && !a.cfg.NATS.Embedded {
		a.logger.Info("connecting to NATS", "url", a.cfg.NATS.URL)
		nc, err := natsclient.NewClient(a.cfg.NATS.URL,
			natsclient.WithName("kgraph"),
			natsclient.WithMaxReconnects(5),
			natsclient.WithReconnectWait(time.Second))
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		a.natsClient = nc
		return nil
	}

	a.logger.Info("starting embedded NATS server")
	opts := &natsserver.Options{
		Port:      -1,
		JetStream: true,
		NoLog:     true,
		NoSigs:    true,
	}
	ns, err := natsserver.NewServer(opts)
	if err != nil {
		return fmt.Errorf("create embedded NATS server: %w", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		return fmt.Errorf("embedded NATS server failed to start")
	}
	a.embeddedServer = ns

	nc, err := natsclient.NewClient(ns.ClientURL(), natsclient.WithName("kgraph"))
	if err != nil {
		ns.Shutdown()
		return fmt.Errorf("connect to embedded NATS: %w", err)
	}
	a.natsClient = nc
	return nil
}

// Start begins the ingest worker pool and the daily retention sweep.
func (a *App) Start(ctx context.Context) error {
	if err := a.ingestPool.Start(ctx); err != nil {
		return fmt.Errorf("start ingest pool: %w", err)
	}
	if err := a.cleanup.Start(a.cfg.Jobs.CleanupInterval); err != nil {
		return fmt.Errorf("start cleanup scheduler: %w", err)
	}
	if err := a.vocabSweep.Start(); err != nil {
		return fmt.Errorf("start vocabulary sweep: %w", err)
	}
	return nil
}

// Shutdown stops the worker pool, cleanup scheduler, and NATS connection.
func (a *App) Shutdown(timeout time.Duration) {
	if a.ingestPool != nil {
		_ = a.ingestPool.Stop(timeout)
	}
	if a.cleanup != nil {
		a.cleanup.Stop()
	}
	if a.vocabSweep != nil {
		a.vocabSweep.Stop()
	}
	if a.embeddedServer != nil {
		a.embeddedServer.Shutdown()
		a.embeddedServer.WaitForShutdown()
	}
}
