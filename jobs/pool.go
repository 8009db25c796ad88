package jobs

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360studio/kgraph/graphmodel"
)

var (
	jobsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kgraph_jobs_processed_total",
		Help: "Jobs completed successfully, by job type.",
	}, []string{"job_type"})
	jobsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kgraph_jobs_failed_total",
		Help: "Jobs that ended in the failed state, by job type.",
	}, []string{"job_type"})
)

func init() {
	prometheus.MustRegister(jobsProcessed, jobsFailed)
}

// Handler processes a single claimed job and returns the artifact ID to
// record on completion (empty if the job produces no artifact).
type Handler func(ctx context.Context, job graphmodel.Job) (artifactID string, err error)

// Pool polls the queue for queued jobs and runs them with bounded
// concurrency, mirroring the teacher's web-ingester component's
// poll-claim-process-ack loop (consumeMessages/handleMessage in
// processor/web-ingester/component.go) generalized across job types
// instead of one fixed NATS consumer. jobType names the pool in metrics
// and logs only: jobs carry no type, so the queue is not filtered by it
// and every pool claims from the same set of queued jobs.
type Pool struct {
	jobType     string
	queue       *Queue
	handler     Handler
	concurrency int
	pollEvery   time.Duration
	logger      *slog.Logger

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	processed atomic.Int64
	failed    atomic.Int64
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPollInterval overrides the default 2s poll interval.
func WithPollInterval(d time.Duration) PoolOption {
	return func(p *Pool) { p.pollEvery = d }
}

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) PoolOption {
	return func(p *Pool) { p.logger = logger }
}

// NewPool creates a worker pool for jobType, capped at concurrency
// simultaneous jobs (config.Jobs.MaxConcurrentPerType).
func NewPool(jobType string, queue *Queue, concurrency int, handler Handler, opts ...PoolOption) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	p := &Pool{
		jobType:     jobType,
		queue:       queue,
		handler:     handler,
		concurrency: concurrency,
		pollEvery:   2 * time.Second,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins polling for queued jobs in the background.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.poll(runCtx)
	}()
	return nil
}

// Stop cancels the poll loop and waits for in-flight jobs up to timeout.
func (p *Pool) Stop(timeout time.Duration) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.cancel()
	p.running = false
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}
}

func (p *Pool) poll(ctx context.Context) {
	sem := make(chan struct{}, p.concurrency)
	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		queued, err := p.queue.ListByStatus(ctx, graphmodel.JobQueued)
		if err != nil {
			p.logger.Warn("jobs: poll failed", "job_type", p.jobType, "err", err)
			continue
		}

		for _, job := range queued {
			select {
			case <-ctx.Done():
				return
			case sem <- struct{}{}:
			}
			p.wg.Add(1)
			go func(job graphmodel.Job) {
				defer p.wg.Done()
				defer func() { <-sem }()
				p.run(ctx, job)
			}(job)
		}
	}
}

func (p *Pool) run(ctx context.Context, job graphmodel.Job) {
	claimed, err := p.queue.Claim(ctx, job.JobID)
	if err != nil {
		// Another worker (or this pool, on a prior tick) already claimed it.
		return
	}

	artifactID, err := p.handler(ctx, claimed)
	if err != nil {
		p.failed.Add(1)
		jobsFailed.WithLabelValues(p.jobType).Inc()
		if markErr := p.queue.MarkFailed(ctx, claimed.JobID, err.Error()); markErr != nil {
			p.logger.Error("jobs: mark failed error", "job_id", claimed.JobID, "err", markErr)
		}
		return
	}

	p.processed.Add(1)
	jobsProcessed.WithLabelValues(p.jobType).Inc()
	if err := p.queue.Complete(ctx, claimed.JobID, artifactID); err != nil {
		p.logger.Error("jobs: complete error", "job_id", claimed.JobID, "err", err)
	}
}

// Stats reports this pool's lifetime processed/failed counts.
func (p *Pool) Stats() (processed, failed int64) {
	return p.processed.Load(), p.failed.Load()
}
