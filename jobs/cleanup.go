package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/c360studio/kgraph/storage"
)

// CleanupReport is the result shape Cleanup's scheduled run logs and the
// shape a caller-facing job record records (spec.md §4.7).
type CleanupReport struct {
	ExpiredFound int
	Deleted      int
	OrphanErrors []string
	RanAt        time.Time
}

// Cleanup runs storage.RetentionPolicy on a cron schedule (default daily,
// config.Jobs.CleanupInterval), the background job named in DESIGN.md's
// jobs/{queue,pool,cleanup} split.
type Cleanup struct {
	retention *storage.RetentionPolicy
	cron      *cron.Cron
	logger    *slog.Logger
	lastMu    chan struct{} // 1-buffered mutex, avoids overlapping runs
	last      CleanupReport
}

// NewCleanup wires a retention policy to a cron scheduler. The schedule
// itself is set by Start, which converts its interval to a "@every" cron
// spec; pass config.Jobs.CleanupInterval there.
func NewCleanup(retention *storage.RetentionPolicy, interval time.Duration, logger *slog.Logger) *Cleanup {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	lock := make(chan struct{}, 1)
	lock <- struct{}{}
	return &Cleanup{
		retention: retention,
		cron:      cron.New(),
		logger:    logger,
		lastMu:    lock,
	}
}

// Start schedules the cleanup sweep and begins the cron scheduler.
func (c *Cleanup) Start(interval time.Duration) error {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	_, err := c.cron.AddFunc("@every "+interval.String(), func() {
		c.runOnce(context.Background())
	})
	if err != nil {
		return err
	}
	c.cron.Start()
	return nil
}

// Stop halts the cron scheduler, waiting for any in-flight run to finish.
func (c *Cleanup) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
}

// RunNow performs an immediate out-of-schedule sweep, useful for tests and
// for an operator-triggered cleanup.
func (c *Cleanup) RunNow(ctx context.Context) CleanupReport {
	return c.runOnce(ctx)
}

func (c *Cleanup) runOnce(ctx context.Context) CleanupReport {
	select {
	case <-c.lastMu:
		defer func() { c.lastMu <- struct{}{} }()
	default:
		// A run is already in flight; skip this tick rather than overlap.
		return c.last
	}

	result, err := c.retention.CleanupExpiredArtifacts(ctx, time.Now())
	report := CleanupReport{
		ExpiredFound: result.ExpiredFound,
		Deleted:      result.Deleted,
		OrphanErrors: result.OrphanErrors,
		RanAt:        time.Now(),
	}
	if err != nil {
		c.logger.Error("jobs: cleanup sweep failed", "err", err)
		report.OrphanErrors = append(report.OrphanErrors, err.Error())
	} else {
		c.logger.Info("jobs: cleanup sweep complete",
			"expired_found", report.ExpiredFound,
			"deleted", report.Deleted,
			"orphan_errors", len(report.OrphanErrors))
	}
	c.last = report
	return report
}
