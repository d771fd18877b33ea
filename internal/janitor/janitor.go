// Package janitor runs periodic cleanup: expired in-memory sessions and
// activity log entries past the retention window.
package janitor

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultInterval = 10 * time.Minute
	pruneTimeout    = 30 * time.Second
)

// SessionPurger drops expired sessions. session.MemoryStore implements it;
// Redis expires keys on its own.
type SessionPurger interface {
	PurgeExpired() int
}

// ActivityPruner deletes activity entries older than cutoff.
type ActivityPruner interface {
	PruneActivity(ctx context.Context, cutoff time.Time) (int64, error)
}

// Options configures a Janitor.
type Options struct {
	Interval time.Duration
	// Retention is how long activity entries are kept. Zero keeps them forever.
	Retention time.Duration
	Sessions  SessionPurger
	Activity  ActivityPruner
	Logger    *slog.Logger
}

// Janitor owns the background cleanup loop.
type Janitor struct {
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New returns a Janitor. It returns nil when there is nothing to clean, and
// a nil Janitor is safe to Start and Shutdown.
func New(opts Options) *Janitor {
	if opts.Sessions == nil && (opts.Activity == nil || opts.Retention <= 0) {
		return nil
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{opts: opts, logger: logger, now: time.Now}
}

// Start runs one sweep immediately and then one per interval. Non-blocking.
func (j *Janitor) Start() {
	if j == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()

		j.Sweep(ctx)

		ticker := time.NewTicker(j.opts.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				j.Sweep(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Shutdown stops the loop and waits for an in-flight sweep to finish.
func (j *Janitor) Shutdown() {
	if j == nil {
		return
	}
	if j.cancel != nil {
		j.cancel()
	}
	j.wg.Wait()
}

// Sweep performs one cleanup pass.
func (j *Janitor) Sweep(ctx context.Context) {
	if j.opts.Sessions != nil {
		if n := j.opts.Sessions.PurgeExpired(); n > 0 {
			j.logger.Debug("purged expired sessions", "count", n)
		}
	}

	if j.opts.Activity == nil || j.opts.Retention <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, pruneTimeout)
	defer cancel()

	cutoff := j.now().Add(-j.opts.Retention)
	n, err := j.opts.Activity.PruneActivity(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			j.logger.Warn("activity prune failed", "error", err)
		}
		return
	}
	if n > 0 {
		j.logger.Info("pruned activity log", "count", n, "before", cutoff.Format(time.RFC3339))
	}
}
