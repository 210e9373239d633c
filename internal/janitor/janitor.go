// Package janitor implements optional background pruning of bucket files
// past the retention horizon. The store itself never deletes anything; this
// loop is the designated external deleter, and it only runs when an operator
// configures a retention. Lifecycle concerns stay isolated from the request
// path.
package janitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/covtrace/tracerd/internal/app"
	"github.com/covtrace/tracerd/internal/store/bucket"
)

// Store abstracts the single store operation the janitor requires.
type Store interface {
	// PruneBefore deletes bucket files strictly older than cutoff and
	// returns the number removed.
	PruneBefore(ctx context.Context, cutoff uint64) (int, error)
}

// Config holds tunables for the Janitor.
type Config struct {
	Interval  time.Duration    // how often a cycle begins
	Retention time.Duration    // buckets older than now-Retention are pruned
	Clock     app.Clock        // time source (required)
	Logger    *slog.Logger     // optional logger (defaults to slog.Default())
	Observe   func(pruned int) // optional per-cycle callback for external metrics
}

// Metrics accumulates counters (in-memory) for operational insight.
type Metrics struct {
	mu                  sync.Mutex
	Cycles              uint64
	Pruned              uint64
	CycleLastDurationMS int64
}

// MetricsView is a read-only snapshot safe to copy.
type MetricsView struct {
	Cycles              uint64
	Pruned              uint64
	CycleLastDurationMS int64
}

func (m *Metrics) addPruned(n int) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	m.Pruned += uint64(n)
	m.mu.Unlock()
}

func (m *Metrics) recordCycle(d time.Duration) {
	m.mu.Lock()
	m.Cycles++
	m.CycleLastDurationMS = d.Milliseconds()
	m.mu.Unlock()
}

// Janitor encapsulates the background pruning loop.
type Janitor struct {
	store   Store
	cfg     Config
	metrics *Metrics

	ticker *time.Ticker
	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// New constructs but does not start a Janitor.
func New(store Store, cfg Config) *Janitor {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Janitor{
		store:   store,
		cfg:     cfg,
		metrics: &Metrics{},
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start launches the janitor loop in a new goroutine. A non-positive
// retention means there is nothing to prune, so Start is a no-op.
func (j *Janitor) Start(ctx context.Context) {
	if j.ticker != nil {
		return
	} // already started
	if j.cfg.Retention <= 0 {
		close(j.doneCh)
		return
	}
	j.ticker = time.NewTicker(j.cfg.Interval)
	go j.loop(ctx)
}

// Stop signals the loop to exit and waits for completion.
func (j *Janitor) Stop() {
	j.once.Do(func() { close(j.stopCh) })
	<-j.doneCh
}

// MetricsSnapshot returns a copy of current metrics.
func (j *Janitor) MetricsSnapshot() MetricsView {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()
	return MetricsView{
		Cycles:              j.metrics.Cycles,
		Pruned:              j.metrics.Pruned,
		CycleLastDurationMS: j.metrics.CycleLastDurationMS,
	}
}

func (j *Janitor) loop(ctx context.Context) {
	log := j.cfg.Logger.With("domain", "janitor")
	defer func() {
		j.ticker.Stop()
		close(j.doneCh)
	}()
	for {
		select {
		case <-ctx.Done():
			log.Info("janitor stop", "reason", "context_cancel")
			return
		case <-j.stopCh:
			log.Info("janitor stop", "reason", "stop_signal")
			return
		case <-j.ticker.C:
			j.runCycle(ctx)
		}
	}
}

// runCycle performs one pruning pass.
func (j *Janitor) runCycle(ctx context.Context) {
	start := time.Now()
	log := j.cfg.Logger.With("domain", "janitor", "action", "cycle")
	cutoff := bucket.Index(j.cfg.Clock.Now().Add(-j.cfg.Retention))
	count, err := j.store.PruneBefore(ctx, cutoff)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("prune", "error", err)
	}
	j.metrics.addPruned(count)
	j.metrics.recordCycle(time.Since(start))
	if j.cfg.Observe != nil {
		j.cfg.Observe(count)
	}
	log.Info("cycle complete", "pruned", count, "cutoff_bucket", cutoff, "ms", time.Since(start).Milliseconds())
}
