// Package worker schedules recurring sync runs for the configured
// platform adapters.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ignite/outreach-sync/internal/pipeline"
	"github.com/ignite/outreach-sync/internal/pkg/logger"
)

// SyncAdapter is one platform's delta-sync entry point.
type SyncAdapter interface {
	Platform() string
	Run(ctx context.Context) (*pipeline.RunReport, error)
}

// Archiver persists finished run reports. Optional.
type Archiver interface {
	Archive(ctx context.Context, report *pipeline.RunReport) error
}

// Runner invokes each adapter on a fixed interval. Runs may overlap
// with manual triggers or a slow previous cycle; the pipeline is built
// to tolerate that (idempotent DDL, unique event keys), so the runner
// makes no attempt at mutual exclusion.
type Runner struct {
	adapters []SyncAdapter
	interval time.Duration
	timeout  time.Duration
	archiver Archiver
	stopChan chan struct{}

	mu      sync.RWMutex
	latest  map[string]*pipeline.RunReport
	lastErr map[string]string
}

// NewRunner creates a Runner over the given adapters.
func NewRunner(adapters []SyncAdapter, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &Runner{
		adapters: adapters,
		interval: interval,
		timeout:  15 * time.Minute,
		stopChan: make(chan struct{}),
		latest:   make(map[string]*pipeline.RunReport),
		lastErr:  make(map[string]string),
	}
}

// SetArchiver configures optional run-report archival.
func (r *Runner) SetArchiver(a Archiver) { r.archiver = a }

// Start begins the periodic sync loop.
func (r *Runner) Start() {
	logger.Info("sync runner starting", "adapters", len(r.adapters), "interval", r.interval.String())
	go r.loop()
}

// Stop halts the sync loop.
func (r *Runner) Stop() {
	close(r.stopChan)
}

func (r *Runner) loop() {
	// Initial run before the first tick
	r.runAll()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.runAll()
		case <-r.stopChan:
			logger.Info("sync runner stopped")
			return
		}
	}
}

func (r *Runner) runAll() {
	for _, adapter := range r.adapters {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		r.runOne(ctx, adapter)
		cancel()
	}
}

func (r *Runner) runOne(ctx context.Context, adapter SyncAdapter) {
	platform := adapter.Platform()
	report, err := adapter.Run(ctx)

	r.mu.Lock()
	if err != nil {
		r.lastErr[platform] = err.Error()
	} else {
		delete(r.lastErr, platform)
		r.latest[platform] = report
	}
	r.mu.Unlock()

	if err != nil {
		logger.Error("sync run failed", "platform", platform, "error", err.Error())
		return
	}

	if r.archiver != nil {
		if aerr := r.archiver.Archive(ctx, report); aerr != nil {
			logger.Warn("run report archive failed", "platform", platform, "error", aerr.Error())
		}
	}
}

// TriggerPlatform runs one platform's adapter immediately. Used by the
// manual-trigger API endpoint.
func (r *Runner) TriggerPlatform(ctx context.Context, platform string) (*pipeline.RunReport, error) {
	for _, adapter := range r.adapters {
		if adapter.Platform() != platform {
			continue
		}
		report, err := adapter.Run(ctx)

		r.mu.Lock()
		if err != nil {
			r.lastErr[platform] = err.Error()
		} else {
			delete(r.lastErr, platform)
			r.latest[platform] = report
		}
		r.mu.Unlock()

		return report, err
	}
	return nil, fmt.Errorf("unknown platform %q", platform)
}

// LatestReports returns the most recent run report per platform.
func (r *Runner) LatestReports() map[string]*pipeline.RunReport {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*pipeline.RunReport, len(r.latest))
	for k, v := range r.latest {
		out[k] = v
	}
	return out
}

// LastErrors returns the most recent run error per platform, if any.
func (r *Runner) LastErrors() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.lastErr))
	for k, v := range r.lastErr {
		out[k] = v
	}
	return out
}
