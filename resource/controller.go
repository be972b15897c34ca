// Package resource bounds the IO pressure that classifier persistence can
// put on shared storage. A single Controller can be shared by every
// classifier in a process (or a registry) to throttle auto-saves and cap
// concurrent archive uploads.
package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds persistence resource limits.
type Config struct {
	// AutoSaveRate is the maximum sustained rate of auto-save writes.
	// If 0, auto-saves are not rate limited.
	AutoSaveRate rate.Limit

	// AutoSaveBurst is the burst allowance for auto-saves.
	// If 0, defaults to 1 when AutoSaveRate is set.
	AutoSaveBurst int

	// MaxConcurrentUploads is the maximum number of archive writes in
	// flight at once. If 0, defaults to 1.
	MaxConcurrentUploads int64
}

// Controller manages persistence resources.
// All methods are nil-safe: a nil Controller imposes no limits.
type Controller struct {
	saveLimiter *rate.Limiter // nil if unlimited
	uploadSem   *semaphore.Weighted

	skipped atomic.Int64
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxConcurrentUploads <= 0 {
		cfg.MaxConcurrentUploads = 1
	}

	c := &Controller{
		uploadSem: semaphore.NewWeighted(cfg.MaxConcurrentUploads),
	}

	if cfg.AutoSaveRate > 0 {
		burst := cfg.AutoSaveBurst
		if burst <= 0 {
			burst = 1
		}
		c.saveLimiter = rate.NewLimiter(cfg.AutoSaveRate, burst)
	}

	return c
}

// AllowAutoSave reports whether an auto-save may proceed now.
// A denied auto-save is counted and simply skipped; the next save interval
// catches up.
func (c *Controller) AllowAutoSave() bool {
	if c == nil || c.saveLimiter == nil {
		return true
	}
	if c.saveLimiter.Allow() {
		return true
	}
	c.skipped.Add(1)
	return false
}

// SkippedAutoSaves returns the number of auto-saves denied by the limiter.
func (c *Controller) SkippedAutoSaves() int64 {
	if c == nil {
		return 0
	}
	return c.skipped.Load()
}

// AcquireUpload reserves an upload slot, blocking until one is available or
// ctx is canceled.
func (c *Controller) AcquireUpload(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.uploadSem.Acquire(ctx, 1)
}

// TryAcquireUpload reserves an upload slot without blocking.
func (c *Controller) TryAcquireUpload() bool {
	if c == nil {
		return true
	}
	return c.uploadSem.TryAcquire(1)
}

// ReleaseUpload releases an upload slot.
func (c *Controller) ReleaseUpload() {
	if c == nil {
		return
	}
	c.uploadSem.Release(1)
}
