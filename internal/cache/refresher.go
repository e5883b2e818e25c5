package cache

import (
	"context"
	"log/slog"
	"time"
)

// Refresher drives the background refresh loop: refresh, sleep the
// regular interval, repeat; after a failure it sleeps the (shorter)
// retry delay instead. The loop only exits on context cancellation.
type Refresher struct {
	cache      *Cache
	interval   time.Duration
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewRefresher creates a Refresher for the given cache.
func NewRefresher(c *Cache, interval, retryDelay time.Duration, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{cache: c, interval: interval, retryDelay: retryDelay, logger: logger}
}

// Run blocks until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) {
	timer := time.NewTimer(r.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresh loop stopping")
			return
		case <-timer.C:
		}

		delay := r.interval
		if err := r.cache.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				r.logger.Info("refresh loop stopping")
				return
			}
			r.logger.Error("background refresh failed", "error", err)
			delay = r.retryDelay
		}
		timer.Reset(delay)
	}
}
