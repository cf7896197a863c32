package feed

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

type PollStats struct {
	Runs     atomic.Int64
	Failures atomic.Int64
}

// PollOptions configures Poll.
type PollOptions struct {
	Interval time.Duration
	// MaxDelay caps the extra wait added after consecutive failures.
	MaxDelay time.Duration
	// OnError is called after every failed run.
	OnError func(error)
	// Stats allows passing an external PollStats for live tracking.
	Stats  *PollStats
	Logger *slog.Logger
}

// Poll calls fn every opts.Interval until ctx is done. Consecutive failures
// stretch the wait by one interval each, up to MaxDelay; a success resets it.
func Poll(ctx context.Context, fn func(context.Context) error, opts PollOptions) *PollStats {
	stats := opts.Stats
	if stats == nil {
		stats = &PollStats{}
	}
	if opts.Interval <= 0 {
		return stats
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 4 * opts.Interval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	go func() {
		var delay time.Duration
		timer := time.NewTimer(opts.Interval)
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}

			stats.Runs.Add(1)
			if err := fn(ctx); err != nil {
				stats.Failures.Add(1)
				if delay < opts.MaxDelay {
					delay += opts.Interval
					if delay > opts.MaxDelay {
						delay = opts.MaxDelay
					}
				}
				opts.Logger.Warn("poll failed", "err", err, "next_in", opts.Interval+delay)
				if opts.OnError != nil {
					opts.OnError(err)
				}
			} else {
				delay = 0
			}
			timer.Reset(opts.Interval + delay)
		}
	}()
	return stats
}
