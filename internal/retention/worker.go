// Package retention prunes chat history older than a configured age.
package retention

import (
	"context"
	"log/slog"
	"time"
)

// DefaultInterval is how often the worker sweeps when no interval is given.
const DefaultInterval = time.Hour

// Pruner removes turns created before a cutoff.
type Pruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// StartWorker runs a background goroutine that periodically removes chat
// turns older than maxAge. A non-positive maxAge disables the worker. The
// returned channel closes once the goroutine exits.
func StartWorker(ctx context.Context, repo Pruner, maxAge, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	if maxAge <= 0 {
		close(done)
		return done
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		slog.Info("Retention worker started", "interval", interval, "max_age", maxAge)

		for {
			select {
			case <-ticker.C:
				Sweep(ctx, repo, maxAge, time.Now())
			case <-ctx.Done():
				slog.Info("Retention worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
	return done
}

// Sweep removes turns created more than maxAge before now and reports how
// many were removed.
func Sweep(ctx context.Context, repo Pruner, maxAge time.Duration, now time.Time) int64 {
	cutoff := now.Add(-maxAge)
	deleted, err := repo.PruneBefore(ctx, cutoff)
	if err != nil {
		if ctx.Err() != nil {
			slog.Debug("Retention sweep interrupted", "error", err)
			return 0
		}
		slog.Error("Retention worker failed to prune chat history", "error", err, "cutoff", cutoff)
		return 0
	}
	if deleted > 0 {
		slog.Info("Retention worker pruned chat history", "count", deleted, "cutoff", cutoff)
	}
	return deleted
}
