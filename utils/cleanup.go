package utils

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// PartialSweeper removes abandoned in-progress uploads older than maxAge.
// *storage.LocalStore implements it.
type PartialSweeper interface {
	SweepPartials(maxAge time.Duration) (int, error)
}

// StartPartialUploadSweeper periodically deletes partial upload files left behind by
// interrupted requests. It stops when ctx is done; the returned channel closes after that.
func StartPartialUploadSweeper(ctx context.Context, store PartialSweeper, interval, maxAge time.Duration) <-chan struct{} {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := store.SweepPartials(maxAge)
				if err != nil {
					Logger.Warn("partial upload sweep failed", zap.Error(err))
				}
				if removed > 0 {
					Logger.Info("removed stale partial uploads", zap.Int("count", removed))
				}
			}
		}
	}()
	return done
}
